// Command watch subscribes to forecast lifecycle events and logs them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/tabcast/internal/config"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/queue"
	"github.com/soltixdb/tabcast/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	switch utils.QueueType(cfg.Queue.Type) {
	case utils.QueueTypeNone, utils.QueueTypeMemory, "":
		logger.Fatal("Queue type does not cross process boundaries; configure nats, redis or kafka",
			"type", cfg.Queue.Type)
	}

	subscriber, err := queue.NewSubscriber(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = subscriber.Close() }()

	subjects := []string{
		queue.Subject(cfg.Queue.SubjectPrefix, string(models.EventModelTrained)),
		queue.Subject(cfg.Queue.SubjectPrefix, string(models.EventForecastPredicted)),
	}
	for _, subject := range subjects {
		if err := subscriber.Subscribe(subject, handleEvent(logger)); err != nil {
			logger.Fatal("Failed to subscribe", "subject", subject, "error", err)
		}
		logger.Info("Watching subject", "subject", subject, "type", cfg.Queue.Type)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Watcher stopped")
}

// handleEvent logs each event. Undecodable payloads are acknowledged and
// skipped since redelivery would not fix them.
func handleEvent(logger *logging.Logger) queue.MessageHandler {
	return func(data []byte) error {
		var event models.ForecastEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logger.Warn("Skipping malformed event", "error", err, "bytes", len(data))
			return nil
		}

		fields := []interface{}{
			"session_id", event.SessionID,
			"target", event.Target,
			"booster", event.Booster,
			"rows", event.Rows,
			"request_id", event.RequestID,
			"timestamp", event.Timestamp,
		}
		switch event.Type {
		case models.EventModelTrained:
			if event.Metrics != nil {
				fields = append(fields, "rmse", event.Metrics.RMSE, "mae", event.Metrics.MAE)
			}
			fields = append(fields, "features", event.Features)
		case models.EventForecastPredicted:
			if event.Forecast != nil {
				fields = append(fields, "forecast", *event.Forecast)
			} else {
				fields = append(fields, "forecast", event.NonFinite)
			}
		}

		logger.Info("Forecast event "+string(event.Type), fields...)
		return nil
	}
}

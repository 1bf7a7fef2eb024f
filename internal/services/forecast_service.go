package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/tabcast/internal/features"
	"github.com/soltixdb/tabcast/internal/forecast"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/queue"
	"github.com/soltixdb/tabcast/internal/regressor"
	"github.com/soltixdb/tabcast/internal/storage"
	"github.com/soltixdb/tabcast/internal/table"
	"github.com/soltixdb/tabcast/internal/utils"
)

// session is one uploaded table with its forecaster. mu serializes every
// operation on the session, which the forecaster requires.
type session struct {
	mu sync.Mutex

	id         string
	name       string
	table      *table.Table
	target     string
	forecaster *forecast.Forecaster
	model      regressor.Model
	createdAt  time.Time
	updatedAt  time.Time
	// deleted is set under mu once the session leaves the registry
	deleted bool
}

// ForecastService manages forecast sessions
type ForecastService struct {
	logger       *logging.Logger
	provider     *regressor.Provider
	opts         features.Options
	store        storage.SnapshotStore
	events       *queue.EventPublisher
	trainTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

// ForecastServiceConfig carries the dependencies of a ForecastService.
// Store and Events are optional.
type ForecastServiceConfig struct {
	Provider     *regressor.Provider
	Options      features.Options
	Store        storage.SnapshotStore
	Events       *queue.EventPublisher
	TrainTimeout time.Duration
}

// NewForecastService creates a new ForecastService
func NewForecastService(logger *logging.Logger, cfg ForecastServiceConfig) *ForecastService {
	if logger == nil {
		logger = logging.Global()
	}
	if cfg.Provider == nil {
		cfg.Provider = regressor.NewRegistryProvider(regressor.BoosterTree)
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = utils.TrainTimeout
	}
	return &ForecastService{
		logger:       logger,
		provider:     cfg.Provider,
		opts:         cfg.Options,
		store:        cfg.Store,
		events:       cfg.Events,
		trainTimeout: cfg.TrainTimeout,
		sessions:     make(map[string]*session),
	}
}

// Boosters lists the registered model capabilities
func (s *ForecastService) Boosters() []string {
	return regressor.Names()
}

// CreateSession parses an uploaded table and registers a new session
func (s *ForecastService) CreateSession(ctx context.Context, name string, format table.Format, r io.Reader) (*models.SessionResponse, error) {
	tbl, err := table.Load(r, format)
	if err != nil {
		return nil, wrapError(CodeInvalidInput, err, map[string]interface{}{"format": string(format)})
	}
	if len(tbl.Headers) == 0 {
		return nil, NewServiceError(CodeInvalidInput, "uploaded table has no columns")
	}

	now := time.Now()
	sess := &session{
		id:        uuid.New().String(),
		name:      name,
		table:     tbl,
		target:    table.GuessTarget(tbl),
		createdAt: now,
		updatedAt: now,
	}
	if sess.name == "" {
		sess.name = sess.id
	}
	sess.forecaster = forecast.New(s.provider, s.opts, s.logger)

	if err := s.persist(sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Session created",
		"session_id", sess.id,
		"name", sess.name,
		"rows", tbl.Len(),
		"columns", len(tbl.Headers),
		"datetime_key", tbl.DatetimeKey,
		"target", sess.target)

	return sess.response(), nil
}

// GetSession returns session metadata
func (s *ForecastService) GetSession(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return sess.response(), nil
}

// ListSessions returns all sessions, oldest first
func (s *ForecastService) ListSessions(ctx context.Context) *models.SessionListResponse {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	out := make([]models.SessionResponse, 0, len(all))
	for _, sess := range all {
		sess.mu.Lock()
		out = append(out, *sess.response())
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})

	return &models.SessionListResponse{Sessions: out, Count: len(out)}
}

// DeleteSession removes a session and its snapshot
func (s *ForecastService) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return sessionNotFound(id)
	}

	// Wait out any in-flight operation so it cannot save the snapshot back
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.deleted = true

	if s.store != nil {
		if err := s.store.Delete(id); err != nil && !errors.Is(err, storage.ErrSnapshotNotFound) {
			return wrapError(CodeStorageFailed, err, map[string]interface{}{"session_id": id})
		}
	}

	s.logger.WithContext(ctx).Info("Session deleted", "session_id", id)
	return nil
}

// AppendRows adds observed rows to a session. Columns outside the session's
// headers are rejected since they would never reach the feature layout.
func (s *ForecastService) AppendRows(ctx context.Context, id string, rows []map[string]interface{}) (*models.AppendRowsResponse, error) {
	if len(rows) == 0 {
		return nil, NewServiceError(CodeInvalidInput, "no rows to append")
	}
	if len(rows) > utils.MaxAppendRows {
		return nil, NewServiceErrorWithDetails(CodeInvalidInput,
			fmt.Sprintf("too many rows: %d (max %d)", len(rows), utils.MaxAppendRows),
			map[string]interface{}{"max_rows": utils.MaxAppendRows})
	}

	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	converted := make([]table.Row, len(rows))
	for i, r := range rows {
		row := make(table.Row, len(sess.table.Headers))
		for k, v := range r {
			if !sess.table.HasHeader(k) {
				return nil, NewServiceErrorWithDetails(CodeInvalidInput,
					fmt.Sprintf("row %d: unknown column %q", i, k),
					map[string]interface{}{"row": i, "column": k})
			}
			row[k] = v
		}
		converted[i] = row
	}

	prev := len(sess.table.Rows)
	sess.table.Append(converted...)
	sess.updatedAt = time.Now()

	if err := s.persist(sess); err != nil {
		sess.table.Rows = sess.table.Rows[:prev]
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Rows appended",
		"session_id", id,
		"accepted", len(converted),
		"rows", sess.table.Len())

	return &models.AppendRowsResponse{Accepted: len(converted), Rows: sess.table.Len()}, nil
}

// Features builds the supervised-learning matrix for target ("" selects the
// session's target)
func (s *ForecastService) Features(ctx context.Context, id, target string) (*models.FeaturesResponse, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	target, err = sess.resolveTarget(target)
	if err != nil {
		return nil, err
	}

	ds, err := features.BuildFromTable(sess.table, target, sess.forecaster.Options())
	if err != nil {
		return nil, wrapError(CodeInvalidInput, err, nil)
	}

	return &models.FeaturesResponse{
		Target:         ds.Target,
		Exogenous:      ds.Exogenous,
		FeatureNames:   ds.FeatureNames,
		Dimension:      ds.Dimension(),
		X:              models.NullableMatrix(ds.X),
		Y:              models.NullableFloats(ds.Y),
		LastFeatureRow: models.NullableFloats(ds.LastFeatureRow),
	}, nil
}

// Train fits a model for target on the session's current rows and scores it
// in-sample. The fit is bounded by the configured training timeout.
func (s *ForecastService) Train(ctx context.Context, id, target string) (*models.TrainResponse, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	target, err = sess.resolveTarget(target)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ds, err := features.BuildFromTable(sess.table, target, sess.forecaster.Options())
	if err != nil {
		return nil, wrapError(CodeInvalidInput, err, nil)
	}

	trainCtx, cancel := context.WithTimeout(ctx, s.trainTimeout)
	defer cancel()

	model, err := sess.forecaster.Train(trainCtx, ds)
	if err != nil {
		sess.model = nil
		s.logger.WithContext(ctx).Warn("Training failed", "session_id", id, "target", target, "error", err)
		return nil, wrapError(trainingCode(err), err, map[string]interface{}{"session_id": id, "target": target})
	}

	report, err := sess.forecaster.Evaluate(trainCtx, ds, model)
	if err != nil {
		sess.model = nil
		sess.forecaster.Reset()
		return nil, wrapError(CodeTrainingFailed, err, map[string]interface{}{"session_id": id})
	}

	targetChanged := sess.target != target
	sess.model = model
	sess.target = target
	sess.updatedAt = time.Now()
	if targetChanged {
		if err := s.persist(sess); err != nil {
			s.logger.Warn("Failed to persist trained target", "session_id", id, "error", err)
		}
	}

	cfg := sess.forecaster.Config()
	metrics := models.MetricsResponse{
		MAE:        report.MAE,
		RMSE:       report.RMSE,
		MAPE:       report.MAPE,
		DataPoints: report.DataPoints,
	}

	s.publish(ctx, models.ForecastEvent{
		Type:      models.EventModelTrained,
		SessionID: id,
		Target:    target,
		Booster:   cfg.Booster,
		Rows:      ds.Len(),
		Features:  ds.Dimension(),
		Metrics:   &metrics,
	})

	return &models.TrainResponse{
		SessionID: id,
		Target:    target,
		Booster:   cfg.Booster,
		Config:    cfg.Map(),
		Rows:      ds.Len(),
		Features:  ds.Dimension(),
		Metrics:   metrics,
		TookMs:    time.Since(start).Milliseconds(),
	}, nil
}

// Predict returns the one-step-ahead forecast from the session's trained
// model, rebuilding the next-step row from the current rows.
func (s *ForecastService) Predict(ctx context.Context, id string) (*models.ForecastResponse, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.model == nil {
		return nil, NewServiceErrorWithDetails(CodeNotTrained,
			"session has no trained model",
			map[string]interface{}{"session_id": id})
	}

	value, err := sess.forecaster.PredictNext(ctx, sess.table, sess.target, sess.model)
	if err != nil {
		s.logger.WithContext(ctx).Warn("Prediction failed", "session_id", id, "error", err)
		return nil, wrapError(predictionCode(err), err, map[string]interface{}{"session_id": id})
	}

	now := time.Now()
	resp := &models.ForecastResponse{
		SessionID: id,
		Target:    sess.target,
		Forecast:  models.NullableFloat(value),
		NonFinite: models.NonFiniteLabel(value),
		Rows:      sess.table.Len(),
		CreatedAt: models.FormatTime(now),
	}
	if resp.NonFinite != "" {
		s.logger.WithContext(ctx).Warn("Model returned a non-finite forecast",
			"session_id", id, "value", resp.NonFinite)
	}

	s.publish(ctx, models.ForecastEvent{
		Type:      models.EventForecastPredicted,
		SessionID: id,
		Target:    sess.target,
		Booster:   sess.forecaster.Config().Booster,
		Rows:      resp.Rows,
		Forecast:  resp.Forecast,
		NonFinite: resp.NonFinite,
	})

	return resp, nil
}

// Restore loads persisted sessions. Models are not persisted, so restored
// sessions start untrained.
func (s *ForecastService) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	snapshots, err := s.store.List()
	if len(snapshots) == 0 && err != nil {
		return 0, wrapError(CodeStorageFailed, err, nil)
	}
	if err != nil {
		s.logger.Warn("Some snapshots could not be read", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		s.sessions[snap.ID] = &session{
			id:         snap.ID,
			name:       snap.Name,
			table:      snap.Table(),
			target:     snap.Target,
			forecaster: forecast.New(s.provider, s.opts, s.logger),
			createdAt:  snap.CreatedAt,
			updatedAt:  snap.UpdatedAt,
		}
	}

	s.logger.WithContext(ctx).Info("Sessions restored", "count", len(snapshots))
	return len(snapshots), nil
}

// acquire returns the session locked; callers unlock sess.mu
func (s *ForecastService) acquire(id string) (*session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	if sess.deleted {
		sess.mu.Unlock()
		return nil, sessionNotFound(id)
	}
	return sess, nil
}

func (s *ForecastService) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sessionNotFound(id)
	}
	return sess, nil
}

// persist saves the session snapshot; callers hold sess.mu
func (s *ForecastService) persist(sess *session) error {
	if s.store == nil || sess.deleted {
		return nil
	}
	err := s.store.Save(&storage.Snapshot{
		ID:          sess.id,
		Name:        sess.name,
		Target:      sess.target,
		Headers:     sess.table.Headers,
		DatetimeKey: sess.table.DatetimeKey,
		Rows:        sess.table.Rows,
		CreatedAt:   sess.createdAt,
		UpdatedAt:   sess.updatedAt,
	})
	if err != nil {
		return wrapError(CodeStorageFailed, err, map[string]interface{}{"session_id": sess.id})
	}
	return nil
}

// publish emits an event; failures are logged and never fail the request
func (s *ForecastService) publish(ctx context.Context, event models.ForecastEvent) {
	if s.events == nil {
		return
	}
	event.RequestID = logging.RequestIDFromContext(ctx)
	event.Timestamp = models.FormatTime(time.Now())

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WithContext(ctx).Warn("Failed to publish forecast event",
			"type", string(event.Type),
			"session_id", event.SessionID,
			"error", err)
	}
}

// resolveTarget defaults to the session target and checks it names a
// non-datetime column. Callers hold sess.mu.
func (sess *session) resolveTarget(target string) (string, error) {
	if target == "" {
		target = sess.target
	}
	if target == "" {
		return "", NewServiceError(CodeInvalidTarget, "session has no target column")
	}
	if !sess.table.HasHeader(target) {
		return "", NewServiceErrorWithDetails(CodeInvalidTarget,
			fmt.Sprintf("unknown target column %q", target),
			map[string]interface{}{"target": target, "headers": sess.table.Headers})
	}
	if target == sess.table.DatetimeKey {
		return "", NewServiceErrorWithDetails(CodeInvalidTarget,
			fmt.Sprintf("target %q is the datetime column", target),
			map[string]interface{}{"target": target})
	}
	return target, nil
}

// response renders session metadata; callers hold sess.mu
func (sess *session) response() *models.SessionResponse {
	return &models.SessionResponse{
		ID:          sess.id,
		Name:        sess.name,
		Headers:     append([]string(nil), sess.table.Headers...),
		DatetimeKey: sess.table.DatetimeKey,
		Target:      sess.target,
		Rows:        sess.table.Len(),
		State:       sess.forecaster.State().String(),
		Trained:     sess.model != nil,
		CreatedAt:   models.FormatTime(sess.createdAt),
		UpdatedAt:   models.FormatTime(sess.updatedAt),
	}
}

func sessionNotFound(id string) *ServiceError {
	return NewServiceErrorWithDetails(CodeSessionNotFound,
		fmt.Sprintf("session %q not found", id),
		map[string]interface{}{"session_id": id})
}

package regressor

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Booster names
const (
	BoosterTree   = "gbtree"
	BoosterLinear = "gblinear"
)

// Objectives. "reg:linear" is the legacy alias of squared error.
const (
	ObjectiveSquaredError = "reg:squarederror"
	ObjectiveLinearLegacy = "reg:linear"
)

// Config is the construction record accepted by every factory.
// Only the fields below are recognized; see ConfigFromMap.
type Config struct {
	Booster         string  `mapstructure:"booster" json:"booster"`
	Objective       string  `mapstructure:"objective" json:"objective"`
	MaxDepth        int     `mapstructure:"max_depth" json:"max_depth"`
	Eta             float64 `mapstructure:"eta" json:"eta"`
	MinChildWeight  int     `mapstructure:"min_child_weight" json:"min_child_weight"`
	Subsample       float64 `mapstructure:"subsample" json:"subsample"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree" json:"colsample_bytree"`
	Iterations      int     `mapstructure:"iterations" json:"iterations"`
	// Seed drives row and column subsampling
	Seed int64 `mapstructure:"seed" json:"seed"`
}

// DefaultConfig returns the fixed training policy: tree boosting, depth 4,
// learning rate 0.1, subsample 0.8, 200 iterations.
func DefaultConfig() Config {
	return Config{
		Booster:         BoosterTree,
		Objective:       ObjectiveSquaredError,
		MaxDepth:        4,
		Eta:             0.1,
		MinChildWeight:  1,
		Subsample:       0.8,
		ColsampleByTree: 1,
		Iterations:      200,
		Seed:            1,
	}
}

// ConfigFromMap decodes a loosely typed record on top of DefaultConfig.
// Unknown keys are rejected.
func ConfigFromMap(m map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return Config{}, fmt.Errorf("invalid model config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Objective {
	case ObjectiveSquaredError, ObjectiveLinearLegacy:
	default:
		return fmt.Errorf("unsupported objective: %q", c.Objective)
	}
	if c.Booster == "" {
		return fmt.Errorf("booster is required")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1, got %d", c.MaxDepth)
	}
	if c.Eta <= 0 || c.Eta > 1 {
		return fmt.Errorf("eta must be in (0, 1], got %v", c.Eta)
	}
	if c.MinChildWeight < 0 {
		return fmt.Errorf("min_child_weight must be >= 0, got %d", c.MinChildWeight)
	}
	if c.Subsample <= 0 || c.Subsample > 1 {
		return fmt.Errorf("subsample must be in (0, 1], got %v", c.Subsample)
	}
	if c.ColsampleByTree <= 0 || c.ColsampleByTree > 1 {
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %v", c.ColsampleByTree)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be >= 1, got %d", c.Iterations)
	}
	return nil
}

// Map returns the record as key/value pairs, for logging and event payloads.
func (c Config) Map() map[string]interface{} {
	return map[string]interface{}{
		"booster":          c.Booster,
		"objective":        c.Objective,
		"max_depth":        c.MaxDepth,
		"eta":              c.Eta,
		"min_child_weight": c.MinChildWeight,
		"subsample":        c.Subsample,
		"colsample_bytree": c.ColsampleByTree,
		"iterations":       c.Iterations,
	}
}

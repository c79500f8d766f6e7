package losses

import (
	"github.com/pkg/errors"
)

// FocalConfig defines the hyperparameters of the focal classification loss.
type FocalConfig struct {
	// Alpha scales the focal weight. Must lie in (0, 1).
	Alpha float32
	// Gamma is the focusing exponent applied to the focal weight. Must be >= 0.
	Gamma float32
	// CenterAlpha weights the center-loss regularizer. 0 disables it.
	CenterAlpha float32
	// NumClasses is the number of object classes and the center table length.
	NumClasses int
}

// DefaultFocalConfig returns the standard RetinaNet focal loss parameters.
func DefaultFocalConfig() *FocalConfig {
	return &FocalConfig{
		Alpha:       0.25,
		Gamma:       2.0,
		CenterAlpha: 0.03,
		NumClasses:  9,
	}
}

// Validate checks the hyperparameters, failing fast on nonsense values.
func (c *FocalConfig) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return errors.Errorf("alpha must lie in (0, 1), got %v", c.Alpha)
	}
	if c.Gamma < 0 {
		return errors.Errorf("gamma must be >= 0, got %v", c.Gamma)
	}
	if c.CenterAlpha < 0 {
		return errors.Errorf("centerAlpha must be >= 0, got %v", c.CenterAlpha)
	}
	if c.NumClasses <= 0 {
		return errors.Errorf("numClasses must be positive, got %d", c.NumClasses)
	}
	return nil
}

// SmoothL1Config defines the hyperparameters of the smooth L1 regression loss.
type SmoothL1Config struct {
	// Sigma controls where the loss changes from L2 to L1: the transition
	// point is 1/sigma^2. Must be > 0.
	Sigma float32
}

// DefaultSmoothL1Config returns the standard RetinaNet regression loss parameters.
func DefaultSmoothL1Config() *SmoothL1Config {
	return &SmoothL1Config{Sigma: 3.0}
}

// Validate checks the hyperparameters.
func (c *SmoothL1Config) Validate() error {
	if c.Sigma <= 0 {
		return errors.Errorf("sigma must be > 0, got %v", c.Sigma)
	}
	return nil
}

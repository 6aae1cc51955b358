package icp

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Config configures the scan ICP pipeline. Distances are in the units of the scans.
type Config struct {
	MaxCorrespondenceDistance float64 `json:"max_correspondence_distance"`
	OutlierRatio              float64 `json:"outlier_ratio"`
	MaxIterations             int     `json:"max_iterations"`
	Epsilon                   float64 `json:"epsilon"`
	MinCorrespondenceRatio    float64 `json:"min_correspondence_ratio"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxCorrespondenceDistance: 0.1,
		OutlierRatio:              0.85,
		MaxIterations:             30,
		Epsilon:                   1e-6,
		MinCorrespondenceRatio:    0.1,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	var errs error
	if conf.MaxCorrespondenceDistance <= 0 {
		errs = multierr.Append(errs, errors.Errorf(
			"max_correspondence_distance must be positive, got %v", conf.MaxCorrespondenceDistance))
	}
	if conf.OutlierRatio <= 0 || conf.OutlierRatio > 1 {
		errs = multierr.Append(errs, errors.Errorf("outlier_ratio must be in (0, 1], got %v", conf.OutlierRatio))
	}
	if conf.MaxIterations <= 0 {
		errs = multierr.Append(errs, errors.Errorf("max_iterations must be positive, got %d", conf.MaxIterations))
	}
	if conf.Epsilon < 0 {
		errs = multierr.Append(errs, errors.Errorf("epsilon cannot be negative, got %v", conf.Epsilon))
	}
	if conf.MinCorrespondenceRatio < 0 || conf.MinCorrespondenceRatio > 1 {
		errs = multierr.Append(errs, errors.Errorf(
			"min_correspondence_ratio must be in [0, 1], got %v", conf.MinCorrespondenceRatio))
	}
	if errs != nil {
		return utils.NewConfigValidationError(path, errs)
	}
	return nil
}

// NewConfigFromAttributes decodes attributes over the defaults. Missing attributes keep their
// default value.
func NewConfigFromAttributes(attributes map[string]interface{}) (Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return Config{}, errors.Wrap(err, "error decoding icp attributes")
	}
	return conf, nil
}

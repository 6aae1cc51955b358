package odometry

import (
	"encoding/json"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Config configures the keyframe renewal policy of the F2F estimator.
type Config struct {
	// KeyFrameThr renews the keyframe once visual inliers fall to this ratio of the keyframe
	// keypoints. Zero renews on every cycle.
	KeyFrameThr float64 `json:"keyframe_threshold"`
	// VisKeyFrameThr renews the keyframe once visual inliers fall to this count. Zero renews on
	// every cycle.
	VisKeyFrameThr int `json:"visual_keyframe_threshold"`
	// ScanKeyFrameThr renews the keyframe once the ICP inlier ratio falls to this value. Zero
	// renews on every cycle.
	ScanKeyFrameThr float64 `json:"scan_keyframe_threshold"`
	// FillInfoData adds correspondences and local maps to the per cycle Info.
	FillInfoData bool `json:"fill_info_data"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		KeyFrameThr:     0.3,
		VisKeyFrameThr:  150,
		ScanKeyFrameThr: 0.9,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	var errs error
	if conf.KeyFrameThr < 0 || conf.KeyFrameThr > 1 {
		errs = multierr.Append(errs, errors.Errorf("keyframe_threshold must be in [0, 1], got %v", conf.KeyFrameThr))
	}
	if conf.VisKeyFrameThr < 0 {
		errs = multierr.Append(errs, errors.Errorf("visual_keyframe_threshold cannot be negative, got %d", conf.VisKeyFrameThr))
	}
	if conf.ScanKeyFrameThr < 0 || conf.ScanKeyFrameThr > 1 {
		errs = multierr.Append(errs, errors.Errorf("scan_keyframe_threshold must be in [0, 1], got %v", conf.ScanKeyFrameThr))
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
		return Config{}, errors.Wrap(err, "error decoding odometry attributes")
	}
	return conf, nil
}

// LoadConfig reads a JSON config file. Fields absent from the file keep their default value.
func LoadConfig(path string) (Config, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config file %q", path)
	}
	conf := DefaultConfig()
	if err := json.Unmarshal(raw, &conf); err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse config file %q", path)
	}
	if err := conf.Validate(path); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtone/internal/cw"
	"github.com/ColonelBlimp/cwtone/internal/dsp"
)

const (
	AppName       = "cwtone"
	ConfigType    = "yaml"
	DefaultConfig = `# cwtone configuration

# Audio device settings
device_index: -1        # -1 for default device (see 'cwtone devices')
sample_rate: 48000      # Audio sample rate in Hz
channels: 1             # Captured channels; only the first is decoded
buffer_size: 1024       # Device period size in frames
queue_size: 64          # Blocks buffered between capture and decoder; oldest dropped when full

# Tone detection
tone_frequency: 700     # CW tone frequency in Hz
block_size: 240         # Samples per detection window (240 at 48kHz = 5ms)
accumulate_power: false # Never reset the filter between windows

# Decoding thresholds
power_threshold: 0.01   # Normalized tone power must exceed this (full scale sine = 1.0)
dot_max_duration: 150ms         # Shorter tones are dots
dash_max_duration: 350ms        # Shorter tones are dashes, longer ones are dropped
letter_gap_min_duration: 360ms  # Silence that ends a letter
word_gap_min_duration: 700ms    # Silence that ends a word

# Event sinks
mqtt_enabled: false
mqtt_broker: "tcp://localhost:1883"
mqtt_topic: "cwtone/events"
mqtt_qos: 0
journal_path: ""        # SQLite file for decoded events, empty to disable

# Output
debug: false            # Log anomalies and unrecognized codes
`
)

// Settings holds all application configuration
type Settings struct {
	// Audio device settings
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Channels    int     `mapstructure:"channels"`
	BufferSize  int     `mapstructure:"buffer_size"`
	QueueSize   int     `mapstructure:"queue_size"`

	// Tone detection
	ToneFrequency   float64 `mapstructure:"tone_frequency"`
	BlockSize       int     `mapstructure:"block_size"`
	AccumulatePower bool    `mapstructure:"accumulate_power"`

	// Decoding thresholds
	PowerThreshold float64       `mapstructure:"power_threshold"`
	DotMax         time.Duration `mapstructure:"dot_max_duration"`
	DashMax        time.Duration `mapstructure:"dash_max_duration"`
	LetterGapMin   time.Duration `mapstructure:"letter_gap_min_duration"`
	WordGapMin     time.Duration `mapstructure:"word_gap_min_duration"`

	// Event sinks
	MQTTEnabled bool   `mapstructure:"mqtt_enabled"`
	MQTTBroker  string `mapstructure:"mqtt_broker"`
	MQTTTopic   string `mapstructure:"mqtt_topic"`
	MQTTQoS     int    `mapstructure:"mqtt_qos"`
	JournalPath string `mapstructure:"journal_path"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwtone/
func Init() error {
	// Set defaults
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channels", 1)
	viper.SetDefault("buffer_size", 1024)
	viper.SetDefault("queue_size", 64)
	viper.SetDefault("tone_frequency", 700)
	viper.SetDefault("block_size", 240)
	viper.SetDefault("accumulate_power", false)
	viper.SetDefault("power_threshold", 0.01)
	viper.SetDefault("dot_max_duration", "150ms")
	viper.SetDefault("dash_max_duration", "350ms")
	viper.SetDefault("letter_gap_min_duration", "360ms")
	viper.SetDefault("word_gap_min_duration", "700ms")
	viper.SetDefault("mqtt_enabled", false)
	viper.SetDefault("mqtt_broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt_topic", "cwtone/events")
	viper.SetDefault("mqtt_qos", 0)
	viper.SetDefault("journal_path", "")
	viper.SetDefault("debug", false)

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		// No config found - create default in ~/.config/cwtone/
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Audio device settings
	if s.DeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("device_index must be -1 or a device number, got %d", s.DeviceIndex))
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}
	if s.QueueSize < 1 || s.QueueSize > 4096 {
		errs = append(errs, fmt.Errorf("queue_size must be between 1 and 4096, got %d", s.QueueSize))
	}

	// Tone detection. Goertzel does not need a power of 2 window.
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 8192 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 8192, got %d", s.BlockSize))
	}
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	// Decoding thresholds
	if s.PowerThreshold < 0 {
		errs = append(errs, fmt.Errorf("power_threshold must be non-negative, got %v", s.PowerThreshold))
	}
	if s.DotMax <= 0 {
		errs = append(errs, fmt.Errorf("dot_max_duration must be positive, got %v", s.DotMax))
	}
	if s.DashMax <= s.DotMax {
		errs = append(errs, fmt.Errorf("dash_max_duration (%v) must be greater than dot_max_duration (%v)", s.DashMax, s.DotMax))
	}
	if s.LetterGapMin <= s.DashMax {
		errs = append(errs, fmt.Errorf("letter_gap_min_duration (%v) must be greater than dash_max_duration (%v)", s.LetterGapMin, s.DashMax))
	}
	if s.WordGapMin < s.LetterGapMin {
		errs = append(errs, fmt.Errorf("word_gap_min_duration (%v) must not be less than letter_gap_min_duration (%v)", s.WordGapMin, s.LetterGapMin))
	}

	// Event sinks
	if s.MQTTEnabled {
		if s.MQTTBroker == "" {
			errs = append(errs, errors.New("mqtt_broker is required when mqtt_enabled is set"))
		}
		if s.MQTTTopic == "" {
			errs = append(errs, errors.New("mqtt_topic is required when mqtt_enabled is set"))
		}
	}
	if s.MQTTQoS < 0 || s.MQTTQoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt_qos must be 0, 1 or 2, got %d", s.MQTTQoS))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DetectorConfig returns the tone detector settings
func (s *Settings) DetectorConfig() dsp.ToneDetectorConfig {
	return dsp.ToneDetectorConfig{
		TargetFrequency: s.ToneFrequency,
		SampleRate:      s.SampleRate,
		BlockSize:       s.BlockSize,
		Accumulate:      s.AccumulatePower,
	}
}

// DecoderConfig returns the Morse timing thresholds
func (s *Settings) DecoderConfig() cw.DecoderConfig {
	return cw.DecoderConfig{
		DotMax:         s.DotMax,
		DashMax:        s.DashMax,
		LetterGapMin:   s.LetterGapMin,
		WordGapMin:     s.WordGapMin,
		PowerThreshold: s.PowerThreshold,
	}
}

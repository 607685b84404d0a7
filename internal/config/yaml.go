package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// settingsDoc mirrors Settings with durations written the way the config file spells them.
type settingsDoc struct {
	DeviceIndex int     `yaml:"device_index"`
	SampleRate  float64 `yaml:"sample_rate"`
	Channels    int     `yaml:"channels"`
	BufferSize  int     `yaml:"buffer_size"`
	QueueSize   int     `yaml:"queue_size"`

	ToneFrequency   float64 `yaml:"tone_frequency"`
	BlockSize       int     `yaml:"block_size"`
	AccumulatePower bool    `yaml:"accumulate_power"`

	PowerThreshold float64 `yaml:"power_threshold"`
	DotMax         string  `yaml:"dot_max_duration"`
	DashMax        string  `yaml:"dash_max_duration"`
	LetterGapMin   string  `yaml:"letter_gap_min_duration"`
	WordGapMin     string  `yaml:"word_gap_min_duration"`

	MQTTEnabled bool   `yaml:"mqtt_enabled"`
	MQTTBroker  string `yaml:"mqtt_broker"`
	MQTTTopic   string `yaml:"mqtt_topic"`
	MQTTQoS     int    `yaml:"mqtt_qos"`
	JournalPath string `yaml:"journal_path"`

	Debug bool `yaml:"debug"`
}

// MarshalYAML implements yaml.Marshaler so effective settings can be written back as a config file.
func (s Settings) MarshalYAML() (interface{}, error) {
	return settingsDoc{
		DeviceIndex:     s.DeviceIndex,
		SampleRate:      s.SampleRate,
		Channels:        s.Channels,
		BufferSize:      s.BufferSize,
		QueueSize:       s.QueueSize,
		ToneFrequency:   s.ToneFrequency,
		BlockSize:       s.BlockSize,
		AccumulatePower: s.AccumulatePower,
		PowerThreshold:  s.PowerThreshold,
		DotMax:          s.DotMax.String(),
		DashMax:         s.DashMax.String(),
		LetterGapMin:    s.LetterGapMin.String(),
		WordGapMin:      s.WordGapMin.String(),
		MQTTEnabled:     s.MQTTEnabled,
		MQTTBroker:      s.MQTTBroker,
		MQTTTopic:       s.MQTTTopic,
		MQTTQoS:         s.MQTTQoS,
		JournalPath:     s.JournalPath,
		Debug:           s.Debug,
	}, nil
}

// Dump renders the settings as YAML.
func Dump(s *Settings) ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return out, nil
}

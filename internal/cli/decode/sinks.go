package decode

import (
	"fmt"
	"io"

	"github.com/ColonelBlimp/cwtone/internal/config"
	"github.com/ColonelBlimp/cwtone/internal/sink"
)

// OpenSinks builds the output fan-out for a session: text to w, plus MQTT and the
// SQLite journal when the settings enable them.
func OpenSinks(s config.Settings, w io.Writer) (*sink.Multi, error) {
	sinks := []sink.Sink{sink.NewText(w)}

	if s.JournalPath != "" {
		journal, err := sink.OpenJournal(s.JournalPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, journal)
	}

	if s.MQTTEnabled {
		publisher, err := sink.NewMQTT(sink.MQTTConfig{
			Broker: s.MQTTBroker,
			Topic:  s.MQTTTopic,
			QoS:    byte(s.MQTTQoS),
		})
		if err != nil {
			_ = sink.NewMulti(sinks...).Close()
			return nil, fmt.Errorf("open mqtt sink: %w", err)
		}
		sinks = append(sinks, publisher)
	}

	return sink.NewMulti(sinks...), nil
}

package decode

import (
	"fmt"

	"github.com/ColonelBlimp/cwtone/internal/audio"
)

// ListAudioDevices returns a printable line per capture device, in the order the
// device_index setting refers to them.
func ListAudioDevices() ([]string, error) {
	capture := audio.New(audio.DefaultConfig())
	if err := capture.Init(); err != nil {
		return nil, err
	}
	defer capture.Close()

	devices, err := capture.ListDevices()
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(devices))
	for i, d := range devices {
		line := fmt.Sprintf("[%d] %s", i, d.Name())
		if d.IsDefault != 0 {
			line += " (default)"
		}
		lines = append(lines, line)
	}
	return lines, nil
}

package decode

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats summarizes one decode run
type Stats struct {
	Blocks       uint64
	Samples      uint64
	Letters      uint64
	Unrecognized uint64
	WordSpaces   uint64
	Anomalies    uint64
	Dropped      uint64 // blocks the capture discarded because the decoder fell behind
	SinkErrors   uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s blocks, %s samples, %s letters, %s unrecognized, %s word spaces, %s anomalies, %s dropped, %s sink errors",
		humanize.Comma(int64(s.Blocks)),
		humanize.Comma(int64(s.Samples)),
		humanize.Comma(int64(s.Letters)),
		humanize.Comma(int64(s.Unrecognized)),
		humanize.Comma(int64(s.WordSpaces)),
		humanize.Comma(int64(s.Anomalies)),
		humanize.Comma(int64(s.Dropped)),
		humanize.Comma(int64(s.SinkErrors)),
	)
}

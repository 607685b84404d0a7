package audio

import (
	"testing"
	"time"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func ramp(n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(i)
	}
	return s
}

func collect(b *Blocker, input []int16, chunk int) []Block {
	var out []Block
	for i := 0; i < len(input); i += chunk {
		end := i + chunk
		if end > len(input) {
			end = len(input)
		}
		b.Write(input[i:end], func(blk Block) { out = append(out, blk) })
	}
	return out
}

func TestBlocker_IndependentOfChunking(t *testing.T) {
	input := ramp(1000)

	ref := NewBlocker(80, 8000)
	ref.Anchor(testEpoch)
	want := collect(ref, input, len(input))

	if len(want) != 12 {
		t.Fatalf("got %d blocks, want 12", len(want))
	}

	for _, chunk := range []int{1, 7, 79, 80, 81, 333} {
		b := NewBlocker(80, 8000)
		b.Anchor(testEpoch)
		got := collect(b, input, chunk)

		if len(got) != len(want) {
			t.Fatalf("chunk %d: got %d blocks, want %d", chunk, len(got), len(want))
		}
		for i := range want {
			if !got[i].Time.Equal(want[i].Time) {
				t.Errorf("chunk %d block %d: time %v, want %v", chunk, i, got[i].Time, want[i].Time)
			}
			if got[i].Samples[0] != want[i].Samples[0] || len(got[i].Samples) != 80 {
				t.Errorf("chunk %d block %d: starts at %d with %d samples", chunk, i, got[i].Samples[0], len(got[i].Samples))
			}
		}
	}
}

func TestBlocker_Timestamps(t *testing.T) {
	b := NewBlocker(80, 8000)
	b.Anchor(testEpoch)
	blocks := collect(b, ramp(240), 240)

	for i, blk := range blocks {
		want := testEpoch.Add(time.Duration(i+1) * 10 * time.Millisecond)
		if !blk.Time.Equal(want) {
			t.Errorf("block %d time = %v, want %v", i, blk.Time, want)
		}
	}
}

func TestBlocker_AnchorOnce(t *testing.T) {
	b := NewBlocker(4, 1000)
	if b.Anchored() {
		t.Fatal("new Blocker reports anchored")
	}
	b.Anchor(testEpoch)
	b.Anchor(testEpoch.Add(time.Hour))

	blocks := collect(b, ramp(4), 4)
	if want := testEpoch.Add(4 * time.Millisecond); !blocks[0].Time.Equal(want) {
		t.Errorf("time = %v, want %v (second Anchor ignored)", blocks[0].Time, want)
	}
}

func TestBlocker_Flush(t *testing.T) {
	b := NewBlocker(10, 1000)
	b.Anchor(testEpoch)

	blocks := collect(b, ramp(25), 25)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}

	rest, ok := b.Flush()
	if !ok {
		t.Fatal("Flush() returned nothing with 5 samples pending")
	}
	if len(rest.Samples) != 5 || rest.Samples[0] != 20 {
		t.Errorf("Flush() = %v, want samples 20..24", rest.Samples)
	}
	if want := testEpoch.Add(25 * time.Millisecond); !rest.Time.Equal(want) {
		t.Errorf("Flush() time = %v, want %v", rest.Time, want)
	}

	if _, ok := b.Flush(); ok {
		t.Error("second Flush() returned a block")
	}
}

func TestBlocker_BlocksDoNotAlias(t *testing.T) {
	b := NewBlocker(2, 1000)
	blocks := collect(b, []int16{1, 2, 3, 4}, 4)

	if blocks[0].Samples[0] != 1 || blocks[1].Samples[0] != 3 {
		t.Errorf("blocks share storage: %v %v", blocks[0].Samples, blocks[1].Samples)
	}
}

func TestFirstChannel(t *testing.T) {
	tests := []struct {
		name     string
		in       []int16
		channels int
		want     []int16
	}{
		{"mono", []int16{1, 2, 3}, 1, []int16{1, 2, 3}},
		{"stereo", []int16{1, -1, 2, -2, 3, -3}, 2, []int16{1, 2, 3}},
		{"partial frame", []int16{1, -1, 2}, 2, []int16{1}},
		{"four channels", []int16{1, 0, 0, 0, 2, 0, 0, 0}, 4, []int16{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstChannel(tt.in, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("firstChannel() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("firstChannel() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

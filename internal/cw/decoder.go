package cw

import (
	"errors"
	"time"
)

var (
	// ErrInvalidDotMax indicates the dot threshold must be positive
	ErrInvalidDotMax = errors.New("dot max duration must be positive")
	// ErrInvalidTimingOrder indicates thresholds must satisfy dot < dash < letter gap <= word gap
	ErrInvalidTimingOrder = errors.New("timing thresholds must satisfy dot_max < dash_max < letter_gap_min <= word_gap_min")
	// ErrInvalidThreshold indicates power threshold must be non-negative
	ErrInvalidThreshold = errors.New("power threshold must be non-negative")
)

// DecoderConfig holds the fixed timing thresholds of the decoder.
// All values come from the application config file.
type DecoderConfig struct {
	// DotMax: a tone shorter than this is a dot (from config: dot_max_duration)
	DotMax time.Duration
	// DashMax: a tone at least DotMax and shorter than this is a dash (from config: dash_max_duration)
	DashMax time.Duration
	// LetterGapMin: silence of at least this ends a letter (from config: letter_gap_min_duration)
	LetterGapMin time.Duration
	// WordGapMin: silence of at least this ends a word (from config: word_gap_min_duration)
	WordGapMin time.Duration
	// PowerThreshold: power strictly above this means tone present (from config: power_threshold)
	PowerThreshold float64
}

// Validate checks the ordering invariant.
func (c DecoderConfig) Validate() error {
	if c.DotMax <= 0 {
		return ErrInvalidDotMax
	}
	if !(c.DotMax < c.DashMax && c.DashMax < c.LetterGapMin && c.LetterGapMin <= c.WordGapMin) {
		return ErrInvalidTimingOrder
	}
	if c.PowerThreshold < 0 {
		return ErrInvalidThreshold
	}
	return nil
}

// OutputKind tells what a DecodedOutput carries.
type OutputKind int

const (
	// KindLetter is a recognized letter or digit
	KindLetter OutputKind = iota
	// KindUnrecognized is a code with no table entry; Code holds the literal sequence
	KindUnrecognized
	// KindWordSpace is a word boundary on its own
	KindWordSpace
)

func (k OutputKind) String() string {
	switch k {
	case KindLetter:
		return "letter"
	case KindUnrecognized:
		return "unrecognized"
	case KindWordSpace:
		return "word_space"
	default:
		return "unknown"
	}
}

// WordSpace is the character carried by KindWordSpace outputs.
const WordSpace = ' '

// DecodedOutput represents one decoded event. A word boundary is always its own
// KindWordSpace output, following the letter that ended the word.
type DecodedOutput struct {
	Kind OutputKind
	// Character is the decoded character, WordSpace for a word boundary, 0 if unrecognized
	Character rune
	// Code is the dot/dash sequence that produced the character (empty for a word space)
	Code string
	// Timestamp is the arrival time of the power sample that triggered the event
	Timestamp time.Time
}

// AnomalyCallback is called with the length of a tone that was too long to classify.
type AnomalyCallback func(element time.Duration, at time.Time)

// Decoder classifies tone and silence intervals into Morse elements and assembles letters.
//
// It has two states, idle and toning, and is driven entirely by AddSignal. A letter is
// flushed as soon as the silence reaches LetterGapMin, without waiting for the next
// tone. A Decoder is owned by a single goroutine; it is not safe for concurrent use.
type Decoder struct {
	config DecoderConfig

	code           []byte
	started        bool
	toned          bool
	lastTransition time.Time
	lastSeen       time.Time
	wordPending    bool // a letter ended during this silence; a word space may follow
	spaceDue       bool // the word gap ended on a rising edge; report it on the next reading
	anomalies      int

	onAnomaly AnomalyCallback
}

// NewDecoder creates a new Morse decoder with the given timing configuration.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{
		config: cfg,
		code:   make([]byte, 0, 8),
	}, nil
}

// SetAnomalyCallback sets the callback invoked when an element is dropped.
func (d *Decoder) SetAnomalyCallback(cb AnomalyCallback) {
	d.onAnomaly = cb
}

// AddSignal feeds one power reading taken at time at and returns at most one event.
func (d *Decoder) AddSignal(power float64, at time.Time) (DecodedOutput, bool) {
	if !d.started {
		d.started = true
		d.lastTransition = at
	}
	d.lastSeen = at

	toned := power > d.config.PowerThreshold
	elapsed := at.Sub(d.lastTransition)

	switch {
	case toned && !d.toned:
		out, ok := d.silenceEnded(elapsed, at)
		d.toned = true
		d.lastTransition = at
		d.wordPending = false
		return out, ok

	case !toned && d.toned:
		d.toneEnded(elapsed, at)
		d.toned = false
		d.lastTransition = at
		return d.takeSpace(at)

	case !toned:
		return d.silenceContinues(elapsed, at)
	}
	return d.takeSpace(at)
}

// silenceEnded handles the idle to toning transition. When the silence was long enough
// to end both the letter and the word, the letter is returned now and the word space
// on the next reading.
func (d *Decoder) silenceEnded(silence time.Duration, at time.Time) (DecodedOutput, bool) {
	if len(d.code) > 0 {
		if silence < d.config.LetterGapMin {
			return DecodedOutput{}, false // gap between elements
		}
		d.spaceDue = silence >= d.config.WordGapMin
		return d.flush(at), true
	}
	if d.wordPending && silence >= d.config.WordGapMin {
		return wordSpace(at), true
	}
	return DecodedOutput{}, false
}

// takeSpace returns the word space owed by silenceEnded, if any.
func (d *Decoder) takeSpace(at time.Time) (DecodedOutput, bool) {
	if !d.spaceDue {
		return DecodedOutput{}, false
	}
	d.spaceDue = false
	return wordSpace(at), true
}

// toneEnded classifies the tone that just finished.
func (d *Decoder) toneEnded(element time.Duration, at time.Time) {
	switch {
	case element < d.config.DotMax:
		d.code = append(d.code, Dot)
	case element < d.config.DashMax:
		d.code = append(d.code, Dash)
	default:
		d.anomalies++
		if d.onAnomaly != nil {
			d.onAnomaly(element, at)
		}
	}
}

// silenceContinues flushes letters and word spaces in real time while idle. A reading
// that crosses both gaps at once flushes the letter; the word space follows on the
// next reading.
func (d *Decoder) silenceContinues(silence time.Duration, at time.Time) (DecodedOutput, bool) {
	if len(d.code) > 0 && silence >= d.config.LetterGapMin {
		d.wordPending = true
		return d.flush(at), true
	}
	if d.wordPending && silence >= d.config.WordGapMin {
		d.wordPending = false
		return wordSpace(at), true
	}
	return DecodedOutput{}, false
}

// flush emits the current code as a letter and clears it.
func (d *Decoder) flush(at time.Time) DecodedOutput {
	code := string(d.code)
	d.code = d.code[:0]

	out := DecodedOutput{
		Kind:      KindLetter,
		Code:      code,
		Timestamp: at,
	}
	if char, ok := Lookup(code); ok {
		out.Character = char
	} else {
		out.Kind = KindUnrecognized
	}
	return out
}

func wordSpace(at time.Time) DecodedOutput {
	return DecodedOutput{
		Kind:      KindWordSpace,
		Character: WordSpace,
		Timestamp: at,
	}
}

// Finalize flushes any partial code as a best-effort last letter and resets the decoder.
// A tone still sounding is treated as ending at the last reading; a tone that only
// started on the last reading has no measurable length and is ignored. It never
// produces a word space.
func (d *Decoder) Finalize() (DecodedOutput, bool) {
	if d.toned && d.lastSeen.After(d.lastTransition) {
		d.toneEnded(d.lastSeen.Sub(d.lastTransition), d.lastSeen)
	}

	var out DecodedOutput
	ok := len(d.code) > 0
	if ok {
		out = d.flush(d.lastSeen)
	}
	d.Reset()
	return out, ok
}

// Reset clears the partial code, the timing baseline and the anomaly count without
// emitting anything.
func (d *Decoder) Reset() {
	d.code = d.code[:0]
	d.started = false
	d.toned = false
	d.lastTransition = time.Time{}
	d.lastSeen = time.Time{}
	d.wordPending = false
	d.spaceDue = false
	d.anomalies = 0
}

// Pending returns the elements collected for the letter in progress.
func (d *Decoder) Pending() string {
	return string(d.code)
}

// Anomalies returns how many tones were dropped for being too long.
func (d *Decoder) Anomalies() int {
	return d.anomalies
}

// Config returns the decoder configuration
func (d *Decoder) Config() DecoderConfig {
	return d.config
}

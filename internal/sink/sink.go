// Package sink delivers decoded Morse events to their consumers.
package sink

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ColonelBlimp/cwtone/internal/cw"
)

// Sink receives decoded events in the order they were produced.
type Sink interface {
	Write(out cw.DecodedOutput) error
	Close() error
}

// Event is the serialized form of a decoded event, shared by the MQTT and journal sinks.
type Event struct {
	Kind      string    `json:"kind"`
	Character string    `json:"character,omitempty"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent converts a decoder output for serialization.
func NewEvent(out cw.DecodedOutput) Event {
	e := Event{
		Kind:      out.Kind.String(),
		Code:      out.Code,
		Timestamp: out.Timestamp.UTC(),
	}
	if out.Character != 0 {
		e.Character = string(out.Character)
	}
	return e
}

// Text writes decoded text: letters as themselves, a space at each word boundary and
// unrecognized codes in brackets.
type Text struct {
	w io.Writer
}

// NewText creates a text sink writing to w
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) Write(out cw.DecodedOutput) error {
	var s string
	switch out.Kind {
	case cw.KindLetter:
		s = string(out.Character)
	case cw.KindUnrecognized:
		s = "[" + out.Code + "]"
	case cw.KindWordSpace:
		s = string(cw.WordSpace)
	default:
		return nil
	}
	if _, err := io.WriteString(t.w, s); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

// Close ends the line so the shell prompt starts clean
func (t *Text) Close() error {
	_, err := io.WriteString(t.w, "\n")
	return err
}

// Multi fans each event out to several sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Write delivers out to every sink, even when an earlier one fails.
func (m *Multi) Write(out cw.DecodedOutput) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

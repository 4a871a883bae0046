package narration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// DefaultRunTime is how long a play step lasts when no action reports one.
const DefaultRunTime = 1.0

// EventKind labels a cue sheet event.
type EventKind string

const (
	EventSound EventKind = "sound"
	EventPlay  EventKind = "play"
	EventWait  EventKind = "wait"
)

// Event is one entry on a cue sheet. Times are in seconds.
type Event struct {
	Kind     EventKind `json:"kind" yaml:"kind"`
	Start    float64   `json:"start" yaml:"start"`
	Duration float64   `json:"duration" yaml:"duration"`
	Path     string    `json:"path,omitempty" yaml:"path,omitempty"`
	Actions  []string  `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Sheet is an in-memory Timeline that records what would be rendered.
type Sheet struct {
	mu     sync.Mutex
	now    float64
	events []Event
}

// NewSheet returns an empty cue sheet.
func NewSheet() *Sheet {
	return &Sheet{}
}

// AddSound records a clip starting offset seconds from the current position.
func (s *Sheet) AddSound(_ context.Context, path string, offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: EventSound, Start: s.now + offset, Path: path})
	return nil
}

// Play advances by the longest action run time.
func (s *Sheet) Play(ctx context.Context, actions ...Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(actions) == 0 {
		return errors.New("play requires at least one action")
	}
	runTime := 0.0
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = action.Describe()
		rt := DefaultRunTime
		if timed, ok := action.(RunTimer); ok {
			rt = timed.RunTime()
		}
		runTime = max(runTime, rt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: EventPlay, Start: s.now, Duration: runTime, Actions: names})
	s.now += runTime
	return nil
}

// Wait advances by seconds.
func (s *Sheet) Wait(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: EventWait, Start: s.now, Duration: seconds})
	s.now += seconds
	return nil
}

// Events returns a copy of the recorded events.
func (s *Sheet) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Elapsed returns the current timeline position.
func (s *Sheet) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// NamedAction is a placeholder action with a fixed run time.
type NamedAction struct {
	Name    string
	Seconds float64
}

// Describe returns the action name.
func (a NamedAction) Describe() string { return a.Name }

// RunTime returns the configured length, or DefaultRunTime when unset.
func (a NamedAction) RunTime() float64 {
	if a.Seconds <= 0 {
		return DefaultRunTime
	}
	return a.Seconds
}

// ParseAction parses "name" or "name:seconds".
func ParseAction(value string) (NamedAction, error) {
	name, secs, hasSecs := strings.Cut(strings.TrimSpace(value), ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return NamedAction{}, fmt.Errorf("action %q: name required", value)
	}
	action := NamedAction{Name: name}
	if hasSecs {
		seconds, err := strconv.ParseFloat(strings.TrimSpace(secs), 64)
		if err != nil || seconds <= 0 {
			return NamedAction{}, fmt.Errorf("action %q: run time must be a positive number of seconds", value)
		}
		action.Seconds = seconds
	}
	return action, nil
}

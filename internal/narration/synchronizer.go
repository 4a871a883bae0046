package narration

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/voicecache"
)

// DefaultFactor scales the hold when neither the cue nor the settings set one.
const DefaultFactor = 1.0

// AudioSource returns the narration clip for voice and text, creating it when
// missing.
type AudioSource interface {
	GetOrCreate(ctx context.Context, voice, text string) (voicecache.Entry, error)
}

// Action is something the timeline plays alongside narration.
type Action interface {
	Describe() string
}

// RunTimer is implemented by actions with a known length in seconds.
type RunTimer interface {
	RunTime() float64
}

// Timeline is the scene surface narration is placed on.
type Timeline interface {
	AddSound(ctx context.Context, path string, offset float64) error
	Play(ctx context.Context, actions ...Action) error
	Wait(ctx context.Context, seconds float64) error
}

// Settings carries the defaults applied to cues.
type Settings struct {
	Voice  string
	Factor float64
}

// Cue is one narrated line.
type Cue struct {
	Text  string
	Voice string
	// Offset shifts the clip start relative to the current timeline position.
	// A negative offset starts the narration before the scene's first frame
	// and lengthens the hold by the same amount.
	Offset float64
	// Factor scales the hold. Nil means the settings factor; an explicit zero
	// skips the hold entirely.
	Factor *float64
}

// Result describes a narrated cue.
type Result struct {
	Entry  voicecache.Entry
	Voice  string
	Offset float64
	Factor float64
	Hold   float64
	Played int
}

// HoldDuration returns how long to wait after the actions: the part of the
// clip after offset, scaled by factor. A negative offset lengthens the hold.
// Negative holds are clamped to zero.
func HoldDuration(duration, offset, factor float64) float64 {
	hold := (duration - offset) * factor
	if hold < 0 || math.IsNaN(hold) {
		return 0
	}
	return hold
}

// Synchronizer narrates cues on timelines.
type Synchronizer struct {
	source   AudioSource
	settings Settings
	logger   *slog.Logger
}

// NewSynchronizer constructs a synchronizer.
func NewSynchronizer(source AudioSource, settings Settings, logger *slog.Logger) *Synchronizer {
	if settings.Factor == 0 {
		settings.Factor = DefaultFactor
	}
	return &Synchronizer{
		source:   source,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "narration"),
	}
}

// Settings returns the effective defaults.
func (s *Synchronizer) Settings() Settings {
	return s.settings
}

// Narrate adds the clip for cue to tl at the cue offset, plays actions when
// any are given and waits out the rest of the clip.
func (s *Synchronizer) Narrate(ctx context.Context, tl Timeline, cue Cue, actions ...Action) (Result, error) {
	// The voice is part of the cache key, so it is passed through verbatim.
	voice := cue.Voice
	if strings.TrimSpace(voice) == "" {
		voice = s.settings.Voice
	}
	if strings.TrimSpace(voice) == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "narration", "resolve voice", "no voice set on cue or settings", nil)
	}
	factor := s.settings.Factor
	if cue.Factor != nil {
		factor = *cue.Factor
	}
	if factor < 0 || math.IsNaN(factor) {
		return Result{}, services.Wrap(services.ErrConfiguration, "narration", "resolve factor", fmt.Sprintf("factor %v must not be negative", factor), nil)
	}
	if math.IsNaN(cue.Offset) || math.IsInf(cue.Offset, 0) {
		return Result{}, services.Wrap(services.ErrConfiguration, "narration", "resolve offset", fmt.Sprintf("offset %v is not a finite number", cue.Offset), nil)
	}

	entry, err := s.source.GetOrCreate(ctx, voice, cue.Text)
	if err != nil {
		return Result{}, err
	}
	if err := tl.AddSound(ctx, entry.Path, cue.Offset); err != nil {
		return Result{}, services.Wrap(services.ErrNarration, "narration", "add sound", entry.Path, err)
	}
	if len(actions) > 0 {
		if err := tl.Play(ctx, actions...); err != nil {
			return Result{}, services.Wrap(services.ErrNarration, "narration", "play", "", err)
		}
	}
	hold := HoldDuration(entry.DurationSeconds, cue.Offset, factor)
	if err := tl.Wait(ctx, hold); err != nil {
		return Result{}, services.Wrap(services.ErrNarration, "narration", "wait", "", err)
	}

	s.logger.Debug("cue narrated",
		logging.String("key", string(entry.Key)),
		logging.String("voice", voice),
		logging.Seconds("clip", entry.DurationSeconds),
		logging.Seconds("offset", cue.Offset),
		logging.Float64("factor", factor),
		logging.Seconds("hold", hold),
		logging.Int("actions", len(actions)),
	)
	return Result{
		Entry:  entry,
		Voice:  voice,
		Offset: cue.Offset,
		Factor: factor,
		Hold:   hold,
		Played: len(actions),
	}, nil
}

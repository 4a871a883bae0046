package narration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/voicecache"
)

type fakeSource struct {
	duration float64
	err      error
	voices   []string
}

func (f *fakeSource) GetOrCreate(_ context.Context, voice, text string) (voicecache.Entry, error) {
	f.voices = append(f.voices, voice)
	if f.err != nil {
		return voicecache.Entry{}, f.err
	}
	key := voicecache.KeyFor(voice, text)
	return voicecache.Entry{Key: key, Path: "/voices/" + string(key) + ".wav", DurationSeconds: f.duration}, nil
}

func factorOf(v float64) *float64 { return &v }

type recordingTimeline struct {
	calls []string
	waits []float64
	fail  string
}

func (r *recordingTimeline) AddSound(_ context.Context, path string, offset float64) error {
	r.calls = append(r.calls, "sound")
	if r.fail == "sound" {
		return errors.New("sound failed")
	}
	return nil
}

func (r *recordingTimeline) Play(_ context.Context, actions ...Action) error {
	r.calls = append(r.calls, "play")
	return nil
}

func (r *recordingTimeline) Wait(_ context.Context, seconds float64) error {
	r.calls = append(r.calls, "wait")
	r.waits = append(r.waits, seconds)
	return nil
}

func TestHoldDuration(t *testing.T) {
	if got := HoldDuration(3.0, 1.0, 0.8); got != 1.6 {
		t.Fatalf("expected 1.6, got %v", got)
	}
	if got := HoldDuration(2.0, 0, 1.0); got != 2.0 {
		t.Fatalf("expected 2.0, got %v", got)
	}
	if got := HoldDuration(1.0, 2.5, 1.0); got != 0 {
		t.Fatalf("expected negative hold clamped to 0, got %v", got)
	}
}

func TestNarrateOrderAndHold(t *testing.T) {
	source := &fakeSource{duration: 3.0}
	sync := NewSynchronizer(source, Settings{Voice: "am_adam"}, logging.NewNop())
	tl := &recordingTimeline{}

	result, err := sync.Narrate(context.Background(), tl, Cue{Text: "Hello", Offset: 1.0, Factor: factorOf(0.8)}, NamedAction{Name: "Write"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if diff := cmp.Diff([]string{"sound", "play", "wait"}, tl.calls); diff != "" {
		t.Fatalf("unexpected call order (-want +got):\n%s", diff)
	}
	if tl.waits[0] != 1.6 || result.Hold != 1.6 {
		t.Fatalf("expected hold 1.6, got %v", tl.waits[0])
	}
	if result.Voice != "am_adam" || result.Played != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestNarrateWithoutActionsSkipsPlay(t *testing.T) {
	sync := NewSynchronizer(&fakeSource{duration: 2.0}, Settings{Voice: "am_adam"}, nil)
	tl := &recordingTimeline{}

	result, err := sync.Narrate(context.Background(), tl, Cue{Text: "Just talk"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if diff := cmp.Diff([]string{"sound", "wait"}, tl.calls); diff != "" {
		t.Fatalf("unexpected call order (-want +got):\n%s", diff)
	}
	if result.Factor != DefaultFactor || result.Hold != 2.0 {
		t.Fatalf("expected default factor hold, got %+v", result)
	}
}

func TestNarrateCueVoiceOverridesSettings(t *testing.T) {
	source := &fakeSource{duration: 1}
	sync := NewSynchronizer(source, Settings{Voice: "am_adam", Factor: 0.5}, nil)
	result, err := sync.Narrate(context.Background(), &recordingTimeline{}, Cue{Text: "x", Voice: "bf_emma"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if source.voices[0] != "bf_emma" || result.Factor != 0.5 {
		t.Fatalf("unexpected resolution voice=%s factor=%v", source.voices[0], result.Factor)
	}
}

func TestNarrateErrors(t *testing.T) {
	sourceErr := services.Wrap(services.ErrNarration, "voice", "synthesize", "", errors.New("boom"))
	tests := []struct {
		name     string
		settings Settings
		cue      Cue
		source   *fakeSource
		timeline *recordingTimeline
		marker   error
	}{
		{name: "no voice", cue: Cue{Text: "x"}, source: &fakeSource{}, timeline: &recordingTimeline{}, marker: services.ErrConfiguration},
		{name: "negative factor", settings: Settings{Voice: "v"}, cue: Cue{Text: "x", Factor: factorOf(-1)}, source: &fakeSource{}, timeline: &recordingTimeline{}, marker: services.ErrConfiguration},
		{name: "synthesis", settings: Settings{Voice: "v"}, cue: Cue{Text: "x"}, source: &fakeSource{err: sourceErr}, timeline: &recordingTimeline{}, marker: services.ErrNarration},
		{name: "timeline", settings: Settings{Voice: "v"}, cue: Cue{Text: "x"}, source: &fakeSource{duration: 1}, timeline: &recordingTimeline{fail: "sound"}, marker: services.ErrNarration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSynchronizer(tt.source, tt.settings, nil).Narrate(context.Background(), tt.timeline, tt.cue)
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestNarrateNegativeOffsetStartsEarly(t *testing.T) {
	sync := NewSynchronizer(&fakeSource{duration: 3.0}, Settings{Voice: "am_adam"}, nil)
	sheet := NewSheet()

	result, err := sync.Narrate(context.Background(), sheet, Cue{Text: "Early", Offset: -0.5, Factor: factorOf(1.0)})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if result.Hold != 3.5 || result.Offset != -0.5 {
		t.Fatalf("expected hold 3.5 for offset -0.5, got %+v", result)
	}
	events := sheet.Events()
	if events[0].Kind != EventSound || events[0].Start != -0.5 {
		t.Fatalf("expected sound to start at -0.5, got %+v", events[0])
	}
	if sheet.Elapsed() != 3.5 {
		t.Fatalf("expected timeline to advance 3.5s, got %v", sheet.Elapsed())
	}
}

func TestNarrateExplicitZeroFactorSkipsHold(t *testing.T) {
	sync := NewSynchronizer(&fakeSource{duration: 3.0}, Settings{Voice: "am_adam", Factor: 0.9}, nil)

	result, err := sync.Narrate(context.Background(), &recordingTimeline{}, Cue{Text: "x", Factor: factorOf(0)})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if result.Factor != 0 || result.Hold != 0 {
		t.Fatalf("expected zero hold for explicit zero factor, got %+v", result)
	}

	result, err = sync.Narrate(context.Background(), &recordingTimeline{}, Cue{Text: "x"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if result.Factor != 0.9 || result.Hold != 2.7 {
		t.Fatalf("expected settings factor when unset, got %+v", result)
	}
}

func TestNarrateKeepsVoiceBytes(t *testing.T) {
	source := &fakeSource{duration: 1}
	sync := NewSynchronizer(source, Settings{Voice: "am_adam"}, nil)

	result, err := sync.Narrate(context.Background(), &recordingTimeline{}, Cue{Text: "Hi", Voice: " am_adam"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if source.voices[0] != " am_adam" {
		t.Fatalf("voice was altered before keying: %q", source.voices[0])
	}
	if result.Entry.Key != voicecache.KeyFor(" am_adam", "Hi") || result.Entry.Key == voicecache.KeyFor("am_adam", "Hi") {
		t.Fatalf("unexpected key %s", result.Entry.Key)
	}
}

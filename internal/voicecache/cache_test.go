package voicecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

type countingSynth struct {
	calls atomic.Int32
	err   error
}

func (s *countingSynth) Synthesize(_ context.Context, voice, text, output string) error {
	s.calls.Add(1)
	if s.err != nil {
		// Leave a partial file behind to check cleanup.
		_ = os.WriteFile(output, []byte("RIFF"), 0o644)
		return s.err
	}
	if filepath.Ext(output) != ".wav" {
		return errors.New("synthesizer needs the audio extension")
	}
	return os.WriteFile(output, []byte("RIFF:"+voice+":"+text), 0o644)
}

type stubProber struct {
	calls    atomic.Int32
	duration float64
}

func (p *stubProber) AudioDuration(context.Context, string) (float64, error) {
	p.calls.Add(1)
	return p.duration, nil
}

func newTestCache(t *testing.T, synth Synthesizer, prober DurationProber, withIndex bool) *Cache {
	t.Helper()
	dir := t.TempDir()
	opts := Options{
		Dir:         dir,
		AudioExt:    ".wav",
		Synthesizer: synth,
		Prober:      prober,
		Logger:      logging.NewNop(),
	}
	if withIndex {
		opts.IndexPath = filepath.Join(dir, "index.db")
	}
	cache, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestKeyForMatchesExistingLayout(t *testing.T) {
	if got := KeyFor("am_adam", "Hello, world."); got != "5b823ac3637d969d046477d10b68bcd3" {
		t.Fatalf("unexpected key %s", got)
	}
	if KeyFor("af_bella", "Hello, world.") == KeyFor("am_adam", "Hello, world.") {
		t.Fatal("voice must be part of the key")
	}
	if KeyFor("am_adam", "Hello") == KeyFor("am_adam", "Hello ") {
		t.Fatal("text must be hashed without normalization")
	}
}

func TestPathLayout(t *testing.T) {
	cache := newTestCache(t, nil, &stubProber{}, false)
	key := KeyFor("am_adam", "Hello, world.")
	want := filepath.Join(cache.Dir(), "5b823ac3637d969d046477d10b68bcd3.wav")
	if cache.Path(key) != want {
		t.Fatalf("unexpected path %s", cache.Path(key))
	}
}

func TestGetOrCreateSynthesizesOnce(t *testing.T) {
	synth := &countingSynth{}
	prober := &stubProber{duration: 2.5}
	cache := newTestCache(t, synth, prober, true)

	first, err := cache.GetOrCreate(context.Background(), "am_adam", "Welcome.")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := cache.GetOrCreate(context.Background(), "am_adam", "Welcome.")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if synth.calls.Load() != 1 {
		t.Fatalf("expected one synthesis, got %d", synth.calls.Load())
	}
	if first.Path != second.Path || second.DurationSeconds != 2.5 {
		t.Fatalf("unexpected entries %+v %+v", first, second)
	}
	if second.Voice != "am_adam" || second.Text != "Welcome." {
		t.Fatalf("expected index metadata, got %+v", second)
	}
	if prober.calls.Load() != 1 {
		t.Fatalf("expected the hit to use the index, prober called %d times", prober.calls.Load())
	}
}

func TestGetOrCreateConcurrentWriters(t *testing.T) {
	synth := &countingSynth{}
	cache := newTestCache(t, synth, &stubProber{duration: 1}, true)

	const writers = 8
	var wg sync.WaitGroup
	paths := make([]string, writers)
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := cache.GetOrCreate(context.Background(), "am_adam", "Same line.")
			paths[i], errs[i] = entry.Path, err
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
		if paths[i] != paths[0] {
			t.Fatalf("writer %d got %s, want %s", i, paths[i], paths[0])
		}
	}
	if synth.calls.Load() != 1 {
		t.Fatalf("expected exactly one synthesis, got %d", synth.calls.Load())
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "RIFF:am_adam:Same line." {
		t.Fatalf("unexpected artifact %q", data)
	}
}

func TestSynthesisFailureLeavesNothing(t *testing.T) {
	synth := &countingSynth{err: errors.New("model not loaded")}
	cache := newTestCache(t, synth, &stubProber{duration: 1}, true)

	_, err := cache.GetOrCreate(context.Background(), "am_adam", "Broken.")
	if !errors.Is(err, services.ErrNarration) {
		t.Fatalf("expected ErrNarration, got %v", err)
	}
	if cache.Has(KeyFor("am_adam", "Broken.")) {
		t.Fatal("failed synthesis must not produce an artifact")
	}
	matches, _ := filepath.Glob(filepath.Join(cache.Dir(), ".*.wav"))
	if len(matches) != 0 {
		t.Fatalf("expected temp files removed, found %v", matches)
	}
	entries, err := cache.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no index rows, got %+v", entries)
	}
}

func TestPutRejectsEmptyOutput(t *testing.T) {
	cache := newTestCache(t, nil, &stubProber{duration: 1}, false)
	key := KeyFor("am_adam", "Silent.")
	_, err := cache.Put(context.Background(), key, Meta{}, func(context.Context, string) error { return nil })
	if !errors.Is(err, services.ErrNarration) {
		t.Fatalf("expected ErrNarration, got %v", err)
	}
	if cache.Has(key) {
		t.Fatal("empty output must not be committed")
	}
}

func TestPutRejectsInvalidKey(t *testing.T) {
	cache := newTestCache(t, nil, &stubProber{}, false)
	_, err := cache.Put(context.Background(), Key("../escape"), Meta{}, func(context.Context, string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("expected invalid key error, got %v", err)
	}
}

func TestGetBackfillsPreexistingArtifact(t *testing.T) {
	prober := &stubProber{duration: 3.25}
	cache := newTestCache(t, nil, prober, true)
	key := KeyFor("am_adam", "Old line.")
	if err := os.WriteFile(cache.Path(key), []byte("RIFF-old"), 0o644); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	entry, ok, err := cache.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if entry.DurationSeconds != 3.25 {
		t.Fatalf("unexpected duration %v", entry.DurationSeconds)
	}
	if _, _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if prober.calls.Load() != 1 {
		t.Fatalf("expected backfilled row to be reused, prober called %d times", prober.calls.Load())
	}
}

func TestGetMissing(t *testing.T) {
	cache := newTestCache(t, nil, &stubProber{}, true)
	_, ok, err := cache.Get(context.Background(), KeyFor("am_adam", "Never said."))
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	prober := &stubProber{duration: 1.5}
	open := func() *Cache {
		cache, err := New(context.Background(), Options{
			Dir:         dir,
			Synthesizer: &countingSynth{},
			Prober:      prober,
			IndexPath:   filepath.Join(dir, "index.db"),
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return cache
	}

	first := open()
	if _, err := first.GetOrCreate(context.Background(), "bf_emma", "Persist me."); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := open()
	defer second.Close()
	entries, err := second.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "Persist me." || entries[0].Voice != "bf_emma" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Path != second.Path(KeyFor("bf_emma", "Persist me.")) {
		t.Fatalf("unexpected path %s", entries[0].Path)
	}
}

func TestEntriesWithoutIndexScansDirectory(t *testing.T) {
	cache := newTestCache(t, &countingSynth{}, &stubProber{duration: 1}, false)
	if _, err := cache.GetOrCreate(context.Background(), "am_adam", "One."); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cache.Dir(), "notes.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := cache.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != KeyFor("am_adam", "One.") {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(context.Background(), Options{Prober: &stubProber{}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

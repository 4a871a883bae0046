package voicecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

const (
	lockDirName    = ".locks"
	lockRetryDelay = 50 * time.Millisecond
)

// Synthesizer produces speech audio for text at output.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text, output string) error
}

// DurationProber measures the length of an audio file in seconds.
type DurationProber interface {
	AudioDuration(ctx context.Context, path string) (float64, error)
}

// Producer writes an artifact to path. path is a temp file in the cache
// directory with the cache's audio extension.
type Producer func(ctx context.Context, path string) error

// Meta describes the utterance being stored.
type Meta struct {
	Voice string
	Text  string
}

// Entry is one cached utterance.
type Entry struct {
	Key             Key
	Path            string
	Voice           string
	Text            string
	DurationSeconds float64
	SizeBytes       int64
	CreatedAt       time.Time
}

// Options configures a Cache.
type Options struct {
	Dir         string
	AudioExt    string
	Synthesizer Synthesizer
	Prober      DurationProber
	// IndexPath is the sqlite index location. Empty disables the index.
	IndexPath string
	Logger    *slog.Logger
}

// Cache is the content-addressed narration store.
type Cache struct {
	dir    string
	ext    string
	synth  Synthesizer
	prober DurationProber
	index  *index
	logger *slog.Logger
}

// New opens the cache, creating its directory and index when needed.
func New(ctx context.Context, opts Options) (*Cache, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "voice", "open cache", "voice directory required", nil)
	}
	if opts.Prober == nil {
		return nil, services.Wrap(services.ErrConfiguration, "voice", "open cache", "duration prober required", nil)
	}
	ext := opts.AudioExt
	if ext == "" {
		ext = ".wav"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := os.MkdirAll(filepath.Join(dir, lockDirName), 0o755); err != nil {
		return nil, services.Wrap(services.ErrNarration, "voice", "open cache", dir, err)
	}

	cache := &Cache{
		dir:    dir,
		ext:    ext,
		synth:  opts.Synthesizer,
		prober: opts.Prober,
		logger: logging.NewComponentLogger(opts.Logger, "voice"),
	}
	if opts.IndexPath != "" {
		idx, err := openIndex(ctx, opts.IndexPath)
		if err != nil {
			return nil, services.Wrap(services.ErrNarration, "voice", "open index", opts.IndexPath, err)
		}
		cache.index = idx
	}
	return cache, nil
}

// Close releases the index.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.index.close()
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns where the artifact for key lives.
func (c *Cache) Path(key Key) string {
	return filepath.Join(c.dir, string(key)+c.ext)
}

// Has reports whether a complete artifact exists for key.
func (c *Cache) Has(key Key) bool {
	return fileutil.NonEmptyFile(c.Path(key))
}

// Get returns the entry for key when its artifact exists. The duration comes
// from the index; artifacts without a row are probed and the row backfilled.
func (c *Cache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if !c.Has(key) {
		return Entry{}, false, nil
	}
	path := c.Path(key)
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, false, services.Wrap(services.ErrNarration, "voice", "stat", path, err)
	}

	if c.index != nil {
		entry, ok, err := c.index.lookup(ctx, key)
		if err != nil {
			return Entry{}, false, services.Wrap(services.ErrNarration, "voice", "index lookup", string(key), err)
		}
		if ok && entry.SizeBytes == info.Size() {
			entry.Path = path
			return entry, true, nil
		}
	}

	duration, err := c.prober.AudioDuration(ctx, path)
	if err != nil {
		return Entry{}, false, services.Wrap(services.ErrNarration, "voice", "probe duration", path, err)
	}
	entry := Entry{
		Key:             key,
		Path:            path,
		DurationSeconds: duration,
		SizeBytes:       info.Size(),
		CreatedAt:       info.ModTime(),
	}
	if c.index != nil {
		if err := c.index.upsert(ctx, entry); err != nil {
			logging.WarnWithContext(c.logger, "voice index backfill failed", "voice_index_backfill_failed",
				logging.String("key", string(key)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "duration will be probed again next time"),
			)
		} else {
			c.logger.Debug("voice index backfilled", logging.String("key", string(key)), logging.Seconds("duration", duration))
		}
	}
	return entry, true, nil
}

// Put stores the artifact for key using producer unless one already exists.
// The producer runs while holding the key's lock and writes to a temp file
// that is renamed into place only on success.
func (c *Cache) Put(ctx context.Context, key Key, meta Meta, producer Producer) (Entry, error) {
	if !key.valid() {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "put", fmt.Sprintf("invalid key %q", key), nil)
	}

	lock := flock.New(filepath.Join(c.dir, lockDirName, string(key)+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "lock", string(key), err)
	}
	if !locked {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "lock", string(key), ctx.Err())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("voice lock release failed", logging.String("key", string(key)), logging.Error(err))
		}
	}()

	// Another writer may have finished while this one waited.
	if entry, ok, err := c.Get(ctx, key); err != nil || ok {
		return entry, err
	}

	tmp, err := os.CreateTemp(c.dir, "."+string(key)+"-*"+c.ext)
	if err != nil {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "create temp", c.dir, err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := producer(ctx, tmpPath); err != nil {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "produce", string(key), err)
	}
	if !fileutil.NonEmptyFile(tmpPath) {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "produce", string(key), errors.New("producer wrote no audio"))
	}
	duration, err := c.prober.AudioDuration(ctx, tmpPath)
	if err != nil {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "probe duration", string(key), err)
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "stat", tmpPath, err)
	}

	path := c.Path(key)
	if err := fileutil.CommitFile(tmpPath, path); err != nil {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "commit", path, err)
	}
	committed = true

	entry := Entry{
		Key:             key,
		Path:            path,
		Voice:           meta.Voice,
		Text:            meta.Text,
		DurationSeconds: duration,
		SizeBytes:       info.Size(),
		CreatedAt:       time.Now().UTC(),
	}
	if c.index != nil {
		if err := c.index.upsert(ctx, entry); err != nil {
			logging.WarnWithContext(c.logger, "voice index update failed", "voice_index_update_failed",
				logging.String("key", string(key)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "entry missing from voice list until backfilled"),
			)
		}
	}
	c.logger.Info("voice stored",
		logging.String(logging.FieldEventType, "voice_stored"),
		logging.String("key", string(key)),
		logging.String("voice", meta.Voice),
		logging.Seconds("duration", duration),
	)
	return entry, nil
}

// GetOrCreate returns the cached utterance for voice and text, synthesizing
// it on a miss.
func (c *Cache) GetOrCreate(ctx context.Context, voice, text string) (Entry, error) {
	key := KeyFor(voice, text)
	entry, ok, err := c.Get(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	if ok {
		c.logger.Debug("voice cache hit",
			logging.Args(append(logging.DecisionAttrs("voice_cache", "hit", "artifact present"),
				logging.String("key", string(key)))...)...,
		)
		return entry, nil
	}
	if c.synth == nil {
		return Entry{}, services.Wrap(services.ErrNarration, "voice", "synthesize", "no synthesizer configured", nil)
	}

	c.logger.Info("synthesizing narration",
		logging.String(logging.FieldEventType, "voice_synthesis"),
		logging.String("key", string(key)),
		logging.String("voice", voice),
		logging.Int("chars", len(text)),
	)
	return c.Put(ctx, key, Meta{Voice: voice, Text: text}, func(ctx context.Context, path string) error {
		return c.synth.Synthesize(ctx, voice, text, path)
	})
}

// Entries lists cached utterances. Without an index only the artifact files
// are reported, with no durations.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	if c.index != nil {
		entries, err := c.index.list(ctx)
		if err != nil {
			return nil, services.Wrap(services.ErrNarration, "voice", "list", c.dir, err)
		}
		for i := range entries {
			entries[i].Path = c.Path(entries[i].Key)
		}
		return entries, nil
	}

	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrNarration, "voice", "list", c.dir, err)
	}
	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || filepath.Ext(name) != c.ext {
			continue
		}
		key := Key(strings.TrimSuffix(name, c.ext))
		if !key.valid() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Key:       key,
			Path:      filepath.Join(c.dir, name),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return entries, nil
}

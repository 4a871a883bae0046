package merge

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/scenes"
	"reelsmith/internal/services"
)

// Artifact is one rendered scene clip.
type Artifact struct {
	Path  string
	Scene string
	Order int
}

// Collection is the filtered, ordered artifact set for one unit.
type Collection struct {
	Artifacts []Artifact
	// Skipped lists files whose stem is not a declared scene.
	Skipped []string
}

// Paths returns the artifact paths in order.
func (c Collection) Paths() []string {
	paths := make([]string, len(c.Artifacts))
	for i, a := range c.Artifacts {
		paths[i] = a.Path
	}
	return paths
}

// Collect lists files with extension ext in dir, keeps those whose stem is a
// scene in ordering, and sorts them by authoring order. Stale files are
// skipped with a warning. A missing directory is treated as empty, and an
// empty result returns ErrEmptyArtifactSet.
func Collect(dir, ext string, ordering scenes.Ordering, logger *slog.Logger) (Collection, error) {
	logger = logging.NewComponentLogger(logger, "merge")
	var collection Collection

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return collection, services.Wrap(services.ErrMerge, "merge", "collect", fmt.Sprintf("list %s", dir), err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		fileExt := filepath.Ext(name)
		if !strings.EqualFold(fileExt, ext) {
			continue
		}
		scene := strings.TrimSuffix(name, fileExt)
		order, ok := ordering.Order(scene)
		if !ok {
			path := filepath.Join(dir, name)
			collection.Skipped = append(collection.Skipped, path)
			attrs := []logging.Attr{
				logging.String(logging.FieldScene, scene),
				logging.String("path", path),
				logging.String(logging.FieldImpact, "clip excluded from the merged video"),
				logging.String(logging.FieldErrorHint, "delete the file if the scene was renamed or removed"),
			}
			attrs = append(attrs, logging.DecisionAttrs("artifact_filter", "skipped", "scene not declared in unit")...)
			logging.WarnWithContext(logger, "skipping stale artifact", "artifact_skipped", attrs...)
			continue
		}
		collection.Artifacts = append(collection.Artifacts, Artifact{
			Path:  filepath.Join(dir, name),
			Scene: scene,
			Order: order,
		})
	}

	if len(collection.Artifacts) == 0 {
		return collection, services.Wrap(services.ErrEmptyArtifactSet, "merge", "collect", fmt.Sprintf("no %s clips for declared scenes in %s", ext, dir), nil)
	}

	slices.SortFunc(collection.Artifacts, func(a, b Artifact) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return collection, nil
}

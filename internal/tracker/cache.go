package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/docsync/internal/errors"
)

const cacheVersion = 1

// cacheFile is the on-disk form of the digest map.
type cacheFile struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Digests map[string]string `json:"digests"`
}

// SaveCache writes the digest map to path. The file is replaced atomically.
func (t *Tracker) SaveCache(path string) error {
	data, err := json.MarshalIndent(cacheFile{
		Version: cacheVersion,
		SavedAt: time.Now().UTC(),
		Digests: t.Snapshot(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode digest cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, dir)
	}

	tmp, err := os.CreateTemp(dir, ".docsync-cache-*")
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	return nil
}

// LoadCache replaces the digest map with the contents of path. A missing
// file leaves the tracker empty and is not an error.
func (t *Tracker) LoadCache(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.ClearAll()
			return nil
		}
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, path)
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return errors.NewTrackerError(errors.ErrCodeCacheCorrupt, "digest cache is not valid JSON", err).
			WithLocation(path, 0, 0)
	}
	if cf.Version != cacheVersion {
		return errors.NewTrackerError(errors.ErrCodeCacheCorrupt,
			fmt.Sprintf("unsupported digest cache version %d", cf.Version), nil).
			WithLocation(path, 0, 0)
	}

	digests := make(map[string]string, len(cf.Digests))
	for p, d := range cf.Digests {
		digests[Key(p)] = d
	}

	t.mu.Lock()
	t.digests = digests
	t.mu.Unlock()
	t.digester.Reset()
	return nil
}

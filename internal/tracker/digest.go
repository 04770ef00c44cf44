package tracker

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// racyWindow is how close a file's modification time may be to the moment
// its digest was taken before the metadata tier stops trusting it. Within
// that window a same-size edit can keep the recorded mtime on filesystems
// with coarse timestamps.
const racyWindow = time.Second

// Digester computes content digests with a metadata tier in front of the
// content hash: a file whose size and modification time are unchanged since
// its last digest is not read again, unless it was modified within
// racyWindow of that digest.
type Digester struct {
	mu   sync.RWMutex
	meta map[string]metaEntry
}

type metaEntry struct {
	modTime time.Time
	size    int64
	digest  string
	takenAt time.Time
}

// fresh reports whether the entry still describes a file with the given
// metadata and can be trusted without reading it.
func (e metaEntry) fresh(stat os.FileInfo) bool {
	if e.size != stat.Size() || !e.modTime.Equal(stat.ModTime()) {
		return false
	}
	return e.takenAt.Sub(e.modTime) >= racyWindow
}

// NewDigester creates a digester with an empty metadata cache.
func NewDigester() *Digester {
	return &Digester{meta: make(map[string]metaEntry)}
}

// Digest returns the xxhash64 digest of the file at path as lowercase hex.
// Reading stops with ctx.Err() once ctx is done.
func (d *Digester) Digest(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	d.mu.RLock()
	entry, found := d.meta[path]
	d.mu.RUnlock()
	if found && entry.fresh(stat) {
		return entry.digest, nil
	}

	takenAt := time.Now()

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	h := xxhash.New()
	if _, err := io.Copy(h, &contextReader{ctx: ctx, r: file}); err != nil {
		return "", err
	}
	digest := strconv.FormatUint(h.Sum64(), 16)

	d.mu.Lock()
	d.meta[path] = metaEntry{modTime: stat.ModTime(), size: stat.Size(), digest: digest, takenAt: takenAt}
	d.mu.Unlock()

	return digest, nil
}

// Forget drops the metadata entry for path.
func (d *Digester) Forget(path string) {
	d.mu.Lock()
	delete(d.meta, path)
	d.mu.Unlock()
}

// Reset drops every metadata entry.
func (d *Digester) Reset() {
	d.mu.Lock()
	d.meta = make(map[string]metaEntry)
	d.mu.Unlock()
}

// DigestBytes returns the digest of content in the same format as Digest.
func DigestBytes(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// contextReader fails reads once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

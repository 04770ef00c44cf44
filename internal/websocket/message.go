package websocket

import (
	"path/filepath"
	"time"

	"github.com/conneroisu/docsync/internal/syncer"
)

// Message types.
const (
	// TypePageUpdated announces a page written to the docs directory.
	TypePageUpdated = "page_updated"
	// TypePageRejected announces a generated page that failed merge or
	// validation and was not written.
	TypePageRejected = "page_rejected"
	// TypeSyncFailed announces a package whose generator failed.
	TypeSyncFailed = "sync_failed"
)

// Message is one notification sent to clients.
type Message struct {
	Type    string `json:"type"`
	CycleID string `json:"cycle_id,omitempty"`
	Package string `json:"package,omitempty"`
	Scope   string `json:"scope,omitempty"`
	// Target is the slash-separated page path.
	Target    string    `json:"target,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultMessages describes the outcome of a sync cycle. Unchanged pages and
// skipped packages produce no message.
func ResultMessages(results []syncer.PackageResult) []Message {
	now := time.Now()
	var msgs []Message
	for _, r := range results {
		base := Message{
			CycleID:   r.CycleID,
			Package:   r.Package,
			Scope:     r.Scope.String(),
			Timestamp: now,
		}
		if r.Err != nil {
			msg := base
			msg.Type = TypeSyncFailed
			msg.Error = r.Err.Error()
			msgs = append(msgs, msg)
			continue
		}
		for _, p := range r.Pages {
			msg := base
			msg.Target = filepath.ToSlash(p.Path)
			switch {
			case p.Err != nil:
				msg.Type = TypePageRejected
				msg.Error = p.Err.Error()
			case p.Written:
				msg.Type = TypePageUpdated
			default:
				continue
			}
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Package types provides common type definitions shared by the watcher,
// tracker and sync engine. It exists to avoid circular dependencies between
// those packages.
package types

import (
	"fmt"
	"time"
)

// EventType represents the type of file change.
type EventType int

const (
	EventAdd EventType = iota
	EventModify
	EventDelete
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventAdd:
		return "add"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseEventType converts "add", "modify" or "delete" into an EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "add", "create", "created":
		return EventAdd, nil
	case "modify", "change", "modified":
		return EventModify, nil
	case "delete", "remove", "deleted":
		return EventDelete, nil
	default:
		return EventModify, fmt.Errorf("unknown event type %q", s)
	}
}

// ChangeEvent is a single raw file-system change. Events are produced by the
// watcher, consumed by the debouncer and never persisted.
type ChangeEvent struct {
	Type EventType
	Path string
	// PackageName is optional; the tracker resolves it from Path when empty.
	PackageName string
	Timestamp   time.Time
}

// String returns a compact representation used in logs.
func (e ChangeEvent) String() string {
	if e.PackageName != "" {
		return fmt.Sprintf("%s %s (%s)", e.Type, e.Path, e.PackageName)
	}
	return fmt.Sprintf("%s %s", e.Type, e.Path)
}

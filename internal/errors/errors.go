// Package errors defines the error taxonomy shared by the sync engine.
//
// Scanning never fails. Merge and tracker failures are DocsyncError values
// returned to the caller, and validation problems are reported inside a
// result value so that one bad document cannot abort a batch.
package errors

import (
	"sort"
	"sync"
)

// ErrorCollector gathers errors produced while processing many packages so
// a single failure can be reported without halting the others.
type ErrorCollector struct {
	errors []*DocsyncError
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]*DocsyncError, 0),
	}
}

// Add records an error. Plain errors are wrapped as internal errors.
func (ec *ErrorCollector) Add(err error) {
	if err == nil {
		return
	}
	de := Wrap(err, ErrorTypeInternal, ErrCodeInternal, "unexpected error")
	if existing, ok := err.(*DocsyncError); ok {
		de = existing
	}

	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, de)
}

// Errors returns a copy of all collected errors.
func (ec *ErrorCollector) Errors() []*DocsyncError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]*DocsyncError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
}

// ByPackage groups the collected errors by package name.
func (ec *ErrorCollector) ByPackage() map[string][]*DocsyncError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	grouped := make(map[string][]*DocsyncError)
	for _, err := range ec.errors {
		grouped[err.Package] = append(grouped[err.Package], err)
	}
	return grouped
}

// Packages returns the sorted names of packages with at least one error.
func (ec *ErrorCollector) Packages() []string {
	grouped := ec.ByPackage()
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Err returns the collected errors joined into one, or nil.
func (ec *ErrorCollector) Err() error {
	collected := ec.Errors()
	errs := make([]error, len(collected))
	for i, err := range collected {
		errs[i] = err
	}
	return Combine(errs...)
}

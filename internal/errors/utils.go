package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a DocsyncError if the
// input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *DocsyncError {
	if err == nil {
		return nil
	}

	var de *DocsyncError
	if errors.As(err, &de) {
		return &DocsyncError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       de,
			Context:     de.Context,
			Package:     de.Package,
			FilePath:    de.FilePath,
			Line:        de.Line,
			Column:      de.Column,
			Recoverable: de.Recoverable,
		}
	}

	return &DocsyncError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType != ErrorTypeSecurity && errType != ErrorTypeConfig,
	}
}

// WrapIO wraps a filesystem error with the path that caused it.
func WrapIO(err error, code, path string) *DocsyncError {
	de := Wrap(err, ErrorTypeIO, code, "filesystem operation failed")
	if de != nil {
		de.FilePath = path
	}
	return de
}

// WrapPackage wraps an error with the package whose sync cycle produced it.
func WrapPackage(err error, errType ErrorType, code, pkg string) *DocsyncError {
	de := Wrap(err, errType, code, fmt.Sprintf("sync of package %q failed", pkg))
	if de != nil {
		de.Package = pkg
	}
	return de
}

// Combine joins several errors, dropping nils. It returns nil when every
// input is nil.
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return errors.Join(nonNil...)
	}
}

// As returns the outermost DocsyncError in err's chain.
func As(err error) (*DocsyncError, bool) {
	var de *DocsyncError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// GetRootCause returns the deepest underlying error in the chain.
func GetRootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// HasErrorCode checks if any error in the chain, including every branch of
// a joined error, has the specified code.
func HasErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DocsyncError); ok && de.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasErrorCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasErrorCode(u.Unwrap(), code)
	}
	return false
}

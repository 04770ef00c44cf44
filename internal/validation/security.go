package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/docsync/internal/errors"
)

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	// Check for shell metacharacters that could be used for command injection
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return errors.NewSecurityError(errors.ErrCodeCommandInjection,
				fmt.Sprintf("argument contains dangerous character %q", char))
		}
	}

	if strings.Contains(arg, "..") {
		return errors.NewSecurityError(errors.ErrCodePathTraversal,
			fmt.Sprintf("argument contains path traversal: %s", arg))
	}

	// Absolute paths are only accepted for system binaries
	if filepath.IsAbs(arg) && !strings.HasPrefix(arg, "/usr/bin/") && !strings.HasPrefix(arg, "/bin/") &&
		!strings.HasPrefix(arg, "/usr/local/bin/") {
		return errors.NewSecurityError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("absolute path not allowed: %s", arg))
	}

	return nil
}

// ValidateCommand validates a generator command against an allowlist. An
// empty allowlist accepts any command that passes ValidateArgument.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return errors.NewSecurityError(errors.ErrCodeCommandInjection, "command cannot be empty")
	}

	if len(allowedCommands) > 0 && !allowedCommands[filepath.Base(command)] {
		return errors.NewSecurityError(errors.ErrCodeCommandInjection,
			fmt.Sprintf("command '%s' is not allowed", command))
	}

	if err := ValidateArgument(command); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSecurity, errors.ErrCodeCommandInjection,
			fmt.Sprintf("invalid command '%s'", command))
	}

	return nil
}

// ValidatePath validates a file path to prevent path traversal attacks
func ValidatePath(path string) error {
	if path == "" {
		return errors.NewSecurityError(errors.ErrCodeInvalidPath, "path cannot be empty")
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.NewSecurityError(errors.ErrCodePathTraversal,
				fmt.Sprintf("path traversal detected: %s", path))
		}
	}

	cleanPath := filepath.Clean(path)

	// Prevent access to sensitive system directories
	restrictedPaths := []string{
		"/etc/",
		"/proc/",
		"/sys/",
		"/dev/",
		"/boot/",
	}

	cleanPathLower := strings.ToLower(filepath.ToSlash(cleanPath))
	for _, restricted := range restrictedPaths {
		if strings.HasPrefix(cleanPathLower+"/", restricted) {
			return errors.NewSecurityError(errors.ErrCodeInvalidPath,
				fmt.Sprintf("access to restricted path denied: %s", path))
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\x00"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return errors.NewSecurityError(errors.ErrCodeInvalidPath,
				fmt.Sprintf("path contains dangerous character %q", char))
		}
	}

	return nil
}

// ValidatePathWithin validates path and checks that it resolves inside root.
func ValidatePathWithin(path, root string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSecurity, errors.ErrCodeInvalidPath, "cannot resolve root")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSecurity, errors.ErrCodeInvalidPath, "cannot resolve path")
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.NewSecurityError(errors.ErrCodePathTraversal,
			fmt.Sprintf("path %s is outside %s", path, root))
	}
	return nil
}

// ValidateFileExtension validates file extensions against an allowlist
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	if filename == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidPath, "filename cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidPath, "file must have an extension")
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return errors.NewValidationError(errors.ErrCodeInvalidPath,
		fmt.Sprintf("file extension '%s' is not allowed", ext))
}

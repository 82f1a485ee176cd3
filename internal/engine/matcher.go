package engine

import (
	"regexp"
	"strings"

	"github.com/roach88/userscript/internal/script"
)

// AllURLs is the pattern matching every URL with a supported scheme.
const AllURLs = "<all_urls>"

// supportedSchemes are the URL prefixes that trigger injection.
var supportedSchemes = []string{"http://", "https://", "file://"}

// SupportedScheme reports whether url uses a scheme scripts may run on.
func SupportedScheme(url string) bool {
	for _, s := range supportedSchemes {
		if strings.HasPrefix(url, s) {
			return true
		}
	}
	return false
}

// Matches reports whether url matches pattern.
//
// Pattern forms:
//   - "<all_urls>": any http, https or file URL
//   - "/re/": a regular expression searched in url
//   - no '*': exact comparison
//   - otherwise a glob anchored at both ends: a '*' scheme means http or
//     https, '*' in the host never crosses a '/', "://*." also matches the
//     bare host, and '*' in the path matches any run of characters
//
// A malformed pattern never matches.
func Matches(pattern, url string) bool {
	switch {
	case pattern == AllURLs:
		return SupportedScheme(url)

	case isRegexPattern(pattern):
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			return false
		}
		return re.MatchString(url)

	case !strings.Contains(pattern, "*"):
		return pattern == url

	default:
		re, err := regexp.Compile(globToRegexp(pattern))
		if err != nil {
			return false
		}
		return re.MatchString(url)
	}
}

// ShouldRun reports whether s applies to url: at least one Match pattern
// matches and no non-empty Exclude pattern does.
func ShouldRun(s script.Script, url string) bool {
	run := false
	for _, p := range s.Match {
		if Matches(p, url) {
			run = true
		}
	}
	if !run {
		return false
	}
	for _, p := range s.Exclude {
		// An empty exclude is ignored, never "exclude everything".
		if p != "" && Matches(p, url) {
			run = false
		}
	}
	return run
}

func isRegexPattern(p string) bool {
	return len(p) > 2 && p[0] == '/' && p[len(p)-1] == '/'
}

// globToRegexp translates a glob pattern to an anchored regular expression.
//
// A "*" scheme stands for http or https. Up to the first '/' after "://",
// '*' stays within the host; a leading "*." also matches the bare host. In
// the path '*' matches any run of characters.
func globToRegexp(glob string) string {
	var b strings.Builder
	b.WriteString("^")

	rest := glob
	if scheme, after, ok := strings.Cut(glob, "://"); ok {
		if scheme == "*" {
			b.WriteString("https?")
		} else {
			writeGlob(&b, scheme, "[^:/]*")
		}
		b.WriteString("://")

		host, path := after, ""
		if i := strings.IndexByte(after, '/'); i >= 0 {
			host, path = after[:i], after[i:]
		}
		if strings.HasPrefix(host, "*.") {
			b.WriteString(`(?:[^/?#]*\.)?`)
			host = host[2:]
		}
		if path == "" && strings.HasSuffix(host, "*") {
			// "http://example.com*" runs on the whole site.
			writeGlob(&b, host[:len(host)-1], "[^/?#]*")
			b.WriteString(".*")
		} else {
			writeGlob(&b, host, "[^/?#]*")
		}
		rest = path
	}

	writeGlob(&b, rest, ".*")
	b.WriteString("$")
	return b.String()
}

// writeGlob quotes the literal runs of s and writes star for each '*'.
func writeGlob(b *strings.Builder, s, star string) {
	for {
		i := strings.IndexByte(s, '*')
		if i < 0 {
			b.WriteString(regexp.QuoteMeta(s))
			return
		}
		b.WriteString(regexp.QuoteMeta(s[:i]))
		b.WriteString(star)
		s = s[i+1:]
	}
}

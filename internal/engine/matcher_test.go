package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/userscript/internal/script"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		url     string
		want    bool
	}{
		{"all urls http", "<all_urls>", "http://a.test/", true},
		{"all urls file", "<all_urls>", "file:///tmp/x.html", true},
		{"all urls rejects data", "<all_urls>", "data:text/html,hi", false},

		{"exact equal", "https://example.com/", "https://example.com/", true},
		{"exact differs", "https://example.com/", "https://example.com/x", false},
		{"empty pattern", "", "https://example.com/", false},

		{"scheme wildcard", "*://example.com/*", "https://example.com/x", true},
		{"scheme wildcard http", "*://example.com/*", "http://example.com/", true},
		{"path wildcard spans slashes", "https://example.com/*", "https://example.com/a/b/c?d=e", true},
		{"anchored start", "*://example.com/*", "https://notexample.com/", false},
		{"anchored end", "https://example.com/a", "https://example.com/ab", false},
		{"glob anchored end", "https://example.com/*.js", "https://example.com/a.js?x", false},
		{"subdomain wildcard matches subdomain", "*://*.example.com/*", "https://www.example.com/", true},
		{"subdomain wildcard matches nested", "*://*.example.com/*", "https://a.b.example.com/x", true},
		{"subdomain wildcard matches bare host", "*://*.example.com/*", "https://example.com/", true},
		{"subdomain wildcard rejects other host", "*://*.example.com/*", "https://example.org/", false},
		{"subdomain wildcard rejects suffix trick", "*://*.example.com/*", "https://evil.com/?example.com/", false},
		{"scheme wildcard rejects host in query", "*://example.com/*", "https://evil.test/?next=https://example.com/", false},
		{"scheme wildcard rejects host in path", "*://example.com/*", "https://evil.test/redirect/https://example.com/x", false},
		{"scheme wildcard rejects ftp", "*://example.com/*", "ftp://example.com/x", false},
		{"scheme wildcard rejects file", "*://example.com/*", "file://example.com/x", false},
		{"scheme glob", "http*://example.com/*", "https://example.com/", true},
		{"host wildcard any host", "https://*/*", "https://a.test/b/c", true},
		{"host wildcard stops at slash", "https://*.example.com/*", "https://evil.test/x.example.com/", false},
		{"host wildcard stops at query", "https://*.example.com/*", "https://evil.test?.example.com/", false},
		{"host suffix wildcard", "https://example.*/*", "https://example.org/x", true},
		{"host suffix wildcard spans labels", "https://example.*/*", "https://example.evil.test/x", true},
		{"host suffix wildcard rejects path", "https://example.*/x", "https://example.org/y/x", false},
		{"trailing host wildcard covers site", "http://example.com*", "http://example.com/a/b", true},
		{"trailing host wildcard anchored", "http://example.com*", "http://other.com/example.com", false},
		{"file glob", "file:///tmp/*.html", "file:///tmp/a/b.html", true},
		{"non-ascii path", "*://example.com/café/*", "https://example.com/café/x", true},
		{"non-ascii host", "*://bücher.example/*", "https://bücher.example/", true},
		{"non-ascii differs", "*://example.com/café/*", "https://example.com/cafe/x", false},
		{"dot is literal", "https://example.com/a.b*", "https://example.com/aXb", false},
		{"question mark literal", "https://example.com/?q=*", "https://example.com/?q=1", true},
		{"bare star", "*", "anything", true},

		{"regex", `/^https:\/\/example\.(com|org)\//`, "https://example.org/x", true},
		{"regex unanchored", `/example/`, "https://www.example.com/", true},
		{"regex no match", `/^http:/`, "https://example.com/", false},
		{"malformed regex never matches", `/([/`, "https://example.com/([/", false},
		{"two slashes is not regex", "//", "//", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.pattern, tt.url))
		})
	}
}

func TestShouldRun(t *testing.T) {
	tests := []struct {
		name    string
		match   []string
		exclude []string
		url     string
		want    bool
	}{
		{"match", []string{"*://example.com/*"}, nil, "https://example.com/x", true},
		{"no match", []string{"*://example.com/*"}, nil, "https://other.com/x", false},
		{"no patterns", nil, nil, "https://example.com/x", false},
		{"any of several", []string{"https://a.test/*", "*://example.com/*"}, nil, "https://example.com/", true},
		{"exclude wins", []string{"*://example.com/*"}, []string{"*://example.com/x"}, "https://example.com/x", false},
		{"exclude other path", []string{"*://example.com/*"}, []string{"*://example.com/x"}, "https://example.com/y", true},
		{"empty exclude ignored", []string{"*://example.com/*"}, []string{""}, "https://example.com/x", true},
		{"empty exclude among others", []string{"*://example.com/*"}, []string{"", "*://example.com/x"}, "https://example.com/x", false},
		{"exclude without match", nil, []string{"*"}, "https://example.com/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := script.Script{ID: "t", Match: tt.match, Exclude: tt.exclude}
			assert.Equal(t, tt.want, ShouldRun(s, tt.url))
		})
	}
}

func TestSupportedScheme(t *testing.T) {
	assert.True(t, SupportedScheme("http://a"))
	assert.True(t, SupportedScheme("https://a"))
	assert.True(t, SupportedScheme("file:///a"))
	assert.False(t, SupportedScheme("about:blank"))
	assert.False(t, SupportedScheme("chrome://settings"))
	assert.False(t, SupportedScheme("javascript:alert(1)"))
	assert.False(t, SupportedScheme(""))
}

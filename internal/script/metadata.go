package script

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	metaStart = "==UserScript=="
	metaEnd   = "==/UserScript=="
)

// Metadata is the parsed "// ==UserScript==" header of a userscript.
type Metadata struct {
	Name        string              `json:"name"`
	Namespace   string              `json:"namespace"`
	Version     string              `json:"version,omitempty"`
	Description string              `json:"description,omitempty"`
	Author      string              `json:"author,omitempty"`
	RunAt       string              `json:"runAt,omitempty"`
	Match       []string            `json:"matches"`
	Exclude     []string            `json:"excludes"`
	Grant       []string            `json:"grants"`
	Extra       map[string][]string `json:"extra,omitempty"`
}

// ID returns the script identifier for this metadata.
// The result is NFC normalized so that canonically equivalent names map to
// the same stored record.
func (m Metadata) ID() string {
	return norm.NFC.String(m.Namespace + ":" + m.Name)
}

// ParseMetadata extracts the metadata block from userscript source.
//
// Both @match and @include feed Match. Keys are case-sensitive, the first
// @name/@namespace wins, and unknown keys are kept in Extra. Lines inside the
// block that are not "// @key value" comments are skipped.
func ParseMetadata(src string) (Metadata, error) {
	lines := strings.Split(src, "\n")

	start := -1
	for i, line := range lines {
		if commentBody(line) == metaStart {
			start = i
			break
		}
	}
	if start < 0 {
		return Metadata{}, ErrNoMetadata
	}

	meta := Metadata{Match: []string{}, Exclude: []string{}, Grant: []string{}}
	for _, line := range lines[start+1:] {
		body := commentBody(line)
		if body == metaEnd {
			return meta, nil
		}
		key, value, ok := splitDirective(body)
		if !ok {
			continue
		}
		meta.apply(key, value)
	}

	// Unterminated block.
	return Metadata{}, ErrNoMetadata
}

func (m *Metadata) apply(key, value string) {
	switch key {
	case "name":
		if m.Name == "" {
			m.Name = value
		}
	case "namespace":
		if m.Namespace == "" {
			m.Namespace = value
		}
	case "version":
		m.Version = value
	case "description":
		m.Description = value
	case "author":
		m.Author = value
	case "run-at":
		m.RunAt = value
	case "match", "include":
		if value != "" {
			m.Match = append(m.Match, value)
		}
	case "exclude", "exclude-match":
		m.Exclude = append(m.Exclude, value)
	case "grant":
		if value != "" {
			m.Grant = append(m.Grant, value)
		}
	default:
		if m.Extra == nil {
			m.Extra = make(map[string][]string)
		}
		m.Extra[key] = append(m.Extra[key], value)
	}
}

// commentBody returns the trimmed text after "//", or "" if line is not a
// line comment.
func commentBody(line string) string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "//") {
		return ""
	}
	return strings.TrimSpace(line[2:])
}

// splitDirective splits "@key value" into its parts.
func splitDirective(body string) (key, value string, ok bool) {
	if !strings.HasPrefix(body, "@") {
		return "", "", false
	}
	body = body[1:]
	idx := strings.IndexAny(body, " \t")
	if idx < 0 {
		return body, "", body != ""
	}
	return body[:idx], strings.TrimSpace(body[idx+1:]), idx > 0
}

package script

import "errors"

// Script is a user-installed script.
type Script struct {
	// ID is the natural key ("namespace:name").
	ID string `json:"id"`

	// Match lists URL patterns; the script is eligible when any matches.
	Match []string `json:"match"`

	// Exclude lists URL patterns that veto Match. Empty entries are ignored.
	Exclude []string `json:"exclude"`

	// Code is the raw source until Encoded is set, then the injectable form.
	Code string `json:"code"`

	// Encoded reports whether Code has been through Encode.
	Encoded bool `json:"encoded"`
}

var (
	// ErrNoMetadata indicates the source has no "==UserScript==" block.
	ErrNoMetadata = errors.New("userscript metadata block not found")

	// ErrMissingName indicates the metadata block has no @name.
	ErrMissingName = errors.New("userscript metadata has no @name")

	// ErrNoMatch indicates the metadata block has no @match or @include.
	ErrNoMatch = errors.New("userscript metadata has no @match or @include")

	// ErrSyntax indicates code that goja cannot compile.
	ErrSyntax = errors.New("userscript does not compile")
)

// Parse builds an unencoded Script from userscript source.
func Parse(src string) (Script, error) {
	meta, err := ParseMetadata(src)
	if err != nil {
		return Script{}, err
	}
	if meta.Name == "" {
		return Script{}, ErrMissingName
	}
	if len(meta.Match) == 0 {
		return Script{}, ErrNoMatch
	}

	return Script{
		ID:      meta.ID(),
		Match:   meta.Match,
		Exclude: meta.Exclude,
		Code:    src,
		Encoded: false,
	}, nil
}

package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// grantShims maps @grant names to the JavaScript that provides them.
// %[1]s is the JSON-quoted storage prefix for the script.
var grantShims = map[string]string{
	"unsafeWindow": `const unsafeWindow = globalThis;`,
	"GM_log":       `const GM_log = console.log.bind(console);`,
	"GM_addStyle": `function GM_addStyle(css) {
  const style = document.createElement('style');
  style.textContent = css;
  (document.head || document.documentElement).appendChild(style);
  return style;
}`,
	"GM_setValue": `function GM_setValue(key, value) {
  localStorage.setItem(%[1]s + key, JSON.stringify(value));
}`,
	"GM_getValue": `function GM_getValue(key, defaultValue) {
  const raw = localStorage.getItem(%[1]s + key);
  return raw === null ? defaultValue : JSON.parse(raw);
}`,
	"GM_deleteValue": `function GM_deleteValue(key) {
  localStorage.removeItem(%[1]s + key);
}`,
	"GM_listValues": `function GM_listValues() {
  const keys = [];
  for (let i = 0; i < localStorage.length; i++) {
    const k = localStorage.key(i);
    if (k.startsWith(%[1]s)) keys.push(k.slice(%[1]s.length));
  }
  return keys;
}`,
	"GM_openInTab": `function GM_openInTab(url) {
  return window.open(url, '_blank');
}`,
	"GM_setClipboard": `function GM_setClipboard(text) {
  return navigator.clipboard && navigator.clipboard.writeText(String(text));
}`,
}

// Encode returns the injectable form of s.Code.
//
// The source is wrapped in a function scope that defines GM_info and the
// shims named by its @grant lines. Code without a metadata block gets a
// GM_info built from the record itself and no shims. An already encoded
// script is returned unchanged.
func Encode(s Script) (string, error) {
	if s.Encoded {
		return s.Code, nil
	}

	meta, err := ParseMetadata(s.Code)
	if errors.Is(err, ErrNoMetadata) {
		meta = recordMetadata(s)
	} else if err != nil {
		return "", fmt.Errorf("encode %s: %w", s.ID, err)
	}

	info, err := json.Marshal(map[string]any{
		"script":        meta,
		"scriptHandler": "userscript",
	})
	if err != nil {
		return "", fmt.Errorf("encode %s: marshal GM_info: %w", s.ID, err)
	}

	prefix, err := json.Marshal(s.ID + ":")
	if err != nil {
		return "", fmt.Errorf("encode %s: marshal storage prefix: %w", s.ID, err)
	}

	var b strings.Builder
	b.WriteString("void (function () {\n")
	fmt.Fprintf(&b, "const GM_info = %s;\n", info)
	seen := make(map[string]bool, len(meta.Grant))
	for _, g := range meta.Grant {
		shim, ok := grantShims[g]
		if !ok || seen[g] {
			continue
		}
		seen[g] = true
		if strings.Contains(shim, "%[1]s") {
			shim = fmt.Sprintf(shim, prefix)
		}
		b.WriteString(shim)
		b.WriteString("\n")
	}
	b.WriteString(s.Code)
	b.WriteString("\n})();")

	return b.String(), nil
}

// recordMetadata describes a stored script that carries no header.
func recordMetadata(s Script) Metadata {
	return Metadata{
		Name:    s.ID,
		Match:   nonNil(s.Match),
		Exclude: nonNil(s.Exclude),
		Grant:   []string{},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Check compiles code with goja and wraps any failure in ErrSyntax.
//
// The result is advisory: browsers accept syntax goja does not.
func Check(id, code string) error {
	if _, err := goja.Compile(id, code, false); err != nil {
		return fmt.Errorf("check %s: %w: %v", id, ErrSyntax, err)
	}
	return nil
}

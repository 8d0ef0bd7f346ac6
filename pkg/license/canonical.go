package license

import (
	"bytes"
	"encoding/json"
	"sort"
)

// CanonicalJSON serializes doc with keys sorted lexicographically and no
// insignificant whitespace, excluding any key in excludeKeys. This is the
// exact form a LicenseRecord is signed over (spec §3, §6).
func CanonicalJSON(doc map[string]any, excludeKeys ...string) ([]byte, error) {
	excluded := make(map[string]bool, len(excludeKeys))
	for _, k := range excludeKeys {
		excluded[k] = true
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		if !excluded[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := marshalNoHTMLEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := marshalNoHTMLEscape(doc[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoHTMLEscape marshals v without escaping '<', '>', '&', matching
// Python's json.dumps(ensure_ascii=False) byte-for-byte closer than the
// standard library's default HTML-safe escaping.
func marshalNoHTMLEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode appends a trailing newline; trim it.
	out := buf.Bytes()
	return bytes.TrimSuffix(out, []byte("\n")), nil
}

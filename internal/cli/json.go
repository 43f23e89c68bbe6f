package cli

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// keys, string values, literals and numbers
var jsonToken = regexp.MustCompile(`("(\\u[a-zA-Z0-9]{4}|\\[^u]|[^\\"])*"(\s*:)?|\b(true|false|null)\b|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?)`)

// HighlightJSON applies ANSI colors to a JSON fragment.
func HighlightJSON(s string) string {
	if !Enabled() {
		return s
	}

	return jsonToken.ReplaceAllStringFunc(s, func(tok string) string {
		switch {
		case strings.HasSuffix(tok, ":"):
			return fmt.Sprintf("%s%s%s:", Blue, tok[:len(tok)-1], ResetCode)
		case strings.HasPrefix(tok, `"`):
			return Green + tok + ResetCode
		case tok == "true" || tok == "false":
			return Yellow + tok + ResetCode
		case tok == "null":
			return DimCode + tok + ResetCode
		default:
			return Purple + tok + ResetCode
		}
	})
}

// PrettyFormat indents v as JSON and highlights it. Byte slices and strings
// are taken as already encoded.
func PrettyFormat(v any) string {
	var s string
	switch t := v.(type) {
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%+v", v)
		}
		s = string(b)
	}
	return HighlightJSON(s)
}

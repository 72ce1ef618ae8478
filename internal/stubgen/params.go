package stubgen

import "strings"

// interopParam is the conventional name of the Python<'_> token argument.
const interopParam = "py"

var receiverSpellings = map[string]bool{
	"self":      true,
	"&self":     true,
	"&mut self": true,
}

// ParseParams splits a raw Rust argument list into logical parameters.
// Receivers (including typed ones such as self: &Bound<'_, Self>), the py
// interop token and anything without a name/type separator are dropped.
func ParseParams(raw, typeName string) []Param {
	var out []Param
	for _, p := range splitTopLevel(raw) {
		if receiverSpellings[p] || strings.HasSuffix(p, " self") {
			continue
		}

		name, typ, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		name = strings.TrimSpace(strings.TrimPrefix(name, "mut "))
		if name == interopParam || name == "self" {
			continue
		}

		out = append(out, Param{Name: name, Type: MapType(typ, typeName)})
	}
	return out
}

// splitTopLevel splits on commas that are not nested inside <...>.
// Empty pieces are dropped and every piece is trimmed.
func splitTopLevel(s string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0

	flush := func() {
		if p := strings.TrimSpace(cur.String()); p != "" {
			parts = append(parts, p)
		}
		cur.Reset()
	}

	for _, ch := range s {
		switch ch {
		case '<':
			depth++
		case '>':
			depth = max(0, depth-1)
		}
		if ch == ',' && depth == 0 {
			flush()
			continue
		}
		cur.WriteRune(ch)
	}
	flush()

	return parts
}

package stubgen

import (
	"regexp"
	"strings"
)

var (
	// <'_>, <'a>, <'py, T> ... are dropped before anything else.
	lifetimeRe = regexp.MustCompile(`<\s*'[^>]*\s*>`)

	// Greedy and fully anchored so nested generics keep their brackets:
	// Option<Vec<String>> yields Vec<String>.
	resultRe   = regexp.MustCompile(`^Result\s*<(.+)>$`)
	pyResultRe = regexp.MustCompile(`^PyResult\s*<(.+)>$`)
	optionRe   = regexp.MustCompile(`^Option\s*<(.+)>$`)
	vecRe      = regexp.MustCompile(`^Vec\s*<(.+)>$`)
)

var (
	stringTypes = map[string]bool{"String": true, "&str": true, "str": true, "&String": true}
	intTypes    = map[string]bool{"usize": true, "u64": true, "u32": true, "i64": true, "i32": true, "isize": true}
	floatTypes  = map[string]bool{"f64": true, "f32": true}
)

// MapType converts a Rust type spelling into its stub annotation. typeName is
// substituted for Self. Unrecognized types map to Any.
func MapType(raw, typeName string) string {
	if typeName == "" {
		typeName = DefaultTypeName
	}

	t := strings.TrimSpace(raw)
	t = strings.TrimSpace(strings.TrimRight(t, ";"))
	t = strings.TrimSpace(lifetimeRe.ReplaceAllString(t, ""))

	if m := resultRe.FindStringSubmatch(t); m != nil {
		t = firstTypeArg(m[1])
	}
	if m := pyResultRe.FindStringSubmatch(t); m != nil {
		t = firstTypeArg(m[1])
	}

	switch {
	case t == "" || t == "()":
		return NullType
	case t == "Self":
		return typeName
	}

	if m := optionRe.FindStringSubmatch(t); m != nil {
		return MapType(m[1], typeName) + " | None"
	}
	if m := vecRe.FindStringSubmatch(t); m != nil {
		return "list[" + MapType(m[1], typeName) + "]"
	}

	switch {
	case stringTypes[t]:
		return "str"
	case t == "bool":
		return "bool"
	case intTypes[t]:
		return "int"
	case floatTypes[t]:
		return "float"
	}

	// PyAny, PyObject, Bound<..>, PyDict and friends, plus anything else.
	return AnyType
}

// firstTypeArg returns the first top-level argument of a generic argument
// list, so Result<T, E> unwraps to T.
func firstTypeArg(args string) string {
	parts := splitTopLevel(args)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

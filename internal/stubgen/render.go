package stubgen

import (
	"fmt"
	"strings"
)

// Render produces the .pyi text for decls. The output is deterministic for a
// given input and always ends with a newline.
func Render(decls []Declaration, opts Options) []byte {
	opts = opts.withDefaults()

	out := []string{
		"from __future__ import annotations",
		"from typing import Any",
		"",
		fmt.Sprintf("__all__ = ['%s']", opts.TypeName),
		"",
		fmt.Sprintf("class %s:", opts.TypeName),
	}
	if opts.Docstring != "" {
		out = append(out, fmt.Sprintf(`    """%s"""`, opts.Docstring))
	}
	out = append(out, "")

	if len(decls) == 0 {
		out = append(out, "    ...")
	}
	for _, d := range decls {
		if d.Feature != "" {
			out = append(out, fmt.Sprintf(`    # Only present if compiled with Rust feature "%s"`, d.Feature))
		}
		out = append(out, "    "+renderMethod(d))
	}

	out = append(out, "")
	return []byte(strings.Join(out, "\n"))
}

func renderMethod(d Declaration) string {
	if d.IsConstructor() {
		return "def __init__(self) -> None: ..."
	}
	params := make([]string, 0, len(d.Params)+1)
	params = append(params, "self")
	for _, p := range d.Params {
		params = append(params, p.Name+": "+p.Type)
	}
	ret := d.Return
	if ret == "" {
		ret = NullType
	}
	return fmt.Sprintf("def %s(%s) -> %s: ...", d.Name, strings.Join(params, ", "), ret)
}

// Generate extracts and renders in one step.
func Generate(src []byte, opts Options) []byte {
	return Render(Extract(src, opts), opts)
}

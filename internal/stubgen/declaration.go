// Package stubgen extracts the Python-visible method surface of a PyO3
// extension from its Rust source and renders it as a .pyi stub.
//
// Extraction is a line scanner, not a parser. It recognizes a narrow subset:
// a #[pymethods] attribute arming the scanner, the `impl <Type> {` block that
// follows it, single-line fn headers inside that block, and the #[new] and
// #[cfg(feature = "...")] attributes that decorate them. Everything else is
// inert context.
package stubgen

import (
	"slices"
	"sort"
)

const (
	// ConstructorName is the synthesized name for the #[new] method.
	ConstructorName = "__init__"

	// NullType is the mapped form of "returns nothing".
	NullType = "None"

	// AnyType is the fallback for every unrecognized Rust type.
	AnyType = "Any"

	// DefaultTypeName is the exposed pyclass when Options.TypeName is empty.
	DefaultTypeName = "Engine"

	rustConstructorName = "new"
)

// Param is one logical call parameter after receiver and interop glue are dropped.
type Param struct {
	Name string
	Type string
}

// Declaration is one exposed method.
// Feature is empty for methods compiled unconditionally.
type Declaration struct {
	Name    string
	Params  []Param
	Return  string
	Feature string
}

// IsConstructor reports whether d is the synthesized constructor.
func (d Declaration) IsConstructor() bool {
	return d.Name == ConstructorName
}

// Equal reports whether two declarations agree on name, parameters, return type and gate.
func (d Declaration) Equal(o Declaration) bool {
	return d.Name == o.Name &&
		d.Return == o.Return &&
		d.Feature == o.Feature &&
		slices.Equal(d.Params, o.Params)
}

// Options configures extraction and rendering.
type Options struct {
	// TypeName is the Rust type whose #[pymethods] impl is collected. It is
	// also the Python class name in the rendered stub.
	TypeName string

	// Docstring is placed in the rendered class body. Empty omits it.
	Docstring string
}

// DefaultOptions returns the options used for the regorus Engine.
func DefaultOptions() Options {
	return Options{
		TypeName:  DefaultTypeName,
		Docstring: "Regorus engine.",
	}
}

func (o Options) withDefaults() Options {
	if o.TypeName == "" {
		o.TypeName = DefaultTypeName
	}
	return o
}

// Normalize removes exact duplicates and orders the result: the constructor
// first, then everything else by name. Declarations that share a name but
// differ in gate or signature are all kept.
func Normalize(decls []Declaration) []Declaration {
	out := make([]Declaration, 0, len(decls))
	for _, d := range decls {
		dup := false
		for _, seen := range out {
			if seen.Equal(d) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].IsConstructor(), out[j].IsConstructor()
		if ci != cj {
			return ci
		}
		return out[i].Name < out[j].Name
	})
	return out
}

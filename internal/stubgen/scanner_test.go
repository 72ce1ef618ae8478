package stubgen

// Test Plan for the signature scanner:
// - Source without any recognized header yields an empty (non-error) list
// - The Engine scenario yields the constructor and add with mapped params
// - #[new] forces constructor shape regardless of the raw fn name/signature
// - A raw fn named new is treated as the constructor without the attribute
// - #[cfg(feature)] gates only the next fn; comments/attributes in between keep it
// - Unrelated lines consume pending attributes (no leakage)
// - impl blocks without #[pymethods], or for other types, are ignored
// - Brace depth exits the impl and re-arming requires a new #[pymethods]
// - Nested blocks inside method bodies do not exit the impl early
// - Malformed input with excess closing braces clamps depth and recovers
// - CRLF and invalid UTF-8 input is tolerated
// - ExtractFile reports ErrSourceUnavailable for missing files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engineSource = "#[pymethods]\nimpl Engine {\n  #[new]\n  pub fn new() -> Self { }\n  pub fn add(&self, x: i64, y: i64) -> i64 { }\n}"

func names(decls []Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.Name)
	}
	return out
}

func TestExtract_NoHeaders(t *testing.T) {
	t.Parallel()

	decls := Extract([]byte("fn main() {\n    println!(\"hi\");\n}\n"), Options{})
	assert.Empty(t, decls)

	assert.Empty(t, Extract(nil, Options{}))
}

func TestExtract_EngineScenario(t *testing.T) {
	t.Parallel()

	decls := Extract([]byte(engineSource), DefaultOptions())
	require.Len(t, decls, 2)

	assert.Equal(t, Declaration{Name: ConstructorName, Return: NullType}, decls[0])
	assert.Equal(t, Declaration{
		Name:   "add",
		Params: []Param{{Name: "x", Type: "int"}, {Name: "y", Type: "int"}},
		Return: "int",
	}, decls[1])
}

func TestExtract_NewAttributeForcesConstructor(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Engine {
    #[new]
    fn create(policy: String) -> PyResult<Self> {
        todo!()
    }
}
`
	decls := Extract([]byte(src), Options{})
	require.Len(t, decls, 1)
	assert.Equal(t, ConstructorName, decls[0].Name)
	assert.Empty(t, decls[0].Params)
	assert.Equal(t, NullType, decls[0].Return)
}

func TestExtract_RawNewIsConstructor(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Engine {
    pub fn new(x: i64) -> Self {
        Self {}
    }
}
`
	decls := Extract([]byte(src), Options{})
	require.Len(t, decls, 1)
	assert.True(t, decls[0].IsConstructor())
	assert.Empty(t, decls[0].Params)
}

func TestExtract_FeatureGate(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Engine {
    #[cfg(feature = "coverage")]
    /// Enables coverage collection.
    #[pyo3(signature = (enable))]
    pub fn set_enable_coverage(&mut self, enable: bool) {
    }

    pub fn eval_query(&mut self, query: String) -> PyResult<String> {
        todo!()
    }
}
`
	decls := Extract([]byte(src), Options{})
	require.Len(t, decls, 2)

	assert.Equal(t, "eval_query", decls[0].Name)
	assert.Empty(t, decls[0].Feature)
	assert.Equal(t, "str", decls[0].Return)

	assert.Equal(t, "set_enable_coverage", decls[1].Name)
	assert.Equal(t, "coverage", decls[1].Feature)
	assert.Equal(t, []Param{{Name: "enable", Type: "bool"}}, decls[1].Params)
	assert.Equal(t, NullType, decls[1].Return)
}

func TestExtract_PendingDoesNotLeak(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Engine {
    #[cfg(feature = "rvm")]
    const LIMIT: usize = 4;
    pub fn plain(&self) -> bool {
        true
    }
}
`
	decls := Extract([]byte(src), Options{})
	require.Len(t, decls, 1)
	assert.Empty(t, decls[0].Feature)

	// An attribute before #[pymethods] must not reach the first method either.
	src = `#[cfg(feature = "x")]
#[new]
#[pymethods]
impl Engine {
    pub fn plain(&self) -> bool {
        true
    }
}
`
	decls = Extract([]byte(src), Options{})
	require.Len(t, decls, 1)
	assert.Equal(t, "plain", decls[0].Name)
	assert.Empty(t, decls[0].Feature)
}

func TestExtract_IgnoresOtherImpls(t *testing.T) {
	t.Parallel()

	src := `impl Engine {
    pub fn hidden(&self) -> bool { true }
}

#[pymethods]
impl Other {
    pub fn other(&self) -> bool { true }
}

impl Engine {
    pub fn visible(&self) -> bool { true }
}
`
	// #[pymethods] stays armed across the Other impl until impl Engine shows up.
	decls := Extract([]byte(src), Options{})
	assert.Equal(t, []string{"visible"}, names(decls))
}

func TestExtract_DepthExitResetsState(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Engine {
    pub fn first(&self) -> i32 {
        if true {
            let v = vec![1];
        }
        0
    }
}

impl Engine {
    pub fn helper(&self) -> i32 {
        0
    }
}
`
	decls := Extract([]byte(src), Options{})
	assert.Equal(t, []string{"first"}, names(decls))
}

func TestExtract_NestedBodyKeepsCollecting(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Engine {
    pub fn a(&self) -> i32 {
        match 1 {
            _ => {
                0
            }
        }
    }
    pub fn b(&self) -> f64 {
        0.0
    }
}
`
	decls := Extract([]byte(src), Options{})
	assert.Equal(t, []string{"a", "b"}, names(decls))
	assert.Equal(t, "float", decls[1].Return)
}

func TestExtract_MalformedClosingBraces(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Engine {
    pub fn a(&self) {}
}}}}
#[pymethods]
impl Engine {
    pub fn b(&self) {}
}
`
	decls := Extract([]byte(src), Options{})
	assert.Equal(t, []string{"a", "b"}, names(decls))
}

func TestExtract_CRLFAndInvalidUTF8(t *testing.T) {
	t.Parallel()

	src := []byte("#[pymethods]\r\nimpl Engine {\r\n    pub fn x(&self) -> String { // \xff\xfe\r\n    }\r\n}\r\n")
	decls := Extract(src, Options{})
	require.Len(t, decls, 1)
	assert.Equal(t, "x", decls[0].Name)
	assert.Equal(t, "str", decls[0].Return)
}

func TestExtract_CustomTypeName(t *testing.T) {
	t.Parallel()

	src := `#[pymethods]
impl Policy {
    pub fn clone_me(&self) -> Self { todo!() }
}
`
	decls := Extract([]byte(src), Options{TypeName: "Policy"})
	require.Len(t, decls, 1)
	assert.Equal(t, "Policy", decls[0].Return)

	assert.Empty(t, Extract([]byte(src), Options{}))
}

func TestExtractFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "lib.rs")
	require.NoError(t, os.WriteFile(path, []byte(engineSource), 0o644))

	decls, err := ExtractFile(path, Options{})
	require.NoError(t, err)
	assert.Len(t, decls, 2)

	_, err = ExtractFile(filepath.Join(dir, "missing.rs"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

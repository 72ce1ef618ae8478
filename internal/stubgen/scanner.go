package stubgen

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ErrSourceUnavailable is returned when the Rust source cannot be read.
var ErrSourceUnavailable = errors.New("source unavailable")

var (
	pymethodsRe  = regexp.MustCompile(`^\s*#\[\s*pymethods\s*\]\s*$`)
	cfgFeatureRe = regexp.MustCompile(`^\s*#\[\s*cfg\s*\(\s*feature\s*=\s*"([^"]+)"\s*\)\s*\]\s*$`)
	newAttrRe    = regexp.MustCompile(`^\s*#\[\s*new\s*\]\s*$`)

	// pub fn name(args) -> Ret {     and     fn name(args) { ... }
	fnHeaderRe = regexp.MustCompile(
		`^\s*(?:pub(?:\s*\([^)]*\))?\s+)?fn\s+` +
			`([A-Za-z_][A-Za-z0-9_]*)\s*` +
			`\(([^)]*)\)\s*` +
			`(?:->\s*(.+?))?\s*` +
			`\{.*$`,
	)

	// Other outer attributes and comments sit between a recognized attribute
	// and the fn it decorates without consuming it.
	passthroughRe = regexp.MustCompile(`^\s*(?:#\[.*\]|//.*)\s*$`)
)

type scanState int

const (
	stateOutside    scanState = iota
	stateAnnotated            // saw #[pymethods], waiting for the target impl header
	stateTargetImpl           // inside impl <Type> { ... }
)

// pendingAttrs is single-slot lookahead for the fn header on a following line.
type pendingAttrs struct {
	constructor bool
	feature     string
}

type scanner struct {
	typeName string
	implRe   *regexp.Regexp

	state   scanState
	depth   int
	pending pendingAttrs
	decls   []Declaration
}

func newScanner(opts Options) *scanner {
	return &scanner{
		typeName: opts.TypeName,
		implRe:   regexp.MustCompile(`^\s*impl\s+` + regexp.QuoteMeta(opts.TypeName) + `\s*\{\s*$`),
	}
}

// Extract scans Rust source and returns the normalized declaration list.
// Lines outside the recognized subset are skipped; it never fails.
func Extract(src []byte, opts Options) []Declaration {
	opts = opts.withDefaults()
	s := newScanner(opts)
	for _, line := range splitLines(src) {
		s.scanLine(line)
	}
	return Normalize(s.decls)
}

// ExtractFile reads path and extracts its declarations.
func ExtractFile(path string, opts Options) ([]Declaration, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return Extract(src, opts), nil
}

func (s *scanner) scanLine(line string) {
	if m := cfgFeatureRe.FindStringSubmatch(line); m != nil {
		s.pending.feature = m[1]
		return
	}
	if newAttrRe.MatchString(line) {
		s.pending.constructor = true
		return
	}
	if pymethodsRe.MatchString(line) {
		if s.state == stateOutside {
			s.state = stateAnnotated
		}
		return
	}

	switch s.state {
	case stateAnnotated:
		if s.implRe.MatchString(line) {
			s.state = stateTargetImpl
			s.depth = 1
		}
		s.consumePending(line)
	case stateTargetImpl:
		s.scanImplLine(line)
	default:
		s.consumePending(line)
	}
}

func (s *scanner) scanImplLine(line string) {
	if m := fnHeaderRe.FindStringSubmatch(line); m != nil {
		s.decls = append(s.decls, s.declare(m[1], m[2], m[3]))
	}
	s.consumePending(line)

	s.depth += strings.Count(line, "{") - strings.Count(line, "}")
	if s.depth <= 0 {
		s.state = stateOutside
		s.depth = 0
		s.pending = pendingAttrs{}
	}
}

func (s *scanner) declare(name, args, ret string) Declaration {
	if s.pending.constructor || name == rustConstructorName {
		return Declaration{
			Name:    ConstructorName,
			Return:  NullType,
			Feature: s.pending.feature,
		}
	}
	return Declaration{
		Name:    name,
		Params:  ParseParams(args, s.typeName),
		Return:  MapType(ret, s.typeName),
		Feature: s.pending.feature,
	}
}

// consumePending clears the lookahead after any line that is not itself
// attribute or comment context.
func (s *scanner) consumePending(line string) {
	if passthroughRe.MatchString(line) {
		return
	}
	s.pending = pendingAttrs{}
}

// splitLines decodes src lossily and splits on \n, \r\n and \r.
func splitLines(src []byte) []string {
	b := bytes.ToValidUTF8(src, []byte("\uFFFD"))
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	if len(b) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

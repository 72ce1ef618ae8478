package stubgen

import (
	"errors"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// Finding is a method the syntax tree exposes but the line scanner did not emit.
type Finding struct {
	Name string
	Line int
}

// Audit parses src with tree-sitter and reports #[pymethods] methods on the
// target type that Extract would miss, typically fn headers split over
// several lines. It is advisory: Extract remains the source of truth.
func Audit(src []byte, opts Options) ([]Finding, error) {
	opts = opts.withDefaults()

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(sitter.NewLanguage(rust.Language())); err != nil {
		return nil, err
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, errors.New("failed to parse rust source")
	}
	defer tree.Close()

	scanned := make(map[string]bool)
	for _, d := range Extract(src, opts) {
		scanned[d.Name] = true
	}

	var findings []Finding
	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "impl_item" {
			return true
		}
		if !isTargetImpl(n, src, opts.TypeName) {
			return false
		}
		body := n.ChildByFieldName("body")
		if body == nil {
			return false
		}
		for i := uint(0); i < body.NamedChildCount(); i++ {
			fn := body.NamedChild(i)
			if fn == nil || fn.Kind() != "function_item" {
				continue
			}
			name := nodeText(fn.ChildByFieldName("name"), src)
			if name == rustConstructorName || hasAttribute(fn, src, "new") {
				name = ConstructorName
			}
			if name != "" && !scanned[name] {
				findings = append(findings, Finding{
					Name: name,
					Line: int(fn.StartPosition().Row) + 1,
				})
			}
		}
		return false
	})

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings, nil
}

func isTargetImpl(n *sitter.Node, src []byte, typeName string) bool {
	if n.ChildByFieldName("trait") != nil {
		return false
	}
	if nodeText(n.ChildByFieldName("type"), src) != typeName {
		return false
	}
	return hasAttribute(n, src, "pymethods")
}

// hasAttribute walks back over the attribute items directly preceding n.
func hasAttribute(n *sitter.Node, src []byte, attr string) bool {
	for prev := n.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch prev.Kind() {
		case "attribute_item":
			text := strings.TrimSpace(nodeText(prev, src))
			text = strings.TrimSuffix(strings.TrimPrefix(text, "#["), "]")
			if strings.TrimSpace(text) == attr {
				return true
			}
		case "line_comment", "block_comment":
		default:
			return false
		}
	}
	return false
}

func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil || !visitor(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walkTree(node.Child(i), visitor)
	}
}

func nodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return string(src[node.StartByte():node.EndByte()])
}

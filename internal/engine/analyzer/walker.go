// # internal/engine/analyzer/walker.go
package analyzer

import (
	"acyclic/internal/engine/symbols"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// frame is one entry of the walker's parent stack: the node kind and the
// field it occupies in its parent ("" for positional children).
type frame struct {
	kind string
	role string
}

// hotWalker collects imported symbols referenced by code that runs while
// the module initializes. It only descends into the constructs listed in
// visit; function bodies are skipped unless the function is the callee of
// a call expression (an IIFE).
type hotWalker struct {
	source  []byte
	markers symbols.Markers
	stack   []frame
	found   map[string]struct{}
	err     error
}

func newHotWalker(source []byte, markers symbols.Markers) *hotWalker {
	return &hotWalker{
		source:  source,
		markers: markers,
		found:   make(map[string]struct{}),
	}
}

func (w *hotWalker) text(n *sitter.Node) string {
	return string(w.source[n.StartByte():n.EndByte()])
}

func (w *hotWalker) field(n *sitter.Node, name string) {
	w.visit(n.ChildByFieldName(name), name)
}

func (w *hotWalker) named(n *sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		w.visit(n.NamedChild(i), "")
	}
}

// isIIFE reports whether the function on top of the stack is being called
// directly, i.e. it is the "function" field of a call expression.
func (w *hotWalker) isIIFE() bool {
	if len(w.stack) < 2 {
		return false
	}
	self := w.stack[len(w.stack)-1]
	parent := w.stack[len(w.stack)-2]
	return self.role == "function" && parent.kind == "call_expression"
}

func (w *hotWalker) visit(n *sitter.Node, role string) {
	if n == nil || w.err != nil {
		return
	}

	kind := n.Kind()

	// Parentheses do not exist in the ESTree shape; keep them off the stack
	// so "(function () {})()" still sees the call as its parent.
	if kind == "parenthesized_expression" {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			w.visit(n.NamedChild(i), role)
		}
		return
	}

	w.stack = append(w.stack, frame{kind: kind, role: role})
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	switch kind {
	case "identifier", "property_identifier":
		w.record(w.text(n))

	case "binary_expression":
		w.field(n, "left")
		w.field(n, "right")
	case "unary_expression", "update_expression":
		w.field(n, "argument")
	case "assignment_expression", "augmented_assignment_expression":
		w.field(n, "left")
		w.field(n, "right")

	case "call_expression":
		w.field(n, "function")
		w.arguments(n.ChildByFieldName("arguments"))
	case "new_expression":
		w.field(n, "constructor")
		w.arguments(n.ChildByFieldName("arguments"))

	case "member_expression":
		w.field(n, "object")
		w.field(n, "property")
	case "subscript_expression":
		w.field(n, "object")
		w.field(n, "index")
	case "sequence_expression":
		w.named(n)

	case "class_declaration":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if child := n.NamedChild(i); child != nil && child.Kind() == "class_heritage" {
				w.visit(child, "superclass")
			}
		}
	case "class_heritage":
		w.named(n)

	case "expression_statement", "program", "statement_block", "else_clause", "return_statement":
		w.named(n)
	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if decl := n.NamedChild(i); decl != nil && decl.Kind() == "variable_declarator" {
				w.visit(decl.ChildByFieldName("value"), "init")
			}
		}
	case "export_statement":
		w.field(n, "declaration")

	case "for_statement":
		w.field(n, "body")
		w.field(n, "initializer")
		w.field(n, "condition")
		w.field(n, "increment")
	case "for_in_statement":
		w.field(n, "body")
		w.field(n, "left")
		w.field(n, "right")
	case "if_statement", "ternary_expression":
		w.field(n, "condition")
		w.field(n, "consequence")
		w.field(n, "alternative")
	case "while_statement", "do_statement":
		w.field(n, "body")
		w.field(n, "condition")

	case "function_expression", "function", "arrow_function", "generator_function":
		if w.isIIFE() {
			w.field(n, "body")
		}
	}
}

func (w *hotWalker) arguments(args *sitter.Node) {
	// Tagged templates put a template_string here; those are not modelled.
	if args == nil || args.Kind() != "arguments" {
		return
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		w.visit(args.NamedChild(i), "argument")
	}
}

func (w *hotWalker) record(name string) {
	if !w.markers.IsImported(name) {
		return
	}
	id, err := w.markers.SymbolID(name)
	if err != nil {
		w.err = err
		return
	}
	w.found[id] = struct{}{}
}

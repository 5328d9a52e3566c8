package syntax

import (
	"fmt"
	"strings"
)

// Node is one AST node. Left/Right carry the children; the remaining fields
// form the polymorphic payload: literal value, variable reference, or lambda
// descriptor, depending on Type. Nodes with Hoist set are spliced to the
// front of their scope's statement chain.
type Node struct {
	Type  TokenType
	Line  int
	Left  *Node
	Right *Node
	Scope *Scope
	Hoist bool

	// Name is used by labels and named function expressions.
	Name string

	// Literal payload.
	Number float64
	Text   string

	// Reference payload for TokenName nodes.
	Ref *Reference

	// Lambda payload for function nodes.
	Lambda *Lambda
}

// Reference records a use of a name. It is registered in the scope where the
// use appears and resolved after parsing: either bound to a declared
// variable in an enclosing scope or left as a global late binding.
type Reference struct {
	UniqueID uint32
	Name     string
	Scope    *Scope

	// Filled in by resolution.
	Variable *Variable
	Index    Index
}

// LateBound reports whether the reference fell through every scope and was
// materialized as a global slot.
func (r *Reference) LateBound() bool {
	return r.Variable != nil && r.Variable.State == StateLateBound
}

// Lambda is the compile-time descriptor of a function body: parameter
// count, rest flag, the body chain, and the scope that forms the closure
// link.
type Lambda struct {
	NArgs int
	Rest  bool
	Body  *Node
	Scope *Scope
	Name  string
}

// Tree is a finished parse: the root statement chain and the global scope.
type Tree struct {
	Root   *Node
	Global *Scope
	Module bool
}

// Dump renders the node tree in an indented two-children-per-node form,
// used by the CLI and by tests.
func (n *Node) Dump() string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Type.String())

	switch {
	case n.Type == TokenNumber:
		fmt.Fprintf(b, " %v", n.Number)
	case n.Type == TokenString || n.Type == TokenRegexp:
		fmt.Fprintf(b, " %q", n.Text)
	case n.Ref != nil:
		fmt.Fprintf(b, " %s#%08x", n.Ref.Name, n.Ref.UniqueID)
	case n.Lambda != nil:
		fmt.Fprintf(b, " %s(nargs=%d", n.Lambda.Name, n.Lambda.NArgs)
		if n.Lambda.Rest {
			b.WriteString(", rest")
		}
		b.WriteString(")")
	case n.Name != "":
		fmt.Fprintf(b, " %s", n.Name)
	}
	b.WriteByte('\n')

	if n.Lambda != nil && n.Lambda.Body != nil {
		dump(b, n.Lambda.Body, depth+1)
	}
	dump(b, n.Left, depth+1)
	dump(b, n.Right, depth+1)
}

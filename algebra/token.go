// Package algebra implements the postfix relational-algebra IR and
// the single-pass projection rewriter described in spec.md §4.6–4.7:
// the four classical projection equivalence rules — cascade, commute
// with selection, distribute over union/intersect, and distribute
// over theta-join.
//
// It has no teacher-package analogue (the teacher has no algebra IR);
// it follows the teacher's typed-tagged-node idiom (cf. node.go's
// NodeType, btree's tagged node variants) and is grounded directly on
// original_source/src/opti/rel_eq_projection.c.
package algebra

import "fmt"

// OpKind enumerates the relational-algebra operators spec.md §3 and
// §6 name, keyed by their one-letter wire symbol.
type OpKind byte

const (
	Projection OpKind = 'p' // π
	Selection  OpKind = 's' // σ
	Union      OpKind = 'u' // ∪
	Intersect  OpKind = 'n' // ∩
	Except     OpKind = 'e' // \
	Join       OpKind = 'j' // ⋈
	ThetaJoin  OpKind = 't' // ⋈θ
	Rename     OpKind = 'r' // ρ
)

func (k OpKind) String() string {
	switch k {
	case Projection:
		return "π"
	case Selection:
		return "σ"
	case Union:
		return "∪"
	case Intersect:
		return "∩"
	case Except:
		return "\\"
	case Join:
		return "⋈"
	case ThetaJoin:
		return "⋈θ"
	case Rename:
		return "ρ"
	default:
		return fmt.Sprintf("op(%c)", byte(k))
	}
}

// Kind tags the payload carried by a Token.
type Kind int

const (
	// KindOperator tags a relational-algebra operator symbol.
	KindOperator Kind = iota
	// KindOperand tags a table (operand) name.
	KindOperand
	// KindAttributes tags an attribute-list (projection target or
	// join/rename attribute set).
	KindAttributes
	// KindCondition tags postfix condition text (selection predicate
	// or join condition), with attribute names wrapped in the escape
	// character.
	KindCondition
)

// Token is one element of the postfix IR stream. Exactly one of Op,
// Table, Attrs, Cond is meaningful, selected by Kind.
type Token struct {
	Kind  Kind
	Op    OpKind
	Table string
	Attrs []string
	Cond  string
}

// NewOperator builds an operator token.
func NewOperator(op OpKind) Token { return Token{Kind: KindOperator, Op: op} }

// NewOperand builds a table-operand token.
func NewOperand(table string) Token { return Token{Kind: KindOperand, Table: table} }

// NewAttributes builds an attribute-list token.
func NewAttributes(attrs []string) Token { return Token{Kind: KindAttributes, Attrs: dedupOrder(attrs)} }

// NewCondition builds a condition token from raw postfix condition
// text, with attribute names wrapped in AttrEscape.
func NewCondition(cond string) Token { return Token{Kind: KindCondition, Cond: cond} }

// IsOperator reports whether t is an operator token of kind op.
func (t Token) IsOperator(op OpKind) bool {
	return t.Kind == KindOperator && t.Op == op
}

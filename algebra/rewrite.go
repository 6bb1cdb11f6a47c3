package algebra

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrMalformedIR is returned when a postfix operator lacks its
// expected operand successor (spec.md §7).
var ErrMalformedIR = errors.New("algebra: malformed postfix IR")

// ErrSchemaMissing is returned when SchemaLookup returns an empty
// attribute list for a table referenced during rewriting (spec.md §7).
var ErrSchemaMissing = errors.New("algebra: schema lookup returned no attributes")

// SchemaLookup resolves a table name to its ordered attribute list.
// An empty, nil-error return is treated as schema-missing.
type SchemaLookup func(table string) ([]string, error)

// Rewrite runs the single forward pass described in spec.md §4.6 over
// in, applying the four projection equivalence rules, and returns the
// rewritten stream. On ErrMalformedIR or ErrSchemaMissing it returns
// the prefix already emitted alongside the error, per spec.md §7.
func Rewrite(in []Token, schema SchemaLookup, log *zap.Logger) ([]Token, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &rewriter{in: in, schema: schema, log: log}
	return r.run()
}

type rewriter struct {
	in     []Token
	pos    int
	out    []Token
	schema SchemaLookup
	log    *zap.Logger
}

func (r *rewriter) run() ([]Token, error) {
	for r.pos < len(r.in) {
		tok := r.in[r.pos]
		r.pos++

		if tok.Kind != KindOperator {
			// An operand encountered without a governing operator
			// (the start of the stream, or following an operator
			// that appends unchanged) is copied through as-is.
			r.out = append(r.out, tok)
			continue
		}

		switch tok.Op {
		case Projection:
			if err := r.applyProjection(); err != nil {
				return r.out, err
			}
		case Selection:
			if err := r.applySelection(); err != nil {
				return r.out, err
			}
		case Union, Intersect:
			if err := r.applyDistributeBinary(tok.Op); err != nil {
				return r.out, err
			}
		case ThetaJoin:
			if err := r.applyThetaJoin(); err != nil {
				return r.out, err
			}
		case Join, Except:
			if err := r.appendUnchangedBinary(tok.Op); err != nil {
				return r.out, err
			}
		case Rename:
			r.out = append(r.out, tok)
		default:
			r.out = append(r.out, tok)
		}
	}
	return r.out, nil
}

func (r *rewriter) next() (Token, bool) {
	if r.pos >= len(r.in) {
		return Token{}, false
	}
	tok := r.in[r.pos]
	r.pos++
	return tok, true
}

// readOperand consumes one full operand position from the input. In
// the common case that is a single Operand token, but re-running the
// rewriter over its own output (spec.md Property 6) can present a
// projection-wrapped sub-expression in an operand position — Rule
// 3/4 distribution leaves "π attrs operand" where a bare operand used
// to be. readOperand consumes such a sub-expression recursively and
// returns its verbatim tokens for re-emission, plus the underlying
// table name when the operand is a bare Operand (empty string for a
// compound sub-expression, which distribute rules must then decline
// to re-split).
func (r *rewriter) readOperand() ([]Token, string, error) {
	tok, ok := r.next()
	if !ok {
		return nil, "", ErrMalformedIR
	}
	switch {
	case tok.Kind == KindOperand:
		return []Token{tok}, tok.Table, nil
	case tok.IsOperator(Projection):
		attrsTok, ok := r.next()
		if !ok || attrsTok.Kind != KindAttributes {
			return nil, "", ErrMalformedIR
		}
		sub, _, err := r.readOperand()
		if err != nil {
			return nil, "", err
		}
		out := append([]Token{tok, attrsTok}, sub...)
		return out, "", nil
	default:
		return nil, "", ErrMalformedIR
	}
}

// lastAttributes returns the index of the last Attributes token
// anywhere in r.out (spec.md §4.6's "prev_top").
func lastAttributes(out []Token) (int, bool) {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Kind == KindAttributes {
			return i, true
		}
	}
	return -1, false
}

// walkBackwardForProjection scans out from the tail looking for a
// governing π, stopping at the first Operand token reached (spec.md
// §4.6: "Walking backward stops at the first operand token reached").
// It returns the index of the Operator(π) token, and whether the π's
// attrs (at idx+1) are the very last thing emitted — meaning nothing
// has been produced under it yet, so it still governs whatever
// operand(s) come next.
func walkBackwardForProjection(out []Token) (idx int, immediate bool, found bool) {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Kind == KindOperand {
			return -1, false, false
		}
		if out[i].IsOperator(Projection) {
			return i, i+1 == len(out)-1, true
		}
	}
	return -1, false, false
}

func bareName(attr string) string {
	if i := strings.LastIndex(attr, "."); i >= 0 {
		return attr[i+1:]
	}
	return attr
}

func bareNames(attrs []string) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = bareName(a)
	}
	return dedupOrder(out)
}

// applyProjection implements Rule 2 (cascade): p[L1](p[L2](R)) =
// p[L1](R) when L1 subseteq L2. The stream lists the outer L1
// projection first (already in r.out as prev_top) and the inner L2
// projection second (the token being read now); the inner one is
// redundant exactly when everything prev_top needs is already present
// in it, i.e. prev_top subseteq attrsTok.
func (r *rewriter) applyProjection() error {
	attrsTok, ok := r.next()
	if !ok || attrsTok.Kind != KindAttributes {
		return ErrMalformedIR
	}
	if idx, found := lastAttributes(r.out); found && Subset(attrsTok.Attrs, r.out[idx].Attrs) {
		r.log.Debug("projection cascade elided", zap.Strings("attrs", attrsTok.Attrs))
		return nil
	}
	r.out = append(r.out, NewOperator(Projection), attrsTok)
	return nil
}

// applySelection implements Rule 1 (commute with projection).
func (r *rewriter) applySelection() error {
	condTok, ok := r.next()
	if !ok || condTok.Kind != KindCondition {
		return ErrMalformedIR
	}

	idx, _, found := walkBackwardForProjection(r.out)
	if found {
		attrsTok := r.out[idx+1]
		if Commutes(attrsTok.Attrs, condTok.Cond) {
			r.log.Debug("selection commuted before projection", zap.String("cond", condTok.Cond))
			spliced := append([]Token{}, r.out[:idx]...)
			spliced = append(spliced, NewOperator(Selection), condTok)
			spliced = append(spliced, r.out[idx:]...)
			r.out = spliced
			return nil
		}
	}
	r.out = append(r.out, NewOperator(Selection), condTok)
	return nil
}

// applyDistributeBinary implements Rule 4 (distribute over union/intersect).
func (r *rewriter) applyDistributeBinary(op OpKind) error {
	leftToks, leftTable, err := r.readOperand()
	if err != nil {
		return err
	}
	rightToks, rightTable, err := r.readOperand()
	if err != nil {
		return err
	}

	idx, immediate, found := walkBackwardForProjection(r.out)
	if found && immediate && leftTable != "" && rightTable != "" {
		attrs := r.out[idx+1].Attrs
		r.out = r.out[:idx]
		r.log.Debug("projection distributed over binary op", zap.Stringer("op", op), zap.Strings("attrs", attrs))
		r.out = append(r.out, NewOperator(op))
		r.out = append(r.out, NewOperator(Projection), NewAttributes(attrs), NewOperand(leftTable))
		r.out = append(r.out, NewOperator(Projection), NewAttributes(attrs), NewOperand(rightTable))
		return nil
	}
	r.out = append(r.out, NewOperator(op))
	r.out = append(r.out, leftToks...)
	r.out = append(r.out, rightToks...)
	return nil
}

func (r *rewriter) appendUnchangedBinary(op OpKind) error {
	leftToks, _, err := r.readOperand()
	if err != nil {
		return err
	}
	rightToks, _, err := r.readOperand()
	if err != nil {
		return err
	}
	r.out = append(r.out, NewOperator(op))
	r.out = append(r.out, leftToks...)
	r.out = append(r.out, rightToks...)
	return nil
}

// applyThetaJoin implements Rules 3a/3b.
func (r *rewriter) applyThetaJoin() error {
	condTok, ok := r.next()
	if !ok || condTok.Kind != KindCondition {
		return ErrMalformedIR
	}
	leftToks, leftTable, err := r.readOperand()
	if err != nil {
		return err
	}
	rightToks, rightTable, err := r.readOperand()
	if err != nil {
		return err
	}

	appendUnchanged := func() {
		r.out = append(r.out, NewOperator(ThetaJoin), condTok)
		r.out = append(r.out, leftToks...)
		r.out = append(r.out, rightToks...)
	}

	idx, immediate, found := walkBackwardForProjection(r.out)
	if !found || !immediate || leftTable == "" || rightTable == "" {
		appendUnchanged()
		return nil
	}

	attrs := r.out[idx+1].Attrs

	leftSchema, err := r.schema(leftTable)
	if err != nil || len(leftSchema) == 0 {
		appendUnchanged()
		return ErrSchemaMissing
	}
	rightSchema, err := r.schema(rightTable)
	if err != nil || len(rightSchema) == 0 {
		appendUnchanged()
		return ErrSchemaMissing
	}

	bareAttrs := bareNames(attrs)
	l1 := FilterToSchema(bareAttrs, bareNames(leftSchema))
	l2 := FilterToSchema(bareAttrs, bareNames(rightSchema))
	condAttrs := bareNames(CollectConditionAttributes(condTok.Cond))

	r.out = r.out[:idx]

	if Subset(union(l1, l2), condAttrs) {
		// Rule 3a: the join condition is already covered by L1 u L2,
		// so the outer projection is redundant once pushed to each side.
		r.log.Debug("theta-join projection fully distributed (rule 3a)", zap.Strings("left", l1), zap.Strings("right", l2))
		r.out = append(r.out, NewOperator(ThetaJoin), condTok)
		r.out = append(r.out, NewOperator(Projection), NewAttributes(l1), NewOperand(leftTable))
		r.out = append(r.out, NewOperator(Projection), NewAttributes(l2), NewOperand(rightTable))
		return nil
	}

	// Rule 3b: condition needs attributes outside L1 u L2; keep the
	// outer projection and push the extra attributes down so the join
	// can evaluate, trimming them back afterward.
	leftExtra := intersect(condAttrs, bareNames(leftSchema))
	rightExtra := intersect(condAttrs, bareNames(rightSchema))
	leftPush := union(l1, leftExtra)
	rightPush := union(l2, rightExtra)
	outer := union(l1, l2)

	r.log.Debug("theta-join projection partially distributed (rule 3b)", zap.Strings("outer", outer))
	r.out = append(r.out, NewOperator(Projection), NewAttributes(outer))
	r.out = append(r.out, NewOperator(ThetaJoin), condTok)
	r.out = append(r.out, NewOperator(Projection), NewAttributes(leftPush), NewOperand(leftTable))
	r.out = append(r.out, NewOperator(Projection), NewAttributes(rightPush), NewOperand(rightTable))
	return nil
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, x := range b {
		set[x] = true
	}
	var out []string
	for _, x := range a {
		if set[x] {
			out = append(out, x)
		}
	}
	return dedupOrder(out)
}

package algebra

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func staticSchema(schemas map[string][]string) SchemaLookup {
	return func(table string) ([]string, error) {
		return schemas[table], nil
	}
}

// Scenario O1 (cascade).
func TestRewriteCascade(t *testing.T) {
	in := []Token{
		NewOperator(Projection), NewAttributes([]string{"a", "b", "c"}),
		NewOperator(Projection), NewAttributes([]string{"a", "b", "c", "d"}),
		NewOperand("R"),
	}
	want := []Token{
		NewOperator(Projection), NewAttributes([]string{"a", "b", "c"}),
		NewOperand("R"),
	}
	got, err := Rewrite(in, nil, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// Scenario O2 (commute).
func TestRewriteCommute(t *testing.T) {
	in := []Token{
		NewOperator(Projection), NewAttributes([]string{"a", "b"}),
		NewOperator(Selection), NewCondition("`a`>5"),
		NewOperand("R"),
	}
	want := []Token{
		NewOperator(Selection), NewCondition("`a`>5"),
		NewOperator(Projection), NewAttributes([]string{"a", "b"}),
		NewOperand("R"),
	}
	got, err := Rewrite(in, nil, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// Scenario O3 (distribute over union).
func TestRewriteDistributeUnion(t *testing.T) {
	in := []Token{
		NewOperator(Projection), NewAttributes([]string{"a"}),
		NewOperator(Union),
		NewOperand("R"),
		NewOperand("S"),
	}
	want := []Token{
		NewOperator(Union),
		NewOperator(Projection), NewAttributes([]string{"a"}), NewOperand("R"),
		NewOperator(Projection), NewAttributes([]string{"a"}), NewOperand("S"),
	}
	got, err := Rewrite(in, nil, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// Scenario O4 (theta-join split).
func TestRewriteThetaJoinSplit(t *testing.T) {
	schema := staticSchema(map[string][]string{
		"R": {"x", "z"},
		"S": {"y", "w"},
	})
	in := []Token{
		NewOperator(Projection), NewAttributes([]string{"r.x", "s.y"}),
		NewOperator(ThetaJoin), NewCondition("`r.x`=`s.y`"),
		NewOperand("R"),
		NewOperand("S"),
	}
	want := []Token{
		NewOperator(ThetaJoin), NewCondition("`r.x`=`s.y`"),
		NewOperator(Projection), NewAttributes([]string{"x"}), NewOperand("R"),
		NewOperator(Projection), NewAttributes([]string{"y"}), NewOperand("S"),
	}
	got, err := Rewrite(in, schema, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRewriteThetaJoinPartial(t *testing.T) {
	schema := staticSchema(map[string][]string{
		"R": {"x", "z"},
		"S": {"y", "w"},
	})
	// The join condition references z, which the outer projection
	// drops; rule 3b must push z down to R and restore the outer
	// projection afterward.
	in := []Token{
		NewOperator(Projection), NewAttributes([]string{"r.x", "s.y"}),
		NewOperator(ThetaJoin), NewCondition("`r.x`=`r.z`"),
		NewOperand("R"),
		NewOperand("S"),
	}
	got, err := Rewrite(in, schema, nil)
	require.NoError(t, err)
	require.Equal(t, []Token{
		NewOperator(Projection), NewAttributes([]string{"x", "y"}),
		NewOperator(ThetaJoin), NewCondition("`r.x`=`r.z`"),
		NewOperator(Projection), NewAttributes([]string{"x", "z"}), NewOperand("R"),
		NewOperator(Projection), NewAttributes([]string{"y"}), NewOperand("S"),
	}, got)
}

func TestRewriteNaturalJoinExceptUnchanged(t *testing.T) {
	cases := []OpKind{Join, Except}
	for _, op := range cases {
		in := []Token{NewOperator(op), NewOperand("R"), NewOperand("S")}
		got, err := Rewrite(in, nil, nil)
		require.NoError(t, err)
		require.Equal(t, in, got)
	}
}

func TestRewriteSchemaMissing(t *testing.T) {
	schema := staticSchema(map[string][]string{"R": {"x"}}) // S missing
	in := []Token{
		NewOperator(Projection), NewAttributes([]string{"x"}),
		NewOperator(ThetaJoin), NewCondition("`r.x`=`s.y`"),
		NewOperand("R"),
		NewOperand("S"),
	}
	_, err := Rewrite(in, schema, nil)
	require.ErrorIs(t, err, ErrSchemaMissing)
}

func TestRewriteMalformedIR(t *testing.T) {
	in := []Token{NewOperator(Projection)} // no attribute-set successor
	_, err := Rewrite(in, nil, nil)
	require.ErrorIs(t, err, ErrMalformedIR)
}

// Property 6: applying the rewriter twice yields the same output as
// applying it once.
func TestRewriteIdempotent(t *testing.T) {
	schema := staticSchema(map[string][]string{
		"R": {"x", "z"},
		"S": {"y", "w"},
	})
	inputs := [][]Token{
		{
			NewOperator(Projection), NewAttributes([]string{"a", "b", "c"}),
			NewOperator(Projection), NewAttributes([]string{"a", "b", "c", "d"}),
			NewOperand("R"),
		},
		{
			NewOperator(Projection), NewAttributes([]string{"r.x", "s.y"}),
			NewOperator(ThetaJoin), NewCondition("`r.x`=`s.y`"),
			NewOperand("R"),
			NewOperand("S"),
		},
	}
	for _, in := range inputs {
		once, err := Rewrite(in, schema, nil)
		require.NoError(t, err)
		twice, err := Rewrite(once, schema, nil)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	}
}

// Property 7: subset law.
func TestSubsetLaw(t *testing.T) {
	require.True(t, Subset([]string{"a", "b", "c"}, []string{"a", "b"}))
	require.False(t, Subset([]string{"a", "b"}, []string{"a", "b", "c"}))
	require.True(t, Subset([]string{"a", "b"}, []string{"b", "a"}))
	require.True(t, Subset([]string{"a", "a", "b"}, []string{"a"}))
}

func TestCollectConditionAttributes(t *testing.T) {
	require.Equal(t, []string{"r.x", "s.y"}, CollectConditionAttributes("`r.x`=`s.y`"))
	require.Equal(t, []string{"a"}, CollectConditionAttributes("`a`>5"))
}

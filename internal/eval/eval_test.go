package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalLiterals(t *testing.T) {
	ctx := NewContext()

	v, err := Eval("true", ctx)
	require.NoError(t, err)
	assert.True(t, v.Truthy())

	v, err = Eval("1 == 1", ctx)
	require.NoError(t, err)
	assert.True(t, v.Truthy())

	v, err = Eval("'a' == 'b'", ctx)
	require.NoError(t, err)
	assert.False(t, v.Truthy())
}

func TestEvalUndefinedPathIsEmptyString(t *testing.T) {
	ctx := NewContext()
	v, err := Eval("env.MISSING", ctx)
	require.NoError(t, err)
	assert.Equal(t, "", v.AsString())
	assert.False(t, v.Truthy())
}

func TestEvalNamespacedLookup(t *testing.T) {
	ctx := NewContext()
	ctx.Namespaces["env"] = map[string]interface{}{"NAME": "ci"}

	v, err := Eval("env.NAME == 'ci'", ctx)
	require.NoError(t, err)
	assert.True(t, v.Truthy())
}

func TestEvalLogicalShortCircuit(t *testing.T) {
	ctx := NewContext()
	v, err := Eval("true || unknownFunc()", ctx)
	require.NoError(t, err)
	assert.True(t, v.Truthy())
}

func TestEvalSuccessFailureAlwaysCancelled(t *testing.T) {
	ctx := NewContext()
	ctx.StepStatuses = []StepStatus{{Success: true}, {Success: false}}

	v, _ := Eval("success()", ctx)
	assert.False(t, v.Truthy())

	v, _ = Eval("failure()", ctx)
	assert.True(t, v.Truthy())

	v, _ = Eval("always()", ctx)
	assert.True(t, v.Truthy())

	v, _ = Eval("cancelled()", ctx)
	assert.False(t, v.Truthy())
}

func TestEvalBuiltinStringFunctions(t *testing.T) {
	ctx := NewContext()

	v, err := Eval("contains('hello world', 'world')", ctx)
	require.NoError(t, err)
	assert.True(t, v.Truthy())

	v, err = Eval("startsWith('hello', 'he')", ctx)
	require.NoError(t, err)
	assert.True(t, v.Truthy())

	v, err = Eval("endsWith('hello', 'lo')", ctx)
	require.NoError(t, err)
	assert.True(t, v.Truthy())
}

func TestEvalBoolForIfCondition(t *testing.T) {
	ctx := NewContext()
	ok, err := EvalBool("1 < 2 && !false", ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInterpolate(t *testing.T) {
	ctx := NewContext()
	ctx.Namespaces["env"] = map[string]interface{}{"NAME": "world"}

	out, err := Interpolate("hello ${{ env.NAME }}!", ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", out)
}

func TestInterpolateUndefinedBecomesEmpty(t *testing.T) {
	ctx := NewContext()
	out, err := Interpolate("value=[${{ env.MISSING }}]", ctx)
	require.NoError(t, err)
	assert.Equal(t, "value=[]", out)
}

func TestContainsInterpolation(t *testing.T) {
	assert.True(t, ContainsInterpolation("${{ foo }}"))
	assert.False(t, ContainsInterpolation("plain text"))
}

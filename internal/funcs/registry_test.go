package funcs

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varscope/internal/template"
)

func str(s string) template.Arg {
	return template.Arg{Kind: template.StringArg, Value: s}
}

func num(n float64) template.Arg {
	return template.Arg{Kind: template.NumberArg, Value: strconv.FormatFloat(n, 'f', -1, 64), Number: n}
}

func fixedRegistry() *Registry {
	now := time.Date(2025, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	return NewDefaultRegistry(
		WithNow(func() time.Time { return now }),
		WithRandSource(rand.NewPCG(1, 2)),
	)
}

// =============================================================================
// Registry contract
// =============================================================================

func TestRegistry_UnknownFunction(t *testing.T) {
	_, err := NewRegistry().Invoke("nope", nil)
	require.Error(t, err)
	assert.True(t, IsInvocationError(err))

	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "nope", ie.Function)
	assert.Equal(t, "unknown function", ie.Reason)
}

func TestRegistry_Arity(t *testing.T) {
	r := fixedRegistry()

	_, err := r.Invoke("random", []template.Arg{num(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function random: expected 2 arguments, got 1")

	_, err = r.Invoke("uuid", []template.Arg{str("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 0 arguments, got 1")

	_, err = r.Invoke("timestamp", []template.Arg{str("iso"), str("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 0 to 1 arguments, got 2")
}

func TestRegistry_ArgTypes(t *testing.T) {
	_, err := fixedRegistry().Invoke("random", []template.Arg{str("a"), num(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `argument 1 must be a number, got "a"`)
}

func TestRegistry_CallErrorWrapped(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Function{
		Name: "fail",
		Call: func([]template.Arg) (string, error) { return "", errors.New("boom") },
	}))

	_, err := r.Invoke("fail", nil)
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "boom", ie.Reason)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(Function{Name: ""}))
	assert.Error(t, r.Register(Function{Name: "x"}))
	assert.Error(t, r.Register(Function{Name: "x", MinArgs: 2, MaxArgs: 1, Call: func([]template.Arg) (string, error) { return "", nil }}))
	assert.NoError(t, r.Register(Function{Name: "x", MaxArgs: -1, Call: func([]template.Arg) (string, error) { return "", nil }}))

	_, err := r.Invoke("x", []template.Arg{num(1), num(2), num(3)})
	assert.NoError(t, err)
}

func TestRegistry_Names(t *testing.T) {
	assert.Equal(t,
		[]string{"base64", "lower", "random", "randomString", "timestamp", "upper", "urlEncode", "uuid", "uuidv7"},
		fixedRegistry().Names())
}

// =============================================================================
// Built-ins
// =============================================================================

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-([0-9a-f])[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestUUID(t *testing.T) {
	r := fixedRegistry()

	a, err := r.Invoke("uuid", nil)
	require.NoError(t, err)
	b, err := r.Invoke("uuid", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "every invocation is fresh")
	assert.Equal(t, "4", uuidPattern.FindStringSubmatch(a)[1])

	v7, err := r.Invoke("uuidv7", nil)
	require.NoError(t, err)
	assert.Equal(t, "7", uuidPattern.FindStringSubmatch(v7)[1])
}

func TestTimestamp(t *testing.T) {
	r := fixedRegistry()
	tests := []struct {
		args []template.Arg
		want string
	}{
		{nil, "1741964966535"},
		{[]template.Arg{str("unix_ms")}, "1741964966535"},
		{[]template.Arg{str("unix")}, "1741964966"},
		{[]template.Arg{str("iso")}, "2025-03-14T15:09:26.535Z"},
		{[]template.Arg{str("rfc1123")}, "Fri, 14 Mar 2025 15:09:26 UTC"},
	}
	for _, tt := range tests {
		got, err := r.Invoke("timestamp", tt.args)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := r.Invoke("timestamp", []template.Arg{str("julian")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "julian"`)
}

func TestRandom_Bounds(t *testing.T) {
	r := fixedRegistry()
	for i := 0; i < 200; i++ {
		out, err := r.Invoke("random", []template.Arg{num(-3), num(3)})
		require.NoError(t, err)
		n, err := strconv.Atoi(out)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, -3)
		assert.LessOrEqual(t, n, 3)
	}

	out, err := r.Invoke("random", []template.Arg{num(5), num(5)})
	require.NoError(t, err)
	assert.Equal(t, "5", out)
}

func TestRandom_Invalid(t *testing.T) {
	r := fixedRegistry()

	_, err := r.Invoke("random", []template.Arg{num(5), num(1)})
	assert.ErrorContains(t, err, "min 5 is greater than max 1")

	_, err = r.Invoke("random", []template.Arg{num(1.5), num(3)})
	assert.ErrorContains(t, err, "argument 1 must be an integer")
}

func TestRandomString(t *testing.T) {
	r := fixedRegistry()

	out, err := r.Invoke("randomString", []template.Arg{num(16)})
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Za-z0-9]{16}$`, out)

	_, err = r.Invoke("randomString", []template.Arg{num(0)})
	assert.ErrorContains(t, err, "length must be between 1 and 1024")
}

func TestEncodingAndCasing(t *testing.T) {
	r := fixedRegistry()

	out, err := r.Invoke("base64", []template.Arg{str("user:pass")})
	require.NoError(t, err)
	assert.Equal(t, "dXNlcjpwYXNz", out)

	out, err = r.Invoke("urlEncode", []template.Arg{str("a b&c=d")})
	require.NoError(t, err)
	assert.Equal(t, "a+b%26c%3Dd", out)

	out, err = r.Invoke("upper", []template.Arg{str("straße")})
	require.NoError(t, err)
	assert.Equal(t, "STRASSE", out)

	out, err = r.Invoke("lower", []template.Arg{str("HeLLo")})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

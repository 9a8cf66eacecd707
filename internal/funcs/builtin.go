package funcs

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/varscope/internal/template"
)

// MaxRandomStringLength bounds randomString(n).
const MaxRandomStringLength = 1024

const randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Option configures the built-in functions.
type Option func(*builtins)

// WithNow sets the time source for timestamp().
func WithNow(now func() time.Time) Option {
	return func(b *builtins) {
		b.now = now
	}
}

// WithRandSource seeds random() and randomString() from src.
// Tests use rand.NewPCG with a fixed seed.
func WithRandSource(src rand.Source) Option {
	return func(b *builtins) {
		b.rng = rand.New(src)
	}
}

// WithLanguage sets the casing rules for upper() and lower().
func WithLanguage(tag language.Tag) Option {
	return func(b *builtins) {
		b.lang = tag
	}
}

type builtins struct {
	now  func() time.Time
	lang language.Tag

	mu  sync.Mutex // guards rng; *rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// NewDefaultRegistry returns a registry holding the built-in functions:
// uuid, uuidv7, timestamp, random, randomString, base64, urlEncode,
// upper and lower.
func NewDefaultRegistry(opts ...Option) *Registry {
	b := &builtins{
		now:  time.Now,
		lang: language.Und,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}

	r := NewRegistry()
	for _, fn := range []Function{
		{Name: "uuid", Call: b.uuid},
		{Name: "uuidv7", Call: b.uuidv7},
		{Name: "timestamp", MaxArgs: 1, ArgTypes: []ArgType{StringArg}, Call: b.timestamp},
		{Name: "random", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{NumberArg, NumberArg}, Call: b.random},
		{Name: "randomString", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{NumberArg}, Call: b.randomString},
		{Name: "base64", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{StringArg}, Call: b.base64},
		{Name: "urlEncode", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{StringArg}, Call: b.urlEncode},
		{Name: "upper", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{StringArg}, Call: b.upper},
		{Name: "lower", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{StringArg}, Call: b.lower},
	} {
		// Built-ins are well formed; Register cannot fail here.
		_ = r.Register(fn)
	}
	return r
}

func (b *builtins) uuid(_ []template.Arg) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (b *builtins) uuidv7(_ []template.Arg) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// timestamp formats: unix_ms (default), unix, iso, rfc1123.
func (b *builtins) timestamp(args []template.Arg) (string, error) {
	format := "unix_ms"
	if len(args) == 1 {
		format = args[0].Value
	}
	now := b.now()
	switch format {
	case "unix_ms":
		return strconv.FormatInt(now.UnixMilli(), 10), nil
	case "unix":
		return strconv.FormatInt(now.Unix(), 10), nil
	case "iso":
		return now.UTC().Format("2006-01-02T15:04:05.000Z07:00"), nil
	case "rfc1123":
		return now.UTC().Format(time.RFC1123), nil
	}
	return "", fmt.Errorf("unknown format %q (want unix_ms, unix, iso or rfc1123)", format)
}

// random returns an integer in [min, max].
func (b *builtins) random(args []template.Arg) (string, error) {
	lo, err := integer(args[0], 1)
	if err != nil {
		return "", err
	}
	hi, err := integer(args[1], 2)
	if err != nil {
		return "", err
	}
	if lo > hi {
		return "", fmt.Errorf("min %d is greater than max %d", lo, hi)
	}
	b.mu.Lock()
	n := lo + b.rng.Int64N(hi-lo+1)
	b.mu.Unlock()
	return strconv.FormatInt(n, 10), nil
}

func (b *builtins) randomString(args []template.Arg) (string, error) {
	n, err := integer(args[0], 1)
	if err != nil {
		return "", err
	}
	if n < 1 || n > MaxRandomStringLength {
		return "", fmt.Errorf("length must be between 1 and %d, got %d", MaxRandomStringLength, n)
	}
	out := make([]byte, n)
	b.mu.Lock()
	for i := range out {
		out[i] = randomAlphabet[b.rng.IntN(len(randomAlphabet))]
	}
	b.mu.Unlock()
	return string(out), nil
}

func (b *builtins) base64(args []template.Arg) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(args[0].Value)), nil
}

func (b *builtins) urlEncode(args []template.Arg) (string, error) {
	return url.QueryEscape(args[0].Value), nil
}

// cases.Caser is stateful, so each call gets its own.
func (b *builtins) upper(args []template.Arg) (string, error) {
	return cases.Upper(b.lang).String(args[0].Value), nil
}

func (b *builtins) lower(args []template.Arg) (string, error) {
	return cases.Lower(b.lang).String(args[0].Value), nil
}

func integer(arg template.Arg, pos int) (int64, error) {
	if arg.Number != math.Trunc(arg.Number) || math.Abs(arg.Number) > 1<<53 {
		return 0, fmt.Errorf("argument %d must be an integer, got %s", pos, arg.Value)
	}
	return int64(arg.Number), nil
}

// Package runtime is the evaluator's value algebra and frame storage:
// primitive and collection values, the typed activation-record slots member
// bodies evaluate into, and the overflow-checked numeric operations the
// expression evaluator calls into.
//
// Object/class/function-body evaluation lives one layer up in package
// interp, which imports this package.
package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is any runtime value.
type Value interface {
	Kind() string
	String() string
}

// Null is the single null value.
type Null struct{}

func (Null) Kind() string   { return "Null" }
func (Null) String() string { return "null" }

// NullValue is the canonical Null instance.
var NullValue Value = Null{}

// Bool is a boolean value.
type Bool struct{ Value bool }

func (b Bool) Kind() string { return "Boolean" }
func (b Bool) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Int is a 64-bit signed integer. Arithmetic on Int must go through the
// checked operators in numeric.go: integer overflow is an evaluator error,
// never silent wraparound.
type Int struct{ Value int64 }

func (i Int) Kind() string   { return "Int" }
func (i Int) String() string { return strconv.FormatInt(i.Value, 10) }

// Float is an IEEE-754 double.
type Float struct{ Value float64 }

func (f Float) Kind() string   { return "Float" }
func (f Float) String() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// String is a Pkl string, indexed by Unicode code point, not by UTF-8 byte.
type String struct{ Value string }

func (s String) Kind() string   { return "String" }
func (s String) String() string { return s.Value }

// Runes returns the string's code points, used by subscript/indexing and by
// the non-downgrading surrogate-safe slicing rule.
func (s String) Runes() []rune { return []rune(s.Value) }

// Duration is a magnitude+unit value (e.g. `5.s`).
type Duration struct {
	Magnitude float64
	Unit      string // "ns","us","ms","s","min","h","d"
}

func (d Duration) Kind() string   { return "Duration" }
func (d Duration) String() string { return fmt.Sprintf("%s.%s", trimFloat(d.Magnitude), d.Unit) }

// DataSize is a magnitude+unit value (e.g. `5.mb`).
type DataSize struct {
	Magnitude float64
	Unit      string // "b","kb","mb","gb","tb","kib","mib","gib","tib"
}

func (d DataSize) Kind() string   { return "DataSize" }
func (d DataSize) String() string { return fmt.Sprintf("%s.%s", trimFloat(d.Magnitude), d.Unit) }

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Bytes is an immutable byte string.
type Bytes struct{ Data []byte }

func (b Bytes) Kind() string   { return "Bytes" }
func (b Bytes) String() string { return fmt.Sprintf("Bytes(%d bytes)", len(b.Data)) }

// Regex wraps a compiled pattern plus its original source text, so
// `Regex.pattern` can recover what the user wrote.
type Regex struct {
	Source  string
	Compile func() (matcher RegexMatcher, err error)
}

// RegexMatcher is the minimal surface the evaluator's regex builtins need;
// kept as an interface so the standard library's regexp.Regexp can satisfy it
// without this package importing regexp directly in the value type.
type RegexMatcher interface {
	MatchString(s string) bool
}

func (r Regex) Kind() string   { return "Regex" }
func (r Regex) String() string { return fmt.Sprintf("Regex(%q)", r.Source) }

// Pair is a two-element tuple.
type Pair struct{ First, Second Value }

func (p Pair) Kind() string   { return "Pair" }
func (p Pair) String() string { return fmt.Sprintf("Pair(%s, %s)", p.First, p.Second) }

// IsNull reports whether v is the Null value.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// TypeName renders a value's kind the way error messages want it.
func TypeName(v Value) string {
	if v == nil {
		return "Null"
	}
	return v.Kind()
}

// ToDisplayString renders a value the way string interpolation and
// `toString()` display it: strings unquoted and untruncated, everything else
// via its String form.
func ToDisplayString(v Value) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(String); ok {
		return s.Value
	}
	return v.String()
}

// Describe renders a short value summary for error messages.
func Describe(v Value) string {
	if v == nil {
		return "null"
	}
	s := v.String()
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return strings.TrimSpace(s)
}

package interp

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/source"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

// Case mappers are language-neutral: Pkl strings have no locale attached.
var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
	titleCaser = cases.Title(language.Und, cases.NoLower)
)

// valueProperty reads a built-in property off a non-object value (or a
// Listing/Mapping object's synthetic surface). The second result reports
// whether the name is known for the receiver's kind at all, so callers can
// distinguish "no such property" from a failing property read.
func (in *Interpreter) valueProperty(v runtime.Value, name string, span source.Span) (runtime.Value, bool, *vmerrors.Error) {
	switch recv := v.(type) {
	case runtime.String:
		return in.stringProperty(recv, name, span)
	case runtime.Int:
		return intProperty(recv, name, span)
	case runtime.Float:
		return floatProperty(recv, name)
	case runtime.Duration:
		switch name {
		case "value":
			return runtime.Float{Value: recv.Magnitude}, true, nil
		case "unit":
			return runtime.String{Value: recv.Unit}, true, nil
		}
	case runtime.DataSize:
		switch name {
		case "value":
			return runtime.Float{Value: recv.Magnitude}, true, nil
		case "unit":
			return runtime.String{Value: recv.Unit}, true, nil
		}
	case runtime.Pair:
		switch name {
		case "first":
			return recv.First, true, nil
		case "second":
			return recv.Second, true, nil
		}
	case runtime.Regex:
		switch name {
		case "pattern":
			return runtime.String{Value: recv.Source}, true, nil
		case "matches":
			return regexMatchesFn(recv), true, nil
		}
	case runtime.Bytes:
		switch name {
		case "length":
			return runtime.Int{Value: int64(len(recv.Data))}, true, nil
		case "base64":
			return runtime.String{Value: base64.StdEncoding.EncodeToString(recv.Data)}, true, nil
		}
	case *runtime.List:
		return sequenceProperty(recv.Elements, "List", name, span)
	case *runtime.Set:
		return sequenceProperty(recv.Elements, "Set", name, span)
	case *runtime.Map:
		switch name {
		case "length":
			return runtime.Int{Value: int64(recv.Len())}, true, nil
		case "isEmpty":
			return runtime.Bool{Value: recv.Len() == 0}, true, nil
		case "keys":
			return runtime.NewSet(recv.Keys()), true, nil
		case "values":
			return &runtime.List{Elements: recv.Values()}, true, nil
		}
	case *VmObject:
		switch recv.Variant {
		case VariantListing:
			switch name {
			case "length":
				return runtime.Int{Value: recv.EffectiveLength()}, true, nil
			case "isEmpty":
				return runtime.Bool{Value: recv.EffectiveLength() == 0}, true, nil
			}
		case VariantMapping, VariantDynamic:
			switch name {
			case "length":
				return runtime.Int{Value: visibleMemberCount(recv)}, true, nil
			case "isEmpty":
				return runtime.Bool{Value: visibleMemberCount(recv) == 0}, true, nil
			}
		}
	}
	return nil, false, nil
}

func visibleMemberCount(o *VmObject) int64 {
	var n int64
	for _, m := range o.allMembersOrdered() {
		if m.IsLocal() || m.IsMethod {
			continue
		}
		n++
	}
	return n
}

func (in *Interpreter) stringProperty(s runtime.String, name string, span source.Span) (runtime.Value, bool, *vmerrors.Error) {
	switch name {
	case "length":
		return runtime.Int{Value: int64(len(s.Runes()))}, true, nil
	case "isEmpty":
		return runtime.Bool{Value: s.Value == ""}, true, nil
	case "isBlank":
		return runtime.Bool{Value: strings.TrimSpace(s.Value) == ""}, true, nil
	case "toUpperCase":
		return runtime.String{Value: upperCaser.String(s.Value)}, true, nil
	case "toLowerCase":
		return runtime.String{Value: lowerCaser.String(s.Value)}, true, nil
	case "capitalized":
		return runtime.String{Value: titleCaser.String(s.Value)}, true, nil
	case "trimmed":
		return runtime.String{Value: strings.TrimSpace(s.Value)}, true, nil
	case "base64":
		return runtime.String{Value: base64.StdEncoding.EncodeToString([]byte(s.Value))}, true, nil
	case "chars":
		runes := s.Runes()
		elems := make([]runtime.Value, len(runes))
		for i, r := range runes {
			elems[i] = runtime.String{Value: string(r)}
		}
		return &runtime.List{Elements: elems}, true, nil
	case "contains", "startsWith", "endsWith", "replaceAll", "split":
		return stringMethodFn(s, name), true, nil
	}
	return nil, false, nil
}

// stringMethodFn binds one of the method-shaped string helpers to its
// receiver as a native Function value.
func stringMethodFn(s runtime.String, name string) *runtime.Function {
	return &runtime.Function{Name: "String." + name, Native: func(args []runtime.Value) (runtime.Value, error) {
		strArgs := make([]string, len(args))
		for i, a := range args {
			sa, ok := a.(runtime.String)
			if !ok {
				return nil, fmt.Errorf("%s() requires String arguments", name)
			}
			strArgs[i] = sa.Value
		}
		switch name {
		case "contains":
			if len(args) != 1 {
				return nil, fmt.Errorf("contains() expects 1 argument, got %d", len(args))
			}
			return runtime.Bool{Value: strings.Contains(s.Value, strArgs[0])}, nil
		case "startsWith":
			if len(args) != 1 {
				return nil, fmt.Errorf("startsWith() expects 1 argument, got %d", len(args))
			}
			return runtime.Bool{Value: strings.HasPrefix(s.Value, strArgs[0])}, nil
		case "endsWith":
			if len(args) != 1 {
				return nil, fmt.Errorf("endsWith() expects 1 argument, got %d", len(args))
			}
			return runtime.Bool{Value: strings.HasSuffix(s.Value, strArgs[0])}, nil
		case "replaceAll":
			if len(args) != 2 {
				return nil, fmt.Errorf("replaceAll() expects 2 arguments, got %d", len(args))
			}
			return runtime.String{Value: strings.ReplaceAll(s.Value, strArgs[0], strArgs[1])}, nil
		case "split":
			if len(args) != 1 {
				return nil, fmt.Errorf("split() expects 1 argument, got %d", len(args))
			}
			parts := strings.Split(s.Value, strArgs[0])
			elems := make([]runtime.Value, len(parts))
			for i, p := range parts {
				elems[i] = runtime.String{Value: p}
			}
			return &runtime.List{Elements: elems}, nil
		}
		return nil, fmt.Errorf("unknown string method %q", name)
	}}
}

func regexMatchesFn(r runtime.Regex) *runtime.Function {
	return &runtime.Function{Name: "Regex.matches", Native: func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("matches() expects 1 argument, got %d", len(args))
		}
		s, ok := args[0].(runtime.String)
		if !ok {
			return nil, fmt.Errorf("matches() requires a String")
		}
		matcher, err := r.Compile()
		if err != nil {
			return nil, err
		}
		return runtime.Bool{Value: matcher.MatchString(s.Value)}, nil
	}}
}

func intProperty(i runtime.Int, name string, span source.Span) (runtime.Value, bool, *vmerrors.Error) {
	switch name {
	case "isPositive":
		return runtime.Bool{Value: i.Value >= 0}, true, nil
	case "isEven":
		return runtime.Bool{Value: i.Value%2 == 0}, true, nil
	case "isOdd":
		return runtime.Bool{Value: i.Value%2 != 0}, true, nil
	case "abs":
		if i.Value == math.MinInt64 {
			return nil, true, vmerrors.New(vmerrors.KindIntegerOverflow, span, "integer overflow in abs")
		}
		if i.Value < 0 {
			return runtime.Int{Value: -i.Value}, true, nil
		}
		return i, true, nil
	case "sign":
		switch {
		case i.Value > 0:
			return runtime.Int{Value: 1}, true, nil
		case i.Value < 0:
			return runtime.Int{Value: -1}, true, nil
		default:
			return runtime.Int{Value: 0}, true, nil
		}
	case "toFloat":
		return runtime.Float{Value: float64(i.Value)}, true, nil
	}
	return nil, false, nil
}

func floatProperty(f runtime.Float, name string) (runtime.Value, bool, *vmerrors.Error) {
	switch name {
	case "isNaN":
		return runtime.Bool{Value: math.IsNaN(f.Value)}, true, nil
	case "isFinite":
		return runtime.Bool{Value: !math.IsNaN(f.Value) && !math.IsInf(f.Value, 0)}, true, nil
	case "isPositive":
		return runtime.Bool{Value: f.Value >= 0}, true, nil
	case "abs":
		return runtime.Float{Value: math.Abs(f.Value)}, true, nil
	}
	return nil, false, nil
}

func sequenceProperty(elems []runtime.Value, kind, name string, span source.Span) (runtime.Value, bool, *vmerrors.Error) {
	switch name {
	case "length":
		return runtime.Int{Value: int64(len(elems))}, true, nil
	case "isEmpty":
		return runtime.Bool{Value: len(elems) == 0}, true, nil
	case "first":
		if len(elems) == 0 {
			return nil, true, vmerrors.New(vmerrors.KindElementIndexOutOfRange, span, "%s is empty", kind)
		}
		return elems[0], true, nil
	case "firstOrNull":
		if len(elems) == 0 {
			return runtime.NullValue, true, nil
		}
		return elems[0], true, nil
	case "last":
		if len(elems) == 0 {
			return nil, true, vmerrors.New(vmerrors.KindElementIndexOutOfRange, span, "%s is empty", kind)
		}
		return elems[len(elems)-1], true, nil
	case "lastOrNull":
		if len(elems) == 0 {
			return runtime.NullValue, true, nil
		}
		return elems[len(elems)-1], true, nil
	case "reversed":
		out := make([]runtime.Value, len(elems))
		for i, e := range elems {
			out[len(elems)-1-i] = e
		}
		if kind == "Set" {
			return runtime.NewSet(out), true, nil
		}
		return &runtime.List{Elements: out}, true, nil
	}
	return nil, false, nil
}

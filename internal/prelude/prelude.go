// Package prelude is the standard library loader: it builds the `pkl:base` and
// `pkl:math` module objects from Go-native function tables and registers them
// with an interp.Interpreter so their symbols are the implicit outer scope of
// every user module.
//
// Builtins are plain Go functions collected in name -> function tables and
// installed as ordinary object members, since prelude symbols are addressed
// as properties of a module object rather than as parser-level keywords.
package prelude

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pklcore/pklcore/internal/interp"
	"github.com/pklcore/pklcore/internal/runtime"
)

// nativeFn is one prelude function: a name and its Go implementation, which
// checks its own argument count.
type nativeFn struct {
	name string
	fn   func(args []runtime.Value) (runtime.Value, error)
}

// Load builds the base and math prelude modules and installs them on in,
// returning the registry so RegisterParsedModule-style lookups by `pkl:<name>`
// URI succeed during import/amends resolution.
func Load(in *interp.Interpreter) *interp.PreludeRegistry {
	reg := &interp.PreludeRegistry{Modules: map[string]*interp.VmObject{}}

	base := buildModule(in, baseFunctions())
	reg.Modules["pkl:base"] = base
	in.SetBaseModule(base)

	reg.Modules["pkl:math"] = buildModule(in, mathFunctions())
	reg.Modules["pkl:reflect"] = buildModule(in, nil)
	reg.Modules["pkl:semver"] = buildModule(in, semverFunctions())
	reg.Modules["pkl:yaml"] = buildModule(in, nil)
	reg.Modules["pkl:json"] = buildModule(in, nil)

	in.Prelude = reg
	return reg
}

// buildModule wires a flat function table into a Dynamic-variant VmObject
// whose members are Function values with Native set, exactly as
// runtime.Function.Native documents.
func buildModule(in *interp.Interpreter, fns []nativeFn) *interp.VmObject {
	mod := interp.NewObject(interp.VariantDynamic, nil, nil, nil, nil)
	sort.Slice(fns, func(i, j int) bool { return fns[i].name < fns[j].name })
	for _, f := range fns {
		f := f
		fn := &runtime.Function{Name: f.name, Native: f.fn}
		id := in.Idents.Intern(f.name).Public()
		mod.Members.Put(interp.IdentKey(id), &interp.Member{
			OwnerName: "base",
			Const:     fn,
		})
	}
	return mod
}

func arityError(name string, want int, got int) error {
	return fmt.Errorf("%s() expects %d argument(s), got %d", name, want, got)
}

func asFloat(v runtime.Value) (float64, bool) {
	switch n := v.(type) {
	case runtime.Float:
		return n.Value, true
	case runtime.Int:
		return float64(n.Value), true
	default:
		return 0, false
	}
}

// baseFunctions is the collection-constructor and conversion surface of the
// base module: List/Set/Map/Pair/Regex construction plus toString. Value
// introspection (length, isEmpty, case mapping, ...) lives on the values
// themselves, not here: a module-level `length` would shadow the
// implicit-this read a constraint like `length >= 3` depends on.
func baseFunctions() []nativeFn {
	return []nativeFn{
		{"toString", func(args []runtime.Value) (runtime.Value, error) {
			if len(args) != 1 {
				return nil, arityError("toString", 1, len(args))
			}
			return runtime.String{Value: runtime.ToDisplayString(args[0])}, nil
		}},
		{"List", func(args []runtime.Value) (runtime.Value, error) {
			return &runtime.List{Elements: append([]runtime.Value{}, args...)}, nil
		}},
		{"Set", func(args []runtime.Value) (runtime.Value, error) {
			return runtime.NewSet(args), nil
		}},
		{"Map", func(args []runtime.Value) (runtime.Value, error) {
			if len(args)%2 != 0 {
				return nil, fmt.Errorf("Map() expects an even number of arguments, got %d", len(args))
			}
			m := runtime.NewMap()
			for i := 0; i < len(args); i += 2 {
				m.Put(args[i], args[i+1])
			}
			return m, nil
		}},
		{"Pair", func(args []runtime.Value) (runtime.Value, error) {
			if len(args) != 2 {
				return nil, arityError("Pair", 2, len(args))
			}
			return runtime.Pair{First: args[0], Second: args[1]}, nil
		}},
		{"Regex", func(args []runtime.Value) (runtime.Value, error) {
			if len(args) != 1 {
				return nil, arityError("Regex", 1, len(args))
			}
			s, ok := args[0].(runtime.String)
			if !ok {
				return nil, fmt.Errorf("Regex() requires a String pattern")
			}
			pattern := s.Value
			return runtime.Regex{Source: pattern, Compile: func() (runtime.RegexMatcher, error) {
				return regexp.Compile(pattern)
			}}, nil
		}},
	}
}

// mathFunctions wraps the Go math package.
func mathFunctions() []nativeFn {
	wrap1 := func(name string, f func(float64) float64) nativeFn {
		return nativeFn{name, func(args []runtime.Value) (runtime.Value, error) {
			if len(args) != 1 {
				return nil, arityError(name, 1, len(args))
			}
			x, ok := asFloat(args[0])
			if !ok {
				return nil, fmt.Errorf("%s() requires a Number", name)
			}
			return runtime.Float{Value: f(x)}, nil
		}}
	}
	return []nativeFn{
		wrap1("sqrt", math.Sqrt),
		wrap1("sin", math.Sin),
		wrap1("cos", math.Cos),
		wrap1("tan", math.Tan),
		wrap1("exp", math.Exp),
		wrap1("log", math.Log),
		wrap1("ceil", math.Ceil),
		wrap1("floor", math.Floor),
		{"pow", func(args []runtime.Value) (runtime.Value, error) {
			if len(args) != 2 {
				return nil, arityError("pow", 2, len(args))
			}
			base, ok1 := asFloat(args[0])
			exp, ok2 := asFloat(args[1])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("pow() requires Numbers")
			}
			return runtime.Float{Value: math.Pow(base, exp)}, nil
		}},
		{"minInt", func(args []runtime.Value) (runtime.Value, error) {
			return intReduce(args, "minInt", func(a, b int64) int64 {
				if a < b {
					return a
				}
				return b
			})
		}},
		{"maxInt", func(args []runtime.Value) (runtime.Value, error) {
			return intReduce(args, "maxInt", func(a, b int64) int64 {
				if a > b {
					return a
				}
				return b
			})
		}},
	}
}

func intReduce(args []runtime.Value, name string, combine func(a, b int64) int64) (runtime.Value, error) {
	if len(args) == 0 {
		return nil, arityError(name, 1, 0)
	}
	first, ok := args[0].(runtime.Int)
	if !ok {
		return nil, fmt.Errorf("%s() requires Ints", name)
	}
	acc := first.Value
	for _, a := range args[1:] {
		i, ok := a.(runtime.Int)
		if !ok {
			return nil, fmt.Errorf("%s() requires Ints", name)
		}
		acc = combine(acc, i.Value)
	}
	return runtime.Int{Value: acc}, nil
}

// semverFunctions compares dotted semantic-version strings.
func semverFunctions() []nativeFn {
	return []nativeFn{
		{"compare", func(args []runtime.Value) (runtime.Value, error) {
			if len(args) != 2 {
				return nil, arityError("compare", 2, len(args))
			}
			a, ok1 := args[0].(runtime.String)
			b, ok2 := args[1].(runtime.String)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("compare() requires Strings")
			}
			return runtime.Int{Value: int64(compareSemver(a.Value, b.Value))}, nil
		}},
	}
}

func compareSemver(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv string
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av != bv {
			an, aerr := strconv.Atoi(av)
			bn, berr := strconv.Atoi(bv)
			if aerr == nil && berr == nil {
				if an == bn {
					continue
				}
				if an < bn {
					return -1
				}
				return 1
			}
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

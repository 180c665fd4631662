package interp

import (
	"context"
	"testing"
	"time"

	"github.com/pklcore/pklcore/internal/cst"
	"github.com/pklcore/pklcore/internal/runtime"
	"github.com/pklcore/pklcore/internal/vmerrors"
)

func TestModulePropertiesForceInDependencyOrder(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("x", intLit(1)),
		prop("y", bin("+", ref("x"), intLit(2))),
	))
	if got := intOf(t, mustForce(t, in, m, "y")); got != 3 {
		t.Fatalf("y = %d, want 3", got)
	}
	if got := intOf(t, mustForce(t, in, m, "x")); got != 1 {
		t.Fatalf("x = %d, want 1", got)
	}
}

func TestAmendingOverridesAndInherits(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("bird", &cst.DynamicLit{Body: body(
			prop("name", strLit("Pigeon")),
			prop("diet", strLit("Seeds")),
		)}),
		prop("parrot", &cst.AmendsExpr{Target: ref("bird"), Body: body(
			prop("name", strLit("Parrot")),
		)}),
	))
	parrot := mustForce(t, in, m, "parrot").(*VmObject)
	if got := strOf(t, mustForce(t, in, parrot, "name")); got != "Parrot" {
		t.Fatalf("name = %q", got)
	}
	if got := strOf(t, mustForce(t, in, parrot, "diet")); got != "Seeds" {
		t.Fatalf("diet = %q", got)
	}
	// The amend target keeps its own values.
	bird := mustForce(t, in, m, "bird").(*VmObject)
	if got := strOf(t, mustForce(t, in, bird, "name")); got != "Pigeon" {
		t.Fatalf("bird.name = %q", got)
	}
}

func TestLateBindingReEvaluatesInheritedBody(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("base", &cst.DynamicLit{Body: body(
			prop("name", strLit("base")),
			prop("greeting", bin("+", strLit("hello "), ref("name"))),
		)}),
		prop("child", &cst.AmendsExpr{Target: ref("base"), Body: body(
			prop("name", strLit("child")),
		)}),
	))
	child := mustForce(t, in, m, "child").(*VmObject)
	if got := strOf(t, mustForce(t, in, child, "greeting")); got != "hello child" {
		t.Fatalf("greeting = %q, want inherited body to re-evaluate against the amending object", got)
	}
	base := mustForce(t, in, m, "base").(*VmObject)
	if got := strOf(t, mustForce(t, in, base, "greeting")); got != "hello base" {
		t.Fatalf("base.greeting = %q", got)
	}
}

func TestRepeatedReadsReturnIdenticalValue(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("o", &cst.DynamicLit{Body: body(prop("a", intLit(1)))}),
	))
	first := mustForce(t, in, m, "o")
	second := mustForce(t, in, m, "o")
	if first != second {
		t.Fatalf("repeated reads must return the identical object")
	}
}

func TestClassConstraintViolation(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, &cst.Module{
		URI: "test.pkl",
		Classes: []*cst.ClassDecl{{
			Name: "P",
			Body: body(typedProp("name",
				constrainedType(declaredType("String"), bin(">=", ref("length"), intLit(3))),
				nullLit())),
		}},
		Body: body(
			prop("p", &cst.NewExpr{TypeName: "P", Body: body(prop("name", strLit("Al")))}),
			prop("q", &cst.NewExpr{TypeName: "P", Body: body(prop("name", strLit("Alice")))}),
		),
	})
	p := mustForce(t, in, m, "p").(*VmObject)
	err := forceErr(t, in, p, "name")
	if err.Kind != vmerrors.KindTypeConstraintViolated {
		t.Fatalf("got %s, want typeConstraintViolated", err.Kind)
	}
	q := mustForce(t, in, m, "q").(*VmObject)
	if got := strOf(t, mustForce(t, in, q, "name")); got != "Alice" {
		t.Fatalf("q.name = %q", got)
	}
}

func TestTypedObjectRejectsUndeclaredProperty(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, &cst.Module{
		URI:     "test.pkl",
		Classes: []*cst.ClassDecl{{Name: "P", Body: body(prop("name", nullLit()))}},
		Body:    body(prop("p", &cst.NewExpr{TypeName: "P", Body: body(prop("nope", intLit(1)))})),
	})
	err := forceErr(t, in, m, "p")
	if err.Kind != vmerrors.KindCannotFindProperty {
		t.Fatalf("got %s, want cannotFindProperty", err.Kind)
	}
}

func TestCircularReferenceHasStack(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("a", ref("b")),
		prop("b", ref("a")),
	))
	err := forceErr(t, in, m, "a")
	if err.Kind != vmerrors.KindCircularReference {
		t.Fatalf("got %s, want circularReference", err.Kind)
	}
	if len(err.Stack) < 2 {
		t.Fatalf("want a two-frame stack, got %d frames", len(err.Stack))
	}
}

func TestListingForGenerator(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("xs", &cst.NewExpr{TypeName: "Listing", Body: body(
			&cst.ForEntry{KeyVar: "i", Source: call(ref("List"), intLit(1), intLit(2), intLit(3)), Body: body(
				&cst.ElementEntry{Value: bin("*", ref("i"), ref("i"))},
			)},
		)}),
	))
	xs := mustForce(t, in, m, "xs").(*VmObject)
	entries, err := in.ForceAllMembers(xs)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	want := []int64{1, 4, 9}
	if len(entries) != len(want) {
		t.Fatalf("got %d elements", len(entries))
	}
	for i, w := range want {
		if got := intOf(t, entries[i].Value); got != w {
			t.Fatalf("element %d = %d, want %d", i, got, w)
		}
	}
}

func TestEmptyForGeneratorContributesNothing(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("xs", &cst.NewExpr{TypeName: "Listing", Body: body(
			&cst.ForEntry{KeyVar: "i", Source: call(ref("List")), Body: body(
				&cst.ElementEntry{Value: ref("i")},
			)},
		)}),
	))
	xs := mustForce(t, in, m, "xs").(*VmObject)
	if xs.EffectiveLength() != 0 {
		t.Fatalf("empty generator must produce an empty listing")
	}
}

func TestForGeneratorKeyValueOverMap(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("xs", &cst.NewExpr{TypeName: "Listing", Body: body(
			&cst.ForEntry{KeyVar: "k", ValueVar: "v",
				Source: call(ref("Map"), strLit("a"), intLit(1), strLit("b"), intLit(2)),
				Body: body(
					&cst.ElementEntry{Value: bin("+", ref("k"), &cst.StringInterp{Parts: []cst.StringPart{{Expr: ref("v")}}})},
				)},
		)}),
	))
	xs := mustForce(t, in, m, "xs").(*VmObject)
	entries, err := in.ForceAllMembers(xs)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	if len(entries) != 2 || strOf(t, entries[0].Value) != "a1" || strOf(t, entries[1].Value) != "b2" {
		t.Fatalf("got %v", entries)
	}
}

func TestWhenInlinesChosenBranch(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("o", &cst.DynamicLit{Body: body(
			&cst.WhenEntry{Cond: boolLit(true),
				Then: body(prop("picked", strLit("then"))),
				Else: body(prop("picked", strLit("else")))},
		)}),
		prop("p", &cst.DynamicLit{Body: body(
			&cst.WhenEntry{Cond: boolLit(false),
				Then: body(prop("picked", strLit("then"))),
				Else: body(prop("picked", strLit("else")))},
		)}),
	))
	o := mustForce(t, in, m, "o").(*VmObject)
	if got := strOf(t, mustForce(t, in, o, "picked")); got != "then" {
		t.Fatalf("got %q", got)
	}
	p := mustForce(t, in, m, "p").(*VmObject)
	if got := strOf(t, mustForce(t, in, p, "picked")); got != "else" {
		t.Fatalf("got %q", got)
	}
}

func TestSpreadMergesInOrderAndSkipsNull(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("src", &cst.DynamicLit{Body: body(
			prop("a", intLit(1)),
			prop("b", intLit(2)),
		)}),
		prop("dst", &cst.DynamicLit{Body: body(
			prop("z", intLit(0)),
			&cst.SpreadEntry{Source: ref("src")},
			&cst.SpreadEntry{Source: nullLit(), Nullable: true},
		)}),
	))
	dst := mustForce(t, in, m, "dst").(*VmObject)
	entries, err := in.ForceAllMembers(dst)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Key != "z" || entries[1].Key != "a" || entries[2].Key != "b" {
		t.Fatalf("order: %v, %v, %v", entries[0].Key, entries[1].Key, entries[2].Key)
	}
}

func TestOverrideKeepsOriginalPosition(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("base", &cst.DynamicLit{Body: body(
			prop("a", intLit(1)),
			prop("b", intLit(2)),
			prop("c", intLit(3)),
		)}),
		prop("child", &cst.AmendsExpr{Target: ref("base"), Body: body(
			prop("b", intLit(20)),
			prop("d", intLit(4)),
		)}),
	))
	child := mustForce(t, in, m, "child").(*VmObject)
	entries, err := in.ForceAllMembers(child)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key order %v, want %v", keys, want)
		}
	}
	if intOf(t, entries[1].Value) != 20 {
		t.Fatalf("override lost: %v", entries[1].Value)
	}
}

func TestLocalShadowsPublicInDefiningScope(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("o", &cst.DynamicLit{Body: body(
			prop("x", intLit(1)),
			&cst.PropertyEntry{Name: "x", Modifiers: cst.ModLocal, Value: intLit(99)},
			prop("y", ref("x")),
		)}),
	))
	o := mustForce(t, in, m, "o").(*VmObject)
	if got := intOf(t, mustForce(t, in, o, "y")); got != 99 {
		t.Fatalf("y = %d, want the local x to shadow the public one", got)
	}
	entries, err := in.ForceAllMembers(o)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	for _, e := range entries {
		if e.Key == "local x" {
			t.Fatalf("local members must not appear in the forced view")
		}
	}
}

func TestHiddenMembersFlaggedForRenderer(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("o", &cst.DynamicLit{Body: body(
			&cst.PropertyEntry{Name: "secret", Modifiers: cst.ModHidden, Value: intLit(1)},
			prop("visible", intLit(2)),
		)}),
	))
	o := mustForce(t, in, m, "o").(*VmObject)
	entries, err := in.ForceAllMembers(o)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("the evaluator itself must still force hidden members")
	}
	if !entries[0].Hidden || entries[1].Hidden {
		t.Fatalf("hidden flags wrong: %+v", entries)
	}
}

func TestMethodInvocation(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		&cst.MethodEntry{Name: "double", Params: []cst.Param{{Name: "n"}}, Body: bin("*", ref("n"), intLit(2))},
		prop("r", call(ref("double"), intLit(21))),
	))
	if got := intOf(t, mustForce(t, in, m, "r")); got != 42 {
		t.Fatalf("r = %d", got)
	}
}

func TestMethodThisBindsToAmendingReceiver(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("base", &cst.DynamicLit{Body: body(
			prop("n", intLit(1)),
			&cst.MethodEntry{Name: "next", Body: bin("+", get(thisRef(), "n"), intLit(1))},
		)}),
		prop("child", &cst.AmendsExpr{Target: ref("base"), Body: body(prop("n", intLit(10)))}),
		prop("r", call(get(ref("child"), "next"))),
	))
	if got := intOf(t, mustForce(t, in, m, "r")); got != 11 {
		t.Fatalf("r = %d, want the method's this to bind to the amending object", got)
	}
}

func TestPredicateAmendsMatchingElements(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("xs", &cst.NewExpr{TypeName: "Listing", Body: body(
			&cst.ElementEntry{Value: intLit(1)},
			&cst.ElementEntry{Value: intLit(2)},
			&cst.ElementEntry{Value: intLit(3)},
		)}),
		prop("ys", &cst.AmendsExpr{Target: ref("xs"), Body: body(
			&cst.PredicateEntry{Predicate: bin("==", thisRef(), intLit(2)), Value: intLit(20)},
		)}),
	))
	ys := mustForce(t, in, m, "ys").(*VmObject)
	entries, err := in.ForceAllMembers(ys)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	want := []int64{1, 20, 3}
	for i, w := range want {
		if got := intOf(t, entries[i].Value); got != w {
			t.Fatalf("element %d = %d, want %d", i, got, w)
		}
	}
}

func TestKeyedEntriesAndSubscript(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("mp", &cst.MappingLit{Body: body(
			&cst.KeyedEntry{Key: strLit("host"), Value: strLit("localhost")},
			&cst.KeyedEntry{Key: intLit(8080), Value: strLit("port")},
		)}),
		prop("h", &cst.Subscript{Receiver: ref("mp"), Index: strLit("host")}),
		prop("p", &cst.Subscript{Receiver: ref("mp"), Index: intLit(8080)}),
	))
	if got := strOf(t, mustForce(t, in, m, "h")); got != "localhost" {
		t.Fatalf("h = %q", got)
	}
	if got := strOf(t, mustForce(t, in, m, "p")); got != "port" {
		t.Fatalf("p = %q", got)
	}
	frame := runtime.NewFrame(m)
	_, err := in.Eval(&cst.Subscript{Receiver: ref("mp"), Index: strLit("missing")}, frame, resolveContext{frame: frame})
	if err == nil || err.Kind != vmerrors.KindCannotFindKey {
		t.Fatalf("got %v, want cannotFindKey", err)
	}
}

func TestTypeAliasBodyRequiresConst(t *testing.T) {
	aliasModule := func(constFlag cst.Modifiers) *cst.Module {
		return &cst.Module{
			URI: "test.pkl",
			TypeAliases: []*cst.TypeAliasDecl{{
				Name: "T",
				Type: constrainedType(declaredType("String"), ref("isValid")),
			}},
			Body: body(
				&cst.PropertyEntry{Name: "isValid", Modifiers: constFlag, Value: boolLit(true)},
				typedProp("v", declaredType("T"), strLit("hi")),
			),
		}
	}

	in := newTestInterp()
	m := evalTestModule(t, in, aliasModule(0))
	err := forceErr(t, in, m, "v")
	if err.Kind != vmerrors.KindPropertyMustBeConst {
		t.Fatalf("got %s, want propertyMustBeConst", err.Kind)
	}

	in2 := newTestInterp()
	m2 := evalTestModule(t, in2, aliasModule(cst.ModConst))
	if got := strOf(t, mustForce(t, in2, m2, "v")); got != "hi" {
		t.Fatalf("v = %q", got)
	}
}

func TestImportAcrossModules(t *testing.T) {
	in := newTestInterp()
	in.RegisterParsedModule("lib.pkl", mod("lib.pkl", prop("answer", intLit(42))))
	m := evalTestModule(t, in, &cst.Module{
		URI:     "app.pkl",
		Imports: []*cst.ImportDecl{{URI: "lib.pkl"}},
		Body:    body(prop("r", get(ref("lib"), "answer"))),
	})
	if got := intOf(t, mustForce(t, in, m, "r")); got != 42 {
		t.Fatalf("r = %d", got)
	}
}

func TestModuleAmendsModule(t *testing.T) {
	in := newTestInterp()
	in.RegisterParsedModule("base.pkl", mod("base.pkl",
		prop("host", strLit("localhost")),
		prop("port", intLit(8080)),
	))
	m := evalTestModule(t, in, &cst.Module{
		URI:    "prod.pkl",
		Amends: &cst.ModuleRef{URI: "base.pkl"},
		Body:   body(prop("host", strLit("prod.example.com"))),
	})
	if got := strOf(t, mustForce(t, in, m, "host")); got != "prod.example.com" {
		t.Fatalf("host = %q", got)
	}
	if got := intOf(t, mustForce(t, in, m, "port")); got != 8080 {
		t.Fatalf("port = %d", got)
	}
}

func TestForcingModuleTwiceIsStable(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("x", intLit(1)),
		prop("y", bin("+", ref("x"), intLit(2))),
	))
	first, err := in.ForceAllMembers(m)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	second, err := in.ForceAllMembers(m)
	if err != nil {
		t.Fatalf("ForceAllMembers: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("entry counts differ")
	}
	for i := range first {
		if first[i].Key != second[i].Key || !runtime.Equal(first[i].Value, second[i].Value) {
			t.Fatalf("entry %d differs between forcings", i)
		}
	}
}

func TestDeadlineExpiry(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl", prop("x", intLit(1))))
	in.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	err := forceErr(t, in, m, "x")
	if err.Kind != vmerrors.KindEvaluationTimedOut {
		t.Fatalf("got %s, want evaluationTimedOut", err.Kind)
	}
}

func TestForceOutputFallsBackToModule(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl", prop("x", intLit(1))))
	out, err := in.ForceOutput(m, false)
	if err != nil {
		t.Fatalf("ForceOutput: %v", err)
	}
	if out != runtime.Value(m) {
		t.Fatalf("a module without an output property must render as itself")
	}
}

func TestForceOutputReadsDeclaredOutput(t *testing.T) {
	in := newTestInterp()
	m := evalTestModule(t, in, mod("test.pkl",
		prop("output", &cst.DynamicLit{Body: body(prop("value", intLit(7)))}),
	))
	out, err := in.ForceOutput(m, false)
	if err != nil {
		t.Fatalf("ForceOutput: %v", err)
	}
	if got := intOf(t, out); got != 7 {
		t.Fatalf("output.value = %d", got)
	}
}

package runtime

import (
	"testing"

	"github.com/pklcore/pklcore/pkg/ident"
)

func TestFrameDefineAndGet(t *testing.T) {
	p := ident.NewPool()
	f := NewFrame(nil)
	x := p.Intern("x")
	f.Define(x, Int{Value: 1})
	v, ok := f.Get(x)
	if !ok || v.(Int).Value != 1 {
		t.Fatalf("got %v, %v", v, ok)
	}
}

func TestFrameSlotKindLocked(t *testing.T) {
	p := ident.NewPool()
	f := NewFrame(nil)
	x := p.Intern("x")
	f.Define(x, Int{Value: 1})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on slot kind change")
		}
	}()
	f.Define(x, Float{Value: 2.0})
}

func TestResolveReportsLevel(t *testing.T) {
	p := ident.NewPool()
	outer := NewFrame(nil)
	x := p.Intern("x")
	outer.Define(x, Int{Value: 42})
	inner := NewEnclosedFrame(outer, nil)

	v, level, ok := inner.Resolve(x)
	if !ok || level != 1 || v.(Int).Value != 42 {
		t.Fatalf("got %v, level %d, ok %v", v, level, ok)
	}
	if got := inner.AtLevel(1); got != outer {
		t.Fatalf("AtLevel(1) must return the outer frame")
	}
}

func TestAuxSlotsCopiedIntoNestedFrames(t *testing.T) {
	p := ident.NewPool()
	i := p.Intern("i")
	loop := NewFrame(nil)
	loop.SetAux(i, Int{Value: 3})

	nested := NewEnclosedFrame(NewEnclosedFrame(loop, nil), nil)
	v, ok := nested.Aux(i)
	if !ok || v.(Int).Value != 3 {
		t.Fatalf("aux slot must survive into nested frames, got %v, %v", v, ok)
	}
}

func TestCustomThisShadowsOwner(t *testing.T) {
	owner := String{Value: "owner"}
	candidate := String{Value: "candidate"}
	f := NewFrame(owner)
	if f.This() != Value(owner) {
		t.Fatalf("This() must default to the owner")
	}
	custom := f.WithCustomThis(candidate)
	if custom.This() != Value(candidate) {
		t.Fatalf("custom-this scope must rebind this")
	}
	inner := NewEnclosedFrame(custom, custom.Owner)
	if inner.This() != Value(candidate) {
		t.Fatalf("custom-this must be visible from nested frames")
	}
}

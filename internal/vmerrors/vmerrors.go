// Package vmerrors is the evaluator's single error envelope. Errors carry a
// kind, a message, a primary source span, and a stack of (span, owner
// qualified name) frames, and render as a stable two-part report: a
// kind+message line followed by a stack of source locations with a caret
// pointing at the offending column.
package vmerrors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/pklcore/pklcore/internal/source"
)

// Kind classifies an evaluator error. The set is not exhaustive; callers
// may mint ad hoc kinds with New for host-specific
// failures (e.g. a custom builtin).
type Kind string

const (
	KindTypeMismatch           Kind = "typeMismatch"
	KindTypeConstraintViolated Kind = "typeConstraintViolated"
	KindCannotFindProperty     Kind = "cannotFindProperty"
	KindCannotFindKey          Kind = "cannotFindKey"
	KindCannotFindModuleImport Kind = "cannotFindModuleImport"
	KindPropertyMustBeConst    Kind = "propertyMustBeConst"
	KindMethodMustBeConst      Kind = "methodMustBeConst"
	KindIntegerOverflow        Kind = "integerOverflow"
	KindDivisionByZero         Kind = "divisionByZero"
	KindCharIndexOutOfRange    Kind = "charIndexOutOfRange"
	KindElementIndexOutOfRange Kind = "elementIndexOutOfRange"
	KindCircularReference      Kind = "circularReference"
	KindEvaluationTimedOut     Kind = "evaluationTimedOut"
	KindCannotExtendFinalClass Kind = "cannotExtendFinalClass"
	KindClassCannotExtendSelf  Kind = "classCannotExtendSelf"
	KindInvalidSupertype       Kind = "invalidSupertype"
	KindUserThrow              Kind = "userThrow"
	KindIOError                Kind = "ioError"
	KindCannotRenderValue      Kind = "cannotRenderValue"
	KindNotAFunction           Kind = "notAFunction"
	KindWrongArgumentCount     Kind = "wrongArgumentCount"
	KindNonNullAssertionFailed Kind = "nonNullAssertionFailed"
)

// Frame is one entry in an error's accumulated stack: the span being evaluated
// and the qualified name of the member/function that owns it.
type Frame struct {
	Span  source.Span
	Owner string
}

func (f Frame) String() string {
	return fmt.Sprintf("%s (%s)", f.Owner, f.Span)
}

// Error is the evaluator's error envelope. It implements the standard error
// interface so it can propagate through ordinary Go error returns.
type Error struct {
	Kind    Kind
	Message string
	Primary source.Span
	Stack   []Frame

	// sourceLine optionally supplies the offending source line's text for caret
	// rendering; nil when the host did not attach source text.
	sourceLine func(source.Span) string
}

// New creates an Error of the given kind at span with a formatted message.
func New(kind Kind, span source.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Primary: span}
}

// WithSourceLine attaches a function used to recover the offending line's text
// for caret rendering in Report.
func (e *Error) WithSourceLine(f func(source.Span) string) *Error {
	e.sourceLine = f
	return e
}

// PushFrame appends a stack frame as the error propagates outward through
// nested member/function evaluation. Frames are pushed bottom of stack first,
// matching the evaluator's force-stack discipline.
func (e *Error) PushFrame(span source.Span, owner string) *Error {
	e.Stack = append(e.Stack, Frame{Span: span, Owner: owner})
	return e
}

// Error implements the error interface with the plain (uncolored) report.
func (e *Error) Error() string {
	return e.Report(false)
}

// Report renders the stable two-part report: kind + message, then the stack of
// source locations, each showing the offending line and a caret range when
// source text is available. This format is depended on by tooling so its shape
// must not change carelessly.
func (e *Error) Report(useColor bool) string {
	var sb strings.Builder

	kindMsg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if useColor {
		kindMsg = color.New(color.FgRed, color.Bold).Sprint(kindMsg)
	}
	sb.WriteString(kindMsg)
	sb.WriteString("\n")

	writeLoc := func(span source.Span) {
		sb.WriteString(fmt.Sprintf("  at %s\n", span))
		if e.sourceLine == nil {
			return
		}
		line := e.sourceLine(span)
		if line == "" {
			return
		}
		sb.WriteString("    " + line + "\n")
		caret := strings.Repeat(" ", 4+span.Start.Column-1) + "^"
		if useColor {
			caret = color.New(color.FgRed, color.Bold).Sprint(caret)
		}
		sb.WriteString(caret + "\n")
	}

	writeLoc(e.Primary)
	for i := len(e.Stack) - 1; i >= 0; i-- {
		f := e.Stack[i]
		sb.WriteString(fmt.Sprintf("  in %s\n", f.Owner))
		writeLoc(f.Span)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Is reports whether err is a *Error of the given kind, for use with standard
// errors.Is-style call sites that only care about classification.
func Is(err error, kind Kind) bool {
	ve, ok := err.(*Error)
	return ok && ve.Kind == kind
}

// Package errors extends the standard library errors with slog annotations
// and source locations so that failures log with enough context to debug.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// annotatedError carries a message, an optional cause, slog attributes and the
// program counter of the call site that created it.
type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// New returns an error annotated with the caller's source location.
func New(msg string) error {
	return &annotatedError{msg: msg, pc: caller(1)}
}

// NewSentinel returns a plain error without source annotation. Use it for
// package-level sentinel errors where the declaration site is uninteresting.
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // sentinel constructor.
}

// Wrap annotates err with a message and optional slog attributes. The message
// chain renders as "msg: cause" like fmt.Errorf with %w.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, err: err, attrs: attrs, pc: caller(1)}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join returns an error wrapping the given errors, discarding nil values.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// DecoratePanic converts a recovered panic value into an annotated error whose
// source location points at the panic site rather than the recover site.
func DecoratePanic(recovered any) error {
	if recovered == nil {
		return nil
	}
	var pcs [64]uintptr
	n := runtime.Callers(2, pcs[:]) //nolint:mnd // skip Callers and DecoratePanic.
	frames := runtime.CallersFrames(pcs[:n])
	var pc uintptr
	afterGopanic := false
	for {
		frame, more := frames.Next()
		if afterGopanic {
			pc = frame.PC
			break
		}
		if strings.HasPrefix(frame.Function, "runtime.gopanic") {
			afterGopanic = true
		}
		if !more {
			break
		}
	}
	return &annotatedError{msg: fmt.Sprintf("panic: %v", recovered), pc: pc}
}

// SlogError renders err as a single slog group attribute containing the
// message, the merged annotations of the whole error tree, and the source
// location of the outermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	attrs := []slog.Attr{slog.String("message", err.Error())}
	if annotations := collectAnnotations(err); len(annotations) > 0 {
		attrs = append(attrs, slog.Attr{Key: "annotations", Value: slog.GroupValue(annotations...)})
	}
	if pc := outermostPC(err); pc != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
		attrs = append(attrs, slog.String("source", fmt.Sprintf("%s:%d", frame.File, frame.Line)))
	}
	return slog.Attr{Key: "error", Value: slog.GroupValue(attrs...)}
}

// collectAnnotations gathers the slog attributes of every annotated error in
// the tree, including branches joined with errors.Join.
func collectAnnotations(err error) []slog.Attr {
	if err == nil {
		return nil
	}
	var attrs []slog.Attr
	var annotated *annotatedError
	if errors.As(err, &annotated) {
		attrs = append(attrs, annotated.attrs...)
		attrs = append(attrs, collectAnnotations(annotated.err)...)
		return attrs
	}
	switch unwrapped := err.(type) { //nolint:errorlint // walking the tree on purpose.
	case interface{ Unwrap() error }:
		attrs = append(attrs, collectAnnotations(unwrapped.Unwrap())...)
	case interface{ Unwrap() []error }:
		for _, joined := range unwrapped.Unwrap() {
			attrs = append(attrs, collectAnnotations(joined)...)
		}
	}
	return attrs
}

// outermostPC returns the program counter of the first annotated error found.
func outermostPC(err error) uintptr {
	var annotated *annotatedError
	if errors.As(err, &annotated) {
		return annotated.pc
	}
	return 0
}

// caller returns the program counter skip frames above the caller of caller.
func caller(skip int) uintptr {
	var pcs [1]uintptr
	runtime.Callers(skip+2, pcs[:]) //nolint:mnd // skip Callers and caller itself.
	return pcs[0]
}

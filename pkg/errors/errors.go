package errors

import (
	"fmt"
	"runtime"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// New returns an error carrying the caller stack.
func New(msg string) error {
	return pkgerrors.New(msg)
}

// Errorf formats an error carrying the caller stack.
func Errorf(format string, args ...interface{}) error {
	return pkgerrors.Errorf(format, args...)
}

// Wrap annotates err with msg and the caller stack, nil stays nil.
func Wrap(err error, msg string) error {
	return pkgerrors.Wrap(err, msg)
}

// Wrapf annotates err with a formatted message and the caller stack.
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// WithStack attaches the caller stack to err.
func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}

// Cause returns the innermost error.
func Cause(err error) error {
	return pkgerrors.Cause(err)
}

func Is(err, target error) bool {
	return pkgerrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return pkgerrors.As(err, target)
}

// NewWithReport 创建错误并上报
func NewWithReport(msg string) error {
	err := pkgerrors.New(msg)
	report(err)
	return err
}

// ErrorfAndReport 格式化错误并上报
func ErrorfAndReport(format string, args ...interface{}) error {
	err := pkgerrors.Errorf(format, args...)
	report(err)
	return err
}

// WrapAndReport 包装错误并上报，err为nil时返回nil
func WrapAndReport(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := pkgerrors.Wrap(err, msg)
	report(wrapped)
	return wrapped
}

func WrapfAndReport(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	wrapped := pkgerrors.Wrapf(err, format, args...)
	report(wrapped)
	return wrapped
}

func WithStackAndReport(err error) error {
	if err == nil {
		return nil
	}
	stacked := pkgerrors.WithStack(err)
	report(stacked)
	return stacked
}

type stack []uintptr

const maxStackDepth = 32

func callers() stack {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}

// fullStack 以 "func file:line" 的形式返回调用栈
func (s stack) fullStack() []string {
	frames := runtime.CallersFrames(s)
	lines := make([]string, 0, len(s))
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			lines = append(lines, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	// 保证上报时按下标取栈帧不会越界
	for len(lines) < 3 {
		lines = append(lines, "unknown")
	}
	return lines
}

// Package apperr defines the error taxonomy shared by the report workflow.
// Every failure surfaced to the presentation layer is an *Error carrying a
// Kind, so callers branch on errors.Is instead of matching message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure by what the user can do about it.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindFormat     Kind = "format"
	KindAccess     Kind = "access"
	KindStorage    Kind = "storage"
	KindNetwork    Kind = "network"
	KindIO         Kind = "io"
)

// Sentinels for errors.Is checks by kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrFormat     = &Error{Kind: KindFormat}
	ErrAccess     = &Error{Kind: KindAccess}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrIO         = &Error{Kind: KindIO}
)

// Error is a classified failure. Op names the operation that failed
// ("form.Load", "store.SaveReport") and Err holds the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare kind sentinel matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a classified error from a formatted message.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation is shorthand for New(KindValidation, ...).
func Validation(op, format string, args ...any) error {
	return New(KindValidation, op, format, args...)
}

// NotFound is shorthand for New(KindNotFound, ...).
func NotFound(op, format string, args ...any) error {
	return New(KindNotFound, op, format, args...)
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var headlines = map[Kind]string{
	KindValidation: "Ошибка валидации данных",
	KindNotFound:   "Не найдено",
	KindFormat:     "Файл повреждён или имеет неверный формат Excel",
	KindAccess:     "Нет доступа. Возможно, файл открыт в другой программе",
	KindStorage:    "Ошибка работы с базой данных",
	KindNetwork:    "Ошибка сети",
	KindIO:         "Ошибка записи файла",
}

// Message renders err for display: a Russian headline for its kind followed
// by the innermost cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	cause := e.Err
	for {
		var inner *Error
		if cause == nil || !errors.As(cause, &inner) || inner.Err == nil {
			break
		}
		cause = inner.Err
	}
	headline := headlines[e.Kind]
	if cause == nil {
		return headline
	}
	if headline == "" {
		return cause.Error()
	}
	return fmt.Sprintf("%s: %s", headline, cause.Error())
}

package custody

import "errors"

// Kind classifies an Error so the request surface can map it to an
// HTTP status without inspecting error strings.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindRevoked      Kind = "revoked"
	KindDecodeError  Kind = "decode_error"
	KindBigIntParse  Kind = "bigint_parse"
	KindStorage      Kind = "storage"
	KindDbErr        Kind = "db_err"
	KindUnauthorized Kind = "unauthorized"
)

// Error is a custody-operation failure tagged with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// As reports whether err is a *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	var ce *Error
	ok := errors.As(err, &ce)
	return ce, ok
}

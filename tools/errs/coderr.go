package errs

import (
	stderr "errors"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CodeError is the wire-level error shape returned by the HTTP API.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !stderr.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Wrap attaches a stack trace to err.
func Wrap(err error) error {
	return errors.WithStack(err)
}

// WrapMsg attaches a stack trace and a message to err.
func WrapMsg(err error, msg string) error {
	return errors.Wrap(err, msg)
}

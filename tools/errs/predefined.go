package errs

const (
	CodeArgs         = 1001
	CodeTokenInvalid = 1101
	CodeNoPermission = 1102
	CodeNotFound     = 1201
	CodeRecordExists = 1202
	CodeInternal     = 1500
)

var (
	ErrArgs         = NewCodeError(CodeArgs, "bad request args")
	ErrTokenInvalid = NewCodeError(CodeTokenInvalid, "token invalid or expired")
	ErrNoPermission = NewCodeError(CodeNoPermission, "no permission")
	ErrNotFound     = NewCodeError(CodeNotFound, "record not found")
	ErrRecordExists = NewCodeError(CodeRecordExists, "record already exists")
	ErrInternal     = NewCodeError(CodeInternal, "internal server error")
)

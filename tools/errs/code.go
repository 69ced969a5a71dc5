package errs

const (
	ServerInternalError = 500

	ArgsError           = 1001
	NoPermissionError   = 1002
	RecordNotFoundError = 1004

	StoreError        = 1500
	TokenInvalidError = 1501

	UnknownEventError = 1600
	FrameError        = 1601
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrNoPermission   = NewCodeError(NoPermissionError, "NoPermissionError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFoundError")
	ErrStore          = NewCodeError(StoreError, "StoreError")
	ErrTokenInvalid   = NewCodeError(TokenInvalidError, "TokenInvalidError")
	ErrUnknownEvent   = NewCodeError(UnknownEventError, "UnknownEventError")
	ErrFrame          = NewCodeError(FrameError, "FrameError")
)

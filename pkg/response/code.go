package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户/鉴权错误 100xx
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 订单模块错误 200xx
	ErrOrderNotFound   = 20001
	ErrOrderState      = 20002
	ErrAmountMismatch  = 20003
	ErrTradeNoConflict = 20004
	ErrOrderProcessing = 20005

	// 安全校验错误 400xx
	ErrSignatureInvalid = 40001
	ErrRequestExpired   = 40002
	ErrIPNotAllowed     = 40003

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)

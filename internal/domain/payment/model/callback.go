package model

// 回调 status 字段取值
const (
	CallbackStatusSuccess = "success"
	CallbackStatusFailed  = "failed"
)

// CallbackRequest 网关回调的规范化记录
// Amount / Timestamp 保留原始字符串形态：验签必须使用网关发来的原文
type CallbackRequest struct {
	OrderNo   string
	TradeNo   string
	Amount    string
	Status    string
	Timestamp string // 可选，存在时触发防重放校验
	Sign      string
	Nonce     string // 可选
}

// CallbackResult 回调处理结果，由 handler 按网关约定格式输出
type CallbackResult struct {
	HTTPStatus int
	Success    bool
	Message    string
	Error      string
}

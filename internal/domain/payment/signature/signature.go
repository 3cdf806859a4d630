package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fansite_payment/internal/domain/payment/model"
)

// Verifier 回调验签器，持有与网关共享的密钥
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// canonicalString 构造签名原文
// 字段顺序固定：order_no, trade_no, amount, status, timestamp, nonce
// amount / timestamp 使用网关发来的原始字符串，nonce 缺省为空串
func canonicalString(req *model.CallbackRequest) string {
	return fmt.Sprintf("order_no=%s&trade_no=%s&amount=%s&status=%s&timestamp=%s&nonce=%s",
		req.OrderNo, req.TradeNo, req.Amount, req.Status, req.Timestamp, req.Nonce)
}

// Sign 计算回调签名（HMAC-SHA256，小写十六进制）
func (v *Verifier) Sign(req *model.CallbackRequest) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(canonicalString(req)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 校验回调签名，常数时间比较
func (v *Verifier) Verify(req *model.CallbackRequest) bool {
	expected := v.Sign(req)
	supplied := strings.ToLower(req.Sign)
	return hmac.Equal([]byte(expected), []byte(supplied))
}

// ValidateTimestamp 校验时间戳是否在有效窗口内（防重放）
// ts 为 Unix 秒的字符串形式，解析失败视为过期
func ValidateTimestamp(ts string, window time.Duration) bool {
	sec, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil {
		return false
	}
	diff := time.Since(time.Unix(sec, 0))
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

// NormalizeAmount 将回调金额规范化为分
// 带小数点视为元，乘 100 四舍五入；纯整数视为已经是分，原样通过
func NormalizeAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", raw)
		}
		return int64(math.Round(f * 100)), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return n, nil
}

// ValidateAmount 金额对账：严格相等
func ValidateAmount(paid, expected int64) bool {
	return paid == expected
}

package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// SessionTokenBytes 随机字节数；hex 后长度翻倍
const SessionTokenBytes = 20

// NewSessionToken 生成不透明会话令牌（crypto/rand，40 位小写 hex）
func NewSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

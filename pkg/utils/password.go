package utils

import "golang.org/x/crypto/bcrypt"

// MaxPasswordBytes bcrypt 只接受 72 字节以内的明文
const MaxPasswordBytes = 72

// PasswordTooLong 按字节计，多字节字符会更早触顶
func PasswordTooLong(pw string) bool { return len(pw) > MaxPasswordBytes }

// HashPassword bcrypt 加盐哈希（成本、盐、摘要都编码在结果里）
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword 哈希格式不合法时返回 false，不 panic
func CheckPassword(pw, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

package domain

import "errors"

// Kind 错误分类，传输层据此映射状态码
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindConflict
	KindForbidden
)

var (
	// 校验
	ErrMissingField = errors.New("missing parameter in body")
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidField = errors.New("invalid field value")
	ErrMissingQuery = errors.New("search query missing")

	// 不存在
	ErrUserNotFound    = errors.New("user not found")
	ErrOwnerNotFound   = errors.New("owner not found")
	ErrListingNotFound = errors.New("ad not found")

	// 鉴权
	ErrMissingToken       = errors.New("session token missing")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// 冲突 / 权限
	ErrDuplicateEmail = errors.New("email already exists")
	ErrForbidden      = errors.New("not the owner of this ad")
)

var kinds = map[error]Kind{
	ErrMissingField:       KindValidation,
	ErrInvalidEmail:       KindValidation,
	ErrInvalidField:       KindValidation,
	ErrMissingQuery:       KindValidation,
	ErrUserNotFound:       KindNotFound,
	ErrOwnerNotFound:      KindNotFound,
	ErrListingNotFound:    KindNotFound,
	ErrMissingToken:       KindAuth,
	ErrInvalidToken:       KindAuth,
	ErrInvalidCredentials: KindAuth,
	ErrDuplicateEmail:     KindConflict,
	ErrForbidden:          KindForbidden,
}

// KindOf 沿 %w 链找到第一个已知哨兵错误
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for sentinel, k := range kinds {
		if errors.Is(err, sentinel) {
			return k
		}
	}
	return KindInternal
}

package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carbuy-api/internal/domain"
	resp "carbuy-api/internal/transport/http/response"
)

// HeaderSessionToken 会话令牌请求头
const HeaderSessionToken = "sessionToken"

// Go 的 http.Header 会把 key 规范化
var headerSessionToken = http.CanonicalHeaderKey(HeaderSessionToken)

const keyUser = "sessionUser"

// Authenticator 会话校验的唯一入口
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Session 解析 sessionToken 并把用户放进上下文。
// required=false 时缺少头部直接放行，但带了非法令牌仍然 401。
func Session(a Authenticator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderSessionToken)
		if token == "" && !required {
			c.Next()
			return
		}
		u, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			kind := domain.KindOf(err)
			if kind == domain.KindInternal {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp.Error("internal error"))
				return
			}
			c.AbortWithStatusJSON(resp.StatusOf(kind), resp.Error(err.Error()))
			return
		}
		c.Set(keyUser, u)
		c.Next()
	}
}

// CurrentUser 取 Session 中间件放入的用户；未登录返回 nil
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(keyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

// MustUser handler 内部用：没有会话时给出领域错误
func MustUser(c *gin.Context) (*domain.User, error) {
	if u := CurrentUser(c); u != nil {
		return u, nil
	}
	return nil, domain.ErrMissingToken
}

func CurrentUserID(c *gin.Context) (uint, bool) {
	u := CurrentUser(c)
	if u == nil {
		return 0, false
	}
	return u.ID, true
}

// RequestToken 原样返回请求头里的令牌（/get_user 按令牌查询）
func RequestToken(c *gin.Context) (string, error) {
	t := c.GetHeader(HeaderSessionToken)
	if t == "" {
		return "", domain.ErrMissingToken
	}
	return t, nil
}

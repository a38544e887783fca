package ez

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"carbuy-api/internal/domain"
	resp "carbuy-api/internal/transport/http/response"
)

// EZ 路由分组的轻封装：一行注册一个动作
type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// Group 子分组，继承 logger
func (e EZ) Group(path string, mw ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, mw...), log: e.log}
}

// 绑定方式
type Binder string

const (
	BindJSON        Binder = "json"          // 从 JSON 绑定
	BindQuery       Binder = "query"         // 从 URL ?a=b 绑定
	BindJSONOrQuery Binder = "json_or_query" // 有 body 走 JSON，否则走 query（DELETE 常见）
	BindNone        Binder = "none"          // 不绑定，自己从 c.Param 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method     string // "GET" | "POST" | "PUT" | "DELETE"
	Path       string // 例："/sessions"、"/ad/:id"
	Binder     Binder // 绑定方式
	Status     int    // 成功状态码，默认 200
	Middleware []gin.HandlerFunc
	Handler    func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 绑定入参
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			writeError(c, e.log, err)
			return
		}

		// 2) 执行
		out, err := a.Handler(c, &in)

		// 3) 统一错误映射
		if err != nil {
			writeError(c, e.log, err)
			return
		}
		c.JSON(status, out)
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Middleware...), h)
	e.g.Handle(strings.ToUpper(a.Method), a.Path, handlers...)
}

func bind(c *gin.Context, b Binder, in any) error {
	switch b {
	case BindJSON:
		return decodeJSON(c, in)
	case BindQuery:
		if err := c.ShouldBindQuery(in); err != nil {
			return BadRequest(err.Error())
		}
		return nil
	case BindJSONOrQuery:
		if c.Request.ContentLength > 0 || c.Request.Header.Get("Transfer-Encoding") != "" {
			return decodeJSON(c, in)
		}
		if err := c.ShouldBindQuery(in); err != nil {
			return BadRequest(err.Error())
		}
		return nil
	default: // BindNone: 不绑定
		return nil
	}
}

// decodeJSON 空 body 视为 {}，未知字段与非法 JSON 一律 400
func decodeJSON(c *gin.Context, in any) error {
	if c.Request.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return TooLarge("request body too large")
		}
		return BadRequest("read body failed")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		return BadRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return BadRequest("invalid JSON body: trailing data")
	}
	if binding.Validator != nil {
		if err := binding.Validator.ValidateStruct(in); err != nil {
			return BadRequest(err.Error())
		}
	}
	return nil
}

// writeError AErr > 领域错误 > 500
func writeError(c *gin.Context, l *zap.Logger, err error) {
	_ = c.Error(err)

	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code >= http.StatusInternalServerError {
			l.Error("action failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.AbortWithStatusJSON(ae.Code, resp.Error(ae.Error()))
		return
	}

	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		l.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp.Error("internal error"))
		return
	}
	c.AbortWithStatusJSON(resp.StatusOf(kind), resp.Error(err.Error()))
}

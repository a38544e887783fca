package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbuy-api/internal/service"
	"carbuy-api/internal/transport/http/ez"
	mdw "carbuy-api/internal/transport/http/middleware"
)

// AccountHandler 注册、登录登出、改密、账户信息
type AccountHandler struct {
	users    *service.UserService
	sessions *service.SessionService
	log      *zap.Logger
}

func NewAccountHandler(users *service.UserService, sessions *service.SessionService, l *zap.Logger) *AccountHandler {
	return &AccountHandler{users: users, sessions: sessions, log: l}
}

func (h *AccountHandler) Priority() int { return priorityAccount }

type registerIn struct {
	Name     string `json:"name"`
	Mail     string `json:"mail"`
	Email    string `json:"email"` // 兼容写法，mail 优先
	Password string `json:"password"`
	Birth    string `json:"birthdate"`
	Phone    string `json:"phone"`
}

type registerOut struct {
	Registered bool `json:"registered"`
}

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginOut struct {
	SessionToken string `json:"sessionToken"`
}

type passwordIn struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type accountOut struct {
	Email string `json:"email"`
}

type userOut struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

func (h *AccountHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.log)
	auth := mdw.Session(h.sessions, true)

	// --- POST /users  注册 ---
	ez.RegisterAction(e, ez.Action[registerIn, registerOut]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (registerOut, error) {
			email := in.Mail
			if email == "" {
				email = in.Email
			}
			_, err := h.users.Register(c.Request.Context(), service.RegisterInput{
				Name:      strings.TrimSpace(in.Name),
				Email:     strings.TrimSpace(email),
				Password:  in.Password,
				Birthdate: strings.TrimSpace(in.Birth),
				Phone:     strings.TrimSpace(in.Phone),
			})
			if err != nil {
				return registerOut{}, err
			}
			return registerOut{Registered: true}, nil
		},
	})

	// --- POST /sessions  登录 ---
	ez.RegisterAction(e, ez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/sessions",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			tok, err := h.sessions.Login(c.Request.Context(), strings.TrimSpace(in.Email), in.Password)
			if err != nil {
				return loginOut{}, err
			}
			return loginOut{SessionToken: tok}, nil
		},
	})

	// --- DELETE /sessions  登出 ---
	ez.RegisterAction(e, ez.Action[struct{}, messageOut]{
		Method: http.MethodDelete,
		Path:   "/sessions",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (messageOut, error) {
			if err := h.sessions.Logout(c.Request.Context(), c.GetHeader(mdw.HeaderSessionToken)); err != nil {
				return messageOut{}, err
			}
			return messageOut{Message: "Session closed successfully"}, nil
		},
	})

	// --- POST /password  改密 ---
	ez.RegisterAction(e, ez.Action[passwordIn, messageOut]{
		Method:     http.MethodPost,
		Path:       "/password",
		Binder:     ez.BindJSON,
		Middleware: []gin.HandlerFunc{auth},
		Handler: func(c *gin.Context, in *passwordIn) (messageOut, error) {
			u, err := mdw.MustUser(c)
			if err != nil {
				return messageOut{}, err
			}
			if err := h.users.ChangePassword(c.Request.Context(), u, in.CurrentPassword, in.NewPassword); err != nil {
				return messageOut{}, err
			}
			return messageOut{Message: "Password changed successfully"}, nil
		},
	})

	// --- GET /account ---
	ez.RegisterAction(e, ez.Action[struct{}, accountOut]{
		Method:     http.MethodGet,
		Path:       "/account",
		Binder:     ez.BindNone,
		Middleware: []gin.HandlerFunc{auth},
		Handler: func(c *gin.Context, _ *struct{}) (accountOut, error) {
			u, err := mdw.MustUser(c)
			if err != nil {
				return accountOut{}, err
			}
			return accountOut{Email: u.Email}, nil
		},
	})

	// --- GET /get_user  按令牌查用户；未知令牌 404 ---
	ez.RegisterAction(e, ez.Action[struct{}, userOut]{
		Method: http.MethodGet,
		Path:   "/get_user",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (userOut, error) {
			tok, err := mdw.RequestToken(c)
			if err != nil {
				return userOut{}, err
			}
			u, err := h.users.FindByToken(c.Request.Context(), tok)
			if err != nil {
				return userOut{}, err
			}
			return userOut{ID: u.ID, Email: u.Email, Name: u.Name, Token: tok}, nil
		},
	})
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbuy-api/internal/domain"
	"carbuy-api/internal/service"
	"carbuy-api/internal/transport/http/ez"
	resp "carbuy-api/internal/transport/http/response"
)

// AdminHandler 管理端：用户/广告列表、下架、强制下线
type AdminHandler struct {
	svcs *service.Services
	log  *zap.Logger
}

func NewAdminHandler(svcs *service.Services, l *zap.Logger) *AdminHandler {
	return &AdminHandler{svcs: svcs, log: l}
}

func (h *AdminHandler) Priority() int { return priorityAdmin }

type pageQ struct {
	Offset int    `form:"offset,default=0" binding:"gte=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"` // 模糊搜
}

type userRow struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	LoggedIn  bool      `json:"loggedIn"`
	CreatedAt time.Time `json:"createdAt"`
}

type pageOut[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.log)

	// --- GET /admin/v1/users  用户列表 ---
	ez.RegisterAction(e, ez.Action[pageQ, resp.Resp]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (resp.Resp, error) {
			us, total, err := h.svcs.Users.List(c.Request.Context(), in.Q, in.Offset, in.Limit)
			if err != nil {
				return resp.Resp{}, ez.Internal("list users failed", err)
			}
			out := pageOut[userRow]{Total: total, Items: make([]userRow, 0, len(us))}
			for _, u := range us {
				out.Items = append(out.Items, userRow{
					ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone,
					LoggedIn: u.LoggedIn(), CreatedAt: u.CreatedAt,
				})
			}
			return resp.OK(out), nil
		},
	})

	// --- POST /admin/v1/users/:id/logout  强制下线 ---
	ez.RegisterAction(e, ez.Action[struct{}, resp.Resp]{
		Method: http.MethodPost,
		Path:   "/users/:id/logout",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Resp, error) {
			id, err := pathID(c, "id", nil)
			if err != nil {
				return resp.Resp{}, err
			}
			if err := h.svcs.Sessions.ForceLogout(c.Request.Context(), id); err != nil {
				return resp.Resp{}, err
			}
			h.log.Info("admin forced logout", zap.Uint("user_id", id), zap.String("by", c.GetString("userId")))
			return resp.OK(gin.H{"id": id}), nil
		},
	})

	// --- GET /admin/v1/ads  广告列表 ---
	ez.RegisterAction(e, ez.Action[pageQ, resp.Resp]{
		Method: http.MethodGet,
		Path:   "/ads",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (resp.Resp, error) {
			ads, total, err := h.svcs.Listings.List(c.Request.Context(), in.Q, in.Offset, in.Limit)
			if err != nil {
				return resp.Resp{}, ez.Internal("list ads failed", err)
			}
			return resp.OK(pageOut[domain.Listing]{Total: total, Items: ads}), nil
		},
	})

	// --- DELETE /admin/v1/ads/:id  下架 ---
	ez.RegisterAction(e, ez.Action[struct{}, resp.Resp]{
		Method: http.MethodDelete,
		Path:   "/ads/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Resp, error) {
			id, err := pathID(c, "id", nil)
			if err != nil {
				return resp.Resp{}, err
			}
			if err := h.svcs.Listings.Moderate(c.Request.Context(), id); err != nil {
				return resp.Resp{}, err
			}
			h.log.Info("admin removed ad", zap.Uint("ad_id", id), zap.String("by", c.GetString("userId")))
			return resp.OK(gin.H{"id": id}), nil
		},
	})
}

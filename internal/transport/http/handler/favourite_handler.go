package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbuy-api/internal/domain"
	"carbuy-api/internal/service"
	"carbuy-api/internal/transport/http/ez"
	mdw "carbuy-api/internal/transport/http/middleware"
)

type FavouriteHandler struct {
	favourites *service.FavouriteService
	sessions   *service.SessionService
	log        *zap.Logger
}

func NewFavouriteHandler(favourites *service.FavouriteService, sessions *service.SessionService, l *zap.Logger) *FavouriteHandler {
	return &FavouriteHandler{favourites: favourites, sessions: sessions, log: l}
}

func (h *FavouriteHandler) Priority() int { return priorityFavourite }

type favouriteOut struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *FavouriteHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g.Group("", mdw.Session(h.sessions, true)), h.log)

	// --- PUT /favourite_management  收藏（幂等） ---
	ez.RegisterAction(e, ez.Action[carIDIn, favouriteOut]{
		Method: http.MethodPut,
		Path:   "/favourite_management",
		Binder: ez.BindJSONOrQuery,
		Handler: func(c *gin.Context, in *carIDIn) (favouriteOut, error) {
			u, err := mdw.MustUser(c)
			if err != nil {
				return favouriteOut{}, err
			}
			added, err := h.favourites.Add(c.Request.Context(), u, in.CarID)
			if err != nil {
				return favouriteOut{}, err
			}
			if !added {
				return favouriteOut{Success: false, Message: "Car already in favourites"}, nil
			}
			return favouriteOut{Success: true, Message: "Car added to favourites"}, nil
		},
	})

	// --- DELETE /favourite_management  取消收藏 ---
	ez.RegisterAction(e, ez.Action[carIDIn, favouriteOut]{
		Method: http.MethodDelete,
		Path:   "/favourite_management",
		Binder: ez.BindJSONOrQuery,
		Handler: func(c *gin.Context, in *carIDIn) (favouriteOut, error) {
			u, err := mdw.MustUser(c)
			if err != nil {
				return favouriteOut{}, err
			}
			removed, err := h.favourites.Remove(c.Request.Context(), u, in.CarID)
			if err != nil {
				return favouriteOut{}, err
			}
			if !removed {
				return favouriteOut{Success: false, Message: "Car was not in favourites"}, nil
			}
			return favouriteOut{Success: true, Message: "Car removed from favourites"}, nil
		},
	})

	// --- GET /get_favourites ---
	ez.RegisterAction(e, ez.Action[struct{}, []domain.FavouriteView]{
		Method: http.MethodGet,
		Path:   "/get_favourites",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.FavouriteView, error) {
			u, err := mdw.MustUser(c)
			if err != nil {
				return nil, err
			}
			return h.favourites.ListForUser(c.Request.Context(), u)
		},
	})
}

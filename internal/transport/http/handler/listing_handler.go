package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carbuy-api/internal/domain"
	"carbuy-api/internal/service"
	"carbuy-api/internal/transport/http/ez"
	mdw "carbuy-api/internal/transport/http/middleware"
)

// ListingHandler 广告检索与管理
type ListingHandler struct {
	listings *service.ListingService
	sessions *service.SessionService
	log      *zap.Logger
}

func NewListingHandler(listings *service.ListingService, sessions *service.SessionService, l *zap.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, sessions: sessions, log: l}
}

func (h *ListingHandler) Priority() int { return priorityListing }

type searchIn struct {
	BrandName string `form:"brand_name"`
	Q         string `form:"q"`
}

type searchOut struct {
	Cars []domain.Listing `json:"cars"`
}

type ownerOut struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type adOut struct {
	ID          uint            `json:"id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        uint            `json:"year"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	UserID      uint            `json:"user_id"`
	User        ownerOut        `json:"user"`
}

type createAdIn struct {
	Brand       string           `json:"brand"`
	Model       string           `json:"model"`
	Year        uint             `json:"year"`
	Price       *decimal.Decimal `json:"price"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url"`
	UserID      uint             `json:"user_id"`
}

type createAdOut struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
}

type updateAdIn struct {
	CarID       uint             `json:"car_id"`
	Brand       *string          `json:"brand"`
	Model       *string          `json:"model"`
	Year        *uint            `json:"year"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image_url"`
}

type updateAdOut struct {
	Message string          `json:"message"`
	Ad      *domain.Listing `json:"ad"`
}

type carIDIn struct {
	CarID uint `json:"car_id" form:"car_id"`
}

func (h *ListingHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.log)
	// 强制归属时 ad_management 必须登录；否则可选（带了令牌仍校验）
	manage := mdw.Session(h.sessions, h.listings.EnforcesOwnership())

	// --- GET /search?brand_name=&q= ---
	ez.RegisterAction(e, ez.Action[searchIn, searchOut]{
		Method: http.MethodGet,
		Path:   "/search",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *searchIn) (searchOut, error) {
			cars, err := h.listings.Search(c.Request.Context(), service.SearchQuery{Brand: in.BrandName, Text: in.Q})
			if err != nil {
				return searchOut{}, err
			}
			return searchOut{Cars: cars}, nil
		},
	})

	// --- GET /ad/:id  详情 + 卖家联系方式 ---
	ez.RegisterAction(e, ez.Action[struct{}, adOut]{
		Method: http.MethodGet,
		Path:   "/ad/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (adOut, error) {
			id, err := pathID(c, "id", domain.ErrListingNotFound)
			if err != nil {
				return adOut{}, err
			}
			ad, err := h.listings.Get(c.Request.Context(), id)
			if err != nil {
				return adOut{}, err
			}
			return adOut{
				ID:          ad.ID,
				Brand:       ad.Brand,
				Model:       ad.Model,
				Year:        ad.Year,
				Price:       ad.Price,
				Description: ad.Description,
				ImageURL:    ad.ImageURL,
				UserID:      ad.UserID,
				User:        ownerOut{Name: ad.OwnerName, Phone: ad.OwnerPhone},
			}, nil
		},
	})

	// --- POST /ad_management  发布 ---
	ez.RegisterAction(e, ez.Action[createAdIn, createAdOut]{
		Method:     http.MethodPost,
		Path:       "/ad_management",
		Binder:     ez.BindJSON,
		Status:     http.StatusCreated,
		Middleware: []gin.HandlerFunc{manage},
		Handler: func(c *gin.Context, in *createAdIn) (createAdOut, error) {
			l, err := h.listings.Create(c.Request.Context(), service.CreateListingInput{
				Brand:       in.Brand,
				Model:       in.Model,
				Year:        in.Year,
				Price:       in.Price,
				Description: in.Description,
				ImageURL:    in.ImageURL,
				OwnerID:     in.UserID,
			}, mdw.CurrentUser(c))
			if err != nil {
				return createAdOut{}, err
			}
			return createAdOut{Message: "Ad created successfully", ID: l.ID}, nil
		},
	})

	// --- PUT /ad_management  局部更新 ---
	ez.RegisterAction(e, ez.Action[updateAdIn, updateAdOut]{
		Method:     http.MethodPut,
		Path:       "/ad_management",
		Binder:     ez.BindJSON,
		Middleware: []gin.HandlerFunc{manage},
		Handler: func(c *gin.Context, in *updateAdIn) (updateAdOut, error) {
			l, err := h.listings.Update(c.Request.Context(), in.CarID, domain.ListingPatch{
				Brand:       in.Brand,
				Model:       in.Model,
				Year:        in.Year,
				Price:       in.Price,
				Description: in.Description,
				ImageURL:    in.ImageURL,
			}, mdw.CurrentUser(c))
			if err != nil {
				return updateAdOut{}, err
			}
			return updateAdOut{Message: "Ad updated successfully", Ad: l}, nil
		},
	})

	// --- DELETE /ad_management  car_id 可以在 body 或 query ---
	ez.RegisterAction(e, ez.Action[carIDIn, messageOut]{
		Method:     http.MethodDelete,
		Path:       "/ad_management",
		Binder:     ez.BindJSONOrQuery,
		Middleware: []gin.HandlerFunc{manage},
		Handler: func(c *gin.Context, in *carIDIn) (messageOut, error) {
			if err := h.listings.Delete(c.Request.Context(), in.CarID, mdw.CurrentUser(c)); err != nil {
				return messageOut{}, err
			}
			return messageOut{Message: "Ad deleted successfully"}, nil
		},
	})

	// --- GET /get_ads  全量，不分页 ---
	ez.RegisterAction(e, ez.Action[struct{}, []domain.Listing]{
		Method: http.MethodGet,
		Path:   "/get_ads",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Listing, error) {
			return h.listings.ListAll(c.Request.Context())
		},
	})
}

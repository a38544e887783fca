package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carbuy-api/internal/core/cache"
	"carbuy-api/internal/domain"
)

type CreateListingInput struct {
	Brand       string
	Model       string
	Year        uint
	Price       *decimal.Decimal
	Description string
	ImageURL    string
	// OwnerID 只在不校验归属时使用；校验归属时以会话用户为准
	OwnerID uint
}

// SearchQuery Brand 只匹配品牌；Text 匹配品牌或型号
type SearchQuery struct {
	Brand string
	Text  string
}

// maxPrice numeric(10,2) 的上界（不含）
var maxPrice = decimal.New(1, 8)

// 常见品牌缩写
var brandAliases = map[string][]string{
	"vw":    {"volkswagen"},
	"merc":  {"mercedes"},
	"mb":    {"mercedes"},
	"chevy": {"chevrolet"},
	"alfa":  {"alfa romeo"},
}

type ListingOptions struct {
	EnforceOwnership bool
	Cache            cache.Store // nil 表示不缓存
	CacheTTL         time.Duration
}

// ListingService 广告增删改查 + 搜索
type ListingService struct {
	listings domain.ListingRepository
	opts     ListingOptions
	log      *zap.Logger
	// writes 每次失效缓存前后各加一；Get 回源期间若变化，写入的缓存可能已过期
	writes atomic.Uint64
}

func NewListingService(listings domain.ListingRepository, opts ListingOptions, l *zap.Logger) *ListingService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &ListingService{listings: listings, opts: opts, log: l}
}

// EnforcesOwnership 传输层据此决定 ad_management 是否强制登录
func (s *ListingService) EnforcesOwnership() bool { return s.opts.EnforceOwnership }

func (s *ListingService) Create(ctx context.Context, in CreateListingInput, actor *domain.User) (*domain.Listing, error) {
	if in.Brand == "" || in.Model == "" || in.Year == 0 || in.Price == nil || in.Price.IsZero() || in.Description == "" {
		return nil, domain.ErrMissingField
	}
	if !validPrice(*in.Price) {
		return nil, fmt.Errorf("price: %w", domain.ErrInvalidField)
	}
	owner := in.OwnerID
	if s.opts.EnforceOwnership {
		if actor == nil {
			return nil, domain.ErrMissingToken
		}
		if owner != 0 && owner != actor.ID {
			return nil, domain.ErrForbidden
		}
		owner = actor.ID
	}
	if owner == 0 {
		return nil, domain.ErrMissingField
	}
	img := strings.TrimSpace(in.ImageURL)
	if img == "" {
		img = domain.DefaultImageURL
	}
	l := &domain.Listing{
		Brand:       in.Brand,
		Model:       in.Model,
		Year:        in.Year,
		Price:       in.Price.Round(2),
		Description: in.Description,
		ImageURL:    img,
		UserID:      owner,
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info("ad created", zap.Uint("ad_id", l.ID), zap.Uint("user_id", owner))
	return l, nil
}

func (s *ListingService) Update(ctx context.Context, id uint, patch domain.ListingPatch, actor *domain.User) (*domain.Listing, error) {
	if id == 0 {
		return nil, domain.ErrMissingField
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, id, actor); err != nil {
		return nil, err
	}
	if patch.Price != nil {
		p := patch.Price.Round(2)
		patch.Price = &p
	}
	l, err := s.listings.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.evict(ctx, id)
	return l, nil
}

func (s *ListingService) Delete(ctx context.Context, id uint, actor *domain.User) error {
	if id == 0 {
		return domain.ErrMissingField
	}
	if err := s.authorize(ctx, id, actor); err != nil {
		return err
	}
	return s.remove(ctx, id)
}

// Moderate 管理端删除，不校验归属
func (s *ListingService) Moderate(ctx context.Context, id uint) error {
	return s.remove(ctx, id)
}

func (s *ListingService) remove(ctx context.Context, id uint) error {
	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	s.log.Info("ad deleted", zap.Uint("ad_id", id))
	return nil
}

func (s *ListingService) Get(ctx context.Context, id uint) (*domain.ListingWithOwner, error) {
	if s.opts.Cache == nil {
		return s.listings.FindWithOwner(ctx, id)
	}
	before := s.writes.Load()
	l, err := cache.GetOrLoadJSON[domain.ListingWithOwner](s.opts.Cache, ctx, detailKey(id), s.opts.CacheTTL,
		func(ctx context.Context) (*domain.ListingWithOwner, error) {
			return s.listings.FindWithOwner(ctx, id)
		})
	if err != nil || s.writes.Load() == before {
		return l, err
	}
	// 读写交错：丢掉可能写回的旧值，直接读库
	s.dropCached(ctx, id)
	return s.listings.FindWithOwner(ctx, id)
}

func (s *ListingService) Search(ctx context.Context, q SearchQuery) ([]domain.Listing, error) {
	brand, text := strings.TrimSpace(q.Brand), strings.TrimSpace(q.Text)
	switch {
	case brand != "":
		return s.listings.Search(ctx, []string{"brand"}, expandTerms(brand))
	case text != "":
		return s.listings.Search(ctx, []string{"brand", "model"}, expandTerms(text))
	default:
		return nil, domain.ErrMissingQuery
	}
}

func (s *ListingService) ListAll(ctx context.Context) ([]domain.Listing, error) {
	return s.listings.ListAll(ctx)
}

// List 管理端分页
func (s *ListingService) List(ctx context.Context, q string, offset, limit int) ([]domain.Listing, int64, error) {
	return s.listings.List(ctx, q, offset, limit)
}

func (s *ListingService) authorize(ctx context.Context, id uint, actor *domain.User) error {
	if !s.opts.EnforceOwnership {
		return nil
	}
	if actor == nil {
		return domain.ErrMissingToken
	}
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if l.UserID != actor.ID {
		return domain.ErrForbidden
	}
	return nil
}

func (s *ListingService) evict(ctx context.Context, id uint) {
	if s.opts.Cache == nil {
		return
	}
	s.writes.Add(1)
	s.dropCached(ctx, id)
	s.writes.Add(1)
}

func (s *ListingService) dropCached(ctx context.Context, id uint) {
	if err := s.opts.Cache.Delete(ctx, detailKey(id)); err != nil {
		s.log.Warn("cache evict failed", zap.Uint("ad_id", id), zap.Error(err))
	}
}

func validatePatch(p domain.ListingPatch) error {
	if p.Empty() {
		return domain.ErrMissingField
	}
	empty := func(v *string) bool { return v != nil && strings.TrimSpace(*v) == "" }
	switch {
	case empty(p.Brand), empty(p.Model), empty(p.Description):
		return domain.ErrInvalidField
	case p.Year != nil && *p.Year == 0:
		return fmt.Errorf("year: %w", domain.ErrInvalidField)
	case p.Price != nil && !validPrice(*p.Price):
		return fmt.Errorf("price: %w", domain.ErrInvalidField)
	}
	return nil
}

// validPrice 取两位小数后须落在 (0, 1e8)
func validPrice(p decimal.Decimal) bool {
	p = p.Round(2)
	return p.IsPositive() && p.LessThan(maxPrice)
}

func expandTerms(term string) []string {
	terms := []string{term}
	terms = append(terms, brandAliases[strings.ToLower(term)]...)
	return terms
}

func detailKey(id uint) string { return fmt.Sprintf("ad:%d", id) }

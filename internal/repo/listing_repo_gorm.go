package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"carbuy-api/internal/domain"
)

// 可参与搜索的列（白名单，列名不来自用户输入）
var searchableColumns = map[string]struct{}{"brand": {}, "model": {}, "description": {}}

type ListingRepo struct{ db *gorm.DB }

func NewListingRepo(db *gorm.DB) *ListingRepo { return &ListingRepo{db: db} }

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 引用完整性：owner 必须存在（不依赖驱动是否开启外键）
		var n int64
		if err := tx.Model(&domain.User{}).Where("id = ?", l.UserID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrOwnerNotFound
		}
		return tx.Omit("User").Create(l).Error
	})
	if err != nil && !errors.Is(err, domain.ErrOwnerNotFound) {
		return fmt.Errorf("create listing: %w", err)
	}
	return err
}

func (r *ListingRepo) FindByID(ctx context.Context, id uint) (*domain.Listing, error) {
	return findListing(r.db.WithContext(ctx), id)
}

func findListing(tx *gorm.DB, id uint) (*domain.Listing, error) {
	var l domain.Listing
	err := tx.First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return &l, nil
}

func (r *ListingRepo) FindWithOwner(ctx context.Context, id uint) (*domain.ListingWithOwner, error) {
	var l domain.Listing
	err := r.db.WithContext(ctx).Preload("User").First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	out := &domain.ListingWithOwner{Listing: l}
	if l.User != nil {
		out.OwnerName, out.OwnerPhone = l.User.Name, l.User.Phone
	}
	out.User = nil
	return out, nil
}

func (r *ListingRepo) Search(ctx context.Context, columns []string, terms []string) ([]domain.Listing, error) {
	var (
		conds []string
		args  []any
	)
	for _, col := range columns {
		if _, ok := searchableColumns[col]; !ok {
			return nil, fmt.Errorf("search listing: column %q not searchable", col)
		}
		for _, t := range terms {
			if strings.TrimSpace(t) == "" {
				continue
			}
			conds = append(conds, likeClause(col))
			args = append(args, containsPattern(t))
		}
	}
	out := make([]domain.Listing, 0)
	if len(conds) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Where(strings.Join(conds, " OR "), args...).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("search listing: %w", err)
	}
	return out, nil
}

func (r *ListingRepo) ListAll(ctx context.Context) ([]domain.Listing, error) {
	out := make([]domain.Listing, 0)
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return out, nil
}

func (r *ListingRepo) List(ctx context.Context, q string, offset, limit int) ([]domain.Listing, int64, error) {
	offset, limit = clampPage(offset, limit)
	tx := r.db.WithContext(ctx).Model(&domain.Listing{})
	if s := strings.TrimSpace(q); s != "" {
		like := containsPattern(s)
		tx = tx.Where(likeClause("brand")+" OR "+likeClause("model"), like, like)
	}
	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}
	out := make([]domain.Listing, 0, limit)
	if err := tx.Order("id desc").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	return out, total, nil
}

func (r *ListingRepo) Update(ctx context.Context, id uint, patch domain.ListingPatch) (*domain.Listing, error) {
	var out *domain.Listing
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findListing(tx, id); err != nil {
			return err
		}
		if cols := patch.Columns(); len(cols) > 0 {
			if err := tx.Model(&domain.Listing{}).Where("id = ?", id).Updates(cols).Error; err != nil {
				return fmt.Errorf("update listing: %w", err)
			}
		}
		l, err := findListing(tx, id)
		out = l
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ListingRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("car_id = ?", id).Delete(&domain.Favourite{}).Error; err != nil {
			return fmt.Errorf("delete favourites of listing: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&domain.Listing{})
		if res.Error != nil {
			return fmt.Errorf("delete listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrListingNotFound
		}
		return nil
	})
}

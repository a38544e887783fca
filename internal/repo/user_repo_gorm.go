package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"carbuy-api/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepo) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	// 空 token 永远不命中（NULL 不会等于 ''，这里直接短路）
	if token == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.first(ctx, "token = ?", token)
}

func (r *UserRepo) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, q string, offset, limit int) ([]domain.User, int64, error) {
	offset, limit = clampPage(offset, limit)
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	if s := strings.TrimSpace(q); s != "" {
		like := containsPattern(s)
		tx = tx.Where(likeClause("email")+" OR "+likeClause("name"), like, like)
	}
	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	users := make([]domain.User, 0, limit)
	if err := tx.Order("id desc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumn(ctx, id, "encrypted_password", hash)
}

func (r *UserRepo) SetToken(ctx context.Context, id uint, token *string) error {
	// nil 必须显式写 NULL，Update 单列可以做到
	var v any
	if token != nil {
		v = *token
	}
	return r.updateColumn(ctx, id, "token", v)
}

func (r *UserRepo) updateColumn(ctx context.Context, id uint, col string, v any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update(col, v)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", col, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

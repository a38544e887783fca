package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"carbuy-api/internal/domain"
	"carbuy-api/pkg/utils"
)

// BirthdateLayout 出生日期格式
const BirthdateLayout = "2006-01-02"

type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Birthdate string
	Phone     string
}

// UserService 用户目录：注册、查找、改密
type UserService struct {
	users domain.UserRepository
	log   *zap.Logger
}

func NewUserService(users domain.UserRepository, l *zap.Logger) *UserService {
	return &UserService{users: users, log: l}
}

// ValidEmail 最低限度检查（有 @ 且长度 ≥ 5），不做 RFC 校验
func ValidEmail(email string) bool {
	return strings.Contains(email, "@") && len(email) >= 5
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Birthdate == "" {
		return nil, domain.ErrMissingField
	}
	if utils.PasswordTooLong(in.Password) {
		return nil, fmt.Errorf("password: %w", domain.ErrInvalidField)
	}
	if !ValidEmail(in.Email) {
		return nil, domain.ErrInvalidEmail
	}
	birth, err := time.Parse(BirthdateLayout, in.Birthdate)
	if err != nil {
		return nil, fmt.Errorf("birthdate: %w", domain.ErrInvalidField)
	}

	// 先查一次给出明确错误；并发注册由唯一索引兜底
	_, err = s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateEmail
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Birthdate:    birth,
		Phone:        in.Phone,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Uint("user_id", u.ID))

	out := *u
	out.PasswordHash = ""
	return &out, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.FindByEmail(ctx, email)
}

func (s *UserService) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	return s.users.FindByToken(ctx, token)
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// ChangePassword 当前密码校验失败时不改动哈希
func (s *UserService) ChangePassword(ctx context.Context, u *domain.User, current, next string) error {
	if current == "" || next == "" {
		return domain.ErrMissingField
	}
	if !utils.CheckPassword(current, u.PasswordHash) {
		s.log.Warn("password change rejected", zap.Uint("user_id", u.ID))
		return domain.ErrInvalidCredentials
	}
	if utils.PasswordTooLong(next) {
		return fmt.Errorf("password: %w", domain.ErrInvalidField)
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// List 管理端分页
func (s *UserService) List(ctx context.Context, q string, offset, limit int) ([]domain.User, int64, error) {
	return s.users.List(ctx, q, offset, limit)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"carbuy-api/internal/domain"
	"carbuy-api/pkg/utils"
)

// SessionService 单会话模型：每个用户最多一个有效 token，登录即覆盖
type SessionService struct {
	users    domain.UserRepository
	newToken func() (string, error)
	log      *zap.Logger
}

func NewSessionService(users domain.UserRepository, l *zap.Logger) *SessionService {
	return &SessionService{users: users, newToken: utils.NewSessionToken, log: l}
}

func (s *SessionService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", domain.ErrMissingField
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}
	tok, err := s.newToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	// 覆盖旧 token：旧会话随即失效
	if err := s.users.SetToken(ctx, u.ID, &tok); err != nil {
		return "", err
	}
	s.log.Info("session opened", zap.Uint("user_id", u.ID), zap.Bool("replaced", u.LoggedIn()))
	return tok, nil
}

func (s *SessionService) Logout(ctx context.Context, token string) error {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.users.SetToken(ctx, u.ID, nil); err != nil {
		return err
	}
	s.log.Info("session closed", zap.Uint("user_id", u.ID))
	return nil
}

// Authenticate 所有需要登录的操作都经过这里
func (s *SessionService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	u, err := s.users.FindByToken(ctx, token)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ForceLogout 管理端按用户 id 清除会话
func (s *SessionService) ForceLogout(ctx context.Context, userID uint) error {
	if err := s.users.SetToken(ctx, userID, nil); err != nil {
		return err
	}
	s.log.Info("session revoked by admin", zap.Uint("user_id", userID))
	return nil
}

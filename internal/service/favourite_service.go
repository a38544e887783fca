package service

import (
	"context"

	"go.uber.org/zap"

	"carbuy-api/internal/domain"
)

// FavouriteService 用户收藏；重复添加是成功的空操作
type FavouriteService struct {
	favs domain.FavouriteRepository
	log  *zap.Logger
}

func NewFavouriteService(favs domain.FavouriteRepository, l *zap.Logger) *FavouriteService {
	return &FavouriteService{favs: favs, log: l}
}

func (s *FavouriteService) Add(ctx context.Context, u *domain.User, carID uint) (bool, error) {
	if carID == 0 {
		return false, domain.ErrMissingField
	}
	added, err := s.favs.Add(ctx, u.ID, carID)
	if err != nil {
		return false, err
	}
	if added {
		s.log.Debug("favourite added", zap.Uint("user_id", u.ID), zap.Uint("ad_id", carID))
	}
	return added, nil
}

func (s *FavouriteService) Remove(ctx context.Context, u *domain.User, carID uint) (bool, error) {
	if carID == 0 {
		return false, domain.ErrMissingField
	}
	return s.favs.Remove(ctx, u.ID, carID)
}

func (s *FavouriteService) ListForUser(ctx context.Context, u *domain.User) ([]domain.FavouriteView, error) {
	return s.favs.ListForUser(ctx, u.ID)
}

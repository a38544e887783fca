package service

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carbuy-api/internal/repo"
)

// Services 传输层依赖的全部服务
type Services struct {
	Users      *UserService
	Sessions   *SessionService
	Listings   *ListingService
	Favourites *FavouriteService
}

// New 基于 gorm 仓储装配
func New(db *gorm.DB, opts ListingOptions, l *zap.Logger) *Services {
	users := repo.NewUserRepo(db)
	return &Services{
		Users:      NewUserService(users, l),
		Sessions:   NewSessionService(users, l),
		Listings:   NewListingService(repo.NewListingRepo(db), opts, l),
		Favourites: NewFavouriteService(repo.NewFavouriteRepo(db), l),
	}
}

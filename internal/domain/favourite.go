package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Favourite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_fav_user_car" json:"user_id"`
	CarID     uint      `gorm:"not null;uniqueIndex:idx_fav_user_car;index" json:"car_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Car       *Listing  `gorm:"foreignKey:CarID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Favourite) TableName() string { return "favourite_cars" }

// FavouriteView 收藏列表行：带上广告字段和用户展示字段，客户端直接可用
type FavouriteView struct {
	ID          uint            `json:"id"`
	CarID       uint            `json:"car_id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        uint            `json:"year"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	UserID      uint            `json:"user_id"`
	UserName    string          `json:"user_name"`
	UserEmail   string          `json:"user_email"`
}

type FavouriteRepository interface {
	// Add 已存在返回 false, nil
	Add(ctx context.Context, userID, carID uint) (bool, error)
	Remove(ctx context.Context, userID, carID uint) (bool, error)
	ListForUser(ctx context.Context, userID uint) ([]FavouriteView, error)
}

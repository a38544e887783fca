package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carbuy-api/internal/domain"
)

type FavouriteRepo struct{ db *gorm.DB }

func NewFavouriteRepo(db *gorm.DB) *FavouriteRepo { return &FavouriteRepo{db: db} }

func (r *FavouriteRepo) Add(ctx context.Context, userID, carID uint) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findListing(tx, carID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&domain.Favourite{}).
			Where("user_id = ? AND car_id = ?", userID, carID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("check favourite: %w", err)
		}
		if n > 0 {
			return nil
		}
		if err := tx.Omit("User", "Car").Create(&domain.Favourite{UserID: userID, CarID: carID}).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	switch {
	case err == nil:
		return added, nil
	case errors.Is(err, domain.ErrListingNotFound):
		return false, err
	case isDupKey(err):
		// 并发插入撞唯一索引：视为已存在
		return false, nil
	default:
		return false, fmt.Errorf("add favourite: %w", err)
	}
}

func (r *FavouriteRepo) Remove(ctx context.Context, userID, carID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND car_id = ?", userID, carID).
		Delete(&domain.Favourite{})
	if res.Error != nil {
		return false, fmt.Errorf("remove favourite: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *FavouriteRepo) ListForUser(ctx context.Context, userID uint) ([]domain.FavouriteView, error) {
	out := make([]domain.FavouriteView, 0)
	err := r.db.WithContext(ctx).
		Table("favourite_cars AS f").
		Select(`f.id AS id, f.car_id AS car_id,
			c.brand AS brand, c.model AS model, c.year AS year, c.price AS price,
			c.description AS description, c.image_url AS image_url,
			u.id AS user_id, u.name AS user_name, u.email AS user_email`).
		Joins("JOIN cars AS c ON c.id = f.car_id").
		Joins("JOIN users AS u ON u.id = f.user_id").
		Where("f.user_id = ?", userID).
		Order("f.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list favourites: %w", err)
	}
	return out, nil
}

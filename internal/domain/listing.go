package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultImageURL 未提供图片时的占位图
const DefaultImageURL = "https://shorturl.at/YJLnZ"

type Listing struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Brand       string          `gorm:"size:100;not null;index" json:"brand"`
	Model       string          `gorm:"size:100;not null" json:"model"`
	Year        uint            `gorm:"not null" json:"year"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Description string          `gorm:"type:text;not null" json:"description"`
	ImageURL    string          `gorm:"size:200;not null" json:"image_url"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	User        *User           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (Listing) TableName() string { return "cars" }

// ListingPatch 局部更新：nil 字段保持不变
type ListingPatch struct {
	Brand       *string
	Model       *string
	Year        *uint
	Price       *decimal.Decimal
	Description *string
	ImageURL    *string
}

// Empty 没有任何字段需要更新
func (p ListingPatch) Empty() bool {
	return p.Brand == nil && p.Model == nil && p.Year == nil &&
		p.Price == nil && p.Description == nil && p.ImageURL == nil
}

// Columns 转成 gorm Updates 用的列映射
func (p ListingPatch) Columns() map[string]any {
	m := map[string]any{}
	if p.Brand != nil {
		m["brand"] = *p.Brand
	}
	if p.Model != nil {
		m["model"] = *p.Model
	}
	if p.Year != nil {
		m["year"] = *p.Year
	}
	if p.Price != nil {
		m["price"] = *p.Price
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.ImageURL != nil {
		m["image_url"] = *p.ImageURL
	}
	return m
}

// ListingWithOwner 详情页：广告 + 卖家联系方式
type ListingWithOwner struct {
	Listing
	OwnerName  string `json:"owner_name"`
	OwnerPhone string `json:"owner_phone"`
}

type ListingRepository interface {
	Create(ctx context.Context, l *Listing) error
	FindByID(ctx context.Context, id uint) (*Listing, error)
	FindWithOwner(ctx context.Context, id uint) (*ListingWithOwner, error)
	// Search 任一 term 命中任一列即返回（大小写不敏感子串）
	Search(ctx context.Context, columns []string, terms []string) ([]Listing, error)
	ListAll(ctx context.Context) ([]Listing, error)
	List(ctx context.Context, q string, offset, limit int) ([]Listing, int64, error)
	Update(ctx context.Context, id uint, patch ListingPatch) (*Listing, error)
	// Delete 同一事务内级联删除收藏
	Delete(ctx context.Context, id uint) error
}

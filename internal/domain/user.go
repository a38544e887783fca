package domain

import (
	"context"
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:200;not null" json:"email"`
	Name         string    `gorm:"size:120;not null" json:"name"`
	PasswordHash string    `gorm:"column:encrypted_password;size:120;not null" json:"-"`
	Birthdate    time.Time `gorm:"type:date" json:"birthdate"`
	Phone        string    `gorm:"size:15" json:"phone"`
	Token        *string   `gorm:"uniqueIndex;size:64" json:"-"` // nil = 未登录
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// LoggedIn 是否持有有效会话
func (u *User) LoggedIn() bool { return u.Token != nil && *u.Token != "" }

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByToken(ctx context.Context, token string) (*User, error)
	List(ctx context.Context, q string, offset, limit int) ([]User, int64, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	// SetToken token 为 nil 表示注销
	SetToken(ctx context.Context, id uint, token *string) error
}

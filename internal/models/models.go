package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for string-keyed models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents a journaling account. Integer IDs are part of the public
// API contract and are kept distinct from the ULID-keyed models.
type User struct {
	ID              int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name            string     `json:"name"`
	Username        string     `json:"username" gorm:"uniqueIndex;not null"`
	Email           string     `json:"email" gorm:"uniqueIndex;not null"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	PasswordHash    string     `json:"-" gorm:"not null"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// AccessToken is an issued bearer credential. Only the SHA-256 hash of the
// full token is stored; the plain value leaves the server exactly once, in
// the login/signup response.
type AccessToken struct {
	BaseModel
	UserID     int64      `json:"user_id" gorm:"not null;index"`
	TokenHash  string     `json:"-" gorm:"uniqueIndex;not null;type:varchar(64)"`
	LastUsedAt *time.Time `json:"last_used_at"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// PasswordReset tracks one reset request so emailed reset tokens are
// single-use.
type PasswordReset struct {
	BaseModel
	Email  string     `json:"email" gorm:"not null;index"`
	UsedAt *time.Time `json:"used_at"`
}

// JournalEntry is one dated entry. Body holds the editor's HTML output.
type JournalEntry struct {
	BaseModel
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Body      string    `json:"body" gorm:"type:text"`
	Mood      string    `json:"mood"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &AccessToken{}, &PasswordReset{}, &JournalEntry{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

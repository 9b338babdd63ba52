package model

import "time"

// User represents an artist or label account.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`            // Not exposed in API responses
	DisplayName  string    `json:"displayName,omitempty" gorm:"size:255"` // Account name given at sign-up
	ArtistName   string    `json:"artistName,omitempty" gorm:"size:255"`  // Profile name used as default artist
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

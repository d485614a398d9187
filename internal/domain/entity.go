package domain

import (
	"time"
)

// CoinInfo is the locally cached metadata of an asset (icon, favorite mirror).
type CoinInfo struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Symbol       string    `json:"symbol" gorm:"index"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url"`
	IconPath     string    `json:"icon_path"`
	IsFavorite   bool      `json:"is_favorite" gorm:"index"` // Mirror of the watchlist entry
	LastSyncedAt time.Time `json:"last_synced_at"`           // Last icon sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AppConfig represents user-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

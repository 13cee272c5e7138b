package entity

import (
	"time"
)

// InvalidToken хранит момент, до которого все токены пользователя считаются отозванными
type InvalidToken struct {
	UserID           uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	InvalidationTime time.Time `gorm:"not null" json:"invalidation_time"`
}

// TableName задает имя таблицы для GORM
func (InvalidToken) TableName() string {
	return "invalid_tokens"
}

// IsTokenInvalidAt проверяет, был ли токен выпущен до момента отзыва
func (it *InvalidToken) IsTokenInvalidAt(issuedAt time.Time) bool {
	return issuedAt.Before(it.InvalidationTime)
}

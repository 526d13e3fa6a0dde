package models

import (
	"time"
)

type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`

	// Relationships
	Rooms   []Room   `json:"-" gorm:"many2many:room_players;"`
	Answers []Answer `json:"-" gorm:"foreignKey:PlayerID"`
}

package models

import (
	"time"
)

type Room struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RoomCode   string    `json:"room_code" gorm:"uniqueIndex;not null"`
	Name       string    `json:"name" gorm:"index;not null"`
	MaxPlayers int       `json:"max_players" gorm:"not null;default:8"`
	OwnerID    uint      `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	Owner   User   `json:"-"`
	Players []User `json:"players,omitempty" gorm:"many2many:room_players;"`
	Games   []Game `json:"games,omitempty" gorm:"foreignKey:RoomID"`
}

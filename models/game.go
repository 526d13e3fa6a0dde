package models

import (
	"time"
)

type Game struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	RoomID            uint      `json:"room_id" gorm:"not null"`
	Theme             string    `json:"theme" gorm:"not null"`
	CurrentQuestionID *uint     `json:"current_question_id"`
	CreatedAt         time.Time `json:"created_at"`

	// Relationships
	Room      Room       `json:"-"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:GameID"`
}

package models

type PlayerGameScore struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	PlayerID uint `json:"player_id" gorm:"index;not null"`
	GameID   uint `json:"game_id" gorm:"index;not null"`
	Score    int  `json:"score" gorm:"not null;default:0"`

	// Relationships
	Player User `json:"-"`
}

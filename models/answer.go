package models

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null"`
	PlayerID   *uint  `json:"player_id"` // nil for the injected correct answer
	AnswerText string `json:"answer_text" gorm:"type:text;not null"`

	// Relationships
	Player *User  `json:"-"`
	Votes  []Vote `json:"-" gorm:"foreignKey:AnswerID"`
}

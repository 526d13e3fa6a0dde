package models

type Question struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	GameID          uint   `json:"game_id" gorm:"not null"`
	QuestionText    string `json:"question_text" gorm:"type:text;not null"`
	CorrectAnswerID *uint  `json:"correct_answer_id"`
	// The true answer is never sent with the question; it only reaches
	// clients as one of the shuffled voting options.
	CorrectAnswerText string `json:"-" gorm:"type:text;not null"`

	// Relationships
	Answers []Answer `json:"-" gorm:"foreignKey:QuestionID"`
}

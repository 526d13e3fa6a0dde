package models

type Vote struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	AnswerID uint `json:"answer_id" gorm:"not null"`
	VoterID  uint `json:"voter_id" gorm:"not null"`

	// Relationships
	Answer Answer `json:"-"`
	Voter  User   `json:"-"`
}

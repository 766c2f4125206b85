package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// User rows hold the durable profile; session history itself lives in
// Mongo keyed by owner_id. Credentials and token issuance are handled
// by an external identity provider.
type User struct {
	ID    string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email string `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	Name  string `gorm:"column:name;type:text" json:"name"`

	CurrentPosition   string         `gorm:"column:current_position;type:text" json:"currentPosition"`
	YearsOfExperience int            `gorm:"column:years_of_experience;type:integer" json:"yearsOfExperience"`
	Industry          string         `gorm:"column:industry;type:text" json:"industry"`
	Skills            pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`

	// JSONB: {defaultInterviewType, defaultSkillLevel, notificationsEnabled}
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`

	InterviewCount int       `gorm:"column:interview_count;type:integer" json:"interviewCount"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
	LastActive     time.Time `gorm:"column:last_active;type:timestamptz" json:"lastActive"`
}

func (User) TableName() string { return "users" }

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Resume holds extracted text plus generator-produced analysis. File
// storage and text extraction happen upstream; only the reference and
// the text reach this service.
type Resume struct {
	ID     string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"column:user_id;type:uuid;index" json:"userId"`

	Title            string `gorm:"column:title;type:text" json:"title"`
	OriginalFilename string `gorm:"column:original_filename;type:text" json:"originalFilename"`
	FileType         string `gorm:"column:file_type;type:text" json:"fileType"` // pdf|docx|txt
	Content          string `gorm:"column:content;type:text" json:"content"`

	// JSONB: {summary, skills, strengths, weaknesses, suggestedPositions,
	// personalizedQuestions} as produced by the generator.
	Analysis datatypes.JSON `gorm:"column:analysis;type:jsonb" json:"analysis"`

	IsDefault      bool       `gorm:"column:is_default" json:"isDefault"`
	UploadedAt     time.Time  `gorm:"column:uploaded_at;type:timestamptz" json:"uploadedAt"`
	LastAnalyzedAt *time.Time `gorm:"column:last_analyzed_at;type:timestamptz" json:"lastAnalyzedAt,omitempty"`
}

func (Resume) TableName() string { return "resumes" }

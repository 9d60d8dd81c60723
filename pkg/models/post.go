package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

// Post is a single media-attached feed entry. URL and FileName are assigned by
// the media store at creation and never mutated afterwards.
type Post struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Caption   string    `gorm:"default:''" json:"caption"`
	URL       string    `gorm:"not null" json:"url"`
	FileType  FileType  `gorm:"type:varchar(10);not null" json:"file_type"`
	FileName  string    `gorm:"not null" json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// FileTypeFromContentType classifies an upload by its declared content type.
// Best-effort only, no content inspection; anything that is not video/* falls
// back to image.
func FileTypeFromContentType(contentType string) FileType {
	if strings.HasPrefix(contentType, "video/") {
		return FileTypeVideo
	}
	return FileTypeImage
}

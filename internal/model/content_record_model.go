package model

import (
	"gorm.io/datatypes"
)

// ContentRecord is the database row behind an archived content entry.
type ContentRecord struct {
	Id           string         `gorm:"primaryKey;size:64"`
	Type         string         `gorm:"size:32;index"`
	Data         datatypes.JSON `gorm:"type:jsonb"`
	LastModified int64
	Size         int
}

func (ContentRecord) TableName() string {
	return "content_records"
}

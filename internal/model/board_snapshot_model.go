package model

import (
	"gorm.io/datatypes"
)

// BoardSnapshot stores the latest serialized widget document per board and
// document id, so an instance can rejoin a board after restart.
type BoardSnapshot struct {
	BoardId      string         `gorm:"primaryKey;type:uuid"`
	DocumentId   string         `gorm:"primaryKey;size:128"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`
	LastModified int64
}

func (BoardSnapshot) TableName() string {
	return "board_snapshots"
}

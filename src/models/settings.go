package models

import (
	"abm/src/types"

	"github.com/google/uuid"
)

type Setting struct {
	ID           uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	SettingKey   string    `gorm:"uniqueIndex:name" json:"setting_key"`
	SettingValue string    `json:"setting_value"`
	Group        string    `gorm:"uniqueIndex:name" json:"group,omitempty"`

	types.Timestamps
}

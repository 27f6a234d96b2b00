package model

import (
	"time"

	"ai-assistant-studio-be/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Assistant struct {
	Id             string                                    `gorm:"type:varchar(32);primaryKey"`
	Name           string                                    `gorm:"type:varchar(80);not null"`
	Language       string                                    `gorm:"type:varchar(20);not null"`
	Tone           string                                    `gorm:"type:varchar(20);not null"`
	ResponseLength datatypes.JSONType[entity.ResponseLength] `gorm:"type:jsonb;not null"`
	AudioEnabled   bool                                      `gorm:"default:false"`
	Rules          string                                    `gorm:"type:text"`
	CreatedAt      time.Time                                 `gorm:"autoCreateTime"`
	UpdatedAt      time.Time                                 `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt                            `gorm:"index"`
}

func (Assistant) TableName() string {
	return "assistants"
}

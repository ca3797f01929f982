package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	IsDeleted bool           `gorm:"not null;default:false"`
	CreatedAt time.Time      `gorm:"not null;default:now()"`
	UpdatedAt time.Time      `gorm:"null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// BeforeDelete keeps the IsDeleted flag in sync on soft deletes.
func (b *BaseModel) BeforeDelete(tx *gorm.DB) error {
	if !tx.Statement.Unscoped {
		return tx.Update("is_deleted", true).Error
	}
	return nil
}

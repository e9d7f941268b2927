package models

import (
	"time"

	"gorm.io/gorm"
)

type Seller struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ShopName        string         `gorm:"type:varchar(100);not null" json:"shop_name"`
	OwnerName       string         `gorm:"type:varchar(100)" json:"owner_name"`
	Email           string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Phone           string         `gorm:"type:varchar(20)" json:"phone"`
	BusinessAddress string         `gorm:"type:text" json:"business_address"`
	GSTNumber       string         `gorm:"type:varchar(30)" json:"gst_number"`
	PANNumber       string         `gorm:"type:varchar(30)" json:"pan_number"`
	Verified        bool           `gorm:"default:false" json:"verified"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Seller) TableName() string {
	return "sellers"
}

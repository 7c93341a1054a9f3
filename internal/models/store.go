package models

import "time"

// Store is the selling point an invoice was issued from.
type Store struct {
	Code       string    `gorm:"primaryKey;size:64" json:"code"`
	Enterprise string    `gorm:"size:255" json:"enterprise"`
	Address    string    `gorm:"size:500" json:"address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomerGroup groups customers under a shared code.
type CustomerGroup struct {
	Code        string     `gorm:"primaryKey;size:64" json:"code"`
	Description string     `gorm:"size:500" json:"description,omitempty"`
	Customers   []Customer `gorm:"foreignKey:GroupCode" json:"customers,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Customer belongs to exactly one CustomerGroup.
type Customer struct {
	Code      string    `gorm:"primaryKey;size:64" json:"code"`
	GroupCode string    `gorm:"size:64;index;not null" json:"group_code"`
	CreatedAt time.Time `json:"created_at"`
}

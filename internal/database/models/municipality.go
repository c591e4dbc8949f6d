package models

import "time"

// Municipality maps a 7-digit IBGE municipality code to its seat
// coordinates. The table is small (about 5,600 rows for Brazil) and is
// loaded whole into the in-memory resolver at startup.
type Municipality struct {
	Code      string  `gorm:"type:char(7);primary_key" json:"code"`
	Name      string  `gorm:"not null" json:"name"`
	State     string  `gorm:"type:char(2);not null;index" json:"state"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName overrides the table name used by GORM.
func (Municipality) TableName() string {
	return "municipalities"
}

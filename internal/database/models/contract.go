package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Contract is a historical procurement contract awarded to a supplier.
// The supplier identifier is a normalized 14-digit CNPJ; the location code
// is the 7-digit IBGE municipality code of the contracting body.
type Contract struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SupplierID string    `gorm:"type:char(14);not null;index" json:"supplier_id"`

	// Notice identification
	NoticeNumber string `gorm:"not null" json:"notice_number"`
	BuyerOrg     string `gorm:"not null" json:"buyer_org"`
	ObjectText   string `gorm:"type:text;not null" json:"object_text"`

	// Location of the contracting body
	LocationCode string `gorm:"type:char(7);index" json:"location_code,omitempty"`

	// Award details
	AwardedValue float64    `json:"awarded_value"`
	SignedAt     *time.Time `json:"signed_at,omitempty"`
	Source       string     `gorm:"not null;default:'pncp'" json:"source"`
	SourceURL    string     `json:"source_url,omitempty"`

	// Embedding of the object text; null until the embedding worker has
	// processed the row.
	Embedding  *pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	EmbeddedAt *time.Time       `json:"embedded_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName overrides the table name used by GORM.
func (Contract) TableName() string {
	return "contracts"
}

// HasEmbedding reports whether the contract can contribute to a profile.
func (c *Contract) HasEmbedding() bool {
	return c.Embedding != nil
}

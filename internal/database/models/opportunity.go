package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Opportunity is an open procurement notice accepting proposals. Rows are
// ingested continuously; the ANN index over the embedding column serves the
// similarity search.
type Opportunity struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`

	// Notice identification
	NoticeNumber string `gorm:"not null;uniqueIndex:idx_opportunities_notice_source" json:"notice_number"`
	BuyerOrg     string `gorm:"not null" json:"buyer_org"`
	ObjectText   string `gorm:"type:text;not null" json:"object_text"`

	// Location of the contracting body
	LocationCode string `gorm:"type:char(7);index" json:"location_code,omitempty"`

	// Tender details
	EstimatedValue float64    `json:"estimated_value"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ClosesAt       *time.Time `gorm:"index" json:"closes_at,omitempty"`
	Source         string     `gorm:"not null;default:'pncp';uniqueIndex:idx_opportunities_notice_source" json:"source"`
	SourceURL      string     `json:"source_url,omitempty"`

	Embedding  *pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	EmbeddedAt *time.Time       `json:"embedded_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName overrides the table name used by GORM.
func (Opportunity) TableName() string {
	return "opportunities"
}

// IsOpen reports whether the notice still accepts proposals at the given
// instant. Notices without a closing date are treated as open.
func (o *Opportunity) IsOpen(now time.Time) bool {
	return o.ClosesAt == nil || o.ClosesAt.After(now)
}

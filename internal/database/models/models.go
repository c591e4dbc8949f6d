// Package models contains the database models for the procurement
// intelligence platform: historical contracts, open opportunity notices,
// and the municipality coordinate table backing geographic scoring.
package models

// EmbeddingDimensions is the dimensionality of every stored embedding.
// Contracts and opportunities are embedded with the same model, so a single
// constant covers both tables.
const EmbeddingDimensions = 1536

// Ingestion source identifiers.
const (
	SourceNationalPortal = "pncp"
	SourceStateGazette   = "state_gazette"
	SourceManual         = "manual"
)

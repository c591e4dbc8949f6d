package database

import (
	"context"
	"fmt"

	"github.com/licitaware/procura/internal/database/models"
	"github.com/licitaware/procura/pkg/geo"
	"github.com/licitaware/procura/pkg/match"
)

// ContractStore reads a supplier's contract history for profiling.
type ContractStore struct {
	conn *Connection
}

// NewContractStore creates a contract store over the connection.
func NewContractStore(conn *Connection) *ContractStore {
	return &ContractStore{conn: conn}
}

// SampleEmbedded returns up to limit embedded contracts for the supplier in
// random order. Random sampling keeps the profile unbiased when a supplier
// has far more history than the sample size.
func (s *ContractStore) SampleEmbedded(ctx context.Context, supplierID string, limit int) ([]match.ContractSample, error) {
	var rows []models.Contract
	err := s.conn.DB().WithContext(ctx).
		Select("id", "embedding", "location_code").
		Where("supplier_id = ? AND embedding IS NOT NULL", supplierID).
		Order("random()").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sample contracts for supplier %s: %w", supplierID, err)
	}

	samples := make([]match.ContractSample, 0, len(rows))
	for _, row := range rows {
		if row.Embedding == nil {
			continue
		}
		samples = append(samples, match.ContractSample{
			ID:           row.ID,
			Embedding:    row.Embedding.Slice(),
			LocationCode: row.LocationCode,
		})
	}
	return samples, nil
}

// DistinctLocationCodes returns every distinct non-empty location code
// across the supplier's full contract history, embedded or not.
func (s *ContractStore) DistinctLocationCodes(ctx context.Context, supplierID string) ([]string, error) {
	var codes []string
	err := s.conn.DB().WithContext(ctx).
		Model(&models.Contract{}).
		Distinct("location_code").
		Where("supplier_id = ? AND location_code <> ''", supplierID).
		Pluck("location_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load location codes for supplier %s: %w", supplierID, err)
	}
	return codes, nil
}

// MunicipalityStore loads the municipality coordinate table. It implements
// the coordinate source consumed by the geographic resolver.
type MunicipalityStore struct {
	conn *Connection
}

// NewMunicipalityStore creates a municipality store over the connection.
func NewMunicipalityStore(conn *Connection) *MunicipalityStore {
	return &MunicipalityStore{conn: conn}
}

// LoadCoordinates reads the whole municipality table into a code-to-point
// map. The table is small enough that a full load is cheap.
func (s *MunicipalityStore) LoadCoordinates(ctx context.Context) (map[string]geo.Point, error) {
	var rows []models.Municipality
	if err := s.conn.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load municipalities: %w", err)
	}

	points := make(map[string]geo.Point, len(rows))
	for _, row := range rows {
		points[row.Code] = geo.Point{Latitude: row.Latitude, Longitude: row.Longitude}
	}
	return points, nil
}

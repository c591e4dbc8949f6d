package match

import (
	"context"
	"fmt"
)

// Profile is a supplier's semantic fingerprint: the mean of the sampled
// contract embeddings plus the location codes seen in the sample.
type Profile struct {
	Vector        []float32
	LocationCodes []string
	SampledCount  int
	SkippedCount  int
}

// ProfileBuilder reduces a bounded random sample of a supplier's historical
// contracts to one representative vector.
type ProfileBuilder struct {
	contracts ContractStore
}

// NewProfileBuilder creates a profile builder over the given contract store.
func NewProfileBuilder(contracts ContractStore) *ProfileBuilder {
	return &ProfileBuilder{contracts: contracts}
}

// Build reads up to sampleSize embedded contracts and returns their mean
// vector together with the multiset of location codes encountered. A
// supplier with zero embedded contracts yields a nil profile, which is a
// valid terminal state, not an error.
func (b *ProfileBuilder) Build(ctx context.Context, supplierID string, sampleSize int) (*Profile, error) {
	samples, err := b.contracts.SampleEmbedded(ctx, supplierID, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample contracts for %s: %w", supplierID, err)
	}

	if len(samples) == 0 {
		return nil, nil
	}

	dims := len(samples[0].Embedding)
	sums := make([]float64, dims)
	locations := make([]string, 0, len(samples))
	used := 0
	skipped := 0

	for _, s := range samples {
		if len(s.Embedding) != dims {
			// Inconsistent dimensions indicate a partial re-embedding run
			// upstream; those contracts are left out of the mean.
			skipped++
			continue
		}
		for i, v := range s.Embedding {
			sums[i] += float64(v)
		}
		used++
		if s.LocationCode != "" {
			locations = append(locations, s.LocationCode)
		}
	}

	if used == 0 {
		return nil, nil
	}

	mean := make([]float32, dims)
	for i, sum := range sums {
		mean[i] = float32(sum / float64(used))
	}

	return &Profile{
		Vector:        mean,
		LocationCodes: locations,
		SampledCount:  used,
		SkippedCount:  skipped,
	}, nil
}

package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/licitaware/procura/pkg/geo"
)

// Config contains the per-search configuration. All fields are optional;
// zero or nil values are replaced by defaults before the search runs.
// Unknown keys are rejected at the HTTP boundary when decoding.
type Config struct {
	// ResultCount is the number of ranked results returned to the caller.
	ResultCount int `json:"result_count" yaml:"result_count"`
	// CandidatePoolSize is the number of candidates retrieved for re-ranking.
	CandidatePoolSize int `json:"candidate_pool_size" yaml:"candidate_pool_size"`
	// TimeBudgetMS bounds each retrieval query (primary and fallback alike).
	TimeBudgetMS int `json:"time_budget_ms" yaml:"time_budget_ms"`
	// FallbackSamplePct is the corpus percentage scanned by the fallback query.
	FallbackSamplePct float64 `json:"fallback_sample_pct" yaml:"fallback_sample_pct"`
	// ProfilingSampleSize bounds the contract sample used for the profile.
	ProfilingSampleSize int `json:"profiling_sample_size" yaml:"profiling_sample_size"`

	GeoEnabled    *bool    `json:"geo_enabled,omitempty" yaml:"geo_enabled"`
	GeoWeightBase *float64 `json:"geo_weight_base,omitempty" yaml:"geo_weight_base"`
	GeoTauKm      float64  `json:"geo_tau_km" yaml:"geo_tau_km"`

	AdaptiveEnabled *bool   `json:"adaptive_enabled,omitempty" yaml:"adaptive_enabled"`
	TauHQKm         float64 `json:"tau_hq_km" yaml:"tau_hq_km"`
	TauDispKm       float64 `json:"tau_disp_km" yaml:"tau_disp_km"`

	FilterExpired *bool `json:"filter_expired,omitempty" yaml:"filter_expired"`
}

// DefaultConfig returns the configuration used when the caller supplies
// nothing.
func DefaultConfig() Config {
	return Config{
		ResultCount:         20,
		CandidatePoolSize:   200,
		TimeBudgetMS:        10000,
		FallbackSamplePct:   5,
		ProfilingSampleSize: 50,
		GeoEnabled:          boolPtr(true),
		GeoWeightBase:       floatPtr(0.3),
		GeoTauKm:            500,
		AdaptiveEnabled:     boolPtr(true),
		TauHQKm:             1000,
		TauDispKm:           1500,
		FilterExpired:       boolPtr(true),
	}
}

// WithDefaults returns a copy of the configuration with every unset field
// replaced by its default.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.ResultCount == 0 {
		c.ResultCount = defaults.ResultCount
	}
	if c.CandidatePoolSize == 0 {
		c.CandidatePoolSize = defaults.CandidatePoolSize
	}
	if c.TimeBudgetMS == 0 {
		c.TimeBudgetMS = defaults.TimeBudgetMS
	}
	if c.FallbackSamplePct == 0 {
		c.FallbackSamplePct = defaults.FallbackSamplePct
	}
	if c.ProfilingSampleSize == 0 {
		c.ProfilingSampleSize = defaults.ProfilingSampleSize
	}
	if c.GeoEnabled == nil {
		c.GeoEnabled = defaults.GeoEnabled
	}
	if c.GeoWeightBase == nil {
		c.GeoWeightBase = defaults.GeoWeightBase
	}
	if c.GeoTauKm == 0 {
		c.GeoTauKm = defaults.GeoTauKm
	}
	if c.AdaptiveEnabled == nil {
		c.AdaptiveEnabled = defaults.AdaptiveEnabled
	}
	if c.TauHQKm == 0 {
		c.TauHQKm = defaults.TauHQKm
	}
	if c.TauDispKm == 0 {
		c.TauDispKm = defaults.TauDispKm
	}
	if c.FilterExpired == nil {
		c.FilterExpired = defaults.FilterExpired
	}

	return c
}

// Validate checks the configuration for out-of-range values. It expects
// defaults to have been applied already.
func (c Config) Validate() error {
	if c.ResultCount < 1 {
		return fmt.Errorf("result_count must be positive, got %d", c.ResultCount)
	}
	if c.CandidatePoolSize < c.ResultCount {
		return fmt.Errorf("candidate_pool_size (%d) must be at least result_count (%d)", c.CandidatePoolSize, c.ResultCount)
	}
	if c.TimeBudgetMS < 1 {
		return fmt.Errorf("time_budget_ms must be positive, got %d", c.TimeBudgetMS)
	}
	if c.FallbackSamplePct <= 0 || c.FallbackSamplePct > 100 {
		return fmt.Errorf("fallback_sample_pct must be in (0, 100], got %g", c.FallbackSamplePct)
	}
	if c.ProfilingSampleSize < 1 {
		return fmt.Errorf("profiling_sample_size must be positive, got %d", c.ProfilingSampleSize)
	}
	if w := *c.GeoWeightBase; w < 0 || w > 1 {
		return fmt.Errorf("geo_weight_base must be in [0, 1], got %g", w)
	}
	if c.GeoTauKm <= 0 {
		return fmt.Errorf("geo_tau_km must be positive, got %g", c.GeoTauKm)
	}
	if c.TauHQKm <= 0 {
		return fmt.Errorf("tau_hq_km must be positive, got %g", c.TauHQKm)
	}
	if c.TauDispKm <= 0 {
		return fmt.Errorf("tau_disp_km must be positive, got %g", c.TauDispKm)
	}
	return nil
}

// TimeBudget returns the retrieval time budget as a duration.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetMS) * time.Millisecond
}

// ContractSample is one historical contract read for profiling.
type ContractSample struct {
	ID           uuid.UUID `json:"id"`
	Embedding    []float32 `json:"-"`
	LocationCode string    `json:"location_code,omitempty"`
}

// ContractStore reads a supplier's historical contracts. The bounded random
// sample and the full distinct location set are two different scopes and
// must not be conflated.
type ContractStore interface {
	// SampleEmbedded returns up to limit contracts that carry an embedding,
	// in unspecified (random) order.
	SampleEmbedded(ctx context.Context, supplierID string, limit int) ([]ContractSample, error)

	// DistinctLocationCodes returns every distinct location code across all
	// of the supplier's contracts, sampled or not.
	DistinctLocationCodes(ctx context.Context, supplierID string) ([]string, error)
}

// Candidate is an open opportunity returned by a retrieval pass, ordered by
// ascending cosine distance to the query vector.
type Candidate struct {
	ID             uuid.UUID  `json:"id"`
	NoticeNumber   string     `json:"notice_number"`
	BuyerOrg       string     `json:"buyer_org"`
	ObjectText     string     `json:"object_text"`
	LocationCode   string     `json:"location_code,omitempty"`
	EstimatedValue float64    `json:"estimated_value"`
	ClosesAt       *time.Time `json:"closes_at,omitempty"`
	SourceURL      string     `json:"source_url,omitempty"`
	Distance       float64    `json:"distance"`
}

// RankedOpportunity is a candidate with its similarity and score fields.
type RankedOpportunity struct {
	Candidate

	SemanticSimilarity float64  `json:"semantic_similarity"`
	GeoDistanceKm      *float64 `json:"geo_distance_km,omitempty"`
	GeoSimilarity      float64  `json:"geo_similarity"`
	FinalScore         float64  `json:"final_score"`
	Rank               int      `json:"rank"`
}

// SupplierInfo is the optional descriptive metadata from the external
// company registry.
type SupplierInfo struct {
	SupplierID        string   `json:"supplier_id"`
	Name              string   `json:"name,omitempty"`
	TradeName         string   `json:"trade_name,omitempty"`
	SectorCodes       []string `json:"sector_codes,omitempty"`
	HeadquartersCode  string   `json:"headquarters_code,omitempty"`
}

// SupplierRegistry looks up supplier metadata by tax identifier. Its
// unavailability never fails a search.
type SupplierRegistry interface {
	Lookup(ctx context.Context, supplierID string) (*SupplierInfo, error)
}

// GeoResolver resolves location codes to coordinates.
type GeoResolver interface {
	Resolve(code string) (geo.Point, bool)
	ResolveAll(codes []string) ([]geo.Point, int)
}

// Stats is the per-search diagnostic record.
type Stats struct {
	SupplierID string `json:"supplier_id"`

	// Sample sizes and counts
	SampledContracts          int `json:"sampled_contracts"`
	ProfileDimensions         int `json:"profile_dimensions"`
	CandidatesRetrieved       int `json:"candidates_retrieved"`
	CandidatesWithoutLocation int `json:"candidates_without_location"`
	DistinctLocationCodes     int `json:"distinct_location_codes"`
	ResolvedLocations         int `json:"resolved_locations"`

	// Retrieval path
	RetrievalDegraded bool `json:"retrieval_degraded"`

	// Geography
	Centroid           *geo.Point `json:"centroid,omitempty"`
	Median             *geo.Point `json:"median,omitempty"`
	HQToMedianKm       *float64   `json:"hq_to_median_km,omitempty"`
	DispersionKm       *float64   `json:"dispersion_km,omitempty"`
	WeightFactor       float64    `json:"weight_factor"`
	GeoWeightEffective float64    `json:"geo_weight_effective"`

	// Timings, milliseconds
	ProfileTimeMS   float64 `json:"profile_time_ms"`
	RetrievalTimeMS float64 `json:"retrieval_time_ms"`
	GeoTimeMS       float64 `json:"geo_time_ms"`
	RankTimeMS      float64 `json:"rank_time_ms"`
	TotalTimeMS     float64 `json:"total_time_ms"`

	// Diagnostics explains everything that was skipped and why.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Outcome is the result of one search invocation.
type Outcome struct {
	Results  []RankedOpportunity `json:"results"`
	Stats    Stats               `json:"stats"`
	Supplier *SupplierInfo       `json:"supplier,omitempty"`
}

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

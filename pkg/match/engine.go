package match

import (
	"context"
	"fmt"
	"time"

	"github.com/licitaware/procura/pkg/geo"
	"github.com/licitaware/procura/pkg/logger"
)

// Engine composes the profile builder, candidate retriever, geographic
// enrichment and ranker into the end-to-end search operation. The engine
// holds no per-search state, so concurrent searches from independent
// callers are safe.
type Engine struct {
	profiles  *ProfileBuilder
	contracts ContractStore
	retriever CandidateRetriever
	resolver  GeoResolver
	registry  SupplierRegistry
	log       *logger.Logger
}

// EngineOptions holds the optional engine collaborators.
type EngineOptions struct {
	// Registry is the external company-registry client; nil disables the
	// metadata lookup entirely.
	Registry SupplierRegistry
	Logger   *logger.Logger
}

// NewEngine creates a search engine over the given stores.
func NewEngine(contracts ContractStore, retriever CandidateRetriever, resolver GeoResolver, opts *EngineOptions) *Engine {
	if opts == nil {
		opts = &EngineOptions{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	return &Engine{
		profiles:  NewProfileBuilder(contracts),
		contracts: contracts,
		retriever: retriever,
		resolver:  resolver,
		registry:  opts.Registry,
		log:       log,
	}
}

// Search runs the full pipeline for one supplier: profile, retrieval,
// geographic enrichment, adaptive weighting, and ranking. Only a malformed
// supplier identifier or a fatal retrieval failure produce an error; every
// other sub-failure degrades gracefully and is reported in the outcome's
// diagnostics.
func (e *Engine) Search(ctx context.Context, supplierID string, cfg Config) (*Outcome, error) {
	totalStart := time.Now()

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &Error{
			Type:    ErrTypeValidation,
			Message: fmt.Sprintf("invalid search config: %v", err),
			Code:    "INVALID_SEARCH_CONFIG",
		}
	}

	normalized, err := NormalizeSupplierID(supplierID)
	if err != nil {
		return nil, err
	}

	log := e.log.WithField("supplier_id", normalized)
	outcome := &Outcome{Stats: Stats{SupplierID: normalized}}
	stats := &outcome.Stats

	// Semantic profile
	profileStart := time.Now()
	profile, err := e.profiles.Build(ctx, normalized, cfg.ProfilingSampleSize)
	stats.ProfileTimeMS = msSince(profileStart)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrRetrievalFailed)
	}
	if profile == nil {
		stats.TotalTimeMS = msSince(totalStart)
		stats.Diagnostics = append(stats.Diagnostics,
			"no semantic profile could be built: supplier has no contracts with embeddings")
		log.Info("search finished without profile")
		return outcome, nil
	}

	stats.SampledContracts = profile.SampledCount
	stats.ProfileDimensions = len(profile.Vector)
	if profile.SkippedCount > 0 {
		stats.Diagnostics = append(stats.Diagnostics,
			fmt.Sprintf("%d sampled contracts skipped for inconsistent embedding dimensions", profile.SkippedCount))
	}

	// Candidate retrieval
	retrievalStart := time.Now()
	retrieval, err := e.retriever.Retrieve(ctx, profile.Vector, RetrieveOptions{
		Limit:             cfg.CandidatePoolSize,
		Budget:            cfg.TimeBudget(),
		FallbackSamplePct: cfg.FallbackSamplePct,
		FilterExpired:     *cfg.FilterExpired,
	})
	stats.RetrievalTimeMS = msSince(retrievalStart)
	if err != nil {
		return nil, err
	}

	stats.CandidatesRetrieved = len(retrieval.Candidates)
	stats.RetrievalDegraded = retrieval.Degraded
	if retrieval.Degraded {
		stats.Diagnostics = append(stats.Diagnostics,
			fmt.Sprintf("primary retrieval timed out; results come from a %.1f%% corpus sample", cfg.FallbackSamplePct))
	}

	// Optional registry metadata; unavailability is never fatal.
	outcome.Supplier = e.lookupSupplier(ctx, normalized, stats)

	results := make([]RankedOpportunity, len(retrieval.Candidates))
	for i, c := range retrieval.Candidates {
		results[i] = RankedOpportunity{
			Candidate:          c,
			SemanticSimilarity: 1 - c.Distance,
		}
	}

	// Geographic enrichment and adaptive weighting
	geoStart := time.Now()
	geoEnabled := *cfg.GeoEnabled
	weightEff := 0.0
	if geoEnabled {
		geoEnabled = e.enrichGeography(ctx, normalized, cfg, profile, outcome, results)
		weightEff = stats.GeoWeightEffective
	} else {
		stats.WeightFactor = 1
	}
	stats.GeoTimeMS = msSince(geoStart)

	// Final scoring
	rankStart := time.Now()
	CombineScores(results, weightEff, geoEnabled)
	SortByFinalScore(results)
	if len(results) > cfg.ResultCount {
		results = results[:cfg.ResultCount]
	}
	stats.RankTimeMS = msSince(rankStart)

	outcome.Results = results
	stats.TotalTimeMS = msSince(totalStart)

	log.Info("search finished: %d candidates, %d returned, degraded=%t",
		stats.CandidatesRetrieved, len(results), stats.RetrievalDegraded)

	return outcome, nil
}

// enrichGeography computes the centroid, median, adaptive weight and
// per-candidate geographic similarity. It returns false when geographic
// scoring had to be skipped entirely, in which case final scores fall back
// to pure semantic similarity.
func (e *Engine) enrichGeography(ctx context.Context, supplierID string, cfg Config, profile *Profile, outcome *Outcome, results []RankedOpportunity) bool {
	stats := &outcome.Stats

	// Centroid from the profiling sample's locations.
	samplePoints, _ := e.resolver.ResolveAll(profile.LocationCodes)
	centroid, ok := geo.Centroid(samplePoints)
	if !ok {
		stats.WeightFactor = 1
		stats.Diagnostics = append(stats.Diagnostics,
			"geographic scoring skipped: no sampled contract location resolved")
		return false
	}
	stats.Centroid = &centroid

	// Median and dispersion come from the full distinct location set, a
	// separate and more complete query than the profiling sample.
	var median *geo.Point
	var fullPoints []geo.Point
	codes, err := e.contracts.DistinctLocationCodes(ctx, supplierID)
	if err != nil {
		stats.Diagnostics = append(stats.Diagnostics,
			fmt.Sprintf("full location set unavailable: %v", err))
	} else {
		stats.DistinctLocationCodes = len(codes)
		var missing int
		fullPoints, missing = e.resolver.ResolveAll(codes)
		stats.ResolvedLocations = len(fullPoints)
		if missing > 0 {
			stats.Diagnostics = append(stats.Diagnostics,
				fmt.Sprintf("%d of %d contract location codes did not resolve", missing, len(codes)))
		}
		if m, ok := geo.Median(fullPoints); ok {
			median = &m
			stats.Median = &m
		}
	}

	// Headquarters from the registry metadata, when available.
	var headquarters *geo.Point
	if outcome.Supplier != nil && outcome.Supplier.HeadquartersCode != "" {
		if p, ok := e.resolver.Resolve(outcome.Supplier.HeadquartersCode); ok {
			headquarters = &p
		}
	}

	weightBase := *cfg.GeoWeightBase
	weight := AdaptiveWeight{Factor: 1}
	if *cfg.AdaptiveEnabled {
		weight = ComputeAdaptiveWeight(AdaptiveWeightInputs{
			Headquarters: headquarters,
			Median:       median,
			FullSet:      fullPoints,
			TauHQKm:      cfg.TauHQKm,
			TauDispKm:    cfg.TauDispKm,
		})
		if !weight.Applied {
			stats.Diagnostics = append(stats.Diagnostics,
				"geographic weighting not adapted: "+weight.Reason)
		} else {
			stats.HQToMedianKm = &weight.HQToMedianKm
			stats.DispersionKm = &weight.DispersionKm
		}
	}

	stats.WeightFactor = weight.Factor
	stats.GeoWeightEffective = weightBase * weight.Factor

	// Per-candidate geographic similarity from the sample centroid.
	for i := range results {
		code := results[i].LocationCode
		if code == "" {
			stats.CandidatesWithoutLocation++
			continue
		}
		p, ok := e.resolver.Resolve(code)
		if !ok {
			stats.CandidatesWithoutLocation++
			continue
		}
		dist := geo.Haversine(centroid, p)
		results[i].GeoDistanceKm = &dist
		results[i].GeoSimilarity = geo.DecaySimilarity(dist, cfg.GeoTauKm)
	}

	return true
}

// lookupSupplier fetches registry metadata, absorbing every failure into a
// diagnostic.
func (e *Engine) lookupSupplier(ctx context.Context, supplierID string, stats *Stats) *SupplierInfo {
	if e.registry == nil {
		return nil
	}

	info, err := e.registry.Lookup(ctx, supplierID)
	if err != nil {
		stats.Diagnostics = append(stats.Diagnostics,
			fmt.Sprintf("registry metadata omitted: %v", err))
		return nil
	}
	return info
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitaware/procura/pkg/geo"
)

type fakeRetriever struct {
	retrieval Retrieval
	err       error
	lastOpts  RetrieveOptions
	calls     int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query []float32, opts RetrieveOptions) (*Retrieval, error) {
	f.calls++
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &f.retrieval, nil
}

type fakeGeoResolver struct {
	points map[string]geo.Point
}

func (f *fakeGeoResolver) Resolve(code string) (geo.Point, bool) {
	p, ok := f.points[code]
	return p, ok
}

func (f *fakeGeoResolver) ResolveAll(codes []string) ([]geo.Point, int) {
	var points []geo.Point
	missing := 0
	for _, c := range codes {
		if p, ok := f.points[c]; ok {
			points = append(points, p)
		} else {
			missing++
		}
	}
	return points, missing
}

type fakeRegistry struct {
	info *SupplierInfo
	err  error
}

func (f *fakeRegistry) Lookup(ctx context.Context, supplierID string) (*SupplierInfo, error) {
	return f.info, f.err
}

const testSupplierID = "11222333000181"

// IBGE-style codes used across the engine tests.
const (
	codeSaoPaulo = "3550308"
	codeCuritiba = "4106902"
	codeManaus   = "1302603"
)

func testResolver() *fakeGeoResolver {
	return &fakeGeoResolver{points: map[string]geo.Point{
		codeSaoPaulo: testSaoPaulo,
		codeCuritiba: testCuritiba,
		codeManaus:   testManaus,
	}}
}

func candidateAt(distance float64, location string) Candidate {
	return Candidate{ID: uuid.New(), Distance: distance, LocationCode: location}
}

func TestSearchRejectsMalformedSupplierID(t *testing.T) {
	engine := NewEngine(&fakeContractStore{}, &fakeRetriever{}, testResolver(), nil)

	_, err := engine.Search(context.Background(), "not-a-cnpj", Config{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSearchRejectsInvalidConfig(t *testing.T) {
	engine := NewEngine(&fakeContractStore{}, &fakeRetriever{}, testResolver(), nil)

	_, err := engine.Search(context.Background(), testSupplierID, Config{
		ResultCount:       50,
		CandidatePoolSize: 10,
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSearchWithoutProfileReturnsEmptyOutcome(t *testing.T) {
	retriever := &fakeRetriever{}
	engine := NewEngine(&fakeContractStore{}, retriever, testResolver(), nil)

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Empty(t, outcome.Results)
	assert.Zero(t, retriever.calls)
	require.Len(t, outcome.Stats.Diagnostics, 1)
	assert.Contains(t, outcome.Stats.Diagnostics[0], "no semantic profile")
}

func TestSearchPropagatesRetrievalFailure(t *testing.T) {
	store := &fakeContractStore{samples: []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)}}
	retriever := &fakeRetriever{err: ErrRetrievalFailed}
	engine := NewEngine(store, retriever, testResolver(), nil)

	_, err := engine.Search(context.Background(), testSupplierID, Config{})
	require.Error(t, err)
	assert.True(t, IsRetrievalFailure(err))
}

func TestSearchEndToEndRanking(t *testing.T) {
	store := &fakeContractStore{
		samples: []ContractSample{
			sample([]float32{1, 0}, codeSaoPaulo),
			sample([]float32{0, 1}, codeSaoPaulo),
		},
		locationCodes: []string{codeSaoPaulo, codeCuritiba},
	}
	// A semantically weaker candidate close to the activity area, and a
	// semantically stronger one far away.
	near := candidateAt(0.30, codeSaoPaulo)
	far := candidateAt(0.05, codeManaus)
	retriever := &fakeRetriever{retrieval: Retrieval{Candidates: []Candidate{far, near}}}
	registry := &fakeRegistry{info: &SupplierInfo{
		SupplierID:       testSupplierID,
		Name:             "Acme Servicos Ltda",
		HeadquartersCode: codeSaoPaulo,
	}}

	engine := NewEngine(store, retriever, testResolver(), &EngineOptions{Registry: registry})

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)

	stats := outcome.Stats
	require.NotNil(t, stats.Centroid)
	require.NotNil(t, stats.Median)
	assert.Greater(t, stats.WeightFactor, 0.0)
	assert.LessOrEqual(t, stats.WeightFactor, 1.0)
	assert.LessOrEqual(t, stats.GeoWeightEffective, 0.3)
	assert.Equal(t, 2, stats.CandidatesRetrieved)
	assert.Equal(t, 2, stats.DistinctLocationCodes)

	for i, r := range outcome.Results {
		assert.Equal(t, i+1, r.Rank)
		require.NotNil(t, r.GeoDistanceKm)
	}
	assert.GreaterOrEqual(t, outcome.Results[0].FinalScore, outcome.Results[1].FinalScore)

	require.NotNil(t, outcome.Supplier)
	assert.Equal(t, "Acme Servicos Ltda", outcome.Supplier.Name)
}

func TestSearchGeoDisabledScoresAreSemantic(t *testing.T) {
	store := &fakeContractStore{samples: []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)}}
	retriever := &fakeRetriever{retrieval: Retrieval{Candidates: []Candidate{
		candidateAt(0.1, codeManaus),
		candidateAt(0.2, codeSaoPaulo),
	}}}
	engine := NewEngine(store, retriever, testResolver(), nil)

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{GeoEnabled: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)

	assert.InDelta(t, 0.9, outcome.Results[0].FinalScore, 1e-9)
	assert.InDelta(t, 0.8, outcome.Results[1].FinalScore, 1e-9)
	assert.Nil(t, outcome.Stats.Centroid)
	assert.Equal(t, 1.0, outcome.Stats.WeightFactor)
}

func TestSearchZeroGeoWeightMatchesDisabledOrder(t *testing.T) {
	candidates := []Candidate{
		candidateAt(0.10, codeManaus),
		candidateAt(0.15, codeSaoPaulo),
		candidateAt(0.20, codeCuritiba),
	}
	build := func(geoEnabled bool, weightBase float64) *Outcome {
		store := &fakeContractStore{
			samples:       []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)},
			locationCodes: []string{codeSaoPaulo},
		}
		retriever := &fakeRetriever{retrieval: Retrieval{Candidates: candidates}}
		engine := NewEngine(store, retriever, testResolver(), nil)
		outcome, err := engine.Search(context.Background(), testSupplierID, Config{
			GeoEnabled:    boolPtr(geoEnabled),
			GeoWeightBase: floatPtr(weightBase),
		})
		require.NoError(t, err)
		return outcome
	}

	withZeroWeight := build(true, 0)
	withGeoOff := build(false, 0)

	require.Len(t, withZeroWeight.Results, len(candidates))
	for i := range withZeroWeight.Results {
		assert.Equal(t, withGeoOff.Results[i].ID, withZeroWeight.Results[i].ID)
		assert.Equal(t, withGeoOff.Results[i].FinalScore, withZeroWeight.Results[i].FinalScore)
	}
}

func TestSearchCandidateWithoutLocationKept(t *testing.T) {
	store := &fakeContractStore{
		samples:       []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)},
		locationCodes: []string{codeSaoPaulo},
	}
	noLocation := candidateAt(0.1, "")
	unresolvable := candidateAt(0.2, "9999999")
	retriever := &fakeRetriever{retrieval: Retrieval{Candidates: []Candidate{noLocation, unresolvable}}}
	engine := NewEngine(store, retriever, testResolver(), nil)

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)

	assert.Equal(t, 2, outcome.Stats.CandidatesWithoutLocation)
	for _, r := range outcome.Results {
		assert.Nil(t, r.GeoDistanceKm)
		assert.Zero(t, r.GeoSimilarity)
	}
}

func TestSearchNoResolvedSampleLocationFallsBackToSemantic(t *testing.T) {
	store := &fakeContractStore{samples: []ContractSample{sample([]float32{1, 0}, "0000000")}}
	retriever := &fakeRetriever{retrieval: Retrieval{Candidates: []Candidate{
		candidateAt(0.1, codeSaoPaulo),
	}}}
	engine := NewEngine(store, retriever, testResolver(), nil)

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)

	assert.InDelta(t, 0.9, outcome.Results[0].FinalScore, 1e-9)
	assert.Nil(t, outcome.Stats.Centroid)
	assert.Contains(t, outcome.Stats.Diagnostics, "geographic scoring skipped: no sampled contract location resolved")
}

func TestSearchRegistryFailureIsNotFatal(t *testing.T) {
	store := &fakeContractStore{
		samples:       []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)},
		locationCodes: []string{codeSaoPaulo},
	}
	retriever := &fakeRetriever{retrieval: Retrieval{Candidates: []Candidate{candidateAt(0.1, codeSaoPaulo)}}}
	registry := &fakeRegistry{err: errors.New("registry unavailable")}
	engine := NewEngine(store, retriever, testResolver(), &EngineOptions{Registry: registry})

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)

	assert.Nil(t, outcome.Supplier)
	found := false
	for _, d := range outcome.Stats.Diagnostics {
		if strings.Contains(d, "registry metadata omitted") {
			found = true
		}
	}
	assert.True(t, found)
	// Without headquarters the adaptive weight cannot be applied.
	assert.Equal(t, 1.0, outcome.Stats.WeightFactor)
}

func TestSearchDegradedRetrievalReportsDiagnostic(t *testing.T) {
	store := &fakeContractStore{samples: []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)}}
	retriever := &fakeRetriever{retrieval: Retrieval{
		Candidates: []Candidate{candidateAt(0.1, codeSaoPaulo)},
		Degraded:   true,
	}}
	engine := NewEngine(store, retriever, testResolver(), nil)

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{})
	require.NoError(t, err)

	assert.True(t, outcome.Stats.RetrievalDegraded)
	found := false
	for _, d := range outcome.Stats.Diagnostics {
		if strings.Contains(d, "corpus sample") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSearchTruncatesToResultCount(t *testing.T) {
	store := &fakeContractStore{samples: []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)}}
	var candidates []Candidate
	for i := 0; i < 5; i++ {
		candidates = append(candidates, candidateAt(float64(i)*0.1, codeSaoPaulo))
	}
	retriever := &fakeRetriever{retrieval: Retrieval{Candidates: candidates}}
	engine := NewEngine(store, retriever, testResolver(), nil)

	outcome, err := engine.Search(context.Background(), testSupplierID, Config{
		ResultCount:       2,
		CandidatePoolSize: 5,
	})
	require.NoError(t, err)

	assert.Len(t, outcome.Results, 2)
	assert.Equal(t, 2, outcome.Results[1].Rank)
	assert.Equal(t, 5, outcome.Stats.CandidatesRetrieved)
}

func TestSearchPassesConfigToRetriever(t *testing.T) {
	store := &fakeContractStore{samples: []ContractSample{sample([]float32{1, 0}, codeSaoPaulo)}}
	retriever := &fakeRetriever{retrieval: Retrieval{}}
	engine := NewEngine(store, retriever, testResolver(), nil)

	_, err := engine.Search(context.Background(), testSupplierID, Config{
		CandidatePoolSize: 123,
		TimeBudgetMS:      2500,
		FallbackSamplePct: 7.5,
		FilterExpired:     boolPtr(false),
	})
	require.NoError(t, err)

	assert.Equal(t, 123, retriever.lastOpts.Limit)
	assert.Equal(t, 2500, int(retriever.lastOpts.Budget.Milliseconds()))
	assert.Equal(t, 7.5, retriever.lastOpts.FallbackSamplePct)
	assert.False(t, retriever.lastOpts.FilterExpired)
}

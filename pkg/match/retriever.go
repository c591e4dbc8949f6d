package match

import (
	"context"
	"fmt"
	"time"

	"github.com/licitaware/procura/pkg/logger"
)

// SearchPass describes one bounded ANN query against the opportunity corpus.
type SearchPass struct {
	// Limit is the maximum number of candidates to return.
	Limit int
	// Budget bounds the statement execution time.
	Budget time.Duration
	// SamplePct restricts the scan to a random corpus fraction when
	// positive; zero means the full corpus.
	SamplePct float64
	// FilterExpired excludes opportunities whose closing date has passed.
	FilterExpired bool
}

// VectorSearcher executes a single approximate-nearest-neighbor pass. A pass
// that exceeds its budget must roll back any transactional state and return
// an error satisfying IsRetrievalTimeout.
type VectorSearcher interface {
	Search(ctx context.Context, query []float32, pass SearchPass) ([]Candidate, error)
}

// RetrieveOptions configures a two-phase retrieval.
type RetrieveOptions struct {
	Limit             int
	Budget            time.Duration
	FallbackSamplePct float64
	FilterExpired     bool
}

// Retrieval is the tagged result of a two-phase retrieval.
type Retrieval struct {
	Candidates []Candidate
	// Degraded is true when the primary pass timed out and the results come
	// from the sampled fallback pass.
	Degraded         bool
	PrimaryDuration  time.Duration
	FallbackDuration time.Duration
}

// CandidateRetriever retrieves candidates for a query vector.
type CandidateRetriever interface {
	Retrieve(ctx context.Context, query []float32, opts RetrieveOptions) (*Retrieval, error)
}

// TwoPhaseRetriever implements the retrieval state machine: a primary
// full-corpus query, and on timeout exactly one fallback query over a small
// random corpus fraction under the same budget. A fallback timeout or
// failure is fatal; there is no third attempt.
type TwoPhaseRetriever struct {
	searcher VectorSearcher
	log      *logger.Logger
}

// NewTwoPhaseRetriever creates a retriever over the given searcher.
func NewTwoPhaseRetriever(searcher VectorSearcher, log *logger.Logger) *TwoPhaseRetriever {
	if log == nil {
		log = logger.GetDefault()
	}
	return &TwoPhaseRetriever{searcher: searcher, log: log}
}

// Retrieve runs the primary pass and, on timeout only, the single fallback
// pass. The expiry filter and time budget apply identically to both.
func (r *TwoPhaseRetriever) Retrieve(ctx context.Context, query []float32, opts RetrieveOptions) (*Retrieval, error) {
	primary := SearchPass{
		Limit:         opts.Limit,
		Budget:        opts.Budget,
		FilterExpired: opts.FilterExpired,
	}

	start := time.Now()
	candidates, err := r.searcher.Search(ctx, query, primary)
	primaryDuration := time.Since(start)

	if err == nil {
		return &Retrieval{
			Candidates:      candidates,
			PrimaryDuration: primaryDuration,
		}, nil
	}

	if !IsRetrievalTimeout(err) {
		return nil, fmt.Errorf("primary retrieval failed: %w", wrapRetrievalFailure(err))
	}

	r.log.Warn("primary retrieval timed out after %s, falling back to %.1f%% corpus sample",
		primaryDuration.Round(time.Millisecond), opts.FallbackSamplePct)

	fallback := SearchPass{
		Limit:         opts.Limit,
		Budget:        opts.Budget,
		SamplePct:     opts.FallbackSamplePct,
		FilterExpired: opts.FilterExpired,
	}

	start = time.Now()
	candidates, fallbackErr := r.searcher.Search(ctx, query, fallback)
	fallbackDuration := time.Since(start)

	if fallbackErr != nil {
		if IsRetrievalTimeout(fallbackErr) {
			return nil, fmt.Errorf("fallback retrieval also exceeded the time budget: %w", fallbackErr)
		}
		return nil, fmt.Errorf("fallback retrieval failed: %w", wrapRetrievalFailure(fallbackErr))
	}

	return &Retrieval{
		Candidates:       candidates,
		Degraded:         true,
		PrimaryDuration:  primaryDuration,
		FallbackDuration: fallbackDuration,
	}, nil
}

// wrapRetrievalFailure tags an arbitrary searcher error as a fatal retrieval
// failure unless it already carries a retrieval category.
func wrapRetrievalFailure(err error) error {
	if IsRetrievalFailure(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
}

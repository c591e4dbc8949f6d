package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher scripts one error (or success) per pass.
type fakeSearcher struct {
	passes  []SearchPass
	returns []fakePassResult
}

type fakePassResult struct {
	candidates []Candidate
	err        error
}

func (f *fakeSearcher) Search(ctx context.Context, query []float32, pass SearchPass) ([]Candidate, error) {
	idx := len(f.passes)
	f.passes = append(f.passes, pass)
	if idx >= len(f.returns) {
		return nil, errors.New("unexpected extra search pass")
	}
	r := f.returns[idx]
	return r.candidates, r.err
}

func testCandidates(n int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{ID: uuid.New(), Distance: float64(i) * 0.01}
	}
	return out
}

func defaultOpts() RetrieveOptions {
	return RetrieveOptions{
		Limit:             50,
		Budget:            200 * time.Millisecond,
		FallbackSamplePct: 5,
		FilterExpired:     true,
	}
}

func TestRetrievePrimarySuccessNoFallback(t *testing.T) {
	searcher := &fakeSearcher{returns: []fakePassResult{
		{candidates: testCandidates(3)},
	}}
	r := NewTwoPhaseRetriever(searcher, nil)

	result, err := r.Retrieve(context.Background(), []float32{1}, defaultOpts())
	require.NoError(t, err)

	assert.Len(t, result.Candidates, 3)
	assert.False(t, result.Degraded)
	require.Len(t, searcher.passes, 1)
	assert.Equal(t, 0.0, searcher.passes[0].SamplePct)
	assert.True(t, searcher.passes[0].FilterExpired)
}

func TestRetrieveTimeoutTriggersExactlyOneFallback(t *testing.T) {
	searcher := &fakeSearcher{returns: []fakePassResult{
		{err: ErrRetrievalTimeout},
		{candidates: testCandidates(2)},
	}}
	r := NewTwoPhaseRetriever(searcher, nil)

	result, err := r.Retrieve(context.Background(), []float32{1}, defaultOpts())
	require.NoError(t, err)

	assert.Len(t, result.Candidates, 2)
	assert.True(t, result.Degraded)

	// Exactly two passes: primary plus one fallback, no third attempt.
	require.Len(t, searcher.passes, 2)
	assert.Equal(t, 0.0, searcher.passes[0].SamplePct)
	assert.Equal(t, 5.0, searcher.passes[1].SamplePct)

	// Same budget and expiry filter on both passes.
	assert.Equal(t, searcher.passes[0].Budget, searcher.passes[1].Budget)
	assert.Equal(t, searcher.passes[0].FilterExpired, searcher.passes[1].FilterExpired)
}

func TestRetrieveFallbackTimeoutIsFatal(t *testing.T) {
	searcher := &fakeSearcher{returns: []fakePassResult{
		{err: ErrRetrievalTimeout},
		{err: ErrRetrievalTimeout},
	}}
	r := NewTwoPhaseRetriever(searcher, nil)

	_, err := r.Retrieve(context.Background(), []float32{1}, defaultOpts())
	require.Error(t, err)
	assert.True(t, IsRetrievalTimeout(err))
	assert.Len(t, searcher.passes, 2)
}

func TestRetrieveFallbackFailureIsFatal(t *testing.T) {
	searcher := &fakeSearcher{returns: []fakePassResult{
		{err: ErrRetrievalTimeout},
		{err: errors.New("relation does not exist")},
	}}
	r := NewTwoPhaseRetriever(searcher, nil)

	_, err := r.Retrieve(context.Background(), []float32{1}, defaultOpts())
	require.Error(t, err)
	assert.True(t, IsRetrievalFailure(err))
}

func TestRetrievePrimaryNonTimeoutFailureSkipsFallback(t *testing.T) {
	searcher := &fakeSearcher{returns: []fakePassResult{
		{err: errors.New("connection refused")},
	}}
	r := NewTwoPhaseRetriever(searcher, nil)

	_, err := r.Retrieve(context.Background(), []float32{1}, defaultOpts())
	require.Error(t, err)
	assert.True(t, IsRetrievalFailure(err))
	assert.False(t, IsRetrievalTimeout(err))
	assert.Len(t, searcher.passes, 1)
}

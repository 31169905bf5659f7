package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsite/roster-api/internal/types"
)

func TestCheck(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><head><title>Proposal: Sparse Jacobians</title></head><body></body></html>"))
	}))
	defer okServer.Close()

	goneServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer goneServer.Close()

	// Closed immediately so its URL refuses connections.
	deadServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := deadServer.URL
	deadServer.Close()

	entries := []types.StudentEntry{
		{
			ID:          1,
			ProposalURL: okServer.URL,
			Past:        &types.PastParticipation{ProposalURL: goneServer.URL},
		},
		{ID: 2, ProposalURL: deadURL},
		{ID: 3}, // no proposal link, no result
	}

	checker := New(nil, 2)
	results := checker.Check(context.Background(), entries)
	require.Len(t, results, 3)

	bySubject := map[string]Result{}
	for _, res := range results {
		bySubject[res.Subject] = res
	}

	current := bySubject["student/1"]
	assert.True(t, current.OK)
	assert.Equal(t, http.StatusOK, current.StatusCode)
	assert.Equal(t, "Proposal: Sparse Jacobians", current.Title)

	past := bySubject["student/1/past"]
	assert.False(t, past.OK)
	assert.Equal(t, http.StatusNotFound, past.StatusCode)
	assert.Empty(t, past.Title)

	dead := bySubject["student/2"]
	assert.False(t, dead.OK)
	assert.Zero(t, dead.StatusCode)
	assert.NotEmpty(t, dead.Error)
}

func TestCheckRespectsLimit(t *testing.T) {
	const limit = 2

	var inFlight, peak atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer server.Close()

	entries := make([]types.StudentEntry, 0, 8)
	for i := int64(1); i <= 8; i++ {
		entries = append(entries, types.StudentEntry{ID: i, ProposalURL: server.URL})
	}

	checker := New(nil, limit)
	results := checker.Check(context.Background(), entries)

	require.Len(t, results, 8)
	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.Positive(t, peak.Load())
}

func TestCheckNoTargets(t *testing.T) {
	checker := New(nil, 1)
	results := checker.Check(context.Background(), []types.StudentEntry{{ID: 9}})
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestNewDefaults(t *testing.T) {
	checker := New(nil, 0)
	require.NotNil(t, checker.client)
	assert.Equal(t, 4, checker.limit)
}

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStep("run-a", "schema", nil, 2*time.Second)
	RecordStep("run-b", "load:Posts", errors.New("boom"), 1500*time.Millisecond)

	require.Len(t, fb.callsCounters, 2)
	require.Len(t, fb.callsHistograms, 2)

	cc0 := fb.callsCounters[0]
	assert.Equal(t, StepTotal, cc0.name)
	assert.Equal(t, 1.0, cc0.delta)
	assert.Equal(t, Labels{"job": "run-a", "step": "schema", "status": "success"}, cc0.labels)

	h0 := fb.callsHistograms[0]
	assert.Equal(t, StepDuration, h0.name)
	assert.InDelta(t, 2.0, h0.value, 0.001)

	cc1 := fb.callsCounters[1]
	assert.Equal(t, "load:Posts", cc1.labels["step"])
	assert.Equal(t, "failure", cc1.labels["status"])
	assert.InDelta(t, 1.5, fb.callsHistograms[1].value, 0.001)
}

func TestRecordRowsAndCommits(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("run", "Users", 3)
	RecordRows("run", "Users", 0) // ignored
	RecordRows("run", "Posts", 5)
	RecordCommits("run", "Posts", 2)
	RecordCommits("run", "Posts", -1) // ignored

	require.Len(t, fb.callsCounters, 3)

	tests := []struct {
		name  string
		delta float64
		table string
	}{
		{RowsTotal, 3, "Users"},
		{RowsTotal, 5, "Posts"},
		{CommitsTotal, 2, "Posts"},
	}
	for i, tt := range tests {
		c := fb.callsCounters[i]
		assert.Equal(t, tt.name, c.name, "counter[%d]", i)
		assert.Equal(t, tt.delta, c.delta, "counter[%d]", i)
		assert.Equal(t, tt.table, c.labels["table"], "counter[%d]", i)
		assert.Equal(t, "run", c.labels["job"], "counter[%d]", i)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)
	require.Same(t, fb, backend, "SetBackend did not replace global backend")

	require.NoError(t, Flush())
	assert.Equal(t, 1, fb.flushCount)

	SetBackend(nil)
	assert.Same(t, fb, backend, "SetBackend(nil) should not change backend")
}

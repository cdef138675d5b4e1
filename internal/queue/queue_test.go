package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shurlinet/satrelay/internal/table"
	"github.com/shurlinet/satrelay/internal/telemetry"
)

func rec(ts float64) telemetry.Record {
	return telemetry.Record{Timestamp: ts, TurbineID: table.SourceID, Turbines: map[string]telemetry.Reading{}}
}

func TestFIFOOrder(t *testing.T) {
	q := New()
	q.Enqueue(rec(1))
	q.Enqueue(rec(2))
	q.Enqueue(rec(3))

	for _, want := range []float64{1, 2, 3} {
		r, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, want, r.Timestamp)
	}
	_, ok := q.Dequeue()
	require.False(t, ok)
}

func TestLen(t *testing.T) {
	q := New()
	require.Equal(t, 0, q.Len())
	q.Enqueue(rec(1))
	q.Enqueue(rec(2))
	require.Equal(t, 2, q.Len())
	q.Dequeue()
	require.Equal(t, 1, q.Len())
}

// TestQueueDrain implements spec §8's "Queue drain" invariant: once a path
// is available, every queued record is sent in enqueue order.
func TestQueueDrain(t *testing.T) {
	q := New()
	q.Enqueue(rec(1))
	q.Enqueue(rec(2))
	q.Enqueue(rec(3))

	var sent []float64
	q.Drain(func(r telemetry.Record) bool {
		sent = append(sent, r.Timestamp)
		return true
	})

	require.Equal(t, []float64{1, 2, 3}, sent)
	require.Equal(t, 0, q.Len())
}

func TestDrainStopsAtFirstRefusalAndResumes(t *testing.T) {
	q := New()
	q.Enqueue(rec(1))
	q.Enqueue(rec(2))

	allow := false
	var sent []float64
	q.Drain(func(r telemetry.Record) bool {
		if !allow {
			return false
		}
		sent = append(sent, r.Timestamp)
		return true
	})
	require.Empty(t, sent)
	require.Equal(t, 2, q.Len())

	allow = true
	q.Drain(func(r telemetry.Record) bool {
		sent = append(sent, r.Timestamp)
		return true
	})
	require.Equal(t, []float64{1, 2}, sent)
	require.Equal(t, 0, q.Len())
}

func TestConcurrentEnqueueDequeue(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Enqueue(rec(float64(i)))
		}(i)
	}
	wg.Wait()
	require.Equal(t, 50, q.Len())
}

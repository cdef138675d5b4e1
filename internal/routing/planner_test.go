package routing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shurlinet/satrelay/internal/position"
	"github.com/shurlinet/satrelay/internal/table"
)

func TestPlannerConcurrentCallsAgree(t *testing.T) {
	oracle := position.NewOracle(statics())
	snapshot := snapshotWithRelays(1, 2, 3)
	p := NewPlanner(oracle)

	var wg sync.WaitGroup
	results := make([]Result, 20)
	oks := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], oks[i] = p.UpdateNearestSatellite(table.SourceID, table.SinkID, snapshot, nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		require.True(t, oks[i])
		require.Equal(t, results[0].Path, results[i].Path)
	}
}

func TestPlannerRespectsExclude(t *testing.T) {
	oracle := position.NewOracle(statics())
	snapshot := snapshotWithRelays(1, 2)
	p := NewPlanner(oracle)

	_, ok := p.UpdateNearestSatellite(table.SourceID, table.SinkID, snapshot, map[table.PeerID]bool{1: true, 2: true})
	require.False(t, ok)
}

func TestPlannerReturnsValidPath(t *testing.T) {
	oracle := position.NewOracle(statics())
	snapshot := snapshotWithRelays(1, 2, 3)
	p := NewPlanner(oracle)

	res, ok := p.UpdateNearestSatellite(table.SourceID, table.SinkID, snapshot, nil)
	require.True(t, ok)
	require.NotEmpty(t, res.Path)
	require.Equal(t, table.SourceID, res.Path[0])
	require.Equal(t, table.SinkID, res.Path[len(res.Path)-1])
}

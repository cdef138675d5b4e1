package table

import (
	"sync"
	"testing"
)

func TestSelfEntryInvariant(t *testing.T) {
	tb := New(SourceID, PeerEndpoint{Host: "127.0.0.1", Port: 33000})
	ep, ok := tb.Get(SourceID)
	if !ok {
		t.Fatal("self entry missing")
	}
	if ep.Host != "127.0.0.1" || ep.Port != 33000 {
		t.Errorf("self entry = %+v, want 127.0.0.1:33000", ep)
	}
}

func TestSetGetDelete(t *testing.T) {
	tb := New(SourceID, PeerEndpoint{Host: "h", Port: 1})
	tb.Set(PeerID(1), PeerEndpoint{Host: "10.0.0.1", Port: 33001})

	ep, ok := tb.Get(PeerID(1))
	if !ok || ep.Port != 33001 {
		t.Fatalf("Get(1) = %+v, %v", ep, ok)
	}

	tb.Delete(PeerID(1))
	if _, ok := tb.Get(PeerID(1)); ok {
		t.Fatal("peer 1 still present after delete")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tb := New(SourceID, PeerEndpoint{Host: "h", Port: 1})
	tb.Set(PeerID(1), PeerEndpoint{Host: "a", Port: 2})

	snap := tb.Snapshot()
	snap[PeerID(2)] = PeerEndpoint{Host: "b", Port: 3}

	if _, ok := tb.Get(PeerID(2)); ok {
		t.Fatal("mutating snapshot leaked into table")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tb := New(SourceID, PeerEndpoint{Host: "h", Port: 1})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tb.Set(PeerID(i+1), PeerEndpoint{Host: "x", Port: i})
			tb.Get(PeerID(i + 1))
		}(i)
	}
	wg.Wait()
	if tb.Len() != 51 {
		t.Errorf("Len() = %d, want 51", tb.Len())
	}
}

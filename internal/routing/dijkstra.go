package routing

import (
	"container/heap"

	"github.com/shurlinet/satrelay/internal/table"
)

// Result is a planned path: the node sequence from source to destination
// (inclusive of both ends) and the distance of the first hop — the figure
// callers need to simulate that single link's propagation delay (spec
// §4.4: "the cost of the first hop's distance, not total weight").
type Result struct {
	Path             []table.PeerID
	FirstHopDistance float64
}

// item is one entry in the Dijkstra priority queue.
type item struct {
	id     table.PeerID
	weight float64
	seq    int // insertion order, for tie-breaking
	index  int // heap.Interface bookkeeping
}

type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].weight != pq[j].weight {
		return pq[i].weight < pq[j].weight
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*pq)
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}

// ShortestPath runs Dijkstra from "from" to "to" over g, excluding any peer
// id present in exclude (down/broken peers). It returns the node sequence
// and the first hop's distance, or ok=false if no path exists.
func ShortestPath(g *Graph, from, to table.PeerID, exclude map[table.PeerID]bool) (Result, bool) {
	if exclude[from] || exclude[to] {
		return Result{}, false
	}

	dist := make(map[table.PeerID]float64)
	prev := make(map[table.PeerID]table.PeerID)
	firstHop := make(map[table.PeerID]float64) // distance of the edge leaving "from" on this node's best path
	visited := make(map[table.PeerID]bool)

	dist[from] = 0
	pq := &priorityQueue{}
	heap.Init(pq)
	seq := 0
	heap.Push(pq, &item{id: from, weight: 0, seq: seq})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*item)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == to {
			break
		}

		for _, next := range g.Neighbors(cur.id) {
			if exclude[next] || visited[next] {
				continue
			}
			w, d, ok := g.edge(cur.id, next)
			if !ok {
				continue
			}
			alt := dist[cur.id] + w
			if existing, seen := dist[next]; !seen || alt < existing {
				dist[next] = alt
				prev[next] = cur.id
				if cur.id == from {
					firstHop[next] = d
				} else {
					firstHop[next] = firstHop[cur.id]
				}
				seq++
				heap.Push(pq, &item{id: next, weight: alt, seq: seq})
			}
		}
	}

	if !visited[to] {
		return Result{}, false
	}

	path := []table.PeerID{to}
	for cur := to; cur != from; {
		p, ok := prev[cur]
		if !ok {
			return Result{}, false
		}
		path = append([]table.PeerID{p}, path...)
		cur = p
	}

	return Result{Path: path, FirstHopDistance: firstHop[to]}, true
}

package algo

import (
	"math"
	"sort"

	"github.com/orneryd/cygraph/internal/csr"
	"github.com/orneryd/cygraph/internal/jsonbuilder"
)

// PageRankOptions carries the tunables spec.md §4.7 defaults: damping 0.85,
// max iterations 20, convergence threshold 1e-6.
type PageRankOptions struct {
	Damping    float64
	MaxIter    int
	TopK       int     // 0 means "all nodes" (plain pageRank, not topPageRank)
	Seeds      []int32 // non-nil selects personalizedPageRank's seed teleport vector
}

// DefaultPageRankOptions matches spec.md §4.7's stated defaults.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{Damping: 0.85, MaxIter: 20}
}

const pageRankEpsilon = 1e-6

// PageRank runs push-style power iteration over snap and returns a
// descending-score-sorted JSON array of {node, score}, optionally truncated
// to opts.TopK (topPageRank) and optionally teleporting to opts.Seeds
// (personalizedPageRank) instead of uniformly, per spec.md §4.7.
func PageRank(snap *csr.Snapshot, opts PageRankOptions) string {
	if snap == nil || snap.NodeCount == 0 {
		return emptyResult
	}
	n := snap.NodeCount
	damping := opts.Damping
	if damping <= 0 {
		damping = 0.85
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 20
	}

	invOutDeg := make([]float64, n)
	for i := 0; i < n; i++ {
		if d := snap.OutDegree(int32(i)); d > 0 {
			invOutDeg[i] = 1.0 / float64(d)
		}
	}

	teleport := make([]float64, n)
	if len(opts.Seeds) > 0 {
		share := 1.0 / float64(len(opts.Seeds))
		for _, s := range opts.Seeds {
			if int(s) >= 0 && int(s) < n {
				teleport[s] += share
			}
		}
	} else {
		uniform := 1.0 / float64(n)
		for i := range teleport {
			teleport[i] = uniform
		}
	}

	scores := make([]float64, n)
	uniform := 1.0 / float64(n)
	for i := range scores {
		scores[i] = uniform
	}

	next := make([]float64, n)
	for iter := 0; iter < maxIter; iter++ {
		for i := range next {
			next[i] = (1 - damping) * teleport[i]
		}
		for src := 0; src < n; src++ {
			contrib := scores[src] * invOutDeg[src]
			if contrib == 0 {
				continue
			}
			for _, tgt := range snap.OutNeighbors(int32(src)) {
				next[tgt] += damping * contrib
			}
		}
		maxDelta := 0.0
		for i := range scores {
			if d := math.Abs(next[i] - scores[i]); d > maxDelta {
				maxDelta = d
			}
		}
		scores, next = next, scores
		if maxDelta < pageRankEpsilon {
			break
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	limit := n
	if opts.TopK > 0 && opts.TopK < n {
		limit = opts.TopK
	}

	b := jsonbuilder.New()
	b.StartArray()
	for _, idx := range order[:limit] {
		b.StartObject().Key("node")
		writeLabel(b, snap, int32(idx))
		b.Key("score").Float(scores[idx]).EndObject()
	}
	b.EndArray()
	return b.Take()
}

package graph

import "time"

// Statistics is an immutable snapshot of graph cardinalities, consumed by
// the optimizer's cost model (spec §3.3, §4.5, §6.5). A fresh Statistics is
// built and swapped in atomically on every mutating operation rather than
// mutated in place, so a caller holding a reference never sees a
// half-updated count.
type Statistics struct {
	TotalNodes       int64
	TotalEdges       int64
	NodeCountsByLabel map[string]int64
	EdgeCountsByType  map[string]int64
	AvgDegreeByType   map[string]float64
	LastUpdated       time.Time
}

// Clone returns a deep copy so callers can't mutate the engine's live
// snapshot through the maps they were handed.
func (s *Statistics) Clone() *Statistics {
	if s == nil {
		return &Statistics{NodeCountsByLabel: map[string]int64{}, EdgeCountsByType: map[string]int64{}, AvgDegreeByType: map[string]float64{}}
	}
	out := &Statistics{
		TotalNodes:  s.TotalNodes,
		TotalEdges:  s.TotalEdges,
		LastUpdated: s.LastUpdated,
		NodeCountsByLabel: make(map[string]int64, len(s.NodeCountsByLabel)),
		EdgeCountsByType:  make(map[string]int64, len(s.EdgeCountsByType)),
		AvgDegreeByType:   make(map[string]float64, len(s.AvgDegreeByType)),
	}
	for k, v := range s.NodeCountsByLabel {
		out.NodeCountsByLabel[k] = v
	}
	for k, v := range s.EdgeCountsByType {
		out.EdgeCountsByType[k] = v
	}
	for k, v := range s.AvgDegreeByType {
		out.AvgDegreeByType[k] = v
	}
	return out
}

// LabelCardinality returns the estimated number of nodes bearing a label,
// used by the optimizer's join-reorder cost function. An empty label means
// "all nodes" (an unlabeled scan).
func (s *Statistics) LabelCardinality(label string) int64 {
	if label == "" {
		return s.TotalNodes
	}
	return s.NodeCountsByLabel[label]
}

// TypeMeanOutDegree returns the mean out-degree for a relationship type,
// used to cost an ExpandEdges operator. An empty type averages over all
// edges.
func (s *Statistics) TypeMeanOutDegree(relType string) float64 {
	if relType == "" {
		if s.TotalNodes == 0 {
			return 0
		}
		return float64(s.TotalEdges) / float64(s.TotalNodes)
	}
	return s.AvgDegreeByType[relType]
}

package interval

import (
	"fmt"
	"sort"
)

// Range is a single interval with 0-based, half-open coordinates.
type Range struct {
	Start PosType
	End   PosType
}

// Union is a disjoint set of intervals, stored as a length-2N sequence of
// endpoints.  The start position of interval #k (numbering from zero) is in
// element [2k] and the end position is in element [2k+1], and the intervals
// are stored in increasing order.  Touching intervals are always merged, so
// every element is strictly greater than its predecessor.
type Union struct {
	endpoints []PosType
}

// NewUnion builds a Union from ranges in any order, merging
// touching/overlapping ranges and eliminating empty ones in the process.  The
// argument is sorted in place.
func NewUnion(ranges []Range) (Union, error) {
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	var endpoints []PosType
	prevStart, prevEnd := PosType(-1), PosType(-1)
	for _, r := range ranges {
		if r.Start < 0 {
			return Union{}, fmt.Errorf("interval.NewUnion: negative start coordinate %d", r.Start)
		}
		if r.End < r.Start || r.End >= PosTypeMax {
			return Union{}, fmt.Errorf("interval.NewUnion: invalid coordinate pair [%d, %d)", r.Start, r.End)
		}
		if r.End == r.Start {
			continue
		}
		if prevEnd == -1 {
			prevStart, prevEnd = r.Start, r.End
			continue
		}
		if r.Start > prevEnd {
			// New interval doesn't touch the previous one, so we can save the
			// previous one.
			endpoints = append(endpoints, prevStart, prevEnd)
			prevStart, prevEnd = r.Start, r.End
			continue
		}
		if r.End > prevEnd {
			prevEnd = r.End
		}
	}
	if prevEnd != -1 {
		endpoints = append(endpoints, prevStart, prevEnd)
	}
	return Union{endpoints: endpoints}, nil
}

// Bases returns the number of positions covered by the union.
func (u Union) Bases() int {
	total := 0
	for i := 0; i < len(u.endpoints); i += 2 {
		total += int(u.endpoints[i+1] - u.endpoints[i])
	}
	return total
}

// ContainsRange returns whether every position in [start, end) is covered by
// the union.  Since touching intervals are merged, this holds exactly when a
// single interval spans the whole range.  An empty range is never contained.
func (u Union) ContainsRange(start, end PosType) bool {
	if end <= start {
		return false
	}
	ei := NewEndpointIndex(start, u.endpoints)
	if !ei.Contained() {
		return false
	}
	return u.endpoints[ei] >= end
}

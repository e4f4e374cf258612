package count

import (
	"github.com/grailbio/hts/sam"
)

// Verdict is the outcome of the per-record quality filter.  Values are
// ordered by precedence: when the two mates of a pair are both rejected, the
// larger verdict describes the pair.
type Verdict int

const (
	// Pass means the record proceeds to overlap resolution.
	Pass Verdict = iota
	// RejectNotAligned is an unmapped record.
	RejectNotAligned
	// RejectLowQual is a record below the mapping quality threshold.
	RejectLowQual
	// RejectDuplicate is a duplicate record while duplicates are excluded.
	RejectDuplicate
	// RejectNonUnique is a secondary, supplementary or multi-mapped record.
	RejectNonUnique
)

// Kind returns the classification of a read unit rejected with v.
func (v Verdict) Kind() Kind {
	switch v {
	case RejectNotAligned:
		return NotAligned
	case RejectLowQual:
		return LowQual
	case RejectDuplicate:
		return Duplicate
	case RejectNonUnique:
		return NonUnique
	}
	panic(v)
}

var nhTag = sam.NewTag("NH")

// numHits returns the value of the NH aux tag, or 1 if absent.
func numHits(r *sam.Record) int {
	aux := r.AuxFields.Get(nhTag)
	if aux == nil {
		return 1
	}
	switch v := aux.Value().(type) {
	case int8:
		return int(v)
	case uint8:
		return int(v)
	case int16:
		return int(v)
	case uint16:
		return int(v)
	case int32:
		return int(v)
	case uint32:
		return int(v)
	}
	return 1
}

// Filter applies the record-level rules, first match wins:
//   unmapped                          -> RejectNotAligned
//   secondary, supplementary or NH>1  -> RejectNonUnique
//   duplicate, if not counted         -> RejectDuplicate
//   mapping quality below opts.Mapq   -> RejectLowQual
func Filter(r *sam.Record, opts *Opts) Verdict {
	if r.Flags&sam.Unmapped != 0 {
		return RejectNotAligned
	}
	if r.Flags&(sam.Secondary|sam.Supplementary) != 0 || numHits(r) > 1 {
		return RejectNonUnique
	}
	if !opts.CountDuplicates && r.Flags&sam.Duplicate != 0 {
		return RejectDuplicate
	}
	if int(r.MapQ) < opts.Mapq {
		return RejectLowQual
	}
	return Pass
}

// isSecondary returns whether r is an extra alignment of a read whose primary
// alignment is elsewhere in the input.  Such records are counted on their
// own and never take part in mate correlation.
func isSecondary(r *sam.Record) bool {
	return r.Flags&(sam.Secondary|sam.Supplementary) != 0
}

// FragmentForward returns whether the fragment r belongs to was transcribed
// from the forward strand, assuming the first mate (or a single-end read) has
// the transcript's orientation.
func FragmentForward(r *sam.Record) bool {
	reverse := r.Flags&sam.Reverse != 0
	if r.Flags&sam.Paired != 0 {
		return (r.Flags&sam.Read1 != 0 && !reverse) || (r.Flags&sam.Read2 != 0 && reverse)
	}
	return !reverse
}

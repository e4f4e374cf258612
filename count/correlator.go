package count

import (
	"github.com/grailbio/hts/sam"
)

// ReadUnit is a single-end read, or the two mates of a pair, to be
// classified as one event.
type ReadUnit struct {
	// Blocks of all aligned bases.  Empty for rejected units.
	Blocks []Block
	// Forward is the inferred transcript orientation of the fragment.
	Forward bool
	// Verdict is Pass if the unit is to be resolved against the annotation,
	// or the filter verdict that rejects it.
	Verdict Verdict
	// Singleton is set for a paired read counted without its mate.
	Singleton bool
	// Excluded is set for a paired read whose mate is missing or unaligned,
	// when single-end mates are not counted.
	Excluded bool
}

// mateKey identifies a pending mate.  Read names alone are not unique in
// every input, so the alignment positions of the record and of its mate
// disambiguate.  The arriving mate looks up the key with the two positions
// swapped.
type mateKey struct {
	name                        string
	refID, pos, mateRefID, mPos int
}

// pendingMate is the first-seen mate of a pair.
type pendingMate struct {
	blocks  []Block
	forward bool
	read1   bool
	segment sam.Flags
	verdict Verdict
}

// Correlator pairs up mates.  It is not thread safe; each worker owns one,
// and all records of one read name must reach the same Correlator.
type Correlator struct {
	opts    *Opts
	pending map[mateKey]*pendingMate
	unit    ReadUnit
	// Pairs and Singletons count emitted paired units.
	Pairs, Singletons int
}

// NewCorrelator creates an empty Correlator.
func NewCorrelator(opts *Opts) *Correlator {
	return &Correlator{opts: opts, pending: map[mateKey]*pendingMate{}}
}

// Len returns the number of mates waiting for their partner.
func (c *Correlator) Len() int { return len(c.pending) }

// Add consumes a record already classified by Filter.  emit is called with
// every read unit completed by r: none if r is the first mate of a pair, one
// otherwise.  The unit passed to emit is only valid during the call.
//
// REQUIRES: r is not a secondary or supplementary alignment.
func (c *Correlator) Add(r *sam.Record, verdict Verdict, emit func(*ReadUnit)) {
	if r.Flags&sam.Paired == 0 {
		c.unit = ReadUnit{Blocks: c.unit.Blocks[:0], Verdict: verdict, Forward: FragmentForward(r)}
		if verdict == Pass {
			c.unit.Blocks = AppendBlocks(c.unit.Blocks, r)
		}
		emit(&c.unit)
		return
	}
	key := mateKey{name: r.Name, refID: r.Ref.ID(), pos: r.Pos, mateRefID: r.MateRef.ID(), mPos: r.MatePos}
	lookup := mateKey{name: r.Name, refID: r.MateRef.ID(), pos: r.MatePos, mateRefID: r.Ref.ID(), mPos: r.Pos}
	if r.Flags&(sam.Unmapped|sam.MateUnmapped) != 0 {
		// Aligners place an unmapped mate at its partner's position but do
		// not always fill in the mate fields of the mapped one.
		key = mateKey{name: r.Name, refID: r.Ref.ID(), pos: r.Pos, mateRefID: r.Ref.ID(), mPos: r.Pos}
		lookup = key
	}
	segment := r.Flags & (sam.Read1 | sam.Read2)
	mate, ok := c.pending[lookup]
	if ok && segment != 0 && mate.segment == segment {
		// Two records of the same segment never form a pair.
		delete(c.pending, lookup)
		c.emitSingleton(mate, emit)
		ok = false
	}
	if !ok {
		pm := &pendingMate{verdict: verdict, forward: FragmentForward(r), read1: r.Flags&sam.Read1 != 0, segment: segment}
		if verdict == Pass {
			pm.blocks = AppendBlocks(nil, r)
		}
		if old, dup := c.pending[key]; dup {
			// Same name and positions seen twice without a mate in between.
			// Count the older record on its own so nothing is lost.
			c.emitSingleton(old, emit)
		}
		c.pending[key] = pm
		return
	}
	delete(c.pending, lookup)
	c.join(mate, r, verdict, emit)
}

func (c *Correlator) join(mate *pendingMate, r *sam.Record, verdict Verdict, emit func(*ReadUnit)) {
	forward := FragmentForward(r)
	if mate.read1 {
		forward = mate.forward
	}
	c.unit = ReadUnit{Blocks: c.unit.Blocks[:0], Forward: forward}
	switch {
	case mate.verdict == Pass && verdict == Pass:
		c.unit.Blocks = append(c.unit.Blocks, mate.blocks...)
		c.unit.Blocks = AppendBlocks(c.unit.Blocks, r)
		c.unit.Verdict = Pass
		c.Pairs++
	case mate.verdict == Pass && verdict == RejectNotAligned:
		c.unit.Blocks = append(c.unit.Blocks, mate.blocks...)
		c.unit.Forward = mate.forward
		c.singleton()
	case mate.verdict == RejectNotAligned && verdict == Pass:
		c.unit.Blocks = AppendBlocks(c.unit.Blocks, r)
		c.unit.Forward = FragmentForward(r)
		c.singleton()
	default:
		v := mate.verdict
		if verdict > v {
			v = verdict
		}
		c.unit.Verdict = v
		c.Pairs++
	}
	emit(&c.unit)
}

// singleton marks c.unit as a mate counted without its partner.
func (c *Correlator) singleton() {
	c.unit.Verdict = Pass
	c.unit.Singleton = true
	c.Singletons++
	if !c.opts.CountSingleEndMates {
		c.unit.Excluded = true
	}
}

func (c *Correlator) emitSingleton(mate *pendingMate, emit func(*ReadUnit)) {
	c.unit = ReadUnit{Blocks: append(c.unit.Blocks[:0], mate.blocks...), Forward: mate.forward, Verdict: mate.verdict}
	if mate.verdict == Pass {
		c.singleton()
	} else {
		c.Singletons++
		c.unit.Singleton = true
	}
	emit(&c.unit)
}

// Flush resolves every mate still waiting for its partner, leaving the
// Correlator empty.  An aligned mate becomes a single-end unit, excluded if
// Opts.CountSingleEndMates is false.  A rejected mate keeps its verdict.
func (c *Correlator) Flush(emit func(*ReadUnit)) {
	for key, mate := range c.pending {
		c.emitSingleton(mate, emit)
		delete(c.pending, key)
	}
}

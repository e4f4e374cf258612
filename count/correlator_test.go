package count

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
)

// collect returns an emit function that saves copies of the emitted units.
func collect(units *[]ReadUnit) func(*ReadUnit) {
	return func(u *ReadUnit) {
		c := *u
		c.Blocks = append([]Block(nil), u.Blocks...)
		*units = append(*units, c)
	}
}

func addAll(c *Correlator, opts *Opts, emit func(*ReadUnit), recs ...*sam.Record) {
	for _, r := range recs {
		c.Add(r, Filter(r, opts), emit)
	}
}

func TestCorrelatorSingleEnd(t *testing.T) {
	opts := testOpts()
	c := NewCorrelator(&opts)
	var units []ReadUnit
	addAll(c, &opts, collect(&units),
		newRecord(t, "a", chr1, 100, "50M", 0, 60),
		newRecord(t, "b", chr1, 100, "50M", sam.Reverse, 60),
		newRecord(t, "c", nil, -1, "", sam.Unmapped, 0))
	expect.EQ(t, len(units), 3)
	expect.EQ(t, units[0], ReadUnit{Blocks: []Block{{"chr1", 100, 150}}, Forward: true, Verdict: Pass})
	expect.EQ(t, units[1], ReadUnit{Blocks: []Block{{"chr1", 100, 150}}, Forward: false, Verdict: Pass})
	expect.EQ(t, units[2].Verdict, RejectNotAligned)
	expect.EQ(t, len(units[2].Blocks), 0)
	expect.EQ(t, c.Len(), 0)
	expect.EQ(t, c.Pairs, 0)
}

func TestCorrelatorPair(t *testing.T) {
	for _, swap := range []bool{false, true} {
		opts := testOpts()
		c := NewCorrelator(&opts)
		var units []ReadUnit
		r1, r2 := newPair(t, "p", chr2, 100, "50M", 300, "50M", 60)
		if swap {
			r1, r2 = r2, r1
		}
		addAll(c, &opts, collect(&units), r1)
		expect.EQ(t, len(units), 0)
		expect.EQ(t, c.Len(), 1)
		addAll(c, &opts, collect(&units), r2)
		expect.EQ(t, c.Len(), 0)
		expect.EQ(t, len(units), 1, "swap=%v", swap)
		u := units[0]
		expect.EQ(t, u.Verdict, Pass)
		expect.True(t, u.Forward, "swap=%v", swap)
		expect.False(t, u.Singleton)
		expect.EQ(t, len(u.Blocks), 2)
		expect.EQ(t, c.Pairs, 1)
	}
}

func TestCorrelatorReusedName(t *testing.T) {
	opts := testOpts()
	c := NewCorrelator(&opts)
	var units []ReadUnit
	a1, a2 := newPair(t, "p", chr1, 100, "50M", 300, "50M", 60)
	b1, b2 := newPair(t, "p", chr2, 100, "50M", 300, "50M", 60)
	addAll(c, &opts, collect(&units), a1, b1, b2, a2)
	expect.EQ(t, len(units), 2)
	expect.EQ(t, units[0].Blocks[0].Chrom, "chr2")
	expect.EQ(t, units[1].Blocks[0].Chrom, "chr1")
	expect.EQ(t, c.Pairs, 2)
	expect.EQ(t, c.Len(), 0)
}

func TestCorrelatorUnmappedMate(t *testing.T) {
	for _, countSingle := range []bool{true, false} {
		opts := testOpts()
		opts.CountSingleEndMates = countSingle
		c := NewCorrelator(&opts)
		var units []ReadUnit
		r1, r2 := newPair(t, "p", chr1, 100, "50M", 100, "", 60)
		r2.Flags |= sam.Unmapped
		r1.Flags |= sam.MateUnmapped
		addAll(c, &opts, collect(&units), r2, r1)
		expect.EQ(t, len(units), 1)
		u := units[0]
		expect.EQ(t, u.Verdict, Pass)
		expect.True(t, u.Singleton)
		expect.EQ(t, u.Excluded, !countSingle)
		expect.EQ(t, u.Blocks, []Block{{"chr1", 100, 150}})
		expect.True(t, u.Forward)
		expect.EQ(t, c.Singletons, 1)
		expect.EQ(t, c.Pairs, 0)
	}
}

func TestCorrelatorRejectedPair(t *testing.T) {
	opts := testOpts()
	c := NewCorrelator(&opts)
	var units []ReadUnit
	r1, r2 := newPair(t, "p", chr1, 100, "50M", 300, "50M", 5)
	r2.Flags |= sam.Duplicate
	addAll(c, &opts, collect(&units), r1, r2)
	expect.EQ(t, len(units), 1)
	// Duplicate takes precedence over low quality.
	expect.EQ(t, units[0].Verdict, RejectDuplicate)
	expect.EQ(t, len(units[0].Blocks), 0)
}

func TestCorrelatorFlush(t *testing.T) {
	for _, countSingle := range []bool{true, false} {
		opts := testOpts()
		opts.CountSingleEndMates = countSingle
		c := NewCorrelator(&opts)
		var units []ReadUnit
		emit := collect(&units)
		r1, _ := newPair(t, "p", chr1, 100, "50M", 300, "50M", 60)
		q1, _ := newPair(t, "q", chr1, 100, "50M", 300, "50M", 2)
		addAll(c, &opts, emit, r1, q1)
		expect.EQ(t, c.Len(), 2)
		c.Flush(emit)
		expect.EQ(t, c.Len(), 0)
		expect.EQ(t, len(units), 2)
		var pass, lowQual int
		for _, u := range units {
			expect.True(t, u.Singleton)
			switch u.Verdict {
			case Pass:
				pass++
				expect.EQ(t, u.Excluded, !countSingle)
			case RejectLowQual:
				lowQual++
			}
		}
		expect.EQ(t, pass, 1)
		expect.EQ(t, lowQual, 1)
		expect.EQ(t, c.Singletons, 2)
	}
}

func TestCorrelatorDuplicateKey(t *testing.T) {
	opts := testOpts()
	c := NewCorrelator(&opts)
	var units []ReadUnit
	r1, _ := newPair(t, "p", chr1, 100, "50M", 300, "50M", 60)
	addAll(c, &opts, collect(&units), r1, r1)
	expect.EQ(t, len(units), 1)
	expect.True(t, units[0].Singleton)
	expect.EQ(t, c.Len(), 1)
}

func TestCorrelatorMateUnmappedWithoutMatePosition(t *testing.T) {
	for _, swap := range []bool{false, true} {
		opts := testOpts()
		c := NewCorrelator(&opts)
		var units []ReadUnit
		r1, r2 := newPair(t, "p", chr2, 100, "50M", 100, "", 60)
		r1.Flags |= sam.MateUnmapped
		r1.MateRef, r1.MatePos = nil, -1
		r2.Flags |= sam.Unmapped
		if swap {
			r1, r2 = r2, r1
		}
		addAll(c, &opts, collect(&units), r1, r2)
		expect.EQ(t, c.Len(), 0, "swap=%v", swap)
		expect.EQ(t, len(units), 1, "swap=%v", swap)
		expect.EQ(t, units[0], ReadUnit{Blocks: []Block{{"chr2", 100, 150}}, Forward: true, Verdict: Pass, Singleton: true})
		expect.EQ(t, c.Singletons, 1)
		expect.EQ(t, c.Pairs, 0)
	}
}

func TestCorrelatorSameSegment(t *testing.T) {
	opts := testOpts()
	c := NewCorrelator(&opts)
	var units []ReadUnit
	r1, _ := newPair(t, "p", chr2, 100, "50M", 100, "", 60)
	r1.Flags |= sam.MateUnmapped
	again := *r1
	addAll(c, &opts, collect(&units), r1, &again)
	expect.EQ(t, len(units), 1)
	expect.True(t, units[0].Singleton)
	expect.EQ(t, c.Len(), 1)
	expect.EQ(t, c.Pairs, 0)
}

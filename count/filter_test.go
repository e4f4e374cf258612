package count

import (
	"testing"

	"github.com/grailbio/genecount/annotation"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
)

func TestFilter(t *testing.T) {
	nh := func(n uint8) sam.AuxFields {
		aux, err := sam.NewAux(nhTag, n)
		if err != nil {
			t.Fatal(err)
		}
		return sam.AuxFields{aux}
	}
	tests := []struct {
		flags           sam.Flags
		mapq            byte
		aux             sam.AuxFields
		countDuplicates bool
		want            Verdict
	}{
		{0, 60, nil, false, Pass},
		{0, 10, nil, false, Pass},
		{0, 9, nil, false, RejectLowQual},
		{sam.Unmapped, 0, nil, false, RejectNotAligned},
		{sam.Unmapped | sam.Secondary, 60, nil, false, RejectNotAligned},
		{sam.Secondary, 60, nil, false, RejectNonUnique},
		{sam.Supplementary, 0, nil, false, RejectNonUnique},
		{0, 60, nh(2), false, RejectNonUnique},
		{0, 60, nh(1), false, Pass},
		{sam.Duplicate, 60, nil, false, RejectDuplicate},
		{sam.Duplicate, 60, nil, true, Pass},
		{sam.Duplicate, 0, nil, false, RejectDuplicate},
		{sam.Duplicate, 0, nil, true, RejectLowQual},
		{sam.QCFail, 60, nil, false, Pass},
	}
	for i, test := range tests {
		opts := DefaultOpts
		opts.CountDuplicates = test.countDuplicates
		r := &sam.Record{Name: "r", Ref: chr1, Flags: test.flags, MapQ: test.mapq, AuxFields: test.aux}
		expect.EQ(t, Filter(r, &opts), test.want, "test %d: %+v", i, test)
	}
}

func TestVerdictKind(t *testing.T) {
	expect.EQ(t, RejectNotAligned.Kind(), NotAligned)
	expect.EQ(t, RejectLowQual.Kind(), LowQual)
	expect.EQ(t, RejectDuplicate.Kind(), Duplicate)
	expect.EQ(t, RejectNonUnique.Kind(), NonUnique)
}

func TestFragmentStrand(t *testing.T) {
	tests := []struct {
		flags sam.Flags
		want  bool
	}{
		{0, true},
		{sam.Reverse, false},
		{sam.Paired | sam.Read1, true},
		{sam.Paired | sam.Read1 | sam.Reverse, false},
		{sam.Paired | sam.Read2 | sam.Reverse, true},
		{sam.Paired | sam.Read2, false},
	}
	for _, test := range tests {
		expect.EQ(t, FragmentForward(&sam.Record{Flags: test.flags}), test.want, "flags %v", test.flags)
	}

	expect.EQ(t, Unstranded.ExonStrand(true), annotation.StrandUnknown)
	expect.EQ(t, Unstranded.ExonStrand(false), annotation.StrandUnknown)
	expect.EQ(t, Forward.ExonStrand(true), annotation.StrandForward)
	expect.EQ(t, Forward.ExonStrand(false), annotation.StrandReverse)
	expect.EQ(t, Reverse.ExonStrand(true), annotation.StrandReverse)
	expect.EQ(t, Reverse.ExonStrand(false), annotation.StrandForward)
}

func TestAppendBlocks(t *testing.T) {
	tests := []struct {
		pos   int
		cigar string
		want  []Block
	}{
		{100, "50M", []Block{{"chr1", 100, 150}}},
		{100, "10S20M5I10M100N30M2D5M3H", []Block{{"chr1", 100, 130}, {"chr1", 230, 260}, {"chr1", 262, 267}}},
		{0, "5=1X4=", []Block{{"chr1", 0, 10}}},
		{100, "", nil},
	}
	for _, test := range tests {
		r := newRecord(t, "r", chr1, test.pos, test.cigar, 0, 60)
		got := AppendBlocks(nil, r)
		expect.EQ(t, got, test.want, "cigar %s", test.cigar)
	}
	expect.EQ(t, len(AppendBlocks(nil, &sam.Record{Pos: -1})), 0)
}

package count

import (
	"testing"

	"github.com/grailbio/genecount/annotation"
	"github.com/grailbio/genecount/geneindex"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
)

var (
	chr1, _  = sam.NewReference("chr1", "", "", 100000, nil, nil)
	chr2, _  = sam.NewReference("chr2", "", "", 100000, nil, nil)
	chrUn, _ = sam.NewReference("chrUn", "", "", 100000, nil, nil)
	// NewHeader assigns reference IDs.
	testHeader, _ = sam.NewHeader(nil, []*sam.Reference{chr1, chr2, chrUn})
)

// testExons:
//   G1 (+) chr1 [1000,1200) [1500,1800)
//   G2 (-) chr1 [1700,2500)
//   G3 (+) chr2 [0,200) [250,400)
//   G4 (.) chr2 [5000,6000)
var testExons = []annotation.Exon{
	{Chrom: "chr1", Start: 1000, End: 1200, Strand: annotation.StrandForward, GeneID: "G1"},
	{Chrom: "chr1", Start: 1500, End: 1800, Strand: annotation.StrandForward, GeneID: "G1"},
	{Chrom: "chr1", Start: 1700, End: 2500, Strand: annotation.StrandReverse, GeneID: "G2"},
	{Chrom: "chr2", Start: 0, End: 200, Strand: annotation.StrandForward, GeneID: "G3"},
	{Chrom: "chr2", Start: 250, End: 400, Strand: annotation.StrandForward, GeneID: "G3"},
	{Chrom: "chr2", Start: 5000, End: 6000, Strand: annotation.StrandUnknown, GeneID: "G4"},
}

func newTestIndex(t *testing.T) *geneindex.Index {
	idx, err := geneindex.New(testExons)
	assert.NoError(t, err)
	return idx
}

func geneID(t *testing.T, idx *geneindex.Index, name string) geneindex.GeneID {
	id, ok := idx.Lookup(name)
	assert.True(t, ok, "gene %s", name)
	return id
}

func newRecord(t *testing.T, name string, ref *sam.Reference, pos int, cigar string, flags sam.Flags, mapq byte) *sam.Record {
	r := &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MapQ:    mapq,
		Flags:   flags,
		MatePos: -1,
	}
	if cigar != "" {
		c, err := sam.ParseCigar([]byte(cigar))
		assert.NoError(t, err)
		r.Cigar = c
	}
	return r
}

// newPair creates the two mates of a forward-stranded FR pair.  The first
// mate is at pos1 on the forward strand.
func newPair(t *testing.T, name string, ref *sam.Reference, pos1 int, cigar1 string, pos2 int, cigar2 string, mapq byte) (*sam.Record, *sam.Record) {
	r1 := newRecord(t, name, ref, pos1, cigar1, sam.Paired|sam.ProperPair|sam.Read1|sam.MateReverse, mapq)
	r2 := newRecord(t, name, ref, pos2, cigar2, sam.Paired|sam.ProperPair|sam.Read2|sam.Reverse, mapq)
	r1.MateRef, r1.MatePos = ref, pos2
	r2.MateRef, r2.MatePos = ref, pos1
	return r1, r2
}

func testOpts() Opts {
	opts := DefaultOpts
	opts.Parallelism = 1
	return opts
}

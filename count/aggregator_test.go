package count

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestAggregatorFinalize(t *testing.T) {
	idx := newTestIndex(t)
	g1 := geneID(t, idx, "G1")
	g3 := geneID(t, idx, "G3")

	newAgg := func() *Aggregator {
		a := NewAggregator(idx.NumGenes())
		a.Record(Classification{Kind: Assigned, Gene: g1})
		a.Record(Classification{Kind: Assigned, Gene: g1})
		a.Record(Classification{Kind: Assigned, Gene: g3})
		a.Record(Classification{Kind: NoFeature})
		a.Record(Classification{Kind: Ambiguous})
		a.RecordN(Classification{Kind: LowQual}, 3)
		a.Record(Classification{Kind: NotAligned})
		a.Record(Classification{Kind: NonUnique})
		a.Record(Classification{Kind: Duplicate})
		a.Record(Classification{Kind: Filtered})
		a.Stats.Records = 12
		return a
	}

	opts := testOpts()
	table := newAgg().Finalize(idx, &opts)
	expect.EQ(t, table.Rows, []Row{
		{"G1", 2},
		{"G2", 0},
		{"G3", 1},
		{"G4", 0},
		{LabelNoFeature, 1},
		{LabelAmbiguous, 1},
		{LabelLowQual, 3},
		{LabelNotAlign, 1},
		{LabelNonUnique, 1},
	})
	expect.EQ(t, table.Duplicates, int64(1))
	expect.EQ(t, table.Filtered, int64(1))
	expect.EQ(t, table.Total(), int64(12))
	expect.EQ(t, table.Count(LabelDuplicate), int64(-1))
	expect.EQ(t, table.Count("G1"), int64(2))

	opts.ReportExcluded = true
	table = newAgg().Finalize(idx, &opts)
	expect.EQ(t, len(table.Rows), 11)
	expect.EQ(t, table.Count(LabelDuplicate), int64(1))
	expect.EQ(t, table.Count(LabelFiltered), int64(1))
	expect.EQ(t, table.Total(), int64(12))
}

func TestAggregatorMerge(t *testing.T) {
	idx := newTestIndex(t)
	g2 := geneID(t, idx, "G2")
	a := NewAggregator(idx.NumGenes())
	b := NewAggregator(idx.NumGenes())
	a.Record(Classification{Kind: Assigned, Gene: g2})
	b.Record(Classification{Kind: Assigned, Gene: g2})
	b.Record(Classification{Kind: Ambiguous})
	a.Stats = Stats{Records: 1, Pairs: 1}
	b.Stats = Stats{Records: 3, Singletons: 1, QCFailed: 2, NotInAnnotation: 1}
	a.Merge(b)

	opts := testOpts()
	table := a.Finalize(idx, &opts)
	expect.EQ(t, table.Count("G2"), int64(2))
	expect.EQ(t, table.Count(LabelAmbiguous), int64(1))
	expect.EQ(t, table.Stats, Stats{Records: 4, Pairs: 1, Singletons: 1, QCFailed: 2, NotInAnnotation: 1})
}

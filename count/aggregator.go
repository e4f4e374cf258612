package count

import (
	"github.com/grailbio/genecount/geneindex"
)

// Labels of the rows following the gene rows.
const (
	LabelNoFeature = "no_feature"
	LabelAmbiguous = "ambiguous"
	LabelLowQual   = "too_low_aQual"
	LabelNotAlign  = "not_aligned"
	LabelNonUnique = "alignment_not_unique"
	LabelDuplicate = "duplicate"
	LabelFiltered  = "filtered"
)

// Stats are run statistics that have no row in the count table.
type Stats struct {
	// Records is the number of alignment records read.
	Records int
	// Pairs is the number of read units formed by two mates.
	Pairs int
	// Singletons is the number of paired reads resolved without their mate.
	Singletons int
	// QCFailed is the number of records flagged as failing vendor quality
	// checks.  They are counted like any other record.
	QCFailed int
	// NotInAnnotation is the number of units aligned only to chromosomes
	// without annotated exons.  They are included in the no_feature count.
	NotInAnnotation int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Records += o.Records
	s.Pairs += o.Pairs
	s.Singletons += o.Singletons
	s.QCFailed += o.QCFailed
	s.NotInAnnotation += o.NotInAnnotation
	return s
}

// Aggregator accumulates classifications.  It is not thread safe; workers
// keep their own and Merge them once done.
type Aggregator struct {
	genes []int64
	kinds [numKinds]int64
	Stats Stats
}

// NewAggregator creates an Aggregator for an index of nGenes genes.
func NewAggregator(nGenes int) *Aggregator {
	return &Aggregator{genes: make([]int64, nGenes)}
}

// Record increments the bucket of c.
func (a *Aggregator) Record(c Classification) {
	if c.Kind == Assigned {
		a.genes[c.Gene]++
	}
	a.kinds[c.Kind]++
}

// RecordN increments the bucket of c by n.
func (a *Aggregator) RecordN(c Classification, n int64) {
	if c.Kind == Assigned {
		a.genes[c.Gene] += n
	}
	a.kinds[c.Kind] += n
}

// Merge adds the counts of o to a.
func (a *Aggregator) Merge(o *Aggregator) {
	for i, n := range o.genes {
		a.genes[i] += n
	}
	for i, n := range o.kinds {
		a.kinds[i] += n
	}
	a.Stats = a.Stats.Merge(o.Stats)
}

// Row is one line of the count table.
type Row struct {
	Label string
	Count int64
}

// Table is the final count table.  Rows holds the genes in annotation order,
// followed by the special categories.
type Table struct {
	Rows []Row
	// Duplicates and Filtered count the units excluded from every row unless
	// Opts.ReportExcluded is set.
	Duplicates int64
	Filtered   int64
	Stats      Stats

	excludedRows bool
}

// Finalize produces the count table.  The Aggregator must not be used
// afterwards.
func (a *Aggregator) Finalize(idx *geneindex.Index, opts *Opts) *Table {
	t := &Table{
		Rows:       make([]Row, 0, len(a.genes)+7),
		Duplicates: a.kinds[Duplicate],
		Filtered:   a.kinds[Filtered],
		Stats:      a.Stats,
	}
	for i, n := range a.genes {
		t.Rows = append(t.Rows, Row{Label: idx.GeneName(geneindex.GeneID(i)), Count: n})
	}
	t.Rows = append(t.Rows,
		Row{LabelNoFeature, a.kinds[NoFeature]},
		Row{LabelAmbiguous, a.kinds[Ambiguous]},
		Row{LabelLowQual, a.kinds[LowQual]},
		Row{LabelNotAlign, a.kinds[NotAligned]},
		Row{LabelNonUnique, a.kinds[NonUnique]})
	if opts.ReportExcluded {
		t.excludedRows = true
		t.Rows = append(t.Rows,
			Row{LabelDuplicate, t.Duplicates},
			Row{LabelFiltered, t.Filtered})
	}
	a.genes = nil
	return t
}

// Count returns the count of a label, or -1 if there is no such row.
func (t *Table) Count(label string) int64 {
	for _, r := range t.Rows {
		if r.Label == label {
			return r.Count
		}
	}
	return -1
}

// Total returns the sum of all counts, including the excluded units that
// have no row.
func (t *Table) Total() int64 {
	var n int64
	for _, r := range t.Rows {
		n += r.Count
	}
	if !t.excludedRows {
		n += t.Duplicates + t.Filtered
	}
	return n
}

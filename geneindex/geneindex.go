// Package geneindex answers the two questions the read counter asks of an
// annotation: which genes have an exon overlapping a reference range, and
// which genes' merged exons cover a range without a gap.
//
// An Index is immutable once New returns, and may be queried concurrently.
package geneindex

import (
	"sort"

	ivtree "github.com/biogo/store/interval"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genecount/annotation"
	"github.com/grailbio/genecount/interval"
)

// GeneID is a dense gene number, assigned in annotation encounter order
// starting from zero.
type GeneID int32

// exon is a deduplicated annotation exon stored in a chromosome's tree.
type exon struct {
	start, end int
	uid        uintptr
	gene       GeneID
	strand     annotation.Strand
}

// Overlap implements ivtree.IntOverlapper with half-open semantics.
func (e exon) Overlap(b ivtree.IntRange) bool {
	return e.start < b.End && b.Start < e.end
}

// ID implements ivtree.IntInterface.  Exons with equal start must have
// distinct IDs, otherwise the tree would replace one with the other.
func (e exon) ID() uintptr { return e.uid }

// Range implements ivtree.IntInterface.
func (e exon) Range() ivtree.IntRange {
	return ivtree.IntRange{Start: e.start, End: e.end}
}

// query is a [start, end) search key.
type query struct {
	start, end int
}

func (q query) Overlap(b ivtree.IntRange) bool {
	return q.start < b.End && b.Start < q.end
}

type exonKey struct {
	gene       GeneID
	chrom      string
	start, end int
	strand     annotation.Strand
}

// chromIndex holds the exons of one chromosome.
type chromIndex struct {
	tree ivtree.IntTree
	// unions maps each gene with exons on this chromosome to its merged exons.
	unions map[GeneID]interval.Union
}

// Index is the annotation index.
type Index struct {
	names  []string
	ids    map[string]GeneID
	chroms map[string]*chromIndex
	nExons int
}

// New builds an Index from exons, which must use 0-based half-open
// coordinates.  Genes are numbered in the order their first exon appears.
// Identical exons of the same gene (typically shared by several transcripts)
// are stored once.  An exon without a gene id, or whose end precedes its
// start, yields an *annotation.MalformedError.
func New(exons []annotation.Exon) (*Index, error) {
	idx := &Index{
		ids:    map[string]GeneID{},
		chroms: map[string]*chromIndex{},
	}
	seen := map[exonKey]struct{}{}
	ranges := map[string]map[GeneID][]interval.Range{}
	nDuplicate := 0
	for i, e := range exons {
		if e.GeneID == "" {
			return nil, &annotation.MalformedError{Record: i + 1, Reason: "missing gene_id"}
		}
		if e.End < e.Start || e.Start < 0 {
			return nil, &annotation.MalformedError{Record: i + 1, Reason: "invalid exon range"}
		}
		if e.End > interval.PosTypeMax-1 {
			return nil, &annotation.MalformedError{Record: i + 1, Reason: "exon end out of range"}
		}
		gene, ok := idx.ids[e.GeneID]
		if !ok {
			gene = GeneID(len(idx.names))
			idx.ids[e.GeneID] = gene
			idx.names = append(idx.names, e.GeneID)
		}
		key := exonKey{gene: gene, chrom: e.Chrom, start: e.Start, end: e.End, strand: e.Strand}
		if _, ok := seen[key]; ok {
			nDuplicate++
			continue
		}
		seen[key] = struct{}{}
		if e.End == e.Start {
			continue
		}
		ci := idx.chroms[e.Chrom]
		if ci == nil {
			ci = &chromIndex{unions: map[GeneID]interval.Union{}}
			idx.chroms[e.Chrom] = ci
			ranges[e.Chrom] = map[GeneID][]interval.Range{}
		}
		x := exon{start: e.Start, end: e.End, uid: uintptr(idx.nExons), gene: gene, strand: e.Strand}
		if err := ci.tree.Insert(x, true); err != nil {
			return nil, &annotation.MalformedError{Record: i + 1, Reason: err.Error()}
		}
		idx.nExons++
		ranges[e.Chrom][gene] = append(ranges[e.Chrom][gene],
			interval.Range{Start: interval.PosType(e.Start), End: interval.PosType(e.End)})
	}
	exonicBases := 0
	for chrom, ci := range idx.chroms {
		ci.tree.AdjustRanges()
		for gene, r := range ranges[chrom] {
			u, err := interval.NewUnion(r)
			if err != nil {
				return nil, err
			}
			ci.unions[gene] = u
			exonicBases += u.Bases()
		}
	}
	log.Printf("Indexed %d genes, %d unique exons covering %d exonic bases on %d chromosomes (%d duplicate exons dropped)",
		len(idx.names), idx.nExons, exonicBases, len(idx.chroms), nDuplicate)
	return idx, nil
}

// NumGenes returns the number of distinct genes.
func (idx *Index) NumGenes() int { return len(idx.names) }

// NumExons returns the number of unique nonempty exons.
func (idx *Index) NumExons() int { return idx.nExons }

// GeneName returns the annotation gene_id of a gene.
func (idx *Index) GeneName(id GeneID) string { return idx.names[id] }

// Lookup returns the GeneID of a gene_id.
func (idx *Index) Lookup(name string) (GeneID, bool) {
	id, ok := idx.ids[name]
	return id, ok
}

// HasChrom returns whether any exon lies on chrom.
func (idx *Index) HasChrom(chrom string) bool {
	_, ok := idx.chroms[chrom]
	return ok
}

// Chroms returns the sorted names of chromosomes with exons.
func (idx *Index) Chroms() []string {
	names := make([]string, 0, len(idx.chroms))
	for c := range idx.chroms {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// strandMatches returns whether an exon annotated with s can explain a read
// unit that requires want.  Unknown on either side always matches.
func strandMatches(s, want annotation.Strand) bool {
	return want == annotation.StrandUnknown || s == annotation.StrandUnknown || s == want
}

func appendUnique(dst []GeneID, g GeneID) []GeneID {
	for _, x := range dst {
		if x == g {
			return dst
		}
	}
	return append(dst, g)
}

// QueryOverlap appends to dst[:0] the distinct genes having an exon that
// shares at least one position with [start, end) on chrom, and whose strand
// is compatible with strand.  Pass annotation.StrandUnknown to disable the
// strand check.  The result is sorted by GeneID.  An empty range or an
// unknown chromosome yields no genes.
func (idx *Index) QueryOverlap(chrom string, start, end int, strand annotation.Strand, dst []GeneID) []GeneID {
	dst = dst[:0]
	ci := idx.chroms[chrom]
	if ci == nil || end <= start {
		return dst
	}
	ci.tree.DoMatching(func(iv ivtree.IntInterface) bool {
		e := iv.(exon)
		if strandMatches(e.strand, strand) {
			dst = appendUnique(dst, e.gene)
		}
		return false
	}, query{start: start, end: end})
	sort.Slice(dst, func(i, j int) bool { return dst[i] < dst[j] })
	return dst
}

// QueryContained appends to dst[:0] the genes, among those QueryOverlap
// returns, whose merged exons on chrom cover every position of [start, end).
// Abutting exons count as continuous coverage.  The result is sorted by
// GeneID.
func (idx *Index) QueryContained(chrom string, start, end int, strand annotation.Strand, dst []GeneID) []GeneID {
	dst = idx.QueryOverlap(chrom, start, end, strand, dst)
	if len(dst) == 0 {
		return dst
	}
	ci := idx.chroms[chrom]
	n := 0
	for _, g := range dst {
		if ci.unions[g].ContainsRange(interval.PosType(start), interval.PosType(end)) {
			dst[n] = g
			n++
		}
	}
	return dst[:n]
}

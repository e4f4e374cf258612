package count

import (
	"github.com/grailbio/genecount/annotation"
	"github.com/grailbio/genecount/geneindex"
)

// Kind is the final category of a read unit.
type Kind int

const (
	// Assigned to exactly one gene.
	Assigned Kind = iota
	// NoFeature means no gene qualified.
	NoFeature
	// Ambiguous means more than one gene qualified.
	Ambiguous
	// LowQual is a unit rejected for its mapping quality.
	LowQual
	// NotAligned is an unmapped unit.
	NotAligned
	// NonUnique is a secondary, supplementary or multi-mapped alignment.
	NonUnique
	// Duplicate is a duplicate unit excluded from counting.
	Duplicate
	// Filtered is a mate excluded because its partner was missing or
	// unaligned.
	Filtered
	numKinds
)

// Classification is the outcome for one read unit.  Gene is meaningful only
// for Assigned.
type Classification struct {
	Kind Kind
	Gene geneindex.GeneID
}

// Resolver maps read units to genes.  It holds scratch buffers, so each
// worker needs its own; the Index is shared.
type Resolver struct {
	idx        *geneindex.Index
	opts       *Opts
	genes, tmp []geneindex.GeneID
	// NotInAnnotation counts units none of whose blocks lie on an annotated
	// chromosome.
	NotInAnnotation int
}

// NewResolver creates a Resolver over idx.
func NewResolver(idx *geneindex.Index, opts *Opts) *Resolver {
	return &Resolver{idx: idx, opts: opts}
}

// Resolve classifies u.  Rejected and excluded units keep their category
// without consulting the annotation.
func (r *Resolver) Resolve(u *ReadUnit) Classification {
	if u.Verdict != Pass {
		return Classification{Kind: u.Verdict.Kind()}
	}
	if u.Excluded {
		return Classification{Kind: Filtered}
	}
	if len(u.Blocks) == 0 {
		return Classification{Kind: NoFeature}
	}
	annotated := false
	for _, b := range u.Blocks {
		if r.idx.HasChrom(b.Chrom) {
			annotated = true
			break
		}
	}
	if !annotated {
		r.NotInAnnotation++
		return Classification{Kind: NoFeature}
	}
	strand := r.opts.Strandness.ExonStrand(u.Forward)
	if r.opts.Method == Strict {
		r.resolveStrict(u, strand)
	} else {
		r.resolveUnion(u, strand)
	}
	switch len(r.genes) {
	case 0:
		return Classification{Kind: NoFeature}
	case 1:
		return Classification{Kind: Assigned, Gene: r.genes[0]}
	}
	return Classification{Kind: Ambiguous}
}

// resolveUnion sets r.genes to the union of the genes overlapping any block.
func (r *Resolver) resolveUnion(u *ReadUnit, strand annotation.Strand) {
	r.genes = r.genes[:0]
	for _, b := range u.Blocks {
		r.tmp = r.idx.QueryOverlap(b.Chrom, b.Start, b.End, strand, r.tmp)
		for _, g := range r.tmp {
			r.genes = appendGene(r.genes, g)
		}
	}
}

// resolveStrict sets r.genes to the intersection, over all blocks, of the
// genes whose merged exons contain the block.
func (r *Resolver) resolveStrict(u *ReadUnit, strand annotation.Strand) {
	r.genes = r.idx.QueryContained(u.Blocks[0].Chrom, u.Blocks[0].Start, u.Blocks[0].End, strand, r.genes)
	for _, b := range u.Blocks[1:] {
		if len(r.genes) == 0 {
			return
		}
		r.tmp = r.idx.QueryContained(b.Chrom, b.Start, b.End, strand, r.tmp)
		n := 0
		for _, g := range r.genes {
			if containsGene(r.tmp, g) {
				r.genes[n] = g
				n++
			}
		}
		r.genes = r.genes[:n]
	}
}

func containsGene(genes []geneindex.GeneID, g geneindex.GeneID) bool {
	for _, x := range genes {
		if x == g {
			return true
		}
	}
	return false
}

func appendGene(genes []geneindex.GeneID, g geneindex.GeneID) []geneindex.GeneID {
	if containsGene(genes, g) {
		return genes
	}
	return append(genes, g)
}

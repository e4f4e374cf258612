package count

import (
	"github.com/grailbio/hts/sam"
)

// Block is a contiguous reference range covered by aligned bases of a read,
// 0-based and half-open.
type Block struct {
	Chrom      string
	Start, End int
}

// AppendBlocks appends the aligned blocks of r to dst.  Match, sequence
// match and mismatch operations produce blocks; deletions and skipped
// regions (introns) only advance the reference position; insertions, clips
// and padding consume no reference.  Adjacent operations that both produce
// blocks are merged into one block.
func AppendBlocks(dst []Block, r *sam.Record) []Block {
	if r.Ref == nil {
		return dst
	}
	chrom := r.Ref.Name()
	pos := r.Pos
	open := false
	for _, op := range r.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if open && dst[len(dst)-1].End == pos {
				dst[len(dst)-1].End = pos + n
			} else {
				dst = append(dst, Block{Chrom: chrom, Start: pos, End: pos + n})
			}
			open = true
			pos += n
		case sam.CigarDeletion, sam.CigarSkipped:
			open = false
			pos += n
		}
	}
	return dst
}

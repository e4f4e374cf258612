package count

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genecount/annotation"
)

// Method selects how the genes touched by each aligned block are combined.
type Method int

const (
	// Union assigns a read unit to the union of the genes overlapping any of
	// its blocks.
	Union Method = iota
	// Strict assigns a read unit to the intersection, over its blocks, of the
	// genes whose exons fully contain the block.
	Strict
)

// ParseMethod parses "union" or "strict".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "union":
		return Union, nil
	case "strict":
		return Strict, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown quantification method %q, expected union or strict", s))
}

func (m Method) String() string {
	switch m {
	case Union:
		return "union"
	case Strict:
		return "strict"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Strandness describes the library protocol.
type Strandness int

const (
	// Unstranded libraries match exons on either strand.
	Unstranded Strandness = iota
	// Forward libraries: the transcript strand is the orientation of the
	// first mate (or of a single-end read).
	Forward
	// Reverse libraries: the transcript strand is opposite the orientation of
	// the first mate.
	Reverse
)

// ParseStrandness parses "U", "F" or "R".  The htseq-count spellings "no",
// "yes" and "reverse" are accepted too.
func ParseStrandness(s string) (Strandness, error) {
	switch strings.ToLower(s) {
	case "u", "no", "unstranded":
		return Unstranded, nil
	case "f", "yes", "forward":
		return Forward, nil
	case "r", "reverse":
		return Reverse, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown strandness %q, expected F, R or U", s))
}

func (s Strandness) String() string {
	switch s {
	case Unstranded:
		return "U"
	case Forward:
		return "F"
	case Reverse:
		return "R"
	}
	return fmt.Sprintf("Strandness(%d)", int(s))
}

// ExonStrand returns the exon strand a read unit must be compatible with,
// given whether the unit's fragment is forward-oriented.  Unstranded
// libraries return annotation.StrandUnknown, which matches every exon.
func (s Strandness) ExonStrand(fragmentForward bool) annotation.Strand {
	switch s {
	case Forward:
		if fragmentForward {
			return annotation.StrandForward
		}
		return annotation.StrandReverse
	case Reverse:
		if fragmentForward {
			return annotation.StrandReverse
		}
		return annotation.StrandForward
	}
	return annotation.StrandUnknown
}

// Opts defines the behavior of Run and Count.
type Opts struct {
	// GTFPath is the gene annotation.  Only needed by Run.
	GTFPath string
	// AlignmentPath is the BAM or SAM input.  Only needed by Run.
	AlignmentPath string
	// OutputPath is the count table destination.  "" or "-" means stdout.
	// A ".gz" suffix produces a bgzip-compressed table.
	OutputPath string
	// Mapq is the minimum mapping quality.  Records below it are counted as
	// too_low_aQual.
	Mapq int
	// Method is the overlap resolution mode.
	Method Method
	// Strandness is the library protocol.
	Strandness Strandness
	// CountSingleEndMates counts mates whose partner never appears in the
	// input, or is unmapped, as single-end read units.  Otherwise they are
	// excluded.
	CountSingleEndMates bool
	// CountDuplicates counts records flagged as PCR or optical duplicates.
	CountDuplicates bool
	// FeatureTypes selects the GTF rows used as exons.
	FeatureTypes annotation.FeatureTypes
	// Parallelism is the number of counting workers.  If <= 0, the number of
	// CPUs is used.
	Parallelism int
	// ReportExcluded appends "duplicate" and "filtered" rows to the table.
	ReportExcluded bool
}

// DefaultOpts holds the default values of Opts.
var DefaultOpts = Opts{
	OutputPath:          "-",
	Mapq:                10,
	Method:              Union,
	Strandness:          Unstranded,
	CountSingleEndMates: true,
	CountDuplicates:     false,
	FeatureTypes:        annotation.DefaultFeatureTypes(),
	Parallelism:         0,
	ReportExcluded:      false,
}

// Validate checks opts before any input is read.  Errors have kind
// errors.Invalid.
func (o *Opts) Validate() error {
	if o.Mapq < 0 || o.Mapq > 255 {
		return errors.E(errors.Invalid, fmt.Sprintf("mapq threshold %d out of range [0, 255]", o.Mapq))
	}
	if o.Method != Union && o.Method != Strict {
		return errors.E(errors.Invalid, fmt.Sprintf("invalid quantification method %v", o.Method))
	}
	if o.Strandness < Unstranded || o.Strandness > Reverse {
		return errors.E(errors.Invalid, fmt.Sprintf("invalid strandness %v", o.Strandness))
	}
	if len(o.FeatureTypes) == 0 {
		return errors.E(errors.Invalid, "no feature types selected")
	}
	return nil
}

package annotation

import (
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Feature types that may be selected from the third GTF column.
const (
	FeatureExon          = "exon"
	FeatureGene          = "gene"
	FeatureMRNA          = "mRNA"
	FeatureCDS           = "cds"
	FeatureIntron        = "intron"
	FeaturePolyASequence = "polyA_sequence"
	FeaturePolyASite     = "polyA_site"
	FeatureFivePrimeUTR  = "five_prime_UTR"
	FeatureThreePrimeUTR = "three_prime_UTR"
)

// FeatureTypes is the set of GTF feature types that are counted as exons of
// their gene.
type FeatureTypes map[string]struct{}

// DefaultFeatureTypes selects only "exon" rows.
func DefaultFeatureTypes() FeatureTypes {
	return FeatureTypes{FeatureExon: {}}
}

// Contains returns whether the GTF feature column value is selected.  Feature
// names are matched case-insensitively, so "cds" selects "CDS" rows.
func (f FeatureTypes) Contains(feature string) bool {
	if _, ok := f[feature]; ok {
		return true
	}
	for t := range f {
		if strings.EqualFold(t, feature) {
			return true
		}
	}
	return false
}

func (f FeatureTypes) String() string {
	names := make([]string, 0, len(f))
	for t := range f {
		names = append(names, t)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func (f FeatureTypes) hasAny(types ...string) bool {
	for _, t := range types {
		if _, ok := f[t]; ok {
			return true
		}
	}
	return false
}

// ParseFeatureTypes parses a comma-separated list of feature types.  Types
// describing overlapping sequence are rejected, since selecting both would
// count the same bases twice: "gene" cannot be combined with anything,
// "mRNA" only with introns and polyA features, and "cds" not with exons.
// The returned error has kind errors.Invalid.
func ParseFeatureTypes(s string) (FeatureTypes, error) {
	f := FeatureTypes{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case FeatureGene:
			if len(f) > 0 && !(len(f) == 1 && f.hasAny(FeatureGene)) {
				return nil, errors.E(errors.Invalid, `"gene" overlaps other feature types`)
			}
		case FeatureMRNA:
			if f.hasAny(FeatureExon, FeatureGene, FeatureCDS, FeatureFivePrimeUTR, FeatureThreePrimeUTR) {
				return nil, errors.E(errors.Invalid, `"mRNA" overlaps other feature types`)
			}
		case FeatureCDS:
			if f.hasAny(FeatureExon, FeatureGene, FeatureMRNA) {
				return nil, errors.E(errors.Invalid, `"cds" overlaps other feature types`)
			}
		case FeatureExon, FeatureIntron, FeaturePolyASequence, FeaturePolyASite, FeatureFivePrimeUTR, FeatureThreePrimeUTR:
			switch {
			case f.hasAny(FeatureGene):
				return nil, errors.E(errors.Invalid, `"gene" overlaps other feature types`)
			case f.hasAny(FeatureMRNA) && part != FeatureIntron && !strings.HasPrefix(part, "polyA"):
				return nil, errors.E(errors.Invalid, `"mRNA" overlaps other feature types`)
			case f.hasAny(FeatureCDS) && part == FeatureExon:
				return nil, errors.E(errors.Invalid, `"cds" overlaps with exons`)
			}
		default:
			return nil, errors.E(errors.Invalid, "unsupported feature type "+`"`+part+`"`+
				"; supported are exon, gene, mRNA, cds, intron, polyA_sequence, polyA_site, five_prime_UTR and three_prime_UTR")
		}
		if _, ok := f[part]; ok {
			log.Printf("duplicate feature type %s", part)
			continue
		}
		f[part] = struct{}{}
	}
	return f, nil
}

// Package annotation decodes the exon records of a GTF gene annotation.
//
// GTF coordinates are 1-based and closed; every Exon returned by this package
// is normalized to 0-based, half-open coordinates.
package annotation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
)

// Strand is the annotated orientation of an exon.
type Strand byte

const (
	// StrandForward is the '+' strand.
	StrandForward Strand = '+'
	// StrandReverse is the '-' strand.
	StrandReverse Strand = '-'
	// StrandUnknown is '.', meaning the orientation is not annotated.  It is
	// compatible with reads of either orientation.
	StrandUnknown Strand = '.'
)

// ParseStrand converts a GTF strand column to a Strand.
func ParseStrand(s string) (Strand, error) {
	if len(s) == 1 {
		switch st := Strand(s[0]); st {
		case StrandForward, StrandReverse, StrandUnknown:
			return st, nil
		}
	}
	return 0, fmt.Errorf("invalid strand %q, expected one of +, -, .", s)
}

func (s Strand) String() string {
	return string(s)
}

// Exon is one selected feature row of the annotation.
type Exon struct {
	Chrom  string
	Start  int // 0-based, inclusive
	End    int // 0-based, exclusive
	Strand Strand
	GeneID string
}

// MalformedError reports an annotation row that cannot be used.  Record is
// the 1-based index of the row among the non-comment rows of the file.
type MalformedError struct {
	Path   string
	Record int
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed annotation record %d: %s", e.Record, e.Reason)
	}
	return fmt.Sprintf("%s: malformed annotation record %d: %s", e.Path, e.Record, e.Reason)
}

// gtfRecord stores data read from one line of the GTF file.
type gtfRecord struct {
	Chrom   string
	Source  string
	Feature string
	Start   string
	End     string
	Score   string // unused floating point value, but may be "."
	Strand  string
	Frame   string
	Fields  string
}

// Reader decodes exons from a GTF stream.
type Reader struct {
	path     string
	features FeatureTypes
	r        *tsv.Reader
	record   int
	row      gtfRecord
}

// NewReader creates a Reader that yields the rows of r whose feature column
// is in features.  path is used only in error messages.
func NewReader(r io.Reader, path string, features FeatureTypes) *Reader {
	tr := tsv.NewReader(bufio.NewReaderSize(r, 64<<10))
	tr.Comment = '#'
	tr.LazyQuotes = true
	return &Reader{path: path, features: features, r: tr}
}

func (r *Reader) malformed(format string, args ...interface{}) error {
	return &MalformedError{Path: r.path, Record: r.record, Reason: fmt.Sprintf(format, args...)}
}

// Read returns the next selected exon.  It returns io.EOF at the end of the
// stream and a *MalformedError for an unusable row.
func (r *Reader) Read() (Exon, error) {
	for {
		r.record++
		if err := r.r.Read(&r.row); err != nil {
			if err == io.EOF {
				return Exon{}, err
			}
			return Exon{}, r.malformed("%v", err)
		}
		if !r.features.Contains(r.row.Feature) {
			continue
		}
		return r.exon()
	}
}

func (r *Reader) exon() (Exon, error) {
	row := &r.row
	start, err := strconv.Atoi(row.Start)
	if err != nil {
		return Exon{}, r.malformed("invalid start %q", row.Start)
	}
	end, err := strconv.Atoi(row.End)
	if err != nil {
		return Exon{}, r.malformed("invalid end %q", row.End)
	}
	if start < 1 {
		return Exon{}, r.malformed("start %d is not a 1-based position", start)
	}
	if end < start {
		return Exon{}, r.malformed("end %d precedes start %d", end, start)
	}
	strand, err := ParseStrand(row.Strand)
	if err != nil {
		return Exon{}, r.malformed("%v", err)
	}
	geneID := geneIDField(row.Fields)
	if geneID == "" {
		return Exon{}, r.malformed("no gene_id in attributes %q", row.Fields)
	}
	return Exon{
		Chrom:  row.Chrom,
		Start:  start - 1,
		End:    end,
		Strand: strand,
		GeneID: geneID,
	}, nil
}

// geneIDField extracts the gene_id value from the GTF attribute column, which
// is a ';'-separated list of space-separated key/quoted-value pairs.
func geneIDField(info string) string {
	for _, field := range strings.Split(info, ";") {
		field = strings.TrimSpace(field)
		i := strings.IndexAny(field, " \t")
		if i < 0 || field[:i] != "gene_id" {
			continue
		}
		return strings.Trim(strings.TrimSpace(field[i+1:]), "\"")
	}
	return ""
}

// ReadAll reads every selected exon from r.
func ReadAll(r io.Reader, path string, features FeatureTypes) ([]Exon, error) {
	var exons []Exon
	gr := NewReader(r, path, features)
	for {
		exon, err := gr.Read()
		if err == io.EOF {
			return exons, nil
		}
		if err != nil {
			return nil, err
		}
		exons = append(exons, exon)
	}
}

// ReadFile reads every selected exon of the GTF at path.  Gzip-compressed
// files are decompressed transparently.
func ReadFile(ctx context.Context, path string, features FeatureTypes) (exons []Exon, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return nil, err
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	log.Printf("GTF: %s", path)
	if exons, err = ReadAll(reader, path, features); err != nil {
		return nil, err
	}
	log.Printf("Read %d %s records", len(exons), features)
	return exons, nil
}

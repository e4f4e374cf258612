package bamprovider

import (
	"io"
	"strings"
	"sync"

	grailerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// BAMProvider implements Provider for BAM files.  The path is opened through
// grailbio/base/file, so any registered file implementation may serve it.  No
// index is needed, since the whole file is always read.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	err  grailerrors.Once

	mu      sync.Mutex
	nActive int
	header  *sam.Header
}

type bamIterator struct {
	provider *BAMProvider
	in       file.File
	src      *sourceReader
	reader   *bam.Reader
	nRecs    int
	nSkipped int

	err  error
	next *sam.Record
}

// maxSkipsInARow bounds the number of consecutive undecodable records before
// the stream is considered unreadable.
const maxSkipsInARow = 1000

// sourceReader records the first error returned by the underlying file, so
// that I/O failures can be told apart from records that fail to decode.
type sourceReader struct {
	r   io.Reader
	mu  sync.Mutex
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
	return n, err
}

// Err returns the first non-EOF error of the underlying reader.
func (s *sourceReader) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.header != nil {
		return b.header, nil
	}

	ctx := vcontext.Background()
	reader, err := file.Open(ctx, b.Path)
	if err != nil {
		b.err.Set(err)
		return nil, err
	}
	defer reader.Close(ctx) // nolint: errcheck
	bamReader, err := bam.NewReader(reader.Reader(ctx), 1)
	if err != nil {
		err = errors.Wrapf(err, "%s: read BAM header", b.Path)
		b.err.Set(err)
		return nil, err
	}
	defer bamReader.Close() // nolint: errcheck
	b.header = bamReader.Header()
	return b.header, nil
}

// Close implements the Provider interface.
func (b *BAMProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %+v", b.nActive, b)
	}
	return b.err.Err()
}

// NewIterator implements the Provider interface.
func (b *BAMProvider) NewIterator() Iterator {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.Path)
	if err != nil {
		b.err.Set(err)
		return NewErrorIterator(err)
	}
	src := &sourceReader{r: in.Reader(ctx)}
	reader, err := bam.NewReader(src, 1)
	if err != nil {
		err = errors.Wrapf(err, "%s: read BAM header", b.Path)
		in.Close(ctx) // nolint: errcheck
		b.err.Set(err)
		return NewErrorIterator(err)
	}
	b.mu.Lock()
	b.nActive++
	b.mu.Unlock()
	return &bamIterator{provider: b, in: in, src: src, reader: reader}
}

// framingError returns whether err leaves the record stream unusable: a
// failure of the underlying file, a truncated record or a corrupt compressed
// block.  bam.Reader reads a whole length-prefixed record before decoding it,
// so any other error concerns the body of that one record, and the stream is
// positioned at the next one.
func (i *bamIterator) framingError(err error) bool {
	if err == io.ErrUnexpectedEOF || i.src.Err() != nil {
		return true
	}
	msg := err.Error()
	for _, prefix := range []string{"bgzf", "gzip", "flate", "bam: invalid"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// Scan implements the Iterator interface.  A record whose body fails to
// decode is counted by Skipped and passed over.  Framing and I/O errors end
// the iteration.
func (i *bamIterator) Scan() bool {
	if i.err != nil {
		return false
	}
	skipsInARow := 0
	for {
		rec, err := i.reader.Read()
		if err == nil {
			i.next = rec
			i.nRecs++
			return true
		}
		if err == io.EOF {
			i.err = err
			return false
		}
		if i.framingError(err) || skipsInARow >= maxSkipsInARow {
			i.err = errors.Wrapf(err, "%s: read BAM record %d", i.provider.Path, i.nRecs+i.nSkipped)
			return false
		}
		vlog.VI(1).Infof("%s: skipping BAM record %d: %v", i.provider.Path, i.nRecs+i.nSkipped, err)
		i.nSkipped++
		skipsInARow++
	}
}

// Record implements the Iterator interface.
func (i *bamIterator) Record() *sam.Record {
	return i.next
}

// Skipped implements the Iterator interface.
func (i *bamIterator) Skipped() int { return i.nSkipped }

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	if i.reader != nil {
		if err := i.reader.Close(); err != nil && i.err == nil {
			i.err = err
		}
		i.reader = nil
	}
	if i.in != nil {
		if err := i.in.Close(vcontext.Background()); err != nil && i.err == nil {
			i.err = err
		}
		i.in = nil
	}
	vlog.VI(1).Infof("%s: read %d records", i.provider.Path, i.nRecs)
	if i.nSkipped > 0 {
		vlog.Infof("%s: skipped %d undecodable records", i.provider.Path, i.nSkipped)
	}
	err := i.Err()
	i.provider.err.Set(err)
	b := i.provider
	b.mu.Lock()
	b.nActive--
	if b.nActive < 0 {
		vlog.Fatalf("Negative active count for %+v", b)
	}
	b.mu.Unlock()
	return err
}

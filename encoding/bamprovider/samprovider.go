package bamprovider

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/grailbio/base/compress"
	grailerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// maxSAMLineLen bounds the length of one SAM text line.
const maxSAMLineLen = 256 << 20

// SAMProvider implements Provider for SAM text files.  Paths ending in .gz
// are decompressed transparently.  A record line that fails to decode is
// counted by Iterator.Skipped and does not stop the iteration.
type SAMProvider struct {
	// Path of the *.sam file. Must be nonempty.
	Path string
	err  grailerrors.Once

	mu      sync.Mutex
	nActive int
	header  *sam.Header
}

type samIterator struct {
	provider *SAMProvider
	in       file.File
	scanner  *bufio.Scanner
	header   *sam.Header
	nLines   int
	nSkipped int

	// pending is a record line read while parsing the header.
	pending []byte
	err     error
	next    *sam.Record
}

// open opens the file and parses the header lines.  On success, it leaves the
// scanner positioned at the first record line, which is stored in
// i.pending.
func (i *samIterator) open(path string) {
	ctx := vcontext.Background()
	if i.in, i.err = file.Open(ctx, path); i.err != nil {
		return
	}
	var r io.Reader = i.in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	i.scanner = bufio.NewScanner(r)
	i.scanner.Buffer(make([]byte, 64<<10), maxSAMLineLen)
	var text bytes.Buffer
	for i.scanner.Scan() {
		i.nLines++
		line := i.scanner.Bytes()
		if len(line) == 0 || line[0] != '@' {
			i.pending = append([]byte(nil), line...)
			break
		}
		text.Write(line)
		text.WriteByte('\n')
	}
	if err := i.scanner.Err(); err != nil {
		i.err = errors.Wrapf(err, "%s: read SAM header", path)
		return
	}
	if i.header, i.err = sam.NewHeader(text.Bytes(), nil); i.err != nil {
		i.err = errors.Wrapf(i.err, "%s: parse SAM header", path)
	}
}

// GetHeader implements the Provider interface.
func (s *SAMProvider) GetHeader() (*sam.Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.header != nil {
		return s.header, nil
	}
	iter := samIterator{provider: s}
	iter.open(s.Path)
	iter.closeFile()
	if iter.err != nil {
		s.err.Set(iter.err)
		return nil, iter.err
	}
	s.header = iter.header
	return s.header, nil
}

// Close implements the Provider interface.
func (s *SAMProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %+v", s.nActive, s)
	}
	return s.err.Err()
}

// NewIterator implements the Provider interface.
func (s *SAMProvider) NewIterator() Iterator {
	iter := &samIterator{provider: s}
	iter.open(s.Path)
	if iter.err != nil {
		iter.closeFile()
		s.err.Set(iter.err)
		return NewErrorIterator(iter.err)
	}
	s.mu.Lock()
	s.nActive++
	s.mu.Unlock()
	return iter
}

// Scan implements the Iterator interface.
func (i *samIterator) Scan() bool {
	if i.err != nil {
		return false
	}
	for {
		var line []byte
		if i.pending != nil {
			line, i.pending = i.pending, nil
		} else {
			if !i.scanner.Scan() {
				if err := i.scanner.Err(); err != nil {
					i.err = errors.Wrapf(err, "%s: read line %d", i.provider.Path, i.nLines+1)
				} else {
					i.err = io.EOF
				}
				return false
			}
			i.nLines++
			line = i.scanner.Bytes()
		}
		if len(line) == 0 {
			continue
		}
		rec := new(sam.Record)
		if err := rec.UnmarshalSAM(i.header, line); err != nil {
			i.nSkipped++
			vlog.VI(1).Infof("%s:%d: skipping record: %v", i.provider.Path, i.nLines, err)
			continue
		}
		i.next = rec
		return true
	}
}

// Record implements the Iterator interface.
func (i *samIterator) Record() *sam.Record {
	return i.next
}

// Skipped implements the Iterator interface.
func (i *samIterator) Skipped() int { return i.nSkipped }

// Err implements the Iterator interface.
func (i *samIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

func (i *samIterator) closeFile() {
	if i.in != nil {
		if err := i.in.Close(vcontext.Background()); err != nil && i.err == nil {
			i.err = err
		}
		i.in = nil
	}
}

// Close implements the Iterator interface.
func (i *samIterator) Close() error {
	i.closeFile()
	if i.nSkipped > 0 {
		vlog.Infof("%s: skipped %d undecodable records", i.provider.Path, i.nSkipped)
	}
	err := i.Err()
	s := i.provider
	s.err.Set(err)
	s.mu.Lock()
	s.nActive--
	if s.nActive < 0 {
		vlog.Fatalf("Negative active count for %+v", s)
	}
	s.mu.Unlock()
	return err
}

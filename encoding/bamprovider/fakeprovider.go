package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// fakeProvider is only for unittests. It yields the given records.
type fakeProvider struct {
	header  *sam.Header
	recs    []*sam.Record
	skipped int
}

type fakeIterator struct {
	recs    []*sam.Record
	rec     *sam.Record
	skipped int
}

// NewFakeProvider creates a provider that returns "header" in response to a
// GetHeader() call, and recs by NewIterator calls.
func NewFakeProvider(header *sam.Header, recs []*sam.Record) Provider {
	return &fakeProvider{header: header, recs: recs}
}

// NewFakeProviderWithSkips is like NewFakeProvider, but its iterators also
// report "skipped" undecodable records.
func NewFakeProviderWithSkips(header *sam.Header, recs []*sam.Record, skipped int) Provider {
	return &fakeProvider{header: header, recs: recs, skipped: skipped}
}

// GetHeader implements the Provider interface. It returns the header passed to
// the constructor.
func (b *fakeProvider) GetHeader() (*sam.Header, error) {
	return b.header, nil
}

// Close implements the Provider interface.
func (b *fakeProvider) Close() error {
	return nil
}

// NewIterator implements the Provider interface.
func (b *fakeProvider) NewIterator() Iterator {
	return &fakeIterator{recs: b.recs, skipped: b.skipped}
}

// Err implements the Iterator interface.
func (i *fakeIterator) Err() error {
	return nil
}

// Close implements the Iterator interface.
func (i *fakeIterator) Close() error {
	return nil
}

// Skipped implements the Iterator interface.
func (i *fakeIterator) Skipped() int {
	return i.skipped
}

func (i *fakeIterator) Scan() bool {
	if len(i.recs) == 0 {
		return false
	}
	i.rec = i.recs[0]
	i.recs = i.recs[1:]
	return true
}

func (i *fakeIterator) Record() *sam.Record {
	// Return a copy so that the code under test cannot alter the
	// original test input data.
	copy := new(sam.Record)
	*copy = *i.rec
	return copy
}

package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

// ReadAll reads every record of p.  It is meant for tests and small inputs.
// The second result is the number of undecodable records passed over.
func ReadAll(p Provider) ([]*sam.Record, int, error) {
	iter := p.NewIterator()
	var recs []*sam.Record
	for iter.Scan() {
		recs = append(recs, iter.Record())
	}
	skipped := iter.Skipped()
	if err := iter.Close(); err != nil {
		return nil, skipped, err
	}
	return recs, skipped, nil
}

// Package bamprovider provides utilities for streaming the records of a BAM or
// SAM file.
//
// The Provider is an interface for reading an alignment file front to back,
// in file order.  Mates of a pair need not be adjacent.
package bamprovider

// Package count assigns aligned reads to annotated genes and tallies them.
//
// Records flow through a fixed pipeline:
//
//   provider -> Filter -> Correlator -> Resolver -> Aggregator -> Table
//
// One producer goroutine reads the alignment stream and partitions records
// among workers by a hash of the read name, so both mates of a pair always
// meet in the same worker.  Each worker owns a Correlator, a Resolver and an
// Aggregator; the gene index is shared read-only.  Once the stream ends,
// every worker flushes its unmatched mates, and the worker aggregators are
// merged into one table.  Counts are therefore independent of the number of
// workers and of the input order.
package count

import (
	"context"
	"runtime"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/genecount/annotation"
	"github.com/grailbio/genecount/encoding/bamprovider"
	"github.com/grailbio/genecount/geneindex"
	"github.com/grailbio/hts/sam"
)

const (
	// batchSize is the number of records handed to a worker at once.
	batchSize = 256
	// progressInterval is the number of records between progress messages.
	progressInterval = 1 << 22
)

// worker holds the per-goroutine pipeline state.
type worker struct {
	opts *Opts
	corr *Correlator
	res  *Resolver
	agg  *Aggregator
	emit func(*ReadUnit)
}

func newWorker(idx *geneindex.Index, opts *Opts) *worker {
	w := &worker{
		opts: opts,
		corr: NewCorrelator(opts),
		res:  NewResolver(idx, opts),
		agg:  NewAggregator(idx.NumGenes()),
	}
	w.emit = func(u *ReadUnit) {
		w.agg.Record(w.res.Resolve(u))
	}
	return w
}

func (w *worker) process(r *sam.Record) {
	w.agg.Stats.Records++
	if r.Flags&sam.QCFail != 0 {
		w.agg.Stats.QCFailed++
	}
	verdict := Filter(r, w.opts)
	if isSecondary(r) {
		w.agg.Record(Classification{Kind: verdict.Kind()})
		return
	}
	w.corr.Add(r, verdict, w.emit)
}

// finish flushes unmatched mates and collects the statistics of the worker's
// components.
func (w *worker) finish() {
	w.corr.Flush(w.emit)
	w.agg.Stats.Pairs += w.corr.Pairs
	w.agg.Stats.Singletons += w.corr.Singletons
	w.agg.Stats.NotInAnnotation += w.res.NotInAnnotation
}

// Count streams every record of provider through the pipeline and returns
// the count table.  Undecodable records reported by the provider's iterator
// are counted as not aligned.  On a stream error no table is returned.
func Count(idx *geneindex.Index, provider bamprovider.Provider, opts Opts) (*Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	chans := make([]chan []*sam.Record, parallelism)
	for i := range chans {
		chans[i] = make(chan []*sam.Record, 4)
	}

	var (
		streamErr errors.Once
		skipped   int
	)
	go func() {
		defer func() {
			for _, ch := range chans {
				close(ch)
			}
		}()
		iter := provider.NewIterator()
		batches := make([][]*sam.Record, parallelism)
		nRecs := 0
		for iter.Scan() {
			rec := iter.Record()
			i := int(seahash.Sum64(gunsafe.StringToBytes(rec.Name)) % uint64(parallelism))
			batches[i] = append(batches[i], rec)
			if len(batches[i]) >= batchSize {
				chans[i] <- batches[i]
				batches[i] = make([]*sam.Record, 0, batchSize)
			}
			nRecs++
			if nRecs%progressInterval == 0 {
				log.Printf("Read %d records", nRecs)
			}
		}
		for i, batch := range batches {
			if len(batch) > 0 {
				chans[i] <- batch
			}
		}
		skipped = iter.Skipped()
		streamErr.Set(iter.Close())
	}()

	workers := make([]*worker, parallelism)
	// Every worker must be running at once, since the producer may block on
	// any of their channels.
	err := traverse.T{Limit: parallelism}.Each(parallelism, func(i int) error {
		w := newWorker(idx, &opts)
		for batch := range chans[i] {
			for _, r := range batch {
				w.process(r)
			}
		}
		w.finish()
		workers[i] = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := streamErr.Err(); err != nil {
		return nil, err
	}

	agg := workers[0].agg
	for _, w := range workers[1:] {
		agg.Merge(w.agg)
	}
	agg.RecordN(Classification{Kind: NotAligned}, int64(skipped))
	agg.Stats.Records += skipped
	table := agg.Finalize(idx, &opts)
	s := table.Stats
	log.Printf("Counted %d records: %d pairs, %d single mates, %d undecodable, %d qc-failed, %d on unannotated chromosomes",
		s.Records, s.Pairs, s.Singletons, skipped, s.QCFailed, s.NotInAnnotation)
	return table, nil
}

// Run reads the annotation and the alignments named by opts, counts, and
// writes the table to opts.OutputPath.  The output is written only if every
// step succeeds.
func Run(ctx context.Context, opts Opts) (err error) {
	if err = opts.Validate(); err != nil {
		return err
	}
	if opts.GTFPath == "" {
		return errors.E(errors.Invalid, "no annotation (GTF) path given")
	}
	if opts.AlignmentPath == "" {
		return errors.E(errors.Invalid, "no alignment (BAM/SAM) path given")
	}
	exons, err := annotation.ReadFile(ctx, opts.GTFPath, opts.FeatureTypes)
	if err != nil {
		return err
	}
	idx, err := geneindex.New(exons)
	if err != nil {
		return err
	}

	provider := bamprovider.NewProvider(opts.AlignmentPath)
	defer func() {
		if cerr := provider.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	header, err := provider.GetHeader()
	if err != nil {
		return errors.E(err, "read alignment header", opts.AlignmentPath)
	}
	chroms := idx.Chroms()
	nMatched := 0
	for _, chrom := range chroms {
		if bamprovider.RefByName(header, chrom) != nil {
			nMatched++
		}
	}
	log.Printf("Annotation: %d genes, %d exons; %d of %d annotated chromosomes are reference sequences of %s",
		idx.NumGenes(), idx.NumExons(), nMatched, len(chroms), opts.AlignmentPath)
	if nMatched == 0 && len(chroms) > 0 && len(header.Refs()) > 0 {
		log.Printf("warning: no reference sequence of %s matches the annotation's chromosome names", opts.AlignmentPath)
	}

	table, err := Count(idx, provider, opts)
	if err != nil {
		return errors.E(err, "count", opts.AlignmentPath)
	}
	return WriteTable(ctx, opts.OutputPath, table)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/genecount/annotation"
	"github.com/grailbio/genecount/count"
)

var (
	gtfPath        = flag.String("gtf", count.DefaultOpts.GTFPath, "Input GTF path (may be gzipped); required")
	bamPath        = flag.String("bam", count.DefaultOpts.AlignmentPath, "Input BAM or SAM path; required")
	outPath        = flag.String("out", count.DefaultOpts.OutputPath, "Output TSV path; '-' writes to stdout, a .gz suffix produces bgzip output")
	mapq           = flag.Int("mapq", count.DefaultOpts.Mapq, "Reads with MAPQ below this level are counted as too_low_aQual")
	strandness     = flag.String("strandness", count.DefaultOpts.Strandness.String(), "Library strandness: U (unstranded), F (forward) or R (reverse)")
	method         = flag.String("method", count.DefaultOpts.Method.String(), "Overlap resolution mode: 'union' or 'strict'")
	useDups        = flag.Bool("usedups", count.DefaultOpts.CountDuplicates, "Count reads flagged as duplicates")
	noSingletons   = flag.Bool("nosingletons", !count.DefaultOpts.CountSingleEndMates, "Do not count paired reads whose mate is missing or unmapped")
	seqTypes       = flag.String("seq-types", count.DefaultOpts.FeatureTypes.String(), "Comma-separated GTF feature types used as exons")
	parallelism    = flag.Int("parallelism", count.DefaultOpts.Parallelism, "Number of counting workers; 0 = runtime.NumCPU()")
	reportExcluded = flag.Bool("report-excluded", count.DefaultOpts.ReportExcluded, "Append 'duplicate' and 'filtered' rows to the table")
)

func bioGenecountUsage() {
	fmt.Printf("Usage: %s [OPTIONS] -gtf gtfpath -bam {b,s}ampath\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

// optsFromFlags converts the command-line flags into count.Opts.
func optsFromFlags() (count.Opts, error) {
	opts := count.DefaultOpts
	opts.GTFPath = *gtfPath
	opts.AlignmentPath = *bamPath
	opts.OutputPath = *outPath
	opts.Mapq = *mapq
	opts.CountDuplicates = *useDups
	opts.CountSingleEndMates = !*noSingletons
	opts.Parallelism = *parallelism
	opts.ReportExcluded = *reportExcluded
	var err error
	if opts.Strandness, err = count.ParseStrandness(*strandness); err != nil {
		return opts, err
	}
	if opts.Method, err = count.ParseMethod(*method); err != nil {
		return opts, err
	}
	if opts.FeatureTypes, err = annotation.ParseFeatureTypes(*seqTypes); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func main() {
	flag.Usage = bioGenecountUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		log.Fatalf("Unexpected positional arguments; please check flag syntax: '%s'", strings.Join(flag.Args(), " "))
	}
	opts, err := optsFromFlags()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := count.Run(vcontext.Background(), opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}

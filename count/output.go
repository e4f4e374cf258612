package count

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// writeRows writes one "label<TAB>count" line per row.
func writeRows(w io.Writer, t *Table) error {
	tsvw := tsv.NewWriter(w)
	for _, r := range t.Rows {
		tsvw.WriteString(r.Label)
		tsvw.WriteString(strconv.FormatInt(r.Count, 10))
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	return tsvw.Flush()
}

// WriteTable writes t as two tab-separated columns to path.  An empty path or
// "-" writes to stdout.  If path ends in ".gz", the table is bgzip-compressed.
func WriteTable(ctx context.Context, path string, t *Table) (err error) {
	if path == "" || path == "-" {
		return writeRows(os.Stdout, t)
	}
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if !strings.HasSuffix(path, ".gz") {
		return writeRows(dst.Writer(ctx), t)
	}
	bgzfWriter := bgzf.NewWriter(dst.Writer(ctx), 1)
	defer func() {
		if e := bgzfWriter.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return writeRows(bgzfWriter, t)
}

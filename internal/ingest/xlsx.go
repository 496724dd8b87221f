// Package ingest parses transcript batches from interchange files.
package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/callintel/internal/model"
)

// XLSXOptions configures the XLSX transcript parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of header rows to skip
}

// ReadTranscriptsXLSX reads transcripts from an XLSX export. Expected
// columns: text, language, duration seconds. Rows with an empty text cell
// are skipped.
func ReadTranscriptsXLSX(path string, opts XLSXOptions) ([]model.Transcript, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var transcripts []model.Transcript
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		t := rowToTranscript(row)
		if t.Text == "" {
			continue
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToTranscript(row *xlsx.Row) model.Transcript {
	var t model.Transcript
	if len(row.Cells) > 0 {
		t.Text = strings.TrimSpace(row.Cells[0].String())
	}
	if len(row.Cells) > 1 {
		t.Language = strings.TrimSpace(row.Cells[1].String())
	}
	if len(row.Cells) > 2 {
		if secs, err := strconv.Atoi(strings.TrimSpace(row.Cells[2].String())); err == nil {
			t.DurationSecs = secs
		}
	}
	return t
}

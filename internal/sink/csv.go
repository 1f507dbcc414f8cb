package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-cli/internal/model"
)

// CSVSink writes rows to a CSV file, flushing after every row.
type CSVSink struct {
	file    *os.File
	writer  *csv.Writer
	encoder *csvutil.Encoder
}

// NewCSVSink creates (truncating) the output file and writes the header on
// the first row.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sink: create %s", path)
	}
	w := csv.NewWriter(f)
	return &CSVSink{
		file:    f,
		writer:  w,
		encoder: csvutil.NewEncoder(w),
	}, nil
}

// Write implements RowSink. The row is flushed and synced before returning.
func (s *CSVSink) Write(_ context.Context, row model.DealRow) error {
	if err := s.encoder.Encode(row); err != nil {
		return eris.Wrap(err, "sink: encode row")
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return eris.Wrap(err, "sink: flush row")
	}
	if err := s.file.Sync(); err != nil {
		return eris.Wrap(err, "sink: sync")
	}
	return nil
}

// Close flushes and closes the output file.
func (s *CSVSink) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close() //nolint:errcheck
		return eris.Wrap(err, "sink: final flush")
	}
	return eris.Wrap(s.file.Close(), "sink: close")
}

// RecoverRows reads whatever survives of a previous run's output file.
// A missing or unreadable file yields no rows, and a decode error stops
// the read keeping the rows recovered so far: a crash mid-write leaves a
// torn final line, and everything above it is still good.
func RecoverRows(path string) []model.DealRow {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close() //nolint:errcheck

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		return nil
	}

	var rows []model.DealRow
	for {
		var row model.DealRow
		if err := dec.Decode(&row); err != nil {
			break
		}
		rows = append(rows, row)
	}
	return rows
}

// ReadRows loads a deals CSV into memory. Unknown columns are ignored;
// missing enrichment columns decode as empty strings.
func ReadRows(path string) ([]model.DealRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sink: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		return nil, eris.Wrap(err, "sink: read header")
	}
	dec.DisallowMissingColumns = false

	var rows []model.DealRow
	for {
		var row model.DealRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrap(err, "sink: decode row")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

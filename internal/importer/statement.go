package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/cleared-dev/farereceipts/internal/fares"
)

// Fare statement columns. Column 1 and anything after column 3 are ignored.
const (
	statementMinFields = 4
	statementColDate   = 0
	statementColDesc   = 2
	statementColAmount = 3
)

// ReadStatement reads a fare statement CSV export. The first record is a
// header and is discarded. Each row carries its line number in the file;
// blank lines are skipped but still counted.
func ReadStatement(r io.Reader) ([]fares.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []fares.Row
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading statement CSV: %w", err)
		}
		if header {
			header = false
			continue
		}

		line, _ := cr.FieldPos(0)
		if len(rec) < statementMinFields {
			return nil, fmt.Errorf("row %d: expected at least %d fields, got %d", line, statementMinFields, len(rec))
		}
		rows = append(rows, fares.Row{
			Date:        rec[statementColDate],
			Description: rec[statementColDesc],
			Amount:      rec[statementColAmount],
			Line:        line,
		})
	}
	return rows, nil
}

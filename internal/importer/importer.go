// Package importer finds fare statement exports on disk and loads them into a
// fares.Ledger.
package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/farereceipts/internal/fares"
)

// FileInfo describes a CSV file under the fares directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns every .csv file below dir, walking subdirectories, in lexical
// path order.
func Scan(dir string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		files = append(files, FileInfo{
			Name: d.Name(),
			Path: path,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// LoadFile reads one statement and ingests every row into ledger. A malformed
// row aborts the load.
func LoadFile(path string, ledger *fares.Ledger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	rows, err := ReadStatement(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, row := range rows {
		if err := ledger.Ingest(row); err != nil {
			return 0, fmt.Errorf("%s: row %d: %w", path, row.Line, err)
		}
	}
	return len(rows), nil
}

// LoadLedger scans dir and ingests every statement found into ledger. It
// returns the files loaded, in load order.
func LoadLedger(dir string, ledger *fares.Ledger) ([]FileInfo, error) {
	files, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no fare statements found in %s", dir)
	}
	for _, file := range files {
		if _, err := LoadFile(file.Path, ledger); err != nil {
			return nil, err
		}
	}
	return files, nil
}

package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoData is returned by the writers when there are no rows to export.
// Nothing is written in that case.
var ErrNoData = errors.New("no data to export")

// Read parses CSV with a header row. A leading byte order mark is
// stripped (UTF-16 input with a BOM is converted to UTF-8). Short records
// are padded with "", extra fields are dropped and blank lines skipped.
func Read(r io.Reader) ([]Row, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV record: %w", err)
		}

		var row Row
		for i, key := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			row.Set(key, value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadFile reads a CSV roster from path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("rows", len(rows)).Msg("Roster loaded")
	return rows, nil
}

// Write serializes rows with a header taken from the first row's keys.
// Keys of later rows missing from the header are not written; header keys
// a row lacks are written as "".
func Write(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	writer := csv.NewWriter(w)

	header := rows[0].Keys()
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, key := range header {
			record[i] = row.Get(key)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// WriteFile writes rows to path, creating parent directories. With no rows
// it returns ErrNoData and leaves the filesystem untouched.
func WriteFile(path string, rows []Row) (err error) {
	if len(rows) == 0 {
		return ErrNoData
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close output file: %w", closeErr)
		}
	}()

	if err := Write(f, rows); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("rows", len(rows)).Msg("CSV written")
	return nil
}

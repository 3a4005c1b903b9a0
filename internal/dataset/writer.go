package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const outputFileMode = 0o644

// AppendFile appends batches of records to a delimited file. The header is
// written only when the file does not exist at the time of an append.
type AppendFile struct {
	path      string
	delimiter rune
}

// NewAppendFile returns a sink writing to path.
func NewAppendFile(path string, delimiter rune) *AppendFile {
	return &AppendFile{path: path, delimiter: delimiter}
}

// Path returns the output file location.
func (af *AppendFile) Path() string {
	return af.path
}

// Append writes records at the end of the file, preceded by header when the
// file is created by this call.
func (af *AppendFile) Append(header []string, records [][]string) (err error) {
	writeHeader := false
	if _, err = os.Stat(af.path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat output file: %w", err)
		}
		writeHeader = true
	}

	file, err := os.OpenFile(af.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, outputFileMode)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()

	cw := csv.NewWriter(file)
	cw.Comma = af.delimiter
	if writeHeader {
		if err = cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err = cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}

	return nil
}

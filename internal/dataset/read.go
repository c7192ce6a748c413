package dataset

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ReadFile picks a reader by file extension.
func ReadFile(fs afero.Fs, path string) (*Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var read func(io.Reader) (*Table, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		read = ReadCSV
	case ".xml":
		read = ReadXML
	case ".xlsx":
		read = ReadXLSX
	default:
		return nil, fmt.Errorf("unsupported file format: %s", path)
	}

	t, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

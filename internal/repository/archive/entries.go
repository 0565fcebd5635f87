package archive

import (
	"archive/zip"
	"fmt"
	"io"
)

// Entry is one file of an archive: its forward-slash path and its bytes.
type Entry struct {
	Path string
	Data []byte
}

// ReadEntries returns the file entries of the zip at path in archive order.
// Directory entries are skipped.
func ReadEntries(path string) (entries []Entry, err error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	entries = make([]Entry, 0, len(reader.File))

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		data, readErr := readFile(file)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", file.Name, readErr)
		}

		entries = append(entries, Entry{Path: file.Name, Data: data})
	}

	return entries, nil
}

// EntryMap indexes entries by path.
func EntryMap(entries []Entry) map[string][]byte {
	m := make(map[string][]byte, len(entries))
	for _, e := range entries {
		m[e.Path] = e.Data
	}

	return m
}

func readFile(file *zip.File) (data []byte, err error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return io.ReadAll(rc)
}

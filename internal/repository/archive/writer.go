package archive

import (
	"archive/zip"
	"context"
	"crypto/sha512"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// writeArchive zips every regular file under root into dest and returns the SHA-512 of dest.
// Entries are written in lexical path order with a fixed timestamp and mode.
func writeArchive(ctx context.Context, root, dest string) (checksum []byte, err error) {
	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}

	defer func() {
		if out == nil {
			return
		}

		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	hasher := sha512.New()
	zipWriter := zip.NewWriter(io.MultiWriter(out, hasher))
	zipWriter.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", path, relErr)
		}

		return addFile(zipWriter, path, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		_ = zipWriter.Close()
		return nil, walkErr
	}

	if err = zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	closeErr := out.Close()
	out = nil

	if closeErr != nil {
		return nil, fmt.Errorf("close archive: %w", closeErr)
	}

	return hasher.Sum(nil), nil
}

// addFile copies the file at path into the archive under name.
func addFile(zipWriter *zip.Writer, path, name string) (err error) {
	//nolint:exhaustruct // Sizes and CRC are filled in by the zip writer.
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	header.SetMode(DefaultFileMode)

	entry, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}

	in, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := in.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(entry, in); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}

	return nil
}

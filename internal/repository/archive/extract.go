package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extract unpacks every entry of the zip at src into the directory root.
func extract(ctx context.Context, src, root string) (err error) {
	if err = os.MkdirAll(root, DefaultDirMode); err != nil {
		return fmt.Errorf("create extraction root: %w", err)
	}

	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, file := range reader.File {
		if err = ctx.Err(); err != nil {
			return err
		}

		dest, destErr := safeJoin(root, file.Name)
		if destErr != nil {
			return destErr
		}

		if dest == filepath.Clean(root) {
			continue
		}

		if file.FileInfo().IsDir() {
			if err = os.MkdirAll(dest, DefaultDirMode); err != nil {
				return fmt.Errorf("create directory %s: %w", file.Name, err)
			}

			continue
		}

		if err = os.MkdirAll(filepath.Dir(dest), DefaultDirMode); err != nil {
			return fmt.Errorf("create parent directory of %s: %w", file.Name, err)
		}

		if err = extractFile(file, dest); err != nil {
			return fmt.Errorf("extract %s: %w", file.Name, err)
		}
	}

	return nil
}

// safeJoin resolves an entry name under root, rejecting names that escape it.
func safeJoin(root, name string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(name))

	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, errUnsafeEntry)
	}

	return dest, nil
}

// extractFile copies a single zip entry to dest.
func extractFile(file *zip.File, dest string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	out, err := os.OpenFile(filepath.Clean(dest), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // Entries come from the mod's own build output.
	if _, err = io.Copy(out, rc); err != nil {
		return err
	}

	return nil
}

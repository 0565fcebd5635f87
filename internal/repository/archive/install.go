package archive

import (
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// install atomically replaces target with the staged archive after verifying its checksum.
// go-update swaps files by renaming, so the target must exist beforehand.
// A placeholder created here is removed again when the swap fails.
func install(staged, target string, checksum []byte) (err error) {
	if err = os.MkdirAll(filepath.Dir(target), DefaultDirMode); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		placeholder, err = os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE, DefaultFileMode)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}

		defer func() {
			if err != nil {
				_ = os.Remove(target)
			}
		}()

		if err = placeholder.Close(); err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("stat output file: %w", err)
	}

	in, err := os.Open(filepath.Clean(staged))
	if err != nil {
		return fmt.Errorf("open staged archive: %w", err)
	}

	defer func() {
		if closeErr := in.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       crypto.SHA512,
	}

	if err = goupdate.Apply(in, options); err != nil {
		return err
	}

	return nil
}

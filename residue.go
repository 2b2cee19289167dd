package jarir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validateBookID rejects ids that cannot safely name files in the books
// directory.
func validateBookID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || !isSafePath(id) {
		return fmt.Errorf("jarir: invalid book id %q: %w", id, ErrInvalidInput)
	}
	return nil
}

// ClearResidue removes the download and working files of book id from
// booksDir: <id>.zip, <id>.zip.body and the <id>/ directory. Missing files
// are not an error.
func ClearResidue(booksDir, id string) error {
	if err := validateBookID(id); err != nil {
		return err
	}
	var errs []error
	for _, name := range []string{id + ".zip", id + ".zip.body"} {
		if err := os.Remove(filepath.Join(booksDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, ioError("remove "+name, err))
		}
	}
	if err := os.RemoveAll(filepath.Join(booksDir, id)); err != nil {
		errs = append(errs, ioError("remove "+id, err))
	}
	return errors.Join(errs...)
}

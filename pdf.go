package jarir

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfEntry is the decrypted document inside a PDF package.
const pdfEntry = "Text/DATA.DATA"

// ValidatePDF parses the PDF at p and returns its page count. A decrypted
// payload that is not a PDF usually means the wrong key was used.
func ValidatePDF(p string) (int, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, ioError("open "+p, err)
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("jarir: validate pdf %s: %w: %w", p, ErrArchiveFormat, err)
	}
	return ctx.PageCount, nil
}

// PackagePDF moves the decrypted PDF out of workDir to dest. When validate
// is set the document is parsed first and left in place if it is invalid.
func PackagePDF(workDir, dest string, validate bool) error {
	src := filepath.Join(workDir, filepath.FromSlash(pdfEntry))
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("jarir: %s: %w: %w", pdfEntry, ErrArchiveFormat, ErrEntryNotFound)
		}
		return ioError("stat "+src, err)
	}

	if validate {
		if _, err := ValidatePDF(src); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ioError("create "+filepath.Dir(dest), err)
	}
	return moveFile(src, dest)
}

// moveFile renames src to dest, copying when they are on different
// filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return ioError("open "+src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return ioError("create "+dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return ioError("copy to "+dest, err)
	}
	if err := out.Close(); err != nil {
		return ioError("close "+dest, err)
	}
	in.Close()
	if err := os.Remove(src); err != nil {
		return ioError("remove "+src, err)
	}
	return nil
}

package jarir

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the jarir package. Every failure returned by a
// fallible operation wraps exactly one of the class errors (ErrIO,
// ErrArchiveFormat, ErrCipher, ErrDecompression, ErrManifest, ErrSpan,
// ErrInvalidInput) so callers can branch with errors.Is.
var (
	// ErrIO indicates a filesystem failure (missing file, permission,
	// failed write).
	ErrIO = errors.New("jarir: i/o failure")

	// ErrArchiveFormat indicates the package is not a well-formed zip archive
	// or lacks a required entry.
	ErrArchiveFormat = errors.New("jarir: invalid archive")

	// ErrCipher indicates the header blob could not be decrypted
	// (bad base64, bad block length or bad padding).
	ErrCipher = errors.New("jarir: decryption failed")

	// ErrDecompression indicates a text entry did not inflate after
	// decryption. It usually means the wrong BookKey was used.
	ErrDecompression = errors.New("jarir: decompression failed")

	// ErrManifest indicates Index/info.json or Index/toc.json is missing,
	// unparsable, or declares an unsupported output type.
	ErrManifest = errors.New("jarir: invalid manifest")

	// ErrSpan indicates a malformed span tuple in a .spans file.
	ErrSpan = errors.New("jarir: invalid span")

	// ErrInvalidInput indicates a bad caller argument, such as a book id
	// that cannot name files.
	ErrInvalidInput = errors.New("jarir: invalid input")

	// ErrCorruptedArchive indicates the downloaded archive was empty. The file
	// has been removed and the download must be repeated.
	ErrCorruptedArchive = errors.New("jarir: downloaded file is corrupted, try the download again")

	// ErrEntryNotFound indicates a required archive entry or working file
	// does not exist.
	ErrEntryNotFound = errors.New("jarir: entry not found")

	// ErrUnsupportedType indicates the manifest declares an output type this
	// engine cannot package. It is terminal: retrying will not help.
	ErrUnsupportedType = errors.New("jarir: unsupported book type")

	// ErrEmptyKey indicates a stream cipher was configured with an empty key.
	ErrEmptyKey = errors.New("jarir: empty key")
)

// Stage names a step of Engine.Reconstruct, reported in StageError.
type Stage string

const (
	StageValidate Stage = "validate"
	StageSplice   Stage = "splice"
	StageDecrypt  Stage = "decrypt"
	StageManifest Stage = "manifest"
	StageRender   Stage = "render"
	StagePackage  Stage = "package"
	StageCleanup  Stage = "cleanup"
)

// StageError carries the book and stage that produced a failure.
type StageError struct {
	BookID string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("jarir: book %s: %s: %v", e.BookID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsRetryable reports whether err can be resolved by downloading the book
// again. Cipher, manifest, span and unsupported-type failures are terminal.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrCipher),
		errors.Is(err, ErrManifest),
		errors.Is(err, ErrSpan):
		return false
	case errors.Is(err, ErrCorruptedArchive),
		errors.Is(err, ErrArchiveFormat),
		errors.Is(err, ErrDecompression),
		errors.Is(err, ErrIO):
		return true
	}
	return false
}

// ioError wraps a filesystem error with ErrIO.
func ioError(op string, err error) error {
	return fmt.Errorf("jarir: %s: %w: %w", op, ErrIO, err)
}

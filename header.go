package jarir

import (
	"archive/zip"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// headerIV is the fixed CBC initialisation vector of header blobs.
var headerIV = []byte("1234567812345678")

const (
	// spliceHeaderEntry holds the book key inside a spliced archive.
	spliceHeaderEntry = "header"
	// spliceBodyEntry holds the real package inside a spliced archive.
	spliceBodyEntry = "body"
)

// DecryptHeader decodes and decrypts a header blob delivered alongside a
// ".body" download. The key is derived from the account token with
// DeriveHeaderKey.
func DecryptHeader(headerB64, token string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(headerB64)
	if err != nil {
		return nil, fmt.Errorf("jarir: decode header: %w: %w", ErrCipher, err)
	}
	return decipherAES256CBC(data, DeriveHeaderKey(token), headerIV)
}

// decipherAES256CBC decrypts data and removes PKCS#7 padding.
func decipherAES256CBC(data, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("jarir: create cipher: %w: %w", ErrCipher, err)
	}

	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("jarir: header length %d is not a positive multiple of %d: %w", len(data), aes.BlockSize, ErrCipher)
	}

	res := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(res, data)

	return unpadPKCS7(res)
}

// unpadPKCS7 validates and strips PKCS#7 padding.
func unpadPKCS7(data []byte) ([]byte, error) {
	paddingLen := int(data[len(data)-1])
	if paddingLen == 0 || paddingLen > aes.BlockSize || paddingLen > len(data) {
		return nil, fmt.Errorf("jarir: invalid padding length %d (data length is %d): %w", paddingLen, len(data), ErrCipher)
	}
	for _, b := range data[len(data)-paddingLen:] {
		if int(b) != paddingLen {
			return nil, fmt.Errorf("jarir: invalid padding bytes: %w", ErrCipher)
		}
	}
	return data[:len(data)-paddingLen], nil
}

// Combine concatenates header and body, reads the result as a zip archive,
// streams its "body" entry to outputPath and returns the key stored in its
// "header" entry.
//
// The returned key is nil when the archive carries no "header" entry; callers
// keep their previous key in that case. outputPath is overwritten.
func Combine(header, body []byte, outputPath string) (BookKey, error) {
	joined := make([]byte, 0, len(header)+len(body))
	joined = append(joined, header...)
	joined = append(joined, body...)

	zr, err := zip.NewReader(bytes.NewReader(joined), int64(len(joined)))
	if err != nil {
		return nil, fmt.Errorf("jarir: open spliced archive: %w: %w", ErrArchiveFormat, err)
	}

	var headerFile, bodyFile *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case spliceHeaderEntry:
			headerFile = f
		case spliceBodyEntry:
			bodyFile = f
		}
	}

	if bodyFile == nil {
		return nil, fmt.Errorf("jarir: spliced archive has no %q entry: %w: %w", spliceBodyEntry, ErrArchiveFormat, ErrEntryNotFound)
	}

	var key BookKey
	if headerFile != nil {
		raw, err := readZipFile(headerFile)
		if err != nil {
			return nil, err
		}
		key = BookKeyFromBytes(raw)
	}

	if err := copyZipFileTo(bodyFile, outputPath); err != nil {
		return nil, err
	}

	return key, nil
}

// SpliceFile reads the downloaded body at bodyPath, decrypts headerB64 with
// the account token, and writes the spliced package to outputPath.
func SpliceFile(bodyPath, headerB64, token, outputPath string) (BookKey, error) {
	header, err := DecryptHeader(headerB64, token)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, ioError("read body "+bodyPath, err)
	}

	return Combine(header, body, outputPath)
}

// copyZipFileTo streams a zip entry to path, replacing any existing file.
func copyZipFileTo(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("jarir: open zip entry %s: %w: %w", f.Name, ErrArchiveFormat, err)
	}
	defer rc.Close()

	out, err := os.Create(path)
	if err != nil {
		return ioError("create "+path, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("jarir: write %s: %w: %w", path, ErrIO, err)
	}

	if err := out.Close(); err != nil {
		return ioError("close "+path, err)
	}
	return nil
}

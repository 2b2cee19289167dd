package jarir

import (
	"crypto/rc4"
	"fmt"
)

// StreamCipher is the RC4 keystream used for every encrypted package entry.
// The same operation encrypts and decrypts. A StreamCipher carries keystream
// state: decrypting two buffers in sequence continues the stream, so use a
// fresh cipher per entry.
type StreamCipher struct {
	c *rc4.Cipher
}

// maxKeySchedule is the number of key bytes the RC4 key schedule reads.
const maxKeySchedule = 256

// NewStreamCipher schedules key into a fresh 256-entry permutation.
// Any non-empty key is accepted. The schedule reads key[i%len(key)] for
// i < 256, so bytes past the 256th never take part.
func NewStreamCipher(key []byte) (*StreamCipher, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) > maxKeySchedule {
		key = key[:maxKeySchedule]
	}
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("jarir: rc4 key schedule: %w: %w", ErrCipher, err)
	}
	return &StreamCipher{c: c}, nil
}

// Decrypt returns data XOR keystream. data is not modified.
func (s *StreamCipher) Decrypt(data []byte) []byte {
	out := make([]byte, len(data))
	s.c.XORKeyStream(out, data)
	return out
}

// XORKeyStream XORs src with the keystream into dst. dst and src may overlap
// entirely.
func (s *StreamCipher) XORKeyStream(dst, src []byte) {
	s.c.XORKeyStream(dst, src)
}


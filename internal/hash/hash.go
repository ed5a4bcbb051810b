// Package hash wraps the SHA-1 digests used to address every stored object.
package hash

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"gyat/internal/errors"
)

const (
	Size    = sha1.Size
	HexSize = Size * 2
)

// Hash is a raw 20-byte object digest.
type Hash [Size]byte

// Zero is the hash of nothing; it marks "no parent" and "no commit".
var Zero Hash

func Sum(content []byte) Hash {
	return sha1.Sum(content)
}

func SumReader(r io.Reader) (Hash, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return Zero, err
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// SumFile hashes the content of the file at path.
func SumFile(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Zero, errors.IO(path, err)
	}
	defer f.Close()

	h, err := SumReader(f)
	if err != nil {
		return Zero, errors.IO(path, err)
	}
	return h, nil
}

// FromHex decodes a 40-character hex string.
func FromHex(s string) (Hash, error) {
	if len(s) != HexSize {
		return Zero, errors.HashDecode(s, fmt.Errorf("expected %d hex characters, got %d", HexSize, len(s)))
	}
	var out Hash
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return Zero, errors.HashDecode(s, err)
	}
	return out, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first eight hex characters.
func (h Hash) Short() string {
	return h.String()[:8]
}

func (h Hash) IsZero() bool {
	return h == Zero
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	v, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

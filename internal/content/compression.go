// internal/content/compression.go
package content

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"gyat/internal/errors"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// compressionManager owns one zstd encoder and decoder. EncodeAll and
// DecodeAll are safe for concurrent use.
type compressionManager struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newCompressionManager(level int) (*compressionManager, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &compressionManager{enc: enc, dec: dec}, nil
}

// compress always emits a full frame, empty input included, so every blob on
// disk starts with the zstd magic.
func (cm *compressionManager) compress(content []byte) []byte {
	return cm.enc.EncodeAll(content, nil)
}

// decompress returns exactly the bytes that were compressed. Trailing zero
// bytes are content, not padding.
func (cm *compressionManager) decompress(path string, content []byte) ([]byte, error) {
	if len(content) < len(zstdMagic) || !bytes.Equal(content[:len(zstdMagic)], zstdMagic) {
		return nil, errors.FormatError(path, "not a zstd frame")
	}

	out, err := cm.dec.DecodeAll(content, make([]byte, 0, len(content)*2))
	if err != nil {
		return nil, &errors.Error{Type: errors.ErrorTypeFormat, Path: path, Message: "decompressing", Err: err}
	}
	return out, nil
}

func (cm *compressionManager) close() {
	cm.enc.Close()
	cm.dec.Close()
}

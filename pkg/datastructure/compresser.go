package datastructure

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// NewCompressedWriter wraps w with a zstd stream encoder. Callers must Close
// the returned encoder to flush the final frame.
func NewCompressedWriter(w io.Writer) (*zstd.Encoder, error) {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return encoder, nil
}

// NewCompressedReader wraps r with a zstd stream decoder.
func NewCompressedReader(r io.Reader) (*zstd.Decoder, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return decoder, nil
}

// Package compression provides the block compressors used for session
// snapshots. Framed payloads carry a one-byte algorithm header so a reader
// can decode files written under a different configuration.
package compression

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm defines compression types
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
)

// ErrEmptyFrame is returned when decoding a payload with no header byte
var ErrEmptyFrame = errors.New("compressed frame is empty")

// Compressor interface for compression algorithms
type Compressor interface {
	// Compress compresses data
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm type
	Algorithm() Algorithm
}

// String returns the configuration name of the algorithm
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	default:
		return None, fmt.Errorf("unsupported compression algorithm: %q", name)
	}
}

// GetCompressor returns a compressor for the given algorithm
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return &NoneCompressor{}, nil
	case Snappy:
		return NewSnappyCompressor(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %d", algo)
	}
}

// Encode compresses data and prefixes the algorithm byte
func Encode(c Compressor, data []byte) ([]byte, error) {
	body, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(c.Algorithm()))
	return append(out, body...), nil
}

// Decode reads the algorithm byte and decompresses the rest
func Decode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	c, err := GetCompressor(Algorithm(frame[0]))
	if err != nil {
		return nil, err
	}
	return c.Decompress(frame[1:])
}

// NoneCompressor is a no-op compressor
type NoneCompressor struct{}

func (n *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Algorithm() Algorithm {
	return None
}

package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
	"sync"

	"github.com/hupe1980/vecmmr/codec"
	"github.com/hupe1980/vecmmr/table"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// Magic identifies snapshot blobs.
	Magic = "VMMR"
	// Version is the current format version.
	Version uint16 = 1

	// fixed header part: magic, version, compression, codec name length
	fixedHeaderSize = 4 + 2 + 1 + 1
	// trailer of the header: uncompressed size and CRC32 of the encoded state
	sizeFieldsSize = 8 + 4
)

var (
	ErrInvalidMagic       = errors.New("snapshot: invalid magic")
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	ErrChecksumMismatch   = errors.New("snapshot: checksum mismatch")
	ErrCorrupt            = errors.New("snapshot: corrupt data")
	ErrUnknownCodec       = errors.New("snapshot: unknown codec")
)

// Compression selects how the encoded state is compressed.
type Compression uint8

const (
	// CompressionNone stores the encoded state as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd (better ratio). This is the default.
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown compression %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode serializes st with c and compresses the result.
//
// Layout (little endian):
//
//	magic "VMMR" | version u16 | compression u8 | codec name len u8 | codec name
//	| uncompressed size u64 | crc32 u32 | payload
func Encode(st table.State, c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	if len(name) == 0 || len(name) > 255 {
		return nil, fmt.Errorf("%w: invalid codec name %q", ErrUnknownCodec, name)
	}

	raw, err := c.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode state: %w", err)
	}

	payload, comp, err := compress(raw, comp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(fixedHeaderSize + len(name) + sizeFieldsSize + len(payload))
	buf.WriteString(Magic)
	_ = binary.Write(&buf, binary.LittleEndian, Version)
	buf.WriteByte(byte(comp))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(raw)))
	_ = binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(raw))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Header describes a snapshot blob.
type Header struct {
	Version          uint16
	Compression      Compression
	Codec            string
	UncompressedSize uint64
	Checksum         uint32
}

// ReadHeader parses the header of data and returns it with the payload offset.
func ReadHeader(data []byte) (Header, int, error) {
	if len(data) < fixedHeaderSize {
		return Header{}, 0, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if string(data[:4]) != Magic {
		return Header{}, 0, ErrInvalidMagic
	}

	h := Header{
		Version:     binary.LittleEndian.Uint16(data[4:6]),
		Compression: Compression(data[6]),
	}
	if h.Version != Version {
		return Header{}, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	nameLen := int(data[7])
	off := fixedHeaderSize + nameLen
	if len(data) < off+sizeFieldsSize {
		return Header{}, 0, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	h.Codec = string(data[fixedHeaderSize:off])
	h.UncompressedSize = binary.LittleEndian.Uint64(data[off:])
	h.Checksum = binary.LittleEndian.Uint32(data[off+8:])
	return h, off + sizeFieldsSize, nil
}

// Decode parses a snapshot produced by Encode. The codec is selected by the
// name stored in the header.
func Decode(data []byte) (table.State, error) {
	h, off, err := ReadHeader(data)
	if err != nil {
		return table.State{}, err
	}

	c, ok := codec.ByName(h.Codec)
	if !ok {
		return table.State{}, fmt.Errorf("%w: %q", ErrUnknownCodec, h.Codec)
	}

	raw, err := decompress(data[off:], h.Compression, h.UncompressedSize)
	if err != nil {
		return table.State{}, err
	}
	if crc32.ChecksumIEEE(raw) != h.Checksum {
		return table.State{}, ErrChecksumMismatch
	}

	var st table.State
	if err := c.Unmarshal(raw, &st); err != nil {
		return table.State{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return st, nil
}

// compress returns the payload and the compression actually applied.
// Incompressible LZ4 input is stored uncompressed.
func compress(raw []byte, comp Compression) ([]byte, Compression, error) {
	switch comp {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), CompressionZstd, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("snapshot: lz4: %w", err)
		}
		if n == 0 {
			return raw, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	default:
		return nil, 0, fmt.Errorf("snapshot: unknown compression %d", comp)
	}
}

func decompress(payload []byte, comp Compression, size uint64) ([]byte, error) {
	switch comp {
	case CompressionNone:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrCorrupt, len(payload), size)
		}
		return payload, nil
	case CompressionZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return raw, nil
	case CompressionLZ4:
		raw := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint64(n) != size {
			return nil, fmt.Errorf("%w: lz4 produced %d bytes, want %d", ErrCorrupt, n, size)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, comp)
	}
}

// Package container implements the JSTG payload container: a self-describing
// frame carrying arbitrary binary payloads with JSON metadata, a flags byte,
// and a CRC-32 integrity trailer, for downstream steganographic placement.
package container

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// Magic identifies a JSTG container
var Magic = [4]byte{'J', 'S', 'T', 'G'}

// Version is the container format version this package reads and writes
const Version = 1

// MaxMetadataSize bounds the serialized JSON metadata, which is length-framed
// by a 16-bit field
const MaxMetadataSize = 65535

// Flag bits. Encryption and chunking define where a collaborator-supplied
// transform sits; this package applies no transform for them.
const (
	FlagEncrypted  = 0x01
	FlagCompressed = 0x02
	FlagChunked    = 0x04
)

// minSize is a container with empty metadata and payload:
// magic + version + flags + u16 + u32 + u32
const minSize = 4 + 1 + 1 + 2 + 4 + 4

// Error kinds carried by ContainerError
const (
	KindBadMagic         = "wrong magic"
	KindBadVersion       = "unsupported version"
	KindTruncated        = "truncated"
	KindBadMetadata      = "metadata error"
	KindMetadataTooLarge = "metadata too large"
	KindBadPayload       = "payload error"
	KindCRCMismatch      = "CRC mismatch"
)

// ContainerError reports a framing or integrity failure with the byte offset
// where it was detected, or -1 when no single offset is meaningful
type ContainerError struct {
	Kind    string
	Offset  int64
	Message string
}

func (e *ContainerError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("container: %s: %s (offset %d)", e.Kind, e.Message, e.Offset)
	}
	return fmt.Sprintf("container: %s: %s", e.Kind, e.Message)
}

func newError(kind string, offset int64, format string, args ...interface{}) *ContainerError {
	return &ContainerError{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// Payload is a decoded container
type Payload struct {
	Payload  []byte
	Metadata map[string]interface{}
	Flags    uint8
	Version  uint8
}

// Encode frames a payload: magic, version, flags, 16-bit big-endian metadata
// length, UTF-8 JSON metadata, 32-bit big-endian payload length, payload, and
// a CRC-32 over everything preceding it. With FlagCompressed set the payload
// is deflated before framing; Decode inflates it back transparently.
func Encode(payload []byte, metadata map[string]interface{}, flags uint8) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, newError(KindBadMetadata, -1, "metadata not serializable: %v", err)
	}
	if len(metaJSON) > MaxMetadataSize {
		return nil, newError(KindMetadataTooLarge, -1,
			"serialized metadata is %d bytes, limit %d", len(metaJSON), MaxMetadataSize)
	}

	body := payload
	if flags&FlagCompressed != 0 {
		body, err = deflate(payload)
		if err != nil {
			return nil, errors.Wrap(err, "compressing payload")
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, minSize+len(metaJSON)+len(body)))
	buf.Write(Magic[:])
	buf.WriteByte(Version)
	buf.WriteByte(flags)

	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(metaJSON)))
	buf.Write(u16[:])
	buf.Write(metaJSON)

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(len(body)))
	buf.Write(u32[:])
	buf.Write(body)

	binary.BigEndian.PutUint32(u32[:], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(u32[:])

	return buf.Bytes(), nil
}

// Decode validates and unpacks a container produced by Encode
func Decode(data []byte) (*Payload, error) {
	if len(data) < len(Magic) || !bytes.Equal(data[:len(Magic)], Magic[:]) {
		got := data
		if len(got) > len(Magic) {
			got = got[:len(Magic)]
		}
		return nil, newError(KindBadMagic, 0, "expected %x, found %x", Magic, got)
	}
	if len(data) < minSize {
		return nil, newError(KindTruncated, int64(len(data)),
			"%d bytes is below the %d-byte minimum", len(data), minSize)
	}

	version := data[4]
	if version != Version {
		return nil, newError(KindBadVersion, 4, "expected version %d, found %d", Version, version)
	}
	flags := data[5]

	pos := int64(6)
	metaLen := int64(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if metaLen > int64(len(data))-pos-8 {
		return nil, newError(KindTruncated, pos-2,
			"metadata length %d exceeds remaining %d bytes", metaLen, int64(len(data))-pos-8)
	}
	metaJSON := data[pos : pos+metaLen]
	pos += metaLen

	var metadata map[string]interface{}
	if err := json.Unmarshal(metaJSON, &metadata); err != nil {
		return nil, newError(KindBadMetadata, pos-metaLen, "invalid JSON: %v", err)
	}

	payloadLen := int64(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if payloadLen > int64(len(data))-pos-4 {
		return nil, newError(KindTruncated, pos-4,
			"payload length %d exceeds remaining %d bytes", payloadLen, int64(len(data))-pos-4)
	}
	body := data[pos : pos+payloadLen]
	pos += payloadLen

	want := binary.BigEndian.Uint32(data[pos : pos+4])
	got := crc32.ChecksumIEEE(data[:pos])
	if want != got {
		return nil, newError(KindCRCMismatch, pos, "expected %08x, computed %08x", want, got)
	}

	payload := append([]byte(nil), body...)
	if flags&FlagCompressed != 0 {
		var err error
		payload, err = inflate(body)
		if err != nil {
			return nil, newError(KindBadPayload, pos-payloadLen, "decompression failed: %v", err)
		}
	}

	return &Payload{Payload: payload, Metadata: metadata, Flags: flags, Version: version}, nil
}

// IsContainer reports whether the bytes begin a plausible JSTG container
func IsContainer(data []byte) bool {
	return len(data) >= minSize && bytes.Equal(data[:len(Magic)], Magic[:])
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	return io.ReadAll(fr)
}

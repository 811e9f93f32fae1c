package container

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	out, err := Encode(payload, map[string]interface{}{"name": "x"}, 0)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x4A, 0x53, 0x54, 0x47}, out[:4], "magic JSTG")
	assert.Equal(t, byte(1), out[4], "version")
	assert.Equal(t, byte(0), out[5], "flags")

	metaLen := binary.BigEndian.Uint16(out[6:8])
	assert.Equal(t, `{"name":"x"}`, string(out[8:8+metaLen]))

	payloadLen := binary.BigEndian.Uint32(out[8+metaLen : 12+metaLen])
	assert.Equal(t, uint32(3), payloadLen)
	assert.Equal(t, payload, out[12+metaLen:15+metaLen])

	want := crc32.ChecksumIEEE(out[:len(out)-4])
	assert.Equal(t, want, binary.BigEndian.Uint32(out[len(out)-4:]),
		"trailer is the CRC-32 of all preceding bytes")
}

func TestRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	metadata := map[string]interface{}{
		"name": "x",
		"tags": []interface{}{"a", "b"},
		"size": float64(3),
	}

	out, err := Encode(payload, metadata, 0)
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)
	assert.Equal(t, uint8(0), decoded.Flags)
	assert.Equal(t, uint8(1), decoded.Version)
	if diff := cmp.Diff(metadata, decoded.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripEmpty(t *testing.T) {
	out, err := Encode(nil, nil, 0)
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Empty(t, decoded.Payload)
	assert.Empty(t, decoded.Metadata)
}

func TestRoundTripCompressed(t *testing.T) {
	payload := bytes.Repeat([]byte("steganography "), 500)
	out, err := Encode(payload, map[string]interface{}{"kind": "text"}, FlagCompressed)
	require.NoError(t, err)
	assert.Less(t, len(out), len(payload), "repetitive payload must shrink")

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)
	assert.Equal(t, uint8(FlagCompressed), decoded.Flags)
}

func TestFlagsPreserved(t *testing.T) {
	out, err := Encode([]byte{9}, nil, FlagEncrypted|FlagChunked)
	require.NoError(t, err)
	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, uint8(FlagEncrypted|FlagChunked), decoded.Flags)
}

func expectKind(t *testing.T, err error, kind string) *ContainerError {
	t.Helper()
	require.Error(t, err)
	var ce *ContainerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, kind, ce.Kind)
	return ce
}

func TestDecodeCRCMismatch(t *testing.T) {
	out, err := Encode([]byte{0x01, 0x02, 0x03}, map[string]interface{}{"name": "x"}, 0)
	require.NoError(t, err)

	out[len(out)-1]++
	_, err = Decode(out)
	ce := expectKind(t, err, KindCRCMismatch)
	assert.Contains(t, ce.Message, "expected")
}

func TestDecodePayloadCorruption(t *testing.T) {
	out, err := Encode([]byte{0x01, 0x02, 0x03}, nil, 0)
	require.NoError(t, err)

	// Flipping a payload byte must fail the CRC, not silently decode
	out[len(out)-5] ^= 0x40
	_, err = Decode(out)
	expectKind(t, err, KindCRCMismatch)
}

func TestDecodeWrongMagic(t *testing.T) {
	_, err := Decode([]byte("PAYLOADPAYLOADPAYLOAD"))
	ce := expectKind(t, err, KindBadMagic)
	assert.Equal(t, int64(0), ce.Offset)
}

func TestDecodeBadVersion(t *testing.T) {
	out, err := Encode([]byte{1}, nil, 0)
	require.NoError(t, err)
	out[4] = 2
	_, err = Decode(out)
	expectKind(t, err, KindBadVersion)
}

func TestDecodeTruncated(t *testing.T) {
	out, err := Encode([]byte("some payload bytes"), map[string]interface{}{"k": "v"}, 0)
	require.NoError(t, err)

	for _, cut := range []int{len(out) - 3, len(out) - 10, minSize - 2, 5} {
		if cut <= 4 || cut >= len(out) {
			continue
		}
		_, err := Decode(out[:cut])
		expectKind(t, err, KindTruncated)
	}
}

func TestDecodeBadMetadataJSON(t *testing.T) {
	out, err := Encode([]byte{1}, map[string]interface{}{"name": "x"}, 0)
	require.NoError(t, err)

	// First metadata byte is the opening brace
	out[8] = 'X'
	_, err = Decode(out)
	expectKind(t, err, KindBadMetadata)
}

func TestEncodeMetadataTooLarge(t *testing.T) {
	metadata := map[string]interface{}{"blob": strings.Repeat("a", 70000)}
	_, err := Encode([]byte{1}, metadata, 0)
	expectKind(t, err, KindMetadataTooLarge)
}

func TestIsContainer(t *testing.T) {
	out, err := Encode([]byte{1, 2}, nil, 0)
	require.NoError(t, err)
	assert.True(t, IsContainer(out))
	assert.False(t, IsContainer([]byte("JSTG")), "magic alone is below the minimum size")
	assert.False(t, IsContainer(out[1:]))
	assert.False(t, IsContainer(nil))
}

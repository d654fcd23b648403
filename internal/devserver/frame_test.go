package devserver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/conneroisu/quarry/internal/errors"
)

// maskedFrame builds a client frame with the given header bits and payload.
func maskedFrame(fin bool, opcode byte, payload string) []byte {
	mask := [4]byte{0x1a, 0x2b, 0x3c, 0x4d}
	b0 := opcode
	if fin {
		b0 |= 0x80
	}
	frame := []byte{b0, 0x80 | byte(len(payload))}
	frame = append(frame, mask[:]...)
	for i := 0; i < len(payload); i++ {
		frame = append(frame, payload[i]^mask[i%4])
	}
	return frame
}

func TestReadFrameDecodesMaskedText(t *testing.T) {
	msg, ok, err := readFrame(bytes.NewReader(maskedFrame(true, opText, "connected")))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "connected", msg)
}

func TestReadFrameRejectsFragmented(t *testing.T) {
	_, _, err := readFrame(bytes.NewReader(maskedFrame(false, opText, "x")))
	var perr *qerrors.ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReadFrameRejectsContinuation(t *testing.T) {
	_, _, err := readFrame(bytes.NewReader(maskedFrame(true, opContinuation, "x")))
	var perr *qerrors.ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReadFrameRejectsUnmasked(t *testing.T) {
	frame := []byte{0x80 | opText, 2, 'h', 'i'}
	_, _, err := readFrame(bytes.NewReader(frame))
	var perr *qerrors.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "masked")
}

func TestReadFrameRejectsLongPayload(t *testing.T) {
	// Extended payload length marker.
	frame := []byte{0x80 | opText, 0x80 | 126}
	_, _, err := readFrame(bytes.NewReader(frame))
	var perr *qerrors.ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReadFrameIgnoresOtherOpcodes(t *testing.T) {
	const opPing = 0x9
	msg, ok, err := readFrame(bytes.NewReader(maskedFrame(true, opPing, "ping")))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, msg)
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, "ready"))
	assert.Equal(t, []byte{0x81, 5, 'r', 'e', 'a', 'd', 'y'}, buf.Bytes())
}

func TestAcceptKey(t *testing.T) {
	// RFC 6455 section 1.3 example.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", acceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

package devserver

import (
	"io"

	qerrors "github.com/conneroisu/quarry/internal/errors"
)

// RFC 6455 opcodes. Only text frames carry session messages; close, ping,
// and pong are ignored rather than rejected.
const (
	opContinuation = 0x0
	opText         = 0x1
)

// readFrame reads one inbound client frame and returns its unmasked payload.
// ok is false for ignored opcodes. The accepted subset is strict: single
// frame (FIN=1), masked, payload under 126 bytes. A continuation frame, a
// fragmented frame, or an unmasked frame is a protocol violation that kills
// the connection.
func readFrame(r io.Reader) (payload string, ok bool, err error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", false, err
	}

	fin := hdr[0]&0x80 != 0
	opcode := hdr[0] & 0x0f
	masked := hdr[1]&0x80 != 0
	length := int(hdr[1] & 0x7f)

	switch {
	case opcode == opContinuation:
		return "", false, &qerrors.ProtocolError{Reason: "continuation frames not supported"}
	case !fin:
		return "", false, &qerrors.ProtocolError{Reason: "fragmented frames not supported"}
	case !masked:
		return "", false, &qerrors.ProtocolError{Reason: "client frames must be masked"}
	case length >= 126:
		return "", false, &qerrors.ProtocolError{Reason: "payload too large"}
	}

	var mask [4]byte
	if _, err := io.ReadFull(r, mask[:]); err != nil {
		return "", false, err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", false, err
	}
	for i := range data {
		data[i] ^= mask[i%4]
	}

	if opcode != opText {
		return "", false, nil
	}
	return string(data), true, nil
}

// writeFrame writes a server-to-client text frame. Server frames are not
// masked. The session vocabulary is short, so the 125-byte single-frame
// limit is never a constraint.
func writeFrame(w io.Writer, payload string) error {
	if len(payload) > 125 {
		return &qerrors.ProtocolError{Reason: "outbound payload too large"}
	}
	hdr := [2]byte{0x80 | opText, byte(len(payload))}
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, payload)
	return err
}

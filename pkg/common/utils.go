package common

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// ReadUint16BE reads a uint16 in big-endian format.
func ReadUint16BE(reader io.Reader) (uint16, error) {
	var value uint16
	err := binary.Read(reader, binary.BigEndian, &value)
	return value, err
}

// ReadUint32BE reads a uint32 in big-endian format. All on-wire
// integers in DVD structures are big-endian.
func ReadUint32BE(reader io.Reader) (uint32, error) {
	var value uint32
	err := binary.Read(reader, binary.BigEndian, &value)
	return value, err
}

// ReadBytes reads a specified number of bytes.
func ReadBytes(reader io.Reader, count int) ([]byte, error) {
	buffer := make([]byte, count)
	n, err := io.ReadFull(reader, buffer)
	if err != nil {
		return nil, err
	}
	if n != count {
		return nil, fmt.Errorf("expected to read %d bytes, got %d", count, n)
	}
	return buffer, nil
}

// TrimTitle returns a fixed-width title field with trailing spaces and
// NUL padding removed.
func TrimTitle(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}

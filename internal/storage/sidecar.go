package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Safety bounds applied when reading an index sidecar back in. Any value
// that exceeds these is treated as corruption and triggers a rebuild from
// the data file rather than an attempt to honor the bogus value.
const (
	maxSidecarCount  = 1_000_000
	maxSidecarString = 100
)

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeStr(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readStr(r io.Reader, maxLen int) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	if int(n) > maxLen {
		return "", fmt.Errorf("storage: sidecar string length %d exceeds sanity bound %d", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// openSidecarWriter truncates and reopens path for a full rewrite; sidecars
// are always written in one shot from the in-memory index, never appended
// to incrementally, so a stale tail can never linger.
func openSidecarWriter(path string) (*os.File, *bufio.Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, bufio.NewWriter(f), nil
}

func openSidecarReader(path string) (*os.File, *bufio.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, bufio.NewReader(f), nil
}

func readCount(r io.Reader) (uint64, error) {
	count, err := readU64(r)
	if err != nil {
		return 0, err
	}
	if count > maxSidecarCount {
		return 0, fmt.Errorf("storage: sidecar count %d exceeds sanity bound %d", count, maxSidecarCount)
	}
	return count, nil
}

// Package protocol implements the per-connection command framing
// spec.md §4.5 describes: a bounded byte buffer that accumulates reads
// from a client socket and yields one command line at a time, split on
// LF, CR, CRLF, or LFCR.
package protocol

import (
	"bytes"

	"github.com/pixeldup/dids/internal/diderr"
)

// Buffer accumulates bytes read from a connection and extracts
// complete command lines. It mirrors the reference implementation's
// per-connection fixed-capacity buffer rather than a streaming
// bufio.Scanner: the server loop appends each chunk it reads from the
// connection and then tries to extract a line.
type Buffer struct {
	data     []byte
	capacity int
}

// NewBuffer creates an empty buffer with the given capacity B.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{capacity: capacity}
}

// Append adds bytes just read from the connection. Returns a
// diderr.ProtocolFailure if the buffer would exceed its capacity
// without yet containing a line terminator.
func (b *Buffer) Append(chunk []byte) error {
	b.data = append(b.data, chunk...)
	if len(b.data) > b.capacity && !b.hasTerminator() {
		return diderr.New(diderr.ProtocolFailure,
			"protocol: command line exceeded %d bytes without a terminator", b.capacity)
	}
	return nil
}

func (b *Buffer) hasTerminator() bool {
	return bytes.IndexByte(b.data, '\n') >= 0 || bytes.IndexByte(b.data, '\r') >= 0
}

// TryExtractLine looks for the first LF, CR, CRLF, or LFCR in the
// buffer. If found, it returns the text before the terminator, with
// the line (including its terminator) consumed from the buffer.
func (b *Buffer) TryExtractLine() (line string, ok bool) {
	i := indexOfTerminator(b.data)
	if i < 0 {
		return "", false
	}

	consumed := 1
	if i+1 < len(b.data) {
		switch {
		case b.data[i] == '\n' && b.data[i+1] == '\r':
			consumed = 2
		case b.data[i] == '\r' && b.data[i+1] == '\n':
			consumed = 2
		}
	}

	line = string(b.data[:i])
	b.data = b.data[i+consumed:]
	return line, true
}

func indexOfTerminator(data []byte) int {
	for i, c := range data {
		if c == '\n' || c == '\r' {
			return i
		}
	}
	return -1
}

// Len reports the number of unconsumed bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Reset empties the buffer so it can be reused.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

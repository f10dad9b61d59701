// Package stream relays upstream LLM token streams to clients as NDJSON frames.
package stream

import "bytes"

// LineBuffer splits a byte stream into lines. Fragments may end mid-line (or mid-rune);
// the incomplete tail is held until the next Feed or Flush.
type LineBuffer struct {
	buf []byte
}

// Feed appends p and returns every complete line, without the line terminator.
func (b *LineBuffer) Feed(p []byte) []string {
	b.buf = append(b.buf, p...)
	var lines []string
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(b.buf[:i], []byte{'\r'})))
		b.buf = b.buf[i+1:]
	}
	if len(b.buf) == 0 {
		b.buf = nil
	}
	return lines
}

// Flush returns whatever is buffered as a final line and empties the buffer.
func (b *LineBuffer) Flush() string {
	rest := string(bytes.TrimSuffix(b.buf, []byte{'\r'}))
	b.buf = nil
	return rest
}

// Len returns the number of buffered bytes.
func (b *LineBuffer) Len() int {
	return len(b.buf)
}

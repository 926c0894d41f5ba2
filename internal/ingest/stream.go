package ingest

// stream.go wraps raw input before it reaches the CSV parser:
//
//   - skipBOM drops the UTF-8 byte order mark written by Excel
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - sizeLimiter fails with ErrTooLarge past the configured limit
//
// Shift_JIS input is decoded with golang.org/x/text before sanitizing.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer replaces invalid UTF-8 bytes on the fly. Runes are decoded
// from a buffered reader, so a sequence split across reads of the
// underlying reader is still seen whole.
type utf8Sanitizer struct {
	br  *bufio.Reader
	out []byte // encoded bytes of the last rune not yet handed out
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &utf8Sanitizer{br: br, out: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.out) > 0 {
			c := copy(p[n:], s.out)
			s.out = s.out[c:]
			n += c
			continue
		}
		// Copy plain ASCII straight from the buffer.
		if b, err := s.br.Peek(1); err == nil && b[0] < utf8.RuneSelf {
			_, _ = s.br.ReadByte()
			p[n] = b[0]
			n++
			continue
		}
		if n > 0 && s.br.Buffered() == 0 {
			return n, nil
		}
		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if r == utf8.RuneError && size == 1 {
			s.out = append(s.out[:0], '?')
		} else {
			s.out = utf8.AppendRune(s.out[:0], r)
		}
	}
	return n, nil
}

// sizeLimiter fails once more than limit bytes were read.
type sizeLimiter struct {
	r     io.Reader
	limit int64
	read  int64
}

func (l *sizeLimiter) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.limit > 0 && l.read > l.limit {
		return n, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, l.limit)
	}
	return n, err
}

// limit wraps r with the size limit of opts; a zero limit is unbounded.
func limit(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &sizeLimiter{r: r, limit: max}
}

// decodeText wraps r for CSV parsing: BOM skipping and decoding from the
// named encoding, then UTF-8 sanitizing.
func decodeText(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "-", "_")) {
	case "", "utf8", "utf_8", "utf_8_sig":
		return newUTF8Sanitizer(skipBOM(r)), nil
	case "shift_jis", "sjis", "cp932", "windows_31j":
		return newUTF8Sanitizer(transform.NewReader(r, japanese.ShiftJIS.NewDecoder())), nil
	default:
		return nil, fmt.Errorf("unsupported text encoding %q (want utf-8 or shift_jis)", encoding)
	}
}

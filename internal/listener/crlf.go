package listener

import (
	"bytes"
	"io"
)

// lineEndings adapts a terminal connection to the console's "\n" lines.
// Reads fold "\r\n" and bare "\r" into "\n", writes expand "\n" to "\r\n".
type lineEndings struct {
	rw     io.ReadWriter
	lastCR bool
}

func newCRLFReadWriter(rw io.ReadWriter) io.ReadWriter {
	return &lineEndings{rw: rw}
}

func (l *lineEndings) Read(p []byte) (int, error) {
	for {
		n, err := l.rw.Read(p)
		if n == 0 {
			return 0, err
		}

		out := p[:0]
		for _, b := range p[:n] {
			switch {
			case b == '\r':
				out = append(out, '\n')
				l.lastCR = true
			case b == '\n' && l.lastCR:
				// Second half of a "\r\n" pair, possibly split across reads.
				l.lastCR = false
			default:
				out = append(out, b)
				l.lastCR = false
			}
		}

		if len(out) > 0 || err != nil {
			return len(out), err
		}
	}
}

func (l *lineEndings) Write(p []byte) (int, error) {
	if _, err := l.rw.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

package render

import (
	"io"
)

// SliceSource yields a fixed list of fragments.
type SliceSource struct {
	frags []string
	next  int
}

// NewSliceSource returns a Source over frags.
func NewSliceSource(frags ...string) *SliceSource {
	return &SliceSource{frags: frags}
}

// Recv implements Source.
func (s *SliceSource) Recv() (string, error) {
	if s.next >= len(s.frags) {
		return "", io.EOF
	}
	f := s.frags[s.next]
	s.next++
	return f, nil
}

// ReaderSource yields the contents of a reader in chunks of at most size bytes.
type ReaderSource struct {
	r   io.Reader
	buf []byte
}

// NewReaderSource returns a Source reading r. A size below 1 selects 64 bytes.
func NewReaderSource(r io.Reader, size int) *ReaderSource {
	if size < 1 {
		size = 64
	}
	return &ReaderSource{r: r, buf: make([]byte, size)}
}

// Recv implements Source.
func (s *ReaderSource) Recv() (string, error) {
	n, err := s.r.Read(s.buf)
	if n > 0 {
		return string(s.buf[:n]), nil
	}
	if err != nil {
		return "", err
	}
	return "", nil
}

package message

import "io"

// AtReader turns an io.ReaderAt into a streaming io.Reader starting at Offset,
// without copying the underlying data. Grounded on the same offset-based
// reading idiom the teacher uses for hashing message bodies without buffering
// the whole message in memory.
type AtReader struct {
	R      io.ReaderAt
	Offset int64
}

func (r *AtReader) Read(buf []byte) (int, error) {
	n, err := r.R.ReadAt(buf, r.Offset)
	r.Offset += int64(n)
	return n, err
}

package core

// BitWriter packs values into a growable byte buffer, least-significant bit
// first, with no padding between consecutive writes.
type BitWriter struct {
	buf  []byte
	size uint64 // Number of bits written (relative to buf[0])
}

// NewBitWriter creates a writer, optionally reserving room for
// initialCapacity bits.
func NewBitWriter(initialCapacity uint64) *BitWriter {
	return &BitWriter{
		buf: make([]byte, 0, (initialCapacity+7)/8),
	}
}

// WriteBits appends the lowest numBits of val.
func (w *BitWriter) WriteBits(val uint64, numBits uint8) {
	if numBits == 0 {
		return
	}
	if numBits > 64 {
		panic("BitWriter.WriteBits: numBits must be <= 64")
	}
	if numBits < 64 {
		val &= (uint64(1) << numBits) - 1
	}

	for numBits > 0 {
		byteIndex := w.size / 8
		bitIndex := uint8(w.size % 8)
		if byteIndex >= uint64(len(w.buf)) {
			w.buf = append(w.buf, 0) // crossed into an unallocated byte
		}
		n := 8 - bitIndex
		if n > numBits {
			n = numBits
		}
		w.buf[byteIndex] |= byte(val << bitIndex)
		val >>= n
		numBits -= n
		w.size += uint64(n)
	}
}

// Len returns the number of buffered bits.
func (w *BitWriter) Len() uint64 {
	return w.size
}

// Bytes returns the packed buffer: exactly ceil(Len()/8) bytes, with the
// unused high bits of the last byte zero. The slice aliases the writer.
func (w *BitWriter) Bytes() []byte {
	return w.buf
}

// Drain returns the completed whole bytes and keeps only the partially
// filled trailing byte buffered.
func (w *BitWriter) Drain() []byte {
	full := w.size / 8
	if full == 0 {
		return nil
	}
	out := make([]byte, full)
	copy(out, w.buf[:full])
	rest := copy(w.buf, w.buf[full:])
	w.buf = w.buf[:rest]
	w.size -= full * 8
	return out
}

// BitReader unpacks values written by BitWriter. Bytes may be appended as
// they become available.
type BitReader struct {
	buf []byte
	pos uint64 // Next bit to read (relative to buf[0])
}

// NewBitReader creates a reader over data. The reader never writes to data.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{buf: data[:len(data):len(data)]}
}

// Append extends the readable buffer.
func (r *BitReader) Append(data []byte) {
	r.buf = append(r.buf, data...)
}

// Available returns the number of unread bits.
func (r *BitReader) Available() uint64 {
	return uint64(len(r.buf))*8 - r.pos
}

// ReadBits reads numBits (<= 64) and advances. It returns ErrTruncated,
// without consuming anything, if fewer bits are buffered.
func (r *BitReader) ReadBits(numBits uint8) (uint64, error) {
	if numBits == 0 {
		return 0, nil
	}
	if numBits > 64 {
		panic("BitReader.ReadBits: numBits must be <= 64")
	}
	if uint64(numBits) > r.Available() {
		return 0, ErrTruncated
	}

	var val uint64
	var shift uint8
	for shift < numBits {
		byteIndex := r.pos / 8
		bitIndex := uint8(r.pos % 8)
		n := 8 - bitIndex
		if n > numBits-shift {
			n = numBits - shift
		}
		chunk := uint64(r.buf[byteIndex]>>bitIndex) & ((uint64(1) << n) - 1)
		val |= chunk << shift
		shift += n
		r.pos += uint64(n)
	}
	return val, nil
}

// Discard drops fully consumed bytes from the front of the buffer.
func (r *BitReader) Discard() {
	done := r.pos / 8
	if done == 0 {
		return
	}
	r.buf = r.buf[done:]
	r.pos -= done * 8
}

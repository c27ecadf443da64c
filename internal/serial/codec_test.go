package serial

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqasmgo/internal/core"
)

// countingReader records how many bytes were pulled from the stream.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func buildCircuit(gates ...core.Gate) *core.Circuit {
	c := core.NewCircuit()
	for _, g := range gates {
		c.AddGate(g)
	}
	return c
}

// randomCircuit builds a circuit whose qubit set is exactly [0, numQubits).
func randomCircuit(rng *rand.Rand, numQubits uint32, extraGates int) *core.Circuit {
	c := core.NewCircuit()
	for q := uint32(0); q < numQubits; q++ {
		c.AddGate(core.H(q))
	}
	for i := 0; i < extraGates; i++ {
		op := core.Opcode(rng.Intn(core.NumOpcodes))
		q0 := uint32(rng.Int63n(int64(numQubits)))
		q1 := uint32(rng.Int63n(int64(numQubits)))
		if op.IsTwoQubit() && numQubits > 1 {
			for q1 == q0 {
				q1 = uint32(rng.Int63n(int64(numQubits)))
			}
		}
		c.AddGate(core.NewGate(op, q0, q1))
	}
	return c
}

func TestEncodeKnownLayout(t *testing.T) {
	c := buildCircuit(core.H(0), core.CX(0, 1), core.T(1))
	data, err := Marshal(c)
	require.NoError(t, err)

	want := []byte{
		'D', 'Q', 'A', 'S', 'M', 0, // magic
		1, 0, // version
		2, 0, 0, 0, // num_qubits
		3, 0, 0, 0, 0, 0, 0, 0, // num_gates
		// h q0: 01|0, cx q0 q1: 10|0|1, t q1: 00|1  (LSB first, width 1)
		0x4A, 0x02,
	}
	assert.Equal(t, want, data)
	assert.Equal(t, uint64(len(want)), EncodedSize(c))
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	good, err := Marshal(buildCircuit(core.T(0)))
	require.NoError(t, err)

	bad := append([]byte(nil), good...)
	bad[0] = 'X'
	cr := &countingReader{r: bytes.NewReader(bad)}

	_, err = NewDecoder(cr).ReadCircuit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBadMagic), "got %v", err)
	var fe *core.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "magic", fe.Field)
	assert.Equal(t, len(Magic), cr.n, "decoder must stop after the magic bytes")
}

func TestHeaderRejectsUnknownVersion(t *testing.T) {
	h := Header{Version: FormatVersion + 1, NumQubits: 1, NumGates: 0}
	buf, err := h.MarshalBinary()
	require.NoError(t, err)

	var back Header
	err = back.UnmarshalBinary(buf)
	assert.True(t, errors.Is(err, core.ErrUnsupportedVersion), "got %v", err)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Version: FormatVersion, NumQubits: 257, NumGates: 1 << 40}
	buf, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, HeaderSize)

	var back Header
	require.NoError(t, back.UnmarshalBinary(buf))
	assert.Equal(t, h, back)
	assert.Equal(t, uint8(9), back.QubitWidth())
}

func TestDecodeTruncatedAtEveryLength(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data, err := Marshal(randomCircuit(rng, 5, 40))
	require.NoError(t, err)

	for n := 0; n < len(data); n++ {
		_, err := NewDecoder(bytes.NewReader(data[:n])).ReadCircuit()
		if !errors.Is(err, core.ErrTruncated) {
			t.Fatalf("prefix of %d/%d bytes: got %v, want ErrTruncated", n, len(data), err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	seed := int64(99)
	rng := rand.New(rand.NewSource(seed))
	t.Logf("Using seed %d", seed)

	for _, numQubits := range []uint32{1, 2, 3, 7, 8, 9, 255, 256, 257, 1000} {
		t.Run(fmt.Sprintf("N=%d", numQubits), func(t *testing.T) {
			c := randomCircuit(rng, numQubits, 300)
			data, err := Marshal(c)
			require.NoError(t, err)
			assert.Equal(t, EncodedSize(c), uint64(len(data)))

			back, err := Unmarshal(data)
			require.NoError(t, err)
			assert.True(t, c.Equal(back), "decoded circuit differs")
			assert.Equal(t, c.Qubits(), back.Qubits())
			assert.Equal(t, c.Fingerprint(), back.Fingerprint())

			// encode(decode(bytes)) == bytes
			again, err := Marshal(back)
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestRoundTripEmptyCircuit(t *testing.T) {
	data, err := Marshal(core.NewCircuit())
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), back.NumGates())
	assert.Equal(t, uint32(0), back.NumQubits())
}

func TestRoundTripSingleQubitZeroWidth(t *testing.T) {
	c := buildCircuit(core.T(0), core.H(0), core.S(0), core.T(0), core.H(0))
	data, err := Marshal(c)
	require.NoError(t, err)
	// five 2-bit records -> 10 bits -> 2 bytes
	assert.Len(t, data, HeaderSize+2)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, c.Equal(back))
}

func TestDecoderStopsAtCircuitEnd(t *testing.T) {
	a := buildCircuit(core.H(0), core.CX(0, 1), core.T(1))
	b := buildCircuit(core.S(2), core.CX(2, 0), core.CX(1, 2))

	var stream bytes.Buffer
	enc := NewEncoder(&stream)
	require.NoError(t, enc.WriteCircuit(a))
	require.NoError(t, enc.WriteCircuit(b))

	dec := NewDecoder(&stream)
	gotA, err := dec.ReadCircuit()
	require.NoError(t, err)
	gotB, err := dec.ReadCircuit()
	require.NoError(t, err)
	assert.True(t, a.Equal(gotA))
	assert.True(t, b.Equal(gotB))
	assert.Equal(t, 0, stream.Len())
}

func TestDecodeRejectsNonZeroPadding(t *testing.T) {
	data, err := Marshal(buildCircuit(core.H(0), core.CX(0, 1), core.T(1)))
	require.NoError(t, err)
	data[len(data)-1] |= 0x80

	_, err = Unmarshal(data)
	assert.True(t, errors.Is(err, core.ErrNonZeroPadding), "got %v", err)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	data, err := Marshal(buildCircuit(core.T(0)))
	require.NoError(t, err)
	data = append(data, 0)

	_, err = Unmarshal(data)
	assert.True(t, errors.Is(err, core.ErrTrailingData), "got %v", err)
}

func TestDecodeRejectsQubitCountMismatch(t *testing.T) {
	h := Header{Version: FormatVersion, NumQubits: 4, NumGates: 1}
	buf, err := h.MarshalBinary()
	require.NoError(t, err)
	buf = append(buf, 0x00) // t q[0] at width 2

	_, err = Unmarshal(buf)
	assert.True(t, errors.Is(err, core.ErrQubitCountMismatch), "got %v", err)

	h = Header{Version: FormatVersion, NumQubits: 0, NumGates: 3}
	buf, err = h.MarshalBinary()
	require.NoError(t, err)
	_, err = Unmarshal(buf)
	assert.True(t, errors.Is(err, core.ErrQubitCountMismatch), "got %v", err)
}

func TestEncodeRejectsUnrepresentableQubit(t *testing.T) {
	// One qubit means a zero-width field, so only qubit 0 is representable
	_, err := Marshal(buildCircuit(core.T(5)))
	assert.True(t, errors.Is(err, core.ErrQubitOutOfRange), "got %v", err)

	// {1, 2, 3} fits a 2-bit field even though it does not start at zero
	c := buildCircuit(core.T(1), core.CX(2, 3))
	data, err := Marshal(c)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, c.Equal(back))
}

func TestLargeCircuitDrainsEncoder(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	c := randomCircuit(rng, 300, 80000) // well past the flush threshold
	data, err := Marshal(c)
	require.NoError(t, err)

	back, err := NewDecoder(bytes.NewReader(data)).ReadCircuit()
	require.NoError(t, err)
	assert.Equal(t, c.Fingerprint(), back.Fingerprint())
}

func TestEncoderReusableAfterError(t *testing.T) {
	// Qubits {0, 5}: one-bit fields, so T(0) is buffered before T(5) fails
	bad := buildCircuit(core.T(0), core.T(5))
	good := buildCircuit(core.H(0), core.CX(0, 1), core.T(1))

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	err := enc.WriteCircuit(bad)
	require.True(t, errors.Is(err, core.ErrQubitOutOfRange), "got %v", err)

	buf.Reset()
	require.NoError(t, enc.WriteCircuit(good))
	want, err := Marshal(good)
	require.NoError(t, err)
	assert.Equal(t, want, buf.Bytes())
}

// swapReader reads from whichever reader is currently installed.
type swapReader struct{ r io.Reader }

func (s *swapReader) Read(p []byte) (int, error) { return s.r.Read(p) }

func TestDecoderReusableAfterError(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	broken, err := Marshal(randomCircuit(rng, 5, 40))
	require.NoError(t, err)
	good := buildCircuit(core.H(0), core.CX(0, 1), core.T(1))
	data, err := Marshal(good)
	require.NoError(t, err)

	src := &swapReader{r: bytes.NewReader(broken[:HeaderSize+3])}
	dec := NewDecoder(src)
	_, err = dec.ReadCircuit()
	require.True(t, errors.Is(err, core.ErrTruncated), "got %v", err)

	src.r = bytes.NewReader(data)
	back, err := dec.ReadCircuit()
	require.NoError(t, err)
	assert.True(t, good.Equal(back))
}

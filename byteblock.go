package brec

// ByteBlock is a fixed-width byte array used for signatures and CRCs whose
// width is a declared constant rather than always 4. Valid widths are
// {4, 8, 16, 32, 64, 128} bytes; any other width is rejected by NewByteBlock.
type ByteBlock struct {
	bytes []byte
}

// byteBlockCapacities enumerates the widths {Len4, Len8, Len16, Len32, Len64,
// Len128} a ByteBlock may take.
var byteBlockCapacities = map[int]bool{
	4:   true,
	8:   true,
	16:  true,
	32:  true,
	64:  true,
	128: true,
}

// IsValidByteBlockCapacity reports whether n is one of the declared widths.
func IsValidByteBlockCapacity(n int) bool {
	return byteBlockCapacities[n]
}

// NewByteBlock copies b into a ByteBlock, failing with
// ErrInvalidByteBlockCapacity if len(b) is not a declared width.
func NewByteBlock(b []byte) (ByteBlock, error) {
	if !IsValidByteBlockCapacity(len(b)) {
		return ByteBlock{}, ErrInvalidByteBlockCapacity
	}

	out := make([]byte, len(b))
	copy(out, b)

	return ByteBlock{bytes: out}, nil
}

// Bytes returns the underlying bytes. Callers must not mutate the returned
// slice.
func (bb ByteBlock) Bytes() []byte {
	return bb.bytes
}

// Len returns the block's width in bytes.
func (bb ByteBlock) Len() int {
	return len(bb.bytes)
}

// Equal reports whether two ByteBlocks hold the same bytes.
func (bb ByteBlock) Equal(other ByteBlock) bool {
	if len(bb.bytes) != len(other.bytes) {
		return false
	}

	for i := range bb.bytes {
		if bb.bytes[i] != other.bytes[i] {
			return false
		}
	}

	return true
}

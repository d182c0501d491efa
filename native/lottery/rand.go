package lottery

import (
	"encoding/binary"
	"math/big"

	"lukechampine.com/blake3"
)

// seedKeyLen is the key length the BLAKE3 XOF expects; the 64-bit beacon
// value is repeated across it.
const seedKeyLen = 32

// drawStream expands a single beacon integer into an arbitrary-length
// pseudo-random byte stream so multiple picks are independent samples from
// one randomness commitment.
type drawStream struct {
	xof *blake3.OutputReader
}

func newDrawStream(seed uint64) *drawStream {
	var key [seedKeyLen]byte
	for off := 0; off < seedKeyLen; off += 8 {
		binary.BigEndian.PutUint64(key[off:off+8], seed)
	}
	h := blake3.New(seedKeyLen, key[:])
	h.Write([]byte("prizepool/draw/v1"))
	return &drawStream{xof: h.XOF()}
}

// uintN returns a uniform value in [0, max) using rejection sampling over the
// XOF stream. Rejection keeps the draw unbiased for arbitrary weight totals,
// unlike reducing the raw output modulo a fixed constant.
func (s *drawStream) uintN(max *big.Int) *big.Int {
	if max == nil || max.Sign() <= 0 {
		return big.NewInt(0)
	}
	bits := max.BitLen()
	nBytes := (bits + 7) / 8
	shift := uint(nBytes*8 - bits)
	buf := make([]byte, nBytes)
	candidate := new(big.Int)
	for {
		// The XOF reader never returns an error.
		s.xof.Read(buf)
		buf[0] >>= shift
		candidate.SetBytes(buf)
		if candidate.Cmp(max) < 0 {
			return new(big.Int).Set(candidate)
		}
	}
}

package dvd

import (
	"encoding/binary"
	"fmt"
)

// Cipher holds the keystream used to descramble the USER field of raw
// sectors within one block. Keystream generation is implemented as a
// 15 bit Linear Feedback Shift Register (LFSR) with bits 10 and 14 as
// taps. See:
//
// [1] https://en.wikipedia.org/wiki/Linear-feedback_shift_register
// [2] https://hitmen.c02.at/files/docs/gc/Ingenieria-Inversa-Understanding_WII_Gamecube_Optical_Disks.html
//
// The keystream is a pure function of the seed: two ciphers built from
// the same seed are byte-identical.
type Cipher struct {
	Seed   uint32 // seed value used to create the keystream
	Length int    // keystream length in bytes
	bytes  []byte // generated keystream
}

// NewCipher generates the keystream for seed. The length must be a
// multiple of 8 so Decode can XOR in 64 bit words.
func NewCipher(seed uint32, length int) (*Cipher, error) {
	if length%8 != 0 {
		return nil, fmt.Errorf("cipher length %d is not a multiple of 8", length)
	}

	c := &Cipher{Seed: seed, Length: length, bytes: make([]byte, length)}

	// shift the register once per output bit, packing eight bits
	// into each keystream byte MSB first
	lfsr := seed & 0x7FFF
	for i := 0; i < length; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			bit := byte(lfsr>>14) & 1
			b = (b << 1) | bit
			n := ((lfsr >> 14) ^ (lfsr >> 10)) & 1
			lfsr = ((lfsr << 1) | n) & 0x7FFF
		}
		c.bytes[i] = b
	}

	return c, nil
}

// Bytes returns the generated keystream.
func (c *Cipher) Bytes() []byte { return c.bytes }

// Decode XORs the keystream into data starting at start. Applying
// Decode twice restores the input. For raw sectors start must be 12 so
// that only the USER field is touched; ID/IED/CPR_MAI and EDC are
// stored in the clear.
func (c *Cipher) Decode(data []byte, start int) {
	// 64 bit words; Length is a multiple of 8
	for i := 0; i < c.Length; i += 8 {
		v := binary.LittleEndian.Uint64(data[start+i:])
		k := binary.LittleEndian.Uint64(c.bytes[i:])
		binary.LittleEndian.PutUint64(data[start+i:], v^k)
	}
}

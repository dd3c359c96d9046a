package dvd

// EDC implementation from ECMA-267 §16.3. The generator polynomial is
// x^32 + x^31 + x^16 + x^15 + x^4 + x^3 + x + 1, applied MSB first with
// an all-zero initial remainder. A correctly descrambled raw sector
// satisfies EDC(sector[0:2060]) == big-endian sector[2060:2064], which
// is what makes the EDC usable as the key-search oracle.

// edcPoly holds the low 32 bits of the generator polynomial.
const edcPoly = 0x8001801B

// edcTable is the byte-at-a-time lookup table for the polynomial.
var edcTable [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ edcPoly
			} else {
				r <<= 1
			}
		}
		edcTable[i] = r
	}
}

// CalcEDC computes the 32 bit error detection code over data.
func CalcEDC(data []byte) uint32 {
	var edc uint32
	for _, b := range data {
		edc = (edc << 8) ^ edcTable[byte(edc>>24)^b]
	}
	return edc
}

package dvd

import "testing"

func TestCalcEDC_KnownVector(t *testing.T) {
	// reference vector for the ECMA-267 polynomial
	got := CalcEDC([]byte{0x01, 0x02, 0x03})
	if got != 0x8210A42D {
		t.Errorf("CalcEDC([01 02 03]) = 0x%08X, want 0x8210A42D", got)
	}
}

func TestCalcEDC_Empty(t *testing.T) {
	if got := CalcEDC(nil); got != 0 {
		t.Errorf("CalcEDC(nil) = 0x%08X, want 0", got)
	}
}

func TestCalcEDC_ZerosAreDegenerate(t *testing.T) {
	// an all-zero sector has EDC 0, which is why seed 0 must be
	// skipped during the key search
	if got := CalcEDC(make([]byte, RawSectorEDCOffset)); got != 0 {
		t.Errorf("CalcEDC(zeros) = 0x%08X, want 0", got)
	}
}

func TestCalcEDC_SingleByteTable(t *testing.T) {
	// one byte runs exactly one table step
	if got := CalcEDC([]byte{0x01}); got != edcPoly {
		t.Errorf("CalcEDC([01]) = 0x%08X, want 0x%08X", got, uint32(edcPoly))
	}
}

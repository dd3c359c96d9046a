package dvd

import (
	"errors"
	"fmt"

	"github.com/joshuarwood/dvdcc/pkg/common"
)

// DiscType identifies the disc geometry.
type DiscType int

const (
	DiscUnknown DiscType = iota
	DiscGameCube
	DiscWiiSingleLayer
	DiscWiiDualLayer
)

func (t DiscType) String() string {
	switch t {
	case DiscGameCube:
		return "GAMECUBE"
	case DiscWiiSingleLayer:
		return "WII_SINGLE_LAYER"
	case DiscWiiDualLayer:
		return "WII_DUAL_LAYER"
	}
	return "UNKNOWN"
}

// discSizes lists candidate sector counts probed in ascending order.
var discSizes = []struct {
	sectors uint32
	t       DiscType
}{
	{712880, DiscGameCube},
	{2294912, DiscWiiSingleLayer},
	{4155840, DiscWiiDualLayer},
}

// MaxCiphers caps the cipher table: one header cipher plus the
// repeating sequence.
const MaxCiphers = 20

// Disc describes the medium in the drive: its geometry and the cipher
// table recovered by the key search. Ciphers[0] descrambles block 0
// only; Ciphers[1:] repeat over all later blocks once AllCiphersFound
// is set.
type Disc struct {
	Type            DiscType
	SectorCount     uint32
	FirstSectorID   uint32
	Model           string
	Ciphers         []*Cipher
	AllCiphersFound bool
}

// NumRepeatingCiphers returns the period of the repeating sequence.
func (d *Disc) NumRepeatingCiphers() int {
	return len(d.Ciphers) - 1
}

// CipherIndex maps a block number to its index in the cipher table:
// block 0 uses the header cipher, later blocks cycle through the
// repeating sequence.
func CipherIndex(block, n int) int {
	if block == 0 {
		return 0
	}
	return (block-1)%n + 1
}

// Cipher returns the cipher for block. Block 0 needs only the header
// cipher; every later block needs a complete table.
func (d *Disc) Cipher(block int) (*Cipher, error) {
	if block == 0 {
		if len(d.Ciphers) == 0 {
			return nil, errors.New("cipher table is empty")
		}
		return d.Ciphers[0], nil
	}
	if !d.AllCiphersFound {
		return nil, fmt.Errorf("cipher table incomplete for block %d", block)
	}
	return d.Ciphers[CipherIndex(block, d.NumRepeatingCiphers())], nil
}

// ProbeDiscType identifies the disc geometry by reading one sector just
// beyond each candidate size. A sense of ILLEGAL REQUEST / LBA OUT OF
// RANGE means the candidate is the true sector count. With no match the
// type stays UNKNOWN and imaging needs an externally supplied count.
func (d *Device) ProbeDiscType() (DiscType, uint32, error) {
	buf := make([]byte, SectorSize)

	for _, candidate := range discSizes {
		err := ReadSectors(d.transport, buf, candidate.sectors+100, 1, false, false, d.Timeout)
		if err == nil {
			continue
		}

		var se *SenseError
		if errors.As(err, &se) {
			if se.Sense.Key == SenseIllegalRequest && se.Sense.ASC == ASCLBAOutOfRange {
				common.LogInfo("Disc type: %s (%d sectors)", candidate.t, candidate.sectors)
				return candidate.t, candidate.sectors, nil
			}
			continue
		}
		return DiscUnknown, 0, err
	}

	return DiscUnknown, 0, nil
}

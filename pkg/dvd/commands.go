package dvd

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshuarwood/dvdcc/pkg/common"
)

// Command builders for the drive command layer. Each function assembles
// a 12 byte CDB, submits it over the transport and converts a nonzero
// sense key into a *SenseError so callers keep the sense data.

// execute submits one CDB with verbose tracing.
func execute(t Transport, op string, cdb *[12]byte, buf []byte, timeout time.Duration) (Sense, error) {
	common.LogDebug("Executing MMC command: % 02x", cdb[:])

	sense, err := t.Execute(cdb, buf, timeout)
	if err != nil {
		return sense, fmt.Errorf("%s: %w", op, err)
	}

	common.LogDebug("Sense data: %s", sense)

	if sense.Key != 0 {
		return sense, &SenseError{Op: op, Sense: sense}
	}
	return sense, nil
}

// Inquiry reads the drive model string, formatted vendor/product/rev.
func Inquiry(t Transport, timeout time.Duration) (string, error) {
	var cdb [12]byte
	buf := make([]byte, 36)

	cdb[0] = SPCInquiry
	cdb[4] = byte(len(buf))

	if _, err := execute(t, "inquiry", &cdb, buf, timeout); err != nil {
		return "", err
	}

	vendor := strings.TrimSpace(string(buf[8:16]))
	product := strings.TrimSpace(string(buf[16:32]))
	revision := strings.TrimSpace(string(buf[32:36]))

	return fmt.Sprintf("%s/%s/%s", vendor, product, revision), nil
}

// StartStop spins the disc up or down. With loej set the drive loads
// (start) or ejects (stop) the medium instead.
func StartStop(t Transport, start, loej bool, timeout time.Duration) error {
	var cdb [12]byte

	cdb[0] = SBCStartStop
	if start {
		cdb[4] |= 0x01
	}
	if loej {
		cdb[4] |= 0x02
	}

	_, err := execute(t, "start/stop unit", &cdb, nil, timeout)
	return err
}

// PreventAllow toggles the medium removal lock.
func PreventAllow(t Transport, prevent bool, timeout time.Duration) error {
	var cdb [12]byte

	cdb[0] = SPCPreventAllow
	if prevent {
		cdb[4] = 0x01
	}

	_, err := execute(t, "prevent/allow removal", &cdb, nil, timeout)
	return err
}

// TestUnitReady reports whether the drive is ready. Not-ready is a
// normal answer here, so a sense-only failure maps to ready=false
// rather than an error.
func TestUnitReady(t Transport, timeout time.Duration) (bool, error) {
	var cdb [12]byte

	sense, err := execute(t, "test unit ready", &cdb, nil, timeout)
	if err != nil {
		if _, ok := err.(*SenseError); ok {
			return false, nil
		}
		return false, err
	}
	return sense.Key == 0, nil
}

// PowerState polls GET EVENT STATUS NOTIFICATION for the power
// management class and returns the reported power state byte.
func PowerState(t Transport, timeout time.Duration) (byte, error) {
	var cdb [12]byte
	buf := make([]byte, 8)

	cdb[0] = MMCGetEventStatus
	cdb[1] = 0x01 // polled
	cdb[4] = EventPowerManagement
	cdb[7] = byte(len(buf) >> 8)
	cdb[8] = byte(len(buf))

	if _, err := execute(t, "get event status", &cdb, buf, timeout); err != nil {
		return 0, err
	}

	// event header (4 bytes), event code, then the power status byte
	return buf[5], nil
}

// ReadSectors issues a READ(12) for count user sectors starting at
// sector. With streaming set the drive prefetches a full cache window;
// with fua set it bypasses the cache entirely.
func ReadSectors(t Transport, buf []byte, sector, count uint32, streaming, fua bool, timeout time.Duration) error {
	var cdb [12]byte

	cdb[0] = MMCRead12
	if fua {
		cdb[1] = 0x08
	}
	cdb[2] = byte(sector >> 24)
	cdb[3] = byte(sector >> 16)
	cdb[4] = byte(sector >> 8)
	cdb[5] = byte(sector)
	cdb[6] = byte(count >> 24)
	cdb[7] = byte(count >> 16)
	cdb[8] = byte(count >> 8)
	cdb[9] = byte(count)
	if streaming {
		cdb[10] = 0x80
	}

	_, err := execute(t, "read(12)", &cdb, buf, timeout)
	return err
}

// ReadRawBytes reads len(buf) bytes of drive MCU memory starting at
// offset from the Hitachi cache base. The vendor command requires root,
// so privileges are raised around the single submission. Bytes 1-3
// spell HIT, likely short for HITACHI.
func ReadRawBytes(t Transport, buf []byte, offset uint32, timeout time.Duration) error {
	nbyte, err := common.SafeIntToUint16(len(buf))
	if err != nil || nbyte == 0 {
		return fmt.Errorf("read raw bytes: invalid length %d (valid: 1 - %d)", len(buf), MaxVendorTransfer)
	}

	address := uint32(HitachiMemBase) + offset

	cdb := [12]byte{
		VendorReadMemory, // vendor specific command (discovered by DaveX)
		'H',
		'I',
		'T',
		0x01, // read MCU memory sub-command
		0,
		byte(address >> 24),
		byte(address >> 16),
		byte(address >> 8),
		byte(address),
		byte(nbyte >> 8),
		byte(nbyte),
	}

	return withRootPrivileges(func() error {
		_, err := execute(t, "read mcu memory", &cdb, buf, timeout)
		return err
	})
}

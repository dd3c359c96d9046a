package dvd

import (
	"fmt"
	"time"

	"github.com/joshuarwood/dvdcc/pkg/common"
)

// Device is an open connection to a DVD drive. The handle is owned
// exclusively by the pipeline: opened at startup, closed on
// termination.
type Device struct {
	path         string
	transport    Transport
	Timeout      time.Duration // per-command timeout
	PollInterval time.Duration // readiness poll spacing
	Model        string        // vendor/product/revision from INQUIRY
}

// Open opens the drive at path, typically /dev/sr0, and reads its
// model string.
func Open(path string, timeout time.Duration) (*Device, error) {
	common.LogDebug("Opening %s", path)

	t, err := openTransport(path)
	if err != nil {
		return nil, err
	}

	d := NewDevice(t, timeout)
	d.path = path

	model, err := Inquiry(t, timeout)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not determine drive model for %s: %w", path, err)
	}
	d.Model = model

	return d, nil
}

// NewDevice wraps an already-open transport. Used directly by tests
// that drive the protocol against a fake transport.
func NewDevice(t Transport, timeout time.Duration) *Device {
	return &Device{
		transport:    t,
		Timeout:      timeout,
		PollInterval: time.Second,
	}
}

// Close releases the drive handle.
func (d *Device) Close() error {
	return d.transport.Close()
}

// Start spins up the disc.
func (d *Device) Start() error {
	common.LogDebug("Starting the drive")
	return StartStop(d.transport, true, false, d.Timeout)
}

// Stop spins down the disc.
func (d *Device) Stop() error {
	common.LogDebug("Stopping the drive")
	return StartStop(d.transport, false, false, d.Timeout)
}

// Load loads the disc tray.
func (d *Device) Load() error {
	return StartStop(d.transport, true, true, d.Timeout)
}

// Eject ejects the disc tray.
func (d *Device) Eject() error {
	return StartStop(d.transport, false, true, d.Timeout)
}

// PreventRemoval locks or unlocks the medium.
func (d *Device) PreventRemoval(prevent bool) error {
	return PreventAllow(d.transport, prevent, d.Timeout)
}

// WaitReady polls the drive once per PollInterval until it is ready
// with no background activity: TEST UNIT READY succeeding and the
// reported power state out of Active, three polls in a row. The drive
// rewrites its sector cache while active, so cache reads must not
// begin earlier.
func (d *Device) WaitReady() error {
	const maxPolls = 1000

	good := 0
	for i := 0; i < maxPolls; i++ {
		ready, err := TestUnitReady(d.transport, d.Timeout)
		if err != nil {
			return err
		}

		power, err := PowerState(d.transport, d.Timeout)
		if err != nil {
			return err
		}

		if ready && power != PowerActive {
			good++
			if good >= 3 {
				common.LogDebug("Drive quiescent (power state %d)", power)
				return nil
			}
		} else {
			good = 0
		}

		time.Sleep(d.PollInterval)
	}

	return fmt.Errorf("drive not quiescent after %d polls", maxPolls)
}

// ReadRawSectorCache fills buf with the 80 raw sectors the drive caches
// for the window containing sector. A streaming read of a single user
// sector forces the full prefetch (the returned user bytes are
// discarded), then the cache is pulled out of MCU memory in transfers
// of at most 65535 bytes. No other command may be issued in between or
// the drive may overwrite its cache. Sector should be a multiple of 80
// to align the window.
func (d *Device) ReadRawSectorCache(sector uint32, buf []byte) error {
	if len(buf) != CacheSize {
		return fmt.Errorf("cache buffer is %d bytes, want %d", len(buf), CacheSize)
	}

	common.LogDebug("Reading raw sector cache from sector %d", sector)

	scratch := make([]byte, SectorSize)
	if err := ReadSectors(d.transport, scratch, sector, 1, true, false, d.Timeout); err != nil {
		return err
	}

	for i := range buf {
		buf[i] = 0
	}

	for i := 0; i < CacheSize; i += MaxVendorTransfer {
		n := MaxVendorTransfer
		if i+n > CacheSize {
			n = CacheSize - i
		}
		if err := ReadRawBytes(d.transport, buf[i:i+n], uint32(i), d.Timeout); err != nil {
			return err
		}
	}

	return nil
}

// ClearCache flushes the drive cache with a zero-length FUA read at a
// sector far from the cached window.
func (d *Device) ClearCache(sector uint32) error {
	common.LogDebug("Clearing drive cache at sector %d", sector)
	return ReadSectors(d.transport, nil, sector, 0, false, true, d.Timeout)
}

// RawSectorID returns the 24 bit sector id stored in the first four
// bytes of a raw sector. The high byte encodes layer and format.
func RawSectorID(raw []byte) uint32 {
	id := uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	return id & 0xFFFFFF
}

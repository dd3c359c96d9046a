//go:build linux

package dvd

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sgTransport submits commands through the Linux SG_IO generic packet
// interface, carrying the 12 byte CDB, a read-direction data buffer and
// a sense slot.
type sgTransport struct {
	fd int
}

const (
	sgIO           = 0x2285 // SG_IO ioctl request
	sgDxferFromDev = -3     // SG_DXFER_FROM_DEV
	senseBufLen    = 32
)

// sgIOHdr mirrors struct sg_io_hdr from <scsi/sg.h>.
type sgIOHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// openTransport opens the drive read-only and non-blocking.
func openTransport(path string) (Transport, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &sgTransport{fd: fd}, nil
}

// Execute submits one CDB and decodes the returned sense data.
func (t *sgTransport) Execute(cdb *[12]byte, buf []byte, timeout time.Duration) (Sense, error) {
	var sb [senseBufLen]byte

	hdr := sgIOHdr{
		interfaceID:    'S',
		dxferDirection: sgDxferFromDev,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        senseBufLen,
		cmdp:           uintptr(unsafe.Pointer(&cdb[0])),
		sbp:            uintptr(unsafe.Pointer(&sb[0])),
		timeout:        uint32(timeout / time.Millisecond),
	}
	if len(buf) > 0 {
		hdr.dxferLen = uint32(len(buf))
		hdr.dxferp = uintptr(unsafe.Pointer(&buf[0]))
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(t.fd), sgIO, uintptr(unsafe.Pointer(&hdr)))
	if errno != 0 {
		return Sense{}, fmt.Errorf("SG_IO: %w", errno)
	}

	// fixed-format sense: key at byte 2, asc/ascq at 12/13
	sense := Sense{Key: sb[2] & 0x0F, ASC: sb[12], ASCQ: sb[13]}
	return sense, nil
}

func (t *sgTransport) Close() error {
	return unix.Close(t.fd)
}

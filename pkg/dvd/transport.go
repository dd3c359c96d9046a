package dvd

import (
	"fmt"
	"time"
)

// Sense holds the fixed-format sense data returned by a drive command.
type Sense struct {
	Key  uint8
	ASC  uint8
	ASCQ uint8
}

// String formats sense data the way drives log it: key/asc/ascq.
func (s Sense) String() string {
	return fmt.Sprintf("%02X/%02X/%02X", s.Key, s.ASC, s.ASCQ)
}

// Transport submits 12 byte command descriptor blocks to a drive and
// returns the resulting sense data. All commands transfer data from
// the device to the host. A transport error (the submission itself
// failed) is reported through err; a drive-reported failure is a nil
// err with a nonzero sense key. This interface is the portability
// boundary: platforms other than Linux supply their own implementation
// with the same CDB/sense contract.
type Transport interface {
	Execute(cdb *[12]byte, buf []byte, timeout time.Duration) (Sense, error)
	Close() error
}

// SenseError reports a drive command that completed with a nonzero
// sense key.
type SenseError struct {
	Op    string
	Sense Sense
}

func (e *SenseError) Error() string {
	return fmt.Sprintf("%s: drive reported sense %s", e.Op, e.Sense)
}

package common

import (
	"fmt"
	"math"
)

// SafeIntToUint16 safely converts int to uint16 with bounds checking.
// Used when packing transfer lengths into CDB fields.
func SafeIntToUint16(value int) (uint16, error) {
	if value < 0 || value > math.MaxUint16 {
		return 0, fmt.Errorf("value %d out of range for uint16 (0-%d)", value, math.MaxUint16)
	}
	return uint16(value), nil
}

// SafeInt64ToUint32 safely converts int64 to uint32 with bounds checking.
// Used when deriving resume sector offsets from file lengths.
func SafeInt64ToUint32(value int64) (uint32, error) {
	if value < 0 {
		return 0, fmt.Errorf("value %d is negative, cannot convert to uint32", value)
	}
	if value > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range for uint32 (0-%d)", value, uint32(math.MaxUint32))
	}
	return uint32(value), nil
}

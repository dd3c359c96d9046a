package dvd

import (
	"encoding/binary"
	"testing"
	"time"
)

// fakeTransport simulates a Hitachi/LG drive for protocol tests: it
// records every CDB, answers READ(12) against a configured sector
// count, and serves vendor memory reads from a flat cache image.
type fakeTransport struct {
	sectorCount uint32
	cache       []byte
	powers      []byte
	cdbs        [][12]byte
}

func (f *fakeTransport) Execute(cdb *[12]byte, buf []byte, timeout time.Duration) (Sense, error) {
	f.cdbs = append(f.cdbs, *cdb)

	switch cdb[0] {
	case SPCInquiry:
		copy(buf[8:16], []byte("HL-DT-ST"))
		copy(buf[16:32], []byte("DVD-ROM GDR8082N"))
		copy(buf[32:36], []byte("0101"))

	case MMCRead12:
		lba := binary.BigEndian.Uint32(cdb[2:6])
		if lba >= f.sectorCount {
			return Sense{Key: SenseIllegalRequest, ASC: ASCLBAOutOfRange}, nil
		}

	case VendorReadMemory:
		offset := binary.BigEndian.Uint32(cdb[6:10]) - HitachiMemBase
		n := int(cdb[10])<<8 | int(cdb[11])
		copy(buf[:n], f.cache[offset:])

	case MMCGetEventStatus:
		power := byte(PowerIdle)
		if len(f.powers) > 0 {
			power = f.powers[0]
			if len(f.powers) > 1 {
				f.powers = f.powers[1:]
			}
		}
		buf[5] = power
	}

	return Sense{}, nil
}

func (f *fakeTransport) Close() error { return nil }

func newFakeDevice(f *fakeTransport) *Device {
	d := NewDevice(f, time.Second)
	d.PollInterval = time.Millisecond
	return d
}

func TestInquiry_ModelString(t *testing.T) {
	f := &fakeTransport{}

	model, err := Inquiry(f, time.Second)
	if err != nil {
		t.Fatalf("Inquiry() failed: %v", err)
	}

	want := "HL-DT-ST/DVD-ROM GDR8082N/0101"
	if model != want {
		t.Errorf("model = %q, want %q", model, want)
	}
}

func TestStartStop_CDBBits(t *testing.T) {
	testCases := []struct {
		name  string
		issue func(d *Device) error
		want  byte
	}{
		{"start", (*Device).Start, 0x01},
		{"stop", (*Device).Stop, 0x00},
		{"load", (*Device).Load, 0x03},
		{"eject", (*Device).Eject, 0x02},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeTransport{}
			d := newFakeDevice(f)

			if err := tc.issue(d); err != nil {
				t.Fatalf("%s failed: %v", tc.name, err)
			}
			cdb := f.cdbs[len(f.cdbs)-1]
			if cdb[0] != SBCStartStop || cdb[4] != tc.want {
				t.Errorf("CDB = op 0x%02X byte4 0x%02X, want op 0x%02X byte4 0x%02X",
					cdb[0], cdb[4], byte(SBCStartStop), tc.want)
			}
		})
	}
}

func TestProbeDiscType(t *testing.T) {
	testCases := []struct {
		name        string
		sectorCount uint32
		wantType    DiscType
	}{
		{"gamecube", 712880, DiscGameCube},
		{"wii single layer", 2294912, DiscWiiSingleLayer},
		{"wii dual layer", 4155840, DiscWiiDualLayer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeTransport{sectorCount: tc.sectorCount}
			d := newFakeDevice(f)

			discType, count, err := d.ProbeDiscType()
			if err != nil {
				t.Fatalf("ProbeDiscType() failed: %v", err)
			}
			if discType != tc.wantType {
				t.Errorf("disc type = %s, want %s", discType, tc.wantType)
			}
			if count != tc.sectorCount {
				t.Errorf("sector count = %d, want %d", count, tc.sectorCount)
			}
		})
	}
}

func TestProbeDiscType_Unknown(t *testing.T) {
	f := &fakeTransport{sectorCount: 9999999}
	d := newFakeDevice(f)

	discType, count, err := d.ProbeDiscType()
	if err != nil {
		t.Fatalf("ProbeDiscType() failed: %v", err)
	}
	if discType != DiscUnknown || count != 0 {
		t.Errorf("got (%s, %d), want (UNKNOWN, 0)", discType, count)
	}
}

func TestWaitReady_RequiresThreeConsecutive(t *testing.T) {
	f := &fakeTransport{
		sectorCount: 712880,
		powers:      []byte{PowerActive, PowerActive, PowerIdle, PowerActive, PowerIdle, PowerIdle, PowerIdle},
	}
	d := newFakeDevice(f)

	if err := d.WaitReady(); err != nil {
		t.Fatalf("WaitReady() failed: %v", err)
	}

	// two actives, one idle (counter resets), one active, then three
	// idles: seven event status polls in total
	polls := 0
	for _, cdb := range f.cdbs {
		if cdb[0] == MMCGetEventStatus {
			polls++
		}
	}
	if polls != 7 {
		t.Errorf("event status polls = %d, want 7", polls)
	}
}

func TestReadRawSectorCache_Protocol(t *testing.T) {
	// cache image: 80 raw sectors with sequential ids
	cache := make([]byte, CacheSize)
	for i := 0; i < SectorsPerCache; i++ {
		id := uint32(FirstRawSectorID + 80 + i)
		binary.BigEndian.PutUint32(cache[i*RawSectorSize:], id&0xFFFFFF)
	}

	f := &fakeTransport{sectorCount: 712880, cache: cache}
	d := newFakeDevice(f)

	buf := make([]byte, CacheSize)
	if err := d.ReadRawSectorCache(80, buf); err != nil {
		t.Fatalf("ReadRawSectorCache() failed: %v", err)
	}

	// streaming read of one user sector, then vendor reads covering
	// the full window in <=65535 byte steps
	if len(f.cdbs) != 4 {
		t.Fatalf("command count = %d, want 4", len(f.cdbs))
	}

	read := f.cdbs[0]
	if read[0] != MMCRead12 || read[10]&0x80 == 0 {
		t.Error("first command should be a streaming READ(12)")
	}
	if read[1]&0x08 != 0 {
		t.Error("cache fill read must not set FUA")
	}
	if count := binary.BigEndian.Uint32(read[6:10]); count != 1 {
		t.Errorf("READ(12) count = %d, want 1", count)
	}

	wantLens := []int{65535, 65535, CacheSize - 2*65535}
	for i, wantLen := range wantLens {
		cdb := f.cdbs[1+i]
		if cdb[0] != VendorReadMemory {
			t.Fatalf("command %d = 0x%02X, want 0x%02X", 1+i, cdb[0], byte(VendorReadMemory))
		}
		if string(cdb[1:4]) != "HIT" {
			t.Errorf("command %d missing HIT signature", 1+i)
		}
		addr := binary.BigEndian.Uint32(cdb[6:10])
		if addr != HitachiMemBase+uint32(i*65535) {
			t.Errorf("command %d address = 0x%08X, want 0x%08X", 1+i, addr, HitachiMemBase+uint32(i*65535))
		}
		if n := int(cdb[10])<<8 | int(cdb[11]); n != wantLen {
			t.Errorf("command %d length = %d, want %d", 1+i, n, wantLen)
		}
	}

	// cache alignment: ids increase by one per raw sector
	first := RawSectorID(buf)
	for i := 0; i < SectorsPerCache; i++ {
		if id := RawSectorID(buf[i*RawSectorSize:]); id != first+uint32(i) {
			t.Fatalf("raw sector %d id = 0x%06X, want 0x%06X", i, id, first+uint32(i))
		}
	}
}

func TestClearCache_FUA(t *testing.T) {
	f := &fakeTransport{sectorCount: 712880}
	d := newFakeDevice(f)

	if err := d.ClearCache(16000); err != nil {
		t.Fatalf("ClearCache() failed: %v", err)
	}

	cdb := f.cdbs[len(f.cdbs)-1]
	if cdb[0] != MMCRead12 || cdb[1]&0x08 == 0 {
		t.Error("cache clear should be a READ(12) with FUA set")
	}
	if count := binary.BigEndian.Uint32(cdb[6:10]); count != 0 {
		t.Errorf("cache clear count = %d, want 0", count)
	}
}

package pkg

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/joshuarwood/dvdcc/pkg/dvd"
)

// recoveredDisc builds a fixture disc and runs key recovery so backup
// tests start from a complete cipher table.
func recoveredDisc(t *testing.T, nsectors int) (*testDisc, *dvd.Disc) {
	t.Helper()

	seq := []uint32{0x0040, 0x0041, 0x0042}
	fixture := buildDisc(t, nsectors, 0x0180, seq, nil)

	disc := &dvd.Disc{
		Type:        dvd.DiscGameCube,
		SectorCount: uint32(nsectors),
	}
	recovery := NewKeyRecovery(fixture)
	if err := recovery.Recover(disc, nsectors/dvd.SectorsPerBlock); err != nil {
		t.Fatalf("Recover() failed: %v", err)
	}
	if !disc.AllCiphersFound {
		t.Fatal("cipher table did not close")
	}

	return fixture, disc
}

func runBackup(t *testing.T, fixture *testDisc, disc *dvd.Disc, opts BackupOptions) {
	t.Helper()
	processor := NewBackupProcessor(fixture, disc, opts)
	if err := processor.Run(); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
}

func TestBackup_ISOAndRawContents(t *testing.T) {
	fixture, disc := recoveredDisc(t, 160)

	dir := t.TempDir()
	isoPath := filepath.Join(dir, "game.iso")
	rawPath := filepath.Join(dir, "game.raw")

	runBackup(t, fixture, disc, BackupOptions{ISOPath: isoPath, RAWPath: rawPath})

	// ISO: 2048 bytes per sector from descrambled offset 6
	var wantISO, wantRAW bytes.Buffer
	for _, plain := range fixture.plain {
		wantISO.Write(plain[6 : 6+dvd.SectorSize])
		wantRAW.Write(plain)
	}

	iso, err := os.ReadFile(isoPath)
	if err != nil {
		t.Fatalf("reading ISO failed: %v", err)
	}
	if !bytes.Equal(iso, wantISO.Bytes()) {
		t.Error("ISO output does not match the descrambled disc")
	}

	raw, err := os.ReadFile(rawPath)
	if err != nil {
		t.Fatalf("reading RAW failed: %v", err)
	}
	if !bytes.Equal(raw, wantRAW.Bytes()) {
		t.Error("RAW output does not match the descrambled disc")
	}
}

func TestBackup_RetryOnCorruptSector(t *testing.T) {
	fixture, disc := recoveredDisc(t, 160)
	fixture.corrupt[100] = 2 // sector 100 served corrupt twice

	dir := t.TempDir()
	isoPath := filepath.Join(dir, "game.iso")

	runBackup(t, fixture, disc, BackupOptions{ISOPath: isoPath})

	iso, err := os.ReadFile(isoPath)
	if err != nil {
		t.Fatalf("reading ISO failed: %v", err)
	}
	want := fixture.plain[100][6 : 6+dvd.SectorSize]
	got := iso[100*dvd.SectorSize : 101*dvd.SectorSize]
	if !bytes.Equal(got, want) {
		t.Error("sector 100 not recovered after corrupt reads")
	}
	if fixture.clears < 2 {
		t.Errorf("cache clears = %d, want >= 2", fixture.clears)
	}
}

func TestBackup_UnrecoverableSectorFails(t *testing.T) {
	fixture, disc := recoveredDisc(t, 160)
	fixture.corrupt[42] = 100 // corrupt on every read

	dir := t.TempDir()
	processor := NewBackupProcessor(fixture, disc, BackupOptions{
		ISOPath: filepath.Join(dir, "game.iso"),
	})
	if err := processor.Run(); err == nil {
		t.Fatal("Run() should fail when a sector never verifies")
	}
}

func TestBackup_ResumeIdempotence(t *testing.T) {
	fixture, disc := recoveredDisc(t, 160)

	dir := t.TempDir()
	fullISO := filepath.Join(dir, "full.iso")
	runBackup(t, fixture, disc, BackupOptions{ISOPath: fullISO})

	// interrupted run: truncate at sector 100 and resume
	partISO := filepath.Join(dir, "part.iso")
	partRAW := filepath.Join(dir, "part.raw")
	runBackup(t, fixture, disc, BackupOptions{ISOPath: partISO, RAWPath: partRAW})

	if err := os.Truncate(partISO, 100*dvd.SectorSize); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	if err := os.Truncate(partRAW, 100*dvd.RawSectorSize); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	runBackup(t, fixture, disc, BackupOptions{ISOPath: partISO, RAWPath: partRAW, Resume: true})

	full, err := os.ReadFile(fullISO)
	if err != nil {
		t.Fatalf("reading ISO failed: %v", err)
	}
	resumed, err := os.ReadFile(partISO)
	if err != nil {
		t.Fatalf("reading ISO failed: %v", err)
	}
	if !bytes.Equal(full, resumed) {
		t.Error("resumed ISO differs from the uninterrupted run")
	}
}

func TestBackup_ResumeOffsetMismatchFails(t *testing.T) {
	fixture, disc := recoveredDisc(t, 160)

	dir := t.TempDir()
	isoPath := filepath.Join(dir, "game.iso")
	rawPath := filepath.Join(dir, "game.raw")
	runBackup(t, fixture, disc, BackupOptions{ISOPath: isoPath, RAWPath: rawPath})

	// outputs now disagree on where to resume
	if err := os.Truncate(isoPath, 100*dvd.SectorSize); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	if err := os.Truncate(rawPath, 50*dvd.RawSectorSize); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	processor := NewBackupProcessor(fixture, disc, BackupOptions{
		ISOPath: isoPath,
		RAWPath: rawPath,
		Resume:  true,
	})
	if err := processor.Run(); err == nil {
		t.Fatal("Run() should fail on a resume offset mismatch")
	}
}

func TestBackup_ResumeLengthNotAlignedFails(t *testing.T) {
	fixture, disc := recoveredDisc(t, 160)

	dir := t.TempDir()
	isoPath := filepath.Join(dir, "game.iso")
	runBackup(t, fixture, disc, BackupOptions{ISOPath: isoPath})

	if err := os.Truncate(isoPath, 100*dvd.SectorSize+7); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	processor := NewBackupProcessor(fixture, disc, BackupOptions{ISOPath: isoPath, Resume: true})
	if err := processor.Run(); err == nil {
		t.Fatal("Run() should fail when the resume length is not sector aligned")
	}
}

package pkg

import (
	"encoding/binary"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuarwood/dvdcc/pkg/common"
	"github.com/joshuarwood/dvdcc/pkg/dvd"
)

// Disc header layout, read from the descrambled first sector starting
// at byte 6 (the same interpretation the ISO output preserves):
// system id, two byte game id, region id, two byte publisher id, a
// version byte at +7 and a 64 byte title at +0x20.
const (
	headerOffset     = 6
	headerVersionOff = 7
	headerTitleOff   = 0x20
	headerTitleLen   = 64
	headerMinLen     = headerTitleOff + headerTitleLen
)

// wiiNoUpdateMagic marks a Wii disc whose update partition carries no
// system update. Read from sector 160 as a big-endian word at header
// bytes 4..8.
const wiiNoUpdateMagic = 0xA5BED6AE

// wiiUpdateSector is the sector holding the update marker; it sits in
// block 10.
const wiiUpdateSector = 160

// DiscMetadata holds the decoded disc header fields.
type DiscMetadata struct {
	Model     string `yaml:"drive_model,omitempty"`
	DiscType  string `yaml:"disc_type,omitempty"`
	System    string `yaml:"system"`
	GameID    string `yaml:"game_id"`
	Region    string `yaml:"region"`
	Publisher string `yaml:"publisher"`
	Version   uint8  `yaml:"version"`
	Title     string `yaml:"title"`
}

// DecodeMetadata decodes the header fields from a descrambled first
// raw sector.
func DecodeMetadata(raw []byte) (*DiscMetadata, error) {
	if len(raw) < headerOffset+headerMinLen {
		return nil, fmt.Errorf("disc header needs %d bytes, got %d", headerOffset+headerMinLen, len(raw))
	}

	h := raw[headerOffset:]

	system := string(h[0:1])
	region := string(h[3:4])
	publisher := string(h[4:6])

	m := &DiscMetadata{
		System:    lookup(dvd.Systems, system),
		GameID:    string(h[0:6]),
		Region:    lookup(dvd.Regions, region),
		Publisher: lookup(dvd.Publishers, publisher),
		Version:   h[headerVersionOff],
		Title:     common.TrimTitle(h[headerTitleOff : headerTitleOff+headerTitleLen]),
	}
	return m, nil
}

// lookup resolves a header code to its display name, falling back to
// the code itself.
func lookup(table map[string]string, code string) string {
	if name, ok := table[code]; ok {
		return name
	}
	return code
}

// Display logs the decoded metadata.
func (m *DiscMetadata) Display() {
	common.LogInfo("System:    %s", m.System)
	common.LogInfo("Game ID:   %s", m.GameID)
	common.LogInfo("Title:     %s", m.Title)
	common.LogInfo("Region:    %s", m.Region)
	common.LogInfo("Publisher: %s", m.Publisher)
	common.LogInfo("Version:   %d", m.Version)
}

// ExportYAML writes the metadata as a YAML sidecar file.
func (m *DiscMetadata) ExportYAML(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CheckWiiUpdate reads the update marker of a Wii disc and reports
// whether the disc carries no system update. The marker sector lives in
// block 10, so the cipher table must already be recovered.
func CheckWiiUpdate(r SectorCacheReader, disc *dvd.Disc) (bool, error) {
	cipher, err := disc.Cipher(wiiUpdateSector / dvd.SectorsPerBlock)
	if err != nil {
		return false, err
	}

	buf := make([]byte, dvd.CacheSize)
	cacheStart := uint32(wiiUpdateSector) / dvd.SectorsPerCache * dvd.SectorsPerCache
	if err := r.ReadRawSectorCache(cacheStart, buf); err != nil {
		return false, err
	}

	i := wiiUpdateSector % dvd.SectorsPerCache
	raw := buf[i*dvd.RawSectorSize : (i+1)*dvd.RawSectorSize]
	cipher.Decode(raw, dvd.RawSectorUserOffset)

	marker := binary.BigEndian.Uint32(raw[headerOffset+4 : headerOffset+8])
	return marker == wiiNoUpdateMagic, nil
}

package pkg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/joshuarwood/dvdcc/pkg/common"
	"github.com/joshuarwood/dvdcc/pkg/dvd"
)

// sectorRetries is how many times a single sector is re-read before the
// run is declared unrecoverable.
const sectorRetries = 20

// BackupProcessor streams every sector of a disc through the
// decode/verify/retry pipeline, writing ISO and/or RAW images.
type BackupProcessor struct {
	reader   SectorCacheReader
	disc     *dvd.Disc
	opts     BackupOptions
	progress *common.Progress
	buf      []byte
}

// NewBackupProcessor creates a backup pipeline for disc reading from r.
func NewBackupProcessor(r SectorCacheReader, disc *dvd.Disc, opts BackupOptions) *BackupProcessor {
	return &BackupProcessor{
		reader:   r,
		disc:     disc,
		opts:     opts,
		progress: common.NewProgress(),
		buf:      make([]byte, dvd.CacheSize),
	}
}

// output is one image sink with its per-sector slice of the raw sector.
type output struct {
	file       *os.File
	w          *bufio.Writer
	sectorSize int64
	offset     int // byte offset into the descrambled raw sector
}

// openOutput opens path for writing, appending when resume is set, and
// returns the sink together with the sector the existing content ends
// at. Each output checks its own path.
func openOutput(path string, sectorSize int64, offset int, resume bool) (*output, uint32, error) {
	if !resume {
		f, err := os.Create(path)
		if err != nil {
			return nil, 0, fmt.Errorf("%s %s: %w", common.ErrFailedToCreateOutput, path, err)
		}
		return &output{file: f, w: bufio.NewWriter(f), sectorSize: sectorSize, offset: offset}, 0, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", common.ErrFailedToOpenResume, path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.Size()%sectorSize != 0 {
		f.Close()
		return nil, 0, fmt.Errorf("%s: %s has %d bytes", common.ErrResumeLengthNotAligned, path, info.Size())
	}

	start, err := common.SafeInt64ToUint32(info.Size() / sectorSize)
	if err != nil {
		f.Close()
		return nil, 0, err
	}

	return &output{file: f, w: bufio.NewWriter(f), sectorSize: sectorSize, offset: offset}, start, nil
}

func (o *output) write(raw []byte) error {
	_, err := o.w.Write(raw[o.offset : o.offset+int(o.sectorSize)])
	return err
}

func (o *output) close() error {
	if err := o.w.Flush(); err != nil {
		o.file.Close()
		return err
	}
	return o.file.Close()
}

// Run images the disc from the resume point to the final sector. For
// each sector the block cipher is applied, the EDC verified, and on
// mismatch the cache is flushed and the window re-read, up to 20
// attempts. ISO output is 2048 bytes from raw offset 6 so the image
// starts with the header bytes the metadata decoder reads; RAW output
// is the full 2064 byte sector with USER descrambled and ID/IED/
// CPR_MAI/EDC verbatim.
func (p *BackupProcessor) Run() error {
	var outputs []*output
	var starts []uint32

	if p.opts.ISOPath != "" {
		iso, start, err := openOutput(p.opts.ISOPath, dvd.SectorSize, 6, p.opts.Resume)
		if err != nil {
			return err
		}
		outputs = append(outputs, iso)
		starts = append(starts, start)
	}
	if p.opts.RAWPath != "" {
		raw, start, err := openOutput(p.opts.RAWPath, dvd.RawSectorSize, 0, p.opts.Resume)
		if err != nil {
			for _, o := range outputs {
				o.close()
			}
			return err
		}
		outputs = append(outputs, raw)
		starts = append(starts, start)
	}
	if len(outputs) == 0 {
		return nil
	}
	defer func() {
		for _, o := range outputs {
			o.close()
		}
	}()

	var startSector uint32
	if p.opts.Resume {
		startSector = starts[0]
		for _, s := range starts[1:] {
			if s != startSector {
				return fmt.Errorf("dvdcc:backup:Run() %s (%v)", common.ErrResumeOffsetMismatch, starts)
			}
		}
	}

	p.progress.Start()
	defer p.progress.Finish()

	refill := true // first iteration after resume loads the window
	var cacheStart uint32

	for s := startSector; s < p.disc.SectorCount; s++ {
		if s%dvd.SectorsPerCache == 0 || refill {
			cacheStart = s / dvd.SectorsPerCache * dvd.SectorsPerCache
			if err := p.reader.ReadRawSectorCache(cacheStart, p.buf); err != nil {
				return err
			}
			refill = false
		}

		if err := p.backupSector(s, cacheStart, outputs); err != nil {
			return err
		}

		p.progress.Update(int(s-startSector), int(p.disc.SectorCount-startSector))
	}

	for _, o := range outputs {
		if err := o.close(); err != nil {
			return err
		}
	}
	outputs = nil

	common.LogInfo(common.InfoBackupComplete, p.disc.SectorCount)
	return nil
}

// backupSector decodes, verifies and writes one sector, re-reading the
// cache window on EDC mismatch.
func (p *BackupProcessor) backupSector(s, cacheStart uint32, outputs []*output) error {
	block := int(s) / dvd.SectorsPerBlock
	cipher, err := p.disc.Cipher(block)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < sectorRetries; attempt++ {
		if attempt > 0 {
			if err := p.reader.ClearCache(flushSector(cacheStart)); err != nil {
				return err
			}
			if err := p.reader.ReadRawSectorCache(cacheStart, p.buf); err != nil {
				return err
			}
		}

		i := int(s % dvd.SectorsPerCache)
		raw := p.buf[i*dvd.RawSectorSize : (i+1)*dvd.RawSectorSize]

		cipher.Decode(raw, dvd.RawSectorUserOffset)

		want := binary.BigEndian.Uint32(raw[dvd.RawSectorEDCOffset:])
		if dvd.CalcEDC(raw[:dvd.RawSectorEDCOffset]) != want {
			common.LogDebug("Sector %d EDC mismatch on attempt %d", s, attempt+1)
			continue
		}

		for _, o := range outputs {
			if err := o.write(raw); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("dvdcc:backup:backupSector() %s %d after %d attempts",
		common.ErrFailedToDecodeSector, s, sectorRetries)
}

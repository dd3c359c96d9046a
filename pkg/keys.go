package pkg

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuarwood/dvdcc/pkg/common"
	"github.com/joshuarwood/dvdcc/pkg/dvd"
)

// KeyRecovery brute-forces the per-block LFSR seeds that descramble a
// disc. The EDC stored in each raw sector acts as the oracle: a seed is
// correct when the descrambled sector's computed EDC equals the stored
// one, for every sub-sector of the block. Seeds repeat with a fixed
// period after block 0, so the search ends once the seed of block 1 is
// rediscovered at a later block.
type KeyRecovery struct {
	reader SectorCacheReader
	buf    []byte
}

// DefaultProbeBlocks bounds the search; pressings repeat their cipher
// sequence well inside 20 blocks.
const DefaultProbeBlocks = 20

// blockRetries is how many times a failed block is retried with a
// cache flush in between.
const blockRetries = 5

// NewKeyRecovery creates a key recovery engine reading from r.
func NewKeyRecovery(r SectorCacheReader) *KeyRecovery {
	return &KeyRecovery{
		reader: r,
		buf:    make([]byte, dvd.CacheSize),
	}
}

// Recover populates disc.Ciphers by searching blocks 0..blocks-1 and
// sets disc.AllCiphersFound once the repeating sequence closes.
func (k *KeyRecovery) Recover(disc *dvd.Disc, blocks int) error {
	common.LogInfo(common.InfoKeySearchStarted)

	for b := 0; b < blocks; b++ {
		if b%dvd.BlocksPerCache == 0 {
			if err := k.reader.ReadRawSectorCache(uint32(b*dvd.SectorsPerBlock), k.buf); err != nil {
				return err
			}
		}

		if err := k.recoverBlock(disc, b); err != nil {
			return err
		}
	}

	if !disc.AllCiphersFound && blocks >= DefaultProbeBlocks {
		return fmt.Errorf("dvdcc:keys:Recover() %s after %d blocks", common.ErrCipherSequenceOpen, blocks)
	}

	return nil
}

// recoverBlock finds or verifies the cipher for block b, retrying with
// a cache flush when the search or verification fails.
func (k *KeyRecovery) recoverBlock(disc *dvd.Disc, b int) error {
	start := uint32(b * dvd.SectorsPerBlock)
	cacheStart := start / dvd.SectorsPerCache * dvd.SectorsPerCache

	// a failed attempt may leave a cipher recorded from corrupt data;
	// roll the table back before searching again
	tableLen := len(disc.Ciphers)
	found := disc.AllCiphersFound

	var lastErr error
	for attempt := 0; attempt < blockRetries; attempt++ {
		if attempt > 0 {
			disc.Ciphers = disc.Ciphers[:tableLen]
			disc.AllCiphersFound = found

			if err := k.reader.ClearCache(flushSector(cacheStart)); err != nil {
				return err
			}
			if err := k.reader.ReadRawSectorCache(cacheStart, k.buf); err != nil {
				return err
			}
		}

		if err := k.tryBlock(disc, b); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("dvdcc:keys:recoverBlock() block %d unrecoverable after %d attempts: %w",
		b, blockRetries, lastErr)
}

// tryBlock runs one search-or-verify pass over the 16 sub-sectors of
// block b inside the current cache window.
func (k *KeyRecovery) tryBlock(disc *dvd.Disc, b int) error {
	var cipher *dvd.Cipher

	if disc.AllCiphersFound {
		var err error
		cipher, err = disc.Cipher(b)
		if err != nil {
			return err
		}
	}

	for j := 0; j < dvd.SectorsPerBlock; j++ {
		raw := k.rawSector(b, j)

		if cipher == nil {
			found, err := searchCipher(raw)
			if err != nil {
				return fmt.Errorf("block %d: %w", b, err)
			}
			cipher = found
			common.LogInfo(common.InfoCipherFound, b, cipher.Seed)

			if err := k.recordCipher(disc, b, cipher); err != nil {
				return err
			}
			continue
		}

		if !verifySector(raw, cipher) {
			return fmt.Errorf("%s %d: sub-sector %d EDC mismatch with seed 0x%04X",
				common.ErrFailedToDecodeBlock, b, j, cipher.Seed)
		}
	}

	return nil
}

// recordCipher appends a newly found cipher to the table, detecting
// closure of the repeating sequence: rediscovering the seed of block 1
// at a later block means the sequence has wrapped.
func (k *KeyRecovery) recordCipher(disc *dvd.Disc, b int, cipher *dvd.Cipher) error {
	if b > 1 && len(disc.Ciphers) > 1 && cipher.Seed == disc.Ciphers[1].Seed {
		disc.AllCiphersFound = true
		common.LogInfo(common.InfoCipherCycle, disc.NumRepeatingCiphers())
		return nil
	}

	if len(disc.Ciphers) >= dvd.MaxCiphers {
		return fmt.Errorf("cipher table full at %d entries", dvd.MaxCiphers)
	}
	disc.Ciphers = append(disc.Ciphers, cipher)
	return nil
}

// rawSector returns the 2064 byte raw sector j of block b within the
// cached window.
func (k *KeyRecovery) rawSector(b, j int) []byte {
	s := (b*dvd.SectorsPerBlock + j) % dvd.SectorsPerCache
	return k.buf[s*dvd.RawSectorSize : (s+1)*dvd.RawSectorSize]
}

// searchCipher brute-forces the 15 bit seed space against the EDC
// oracle for one raw sector. Seed 0 is skipped: its keystream is all
// zeros, which would false-positive on an all-zero USER field.
func searchCipher(raw []byte) (*dvd.Cipher, error) {
	for seed := uint32(1); seed <= 0x7FFF; seed++ {
		cipher, err := dvd.NewCipher(seed, dvd.SectorSize)
		if err != nil {
			return nil, err
		}
		if verifySector(raw, cipher) {
			return cipher, nil
		}
	}
	return nil, fmt.Errorf("%s", common.ErrFailedToFindCipher)
}

// verifySector descrambles a copy of raw with cipher and checks the
// stored EDC. The cached window itself is left untouched.
func verifySector(raw []byte, cipher *dvd.Cipher) bool {
	scratch := make([]byte, dvd.RawSectorSize)
	copy(scratch, raw)
	cipher.Decode(scratch, dvd.RawSectorUserOffset)

	want := binary.BigEndian.Uint32(scratch[dvd.RawSectorEDCOffset:])
	return dvd.CalcEDC(scratch[:dvd.RawSectorEDCOffset]) == want
}

// flushSector picks a sector far from the cached window for a
// cache-clearing read.
func flushSector(cacheStart uint32) uint32 {
	const distance = 16000
	if cacheStart >= distance {
		return 0
	}
	return cacheStart + distance
}

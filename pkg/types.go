// Package pkg implements the dvdcc processors: per-block cipher seed
// recovery, the disc backup pipeline and disc metadata decoding.
package pkg

// SectorCacheReader yields raw sector cache windows from a drive. The
// production implementation is *dvd.Device; tests substitute synthetic
// discs.
type SectorCacheReader interface {
	// ReadRawSectorCache fills buf (dvd.CacheSize bytes) with the 80
	// raw sectors of the cache window containing sector.
	ReadRawSectorCache(sector uint32, buf []byte) error
	// ClearCache flushes the drive cache by touching sector.
	ClearCache(sector uint32) error
}

// BackupOptions configures a backup run.
type BackupOptions struct {
	ISOPath string // descrambled 2048-byte-per-sector image, empty to skip
	RAWPath string // descrambled 2064-byte-per-sector image, empty to skip
	Resume  bool   // append to existing outputs
}

// Package dvd provides low-level access to Hitachi/LG DVD drives used
// to image Nintendo GameCube and Wii optical discs. It covers the SCSI
// command layer, the vendor raw-memory read path, the sector scrambler
// and the EDC used to verify descrambled sectors.
package dvd

// SCSI / MMC operation codes used by the drive command layer.
const (
	SPCTestUnitReady  = 0x00 // TEST UNIT READY
	SPCInquiry        = 0x12 // INQUIRY
	SBCStartStop      = 0x1B // START STOP UNIT
	SPCPreventAllow   = 0x1E // PREVENT ALLOW MEDIUM REMOVAL
	MMCGetEventStatus = 0x4A // GET EVENT STATUS NOTIFICATION
	MMCRead12         = 0xA8 // READ(12)
	VendorReadMemory  = 0xE7 // Hitachi "HIT" read MCU memory
)

// HitachiMemBase is the fixed MCU memory address where the drive keeps
// its internal cache of raw sectors.
const HitachiMemBase = 0x80000000

// MaxVendorTransfer is the largest transfer a single vendor memory read
// can return.
const MaxVendorTransfer = 65535

// Disc geometry. A block is the unit over which the descrambling seed
// is constant; the drive cache holds five blocks.
const (
	SectorSize      = 2048
	RawSectorSize   = 2064
	SectorsPerBlock = 16
	BlocksPerCache  = 5
	SectorsPerCache = BlocksPerCache * SectorsPerBlock
	CacheSize       = SectorsPerCache * RawSectorSize
)

// Raw sector field offsets. ID/IED/CPR_MAI and EDC are stored in the
// clear; only USER is scrambled.
const (
	RawSectorUserOffset = 12   // start of the 2048 byte USER field
	RawSectorEDCOffset  = 2060 // big-endian EDC over bytes 0..2060
)

// FirstRawSectorID is the sector id recorded in the first raw sector of
// a GameCube/Wii pressing. Ids increase by one per sector.
const FirstRawSectorID = 0x030000

// Power states reported by GET EVENT STATUS NOTIFICATION.
const (
	PowerActive  = 0x01
	PowerIdle    = 0x02
	PowerStandby = 0x03
	PowerSleep   = 0x04
)

// Event class bits for GET EVENT STATUS NOTIFICATION.
const (
	EventOperationalChange = 0x02
	EventPowerManagement   = 0x04
	EventExternalRequest   = 0x08
	EventMedia             = 0x10
	EventDeviceBusy        = 0x40
)

// Sense keys and additional sense codes used as probe oracles.
const (
	SenseIllegalRequest = 0x05
	ASCLBAOutOfRange    = 0x21
)

// Systems maps the system id byte of a disc header to a console name.
var Systems = map[string]string{
	"G": "Gamecube",
	"R": "Wii",
}

// Regions maps the region id byte of a disc header to a region name.
var Regions = map[string]string{
	"P": "PAL", "E": "NTSC", "J": "JAP", "U": "AUS", "F": "FRA",
	"D": "GER", "I": "ITA", "S": "SPA", "X": "PALX", "Y": "PALY",
}

// Publishers maps the two character publisher id of a disc header to a
// publisher name. Derived from http://wiitdb.com/Company/HomePage
var Publishers = map[string]string{
	"01": "Nintendo",
	"08": "Capcom",
	"13": "Electronic Arts Japan",
	"17": "KOEI",
	"18": "Hudson Soft",
	"20": "Destination Software / Zoo Games / KSS",
	"28": "Kemco Japan",
	"29": "Seta",
	"36": "Codemasters",
	"41": "Ubi Soft Entertainment",
	"4F": "Eidos",
	"4Q": "Disney Interactive",
	"4Y": "RARE",
	"4Z": "Crave Entertainment",
	"51": "Acclaim",
	"52": "Activision",
	"54": "Take 2 Interactive / GameTek",
	"5D": "Midway / Tradewest",
	"5G": "Majesco Sales Inc",
	"64": "LucasArts Entertainment",
	"68": "Bethesda Softworks",
	"69": "Electronic Arts",
	"6S": "TDK Mediactive",
	"6V": "JoWood Produtions",
	"6W": "Sega",
	"70": "Atari (Infogrames)",
	"71": "Interplay",
	"78": "THQ",
	"7D": "Sierra / Universal Interactive",
	"7S": "Rockstar Games",
	"82": "Namco Ltd.",
	"8P": "Sega Japan",
	"99": "Marvelous Entertainment",
	"9B": "Tecmo",
	"A4": "Konami",
	"AF": "Namco",
	"B2": "Bandai",
	"B6": "HAL Laboratory",
	"C3": "Square",
	"C8": "Koei",
	"D9": "Banpresto",
	"DA": "Tomy",
	"E8": "Asmik",
	"EB": "Atlus",
	"G9": "D3 Publisher",
	"GD": "Square-Enix",
	"GL": "Gameloft / Ubi Soft",
	"KB": "NIS America",
	"RS": "Warner Bros. Interactive Entertainment Inc.",
	"WR": "Warner Bros. Interactive Entertainment Inc.",
	"XJ": "Xseed Games",
}

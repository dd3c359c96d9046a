// Package common provides shared utilities for dvdcc: logging, the
// progress bar and binary helpers.
package common

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the logger used by every dvdcc component.
var Log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		DisableSorting:  true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

// VerboseMode mirrors whether debug output is enabled.
var VerboseMode bool = false

// InitLogger points the logger at w at the given level.
func InitLogger(w io.Writer, level string) {
	Log.Out = w

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// SetVerboseMode enables or disables verbose/debug output, including
// the hex trace of every command descriptor block.
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
	if verbose {
		Log.SetLevel(logrus.DebugLevel)
	}
}

// Error messages
const (
	ErrFailedToDecodeBlock     = "failed to decode block"
	ErrFailedToFindCipher      = "exhausted seed space without EDC match"
	ErrFailedToDecodeSector    = "failed to decode sector"
	ErrCipherSequenceOpen      = "cipher sequence did not close"
	ErrResumeOffsetMismatch    = "iso and raw outputs disagree on resume offset"
	ErrResumeLengthNotAligned  = "resume file length is not a multiple of the sector size"
	ErrUnknownDiscType         = "unknown disc type and no sector count configured"
	ErrDeviceRequired          = "user must specify device path with --device"
	ErrEjectLoadExclusive      = "--eject and --load are mutually exclusive"
	ErrFailedToCreateOutput    = "failed to create output file"
	ErrFailedToOpenResume      = "failed to open existing output file for resume"
)

// Info messages
const (
	InfoDriveModel       = "Drive model: %s"
	InfoBackupComplete   = "Backup complete: %d sectors"
	InfoKeySearchStarted = "Recovering per-block cipher seeds"
	InfoCipherFound      = "Block %d cipher seed 0x%04X"
	InfoCipherCycle      = "Cipher sequence closed with %d repeating ciphers"
	InfoWiiNoUpdate      = "Disc contains no system update"
	InfoWiiUpdate        = "Disc contains a system update"
)

// LogInfo logs an informational message.
func LogInfo(message string, args ...interface{}) {
	Log.Infof(message, args...)
}

// LogWarn logs a warning message.
func LogWarn(message string, args ...interface{}) {
	Log.Warnf(message, args...)
}

// LogError logs an error message.
func LogError(message string, args ...interface{}) {
	Log.Errorf(message, args...)
}

// LogDebug logs a debug message (only shown in verbose mode).
func LogDebug(message string, args ...interface{}) {
	Log.Debugf(message, args...)
}

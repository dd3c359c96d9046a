// Package cmd provides the command-line interface for dvdcc, a tool
// that images Nintendo GameCube and Wii optical discs through the
// vendor command path of Hitachi/LG DVD drives.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joshuarwood/dvdcc/pkg"
	"github.com/joshuarwood/dvdcc/pkg/common"
	"github.com/joshuarwood/dvdcc/pkg/dvd"
)

var (
	flagDevice  string
	flagEject   bool
	flagLoad    bool
	flagISO     string
	flagRAW     string
	flagResume  bool
	flagVerbose bool
)

// rootCmd is the single dvdcc command; the option surface matches the
// original tool.
var rootCmd = &cobra.Command{
	Use:   "dvdcc --device DEVICE [--eject --load ...]",
	Short: "Operate a DVD drive using SCSI commands",
	Long: `dvdcc backs up Nintendo GameCube and Wii discs with a Hitachi/LG
DVD drive, recovering the per-block scrambler seeds from the drive's
raw sector cache and writing a verified ISO and/or RAW image.

Examples:
  dvdcc --device /dev/sr0 --iso game.iso
  dvdcc --device /dev/sr0 --iso game.iso --raw game.raw --resume
  dvdcc --device /dev/sr0 --eject`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		common.LogError("%v", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().StringVarP(&flagDevice, "device", "d", "", "path to the device (example: /dev/sr0)")
	rootCmd.Flags().BoolVar(&flagEject, "eject", false, "eject the disc")
	rootCmd.Flags().BoolVar(&flagLoad, "load", false, "load the disc")
	rootCmd.Flags().StringVarP(&flagISO, "iso", "i", "", "create ISO backup")
	rootCmd.Flags().StringVarP(&flagRAW, "raw", "r", "", "create RAW backup")
	rootCmd.Flags().BoolVar(&flagResume, "resume", false, "resume disc backup to existing file(s)")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "print full command details")
}

// initConfig loads optional defaults from dvdcc.yaml or DVDCC_*
// environment variables; flags take precedence.
func initConfig() {
	viper.SetConfigName("dvdcc")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.dvdcc")
	}
	viper.SetEnvPrefix("dvdcc")
	viper.AutomaticEnv()

	viper.SetDefault("timeout_seconds", 1)
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err == nil {
		common.LogDebug("Using config file %s", viper.ConfigFileUsed())
	}

	common.InitLogger(os.Stderr, viper.GetString("log_level"))
	common.SetVerboseMode(flagVerbose)
}

func run(cmd *cobra.Command, args []string) error {
	device := flagDevice
	if device == "" {
		device = viper.GetString("device")
	}
	if device == "" {
		return fmt.Errorf("dvdcc:cmd:run() %s", common.ErrDeviceRequired)
	}
	if flagEject && flagLoad {
		return fmt.Errorf("dvdcc:cmd:run() %s", common.ErrEjectLoadExclusive)
	}

	timeout := time.Duration(viper.GetInt("timeout_seconds")) * time.Second

	drive, err := dvd.Open(device, timeout)
	if err != nil {
		return err
	}
	defer drive.Close()

	common.LogInfo(common.InfoDriveModel, drive.Model)

	// load and eject bypass the imaging pipeline entirely
	if flagEject {
		return drive.Eject()
	}
	if flagLoad {
		return drive.Load()
	}

	return backup(drive)
}

// backup runs the imaging pipeline: quiesce, probe geometry, recover
// the cipher table, display metadata, then stream the disc to the
// requested outputs.
func backup(drive *dvd.Device) error {
	if err := drive.PreventRemoval(true); err != nil {
		return err
	}
	defer drive.PreventRemoval(false)

	if err := drive.Start(); err != nil {
		return err
	}
	defer drive.Stop()

	// background activity overwrites the drive cache, so wait for a
	// quiescent power state before the first cache read
	if err := drive.WaitReady(); err != nil {
		return err
	}

	discType, sectorCount, err := drive.ProbeDiscType()
	if err != nil {
		return err
	}
	if discType == dvd.DiscUnknown {
		sectorCount = viper.GetUint32("sector_count")
		if sectorCount == 0 {
			return fmt.Errorf("dvdcc:cmd:backup() %s", common.ErrUnknownDiscType)
		}
		common.LogWarn("Unknown disc type, using configured sector count %d", sectorCount)
	}

	disc := &dvd.Disc{
		Type:          discType,
		SectorCount:   sectorCount,
		FirstSectorID: dvd.FirstRawSectorID,
		Model:         drive.Model,
	}

	recovery := pkg.NewKeyRecovery(drive)
	if err := recovery.Recover(disc, pkg.DefaultProbeBlocks); err != nil {
		return err
	}

	if err := displayMetadata(drive, disc); err != nil {
		common.LogWarn("Could not decode disc metadata: %v", err)
	}

	if flagISO == "" && flagRAW == "" {
		return nil
	}

	processor := pkg.NewBackupProcessor(drive, disc, pkg.BackupOptions{
		ISOPath: flagISO,
		RAWPath: flagRAW,
		Resume:  flagResume,
	})
	return processor.Run()
}

// displayMetadata decodes the disc header from the first cache window
// and logs it, writing a YAML sidecar next to the ISO output.
func displayMetadata(drive *dvd.Device, disc *dvd.Disc) error {
	buf := make([]byte, dvd.CacheSize)
	if err := drive.ReadRawSectorCache(0, buf); err != nil {
		return err
	}

	raw := make([]byte, dvd.RawSectorSize)
	copy(raw, buf[:dvd.RawSectorSize])

	cipher, err := disc.Cipher(0)
	if err != nil {
		return err
	}
	cipher.Decode(raw, dvd.RawSectorUserOffset)

	meta, err := pkg.DecodeMetadata(raw)
	if err != nil {
		return err
	}
	meta.Model = drive.Model
	meta.DiscType = disc.Type.String()
	meta.Display()

	if disc.Type == dvd.DiscWiiSingleLayer || disc.Type == dvd.DiscWiiDualLayer {
		noUpdate, err := pkg.CheckWiiUpdate(drive, disc)
		if err != nil {
			return err
		}
		if noUpdate {
			common.LogInfo(common.InfoWiiNoUpdate)
		} else {
			common.LogInfo(common.InfoWiiUpdate)
		}
	}

	if flagISO != "" {
		if err := meta.ExportYAML(flagISO + ".yaml"); err != nil {
			return err
		}
	}
	return nil
}

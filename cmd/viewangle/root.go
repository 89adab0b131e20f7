package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wgdzlh/viewangle"
	"github.com/wgdzlh/viewangle/feather"
	"github.com/wgdzlh/viewangle/gdalio"
	"github.com/wgdzlh/viewangle/log"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "viewangle",
	Short: "Per-pixel view geometry extraction for drone orthophotos",
	Long: `viewangle joins a DEM with every orthophoto matched by --pattern, derives the
viewing zenith and azimuth angle of each pixel from the camera pose table and the solar
angles stored in the image XMP, and writes one Feather file per chunk of images.

Options are read from --config (yaml), then VIEWANGLE_* environment variables, then flags.`,
	SilenceUsage: true,
	RunE:         run,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	registerFlags(rootCmd)
}

func registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "yaml config file")
	f.String("out", "", "output directory")
	f.String("cam", "", "camera pose table (tab separated)")
	f.String("dem", "", "DEM raster")
	f.StringSlice("source-dir", nil, "directories of original images carrying XMP solar tags")
	f.String("name", "", "output file name prefix")
	f.String("pattern", "", "glob selecting orthophotos, ** allowed once")
	f.Int("chunks", 0, "number of chunks")
	f.Int("workers", 0, "parallel chunk workers (0: GOMAXPROCS)")
	f.String("pose-encoding", "", "pose table encoding: utf8 or gbk")
	f.String("metadata-reader", "", "solar tag reader: xmp or exiftool")
	f.String("exiftool", "", "exiftool executable")
	f.Duration("image-timeout", 0, "per image timeout, 0 disables")
	f.String("log-file", "", "log file, mirrored to stdout")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("metrics-file", "", "write prometheus textfile metrics here")
}

func run(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return
	}
	lg, closeLog, err := log.New(log.Config{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return
	}
	defer closeLog()
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poses, err := viewangle.LoadPoseTable(lg, cfg.CamPath, cfg.PoseEncoding)
	if err != nil {
		lg.Error("load pose table failed", zap.String("path", cfg.CamPath), zap.Error(err))
		return
	}
	index, err := viewangle.NewSourceIndex(cfg.SourceDirs)
	if err != nil {
		lg.Error("index source images failed", zap.Error(err))
		return
	}
	solar := viewangle.NewXMPSolarReader(lg, index)
	if cfg.MetadataReader == viewangle.READER_EXIFTOOL {
		solar = viewangle.NewExiftoolSolarReader(lg, index, cfg.ExiftoolPath)
	}
	images, err := viewangle.Discover(cfg.Pattern)
	if err != nil {
		return
	}
	toolbox := gdalio.NewToolbox(lg)
	defer toolbox.Close()
	metrics := viewangle.NewMetrics()
	p := viewangle.NewPipeline(lg, &cfg, viewangle.Deps{
		Rasters:   gdalio.NewSource(lg),
		Poses:     poses,
		Solar:     solar,
		Footprint: toolbox,
		Writer:    feather.NewWriter(lg, cfg.OutDir, cfg.Name),
		Metrics:   metrics,
	})
	sum, err := p.Run(ctx, images)
	if e := metrics.WriteTextfile(cfg.MetricsFile); e != nil {
		lg.Error("write metrics failed", zap.Error(e))
	}
	for _, rep := range sum.Reports {
		fmt.Fprintf(cmd.OutOrStdout(), "chunk %d: %s images=%d failed=%d rows=%d %s\n",
			rep.Index, rep.Status(), len(rep.Images), len(rep.FailedImages()), rep.Rows, rep.Artifact)
	}
	return
}

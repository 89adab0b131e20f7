package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wgdzlh/viewangle"
)

// loadConfig 依次取yaml文件、环境变量、命令行参数，后者优先
func loadConfig(cmd *cobra.Command) (cfg viewangle.Config, err error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(viewangle.ENV_PREFIX + "CONFIG")
	}
	if cfg, err = viewangle.LoadConfig(path); err != nil {
		return
	}
	overrideString(cmd, "out", "OUT_DIR", &cfg.OutDir)
	overrideString(cmd, "cam", "CAM_PATH", &cfg.CamPath)
	overrideString(cmd, "dem", "DEM_PATH", &cfg.DEMPath)
	overrideString(cmd, "name", "NAME", &cfg.Name)
	overrideString(cmd, "pattern", "PATTERN", &cfg.Pattern)
	overrideString(cmd, "pose-encoding", "POSE_ENCODING", &cfg.PoseEncoding)
	overrideString(cmd, "metadata-reader", "METADATA_READER", &cfg.MetadataReader)
	overrideString(cmd, "exiftool", "EXIFTOOL_PATH", &cfg.ExiftoolPath)
	overrideString(cmd, "log-file", "LOG_FILE", &cfg.LogFile)
	overrideString(cmd, "log-level", "LOG_LEVEL", &cfg.LogLevel)
	overrideString(cmd, "metrics-file", "METRICS_FILE", &cfg.MetricsFile)
	overrideInt(cmd, "chunks", "CHUNKS", &cfg.Chunks)
	overrideInt(cmd, "workers", "WORKERS", &cfg.Workers)
	overrideDuration(cmd, "image-timeout", "IMAGE_TIMEOUT", &cfg.ImageTimeout)
	if cmd.Flags().Changed("source-dir") {
		cfg.SourceDirs, _ = cmd.Flags().GetStringSlice("source-dir")
	} else if v := os.Getenv(viewangle.ENV_PREFIX + "SOURCE_DIRS"); v != "" {
		cfg.SourceDirs = strings.Split(v, string(os.PathListSeparator))
	}
	err = cfg.Validate()
	return
}

func overrideString(cmd *cobra.Command, flagName, envName string, dst *string) {
	if cmd.Flags().Changed(flagName) {
		*dst, _ = cmd.Flags().GetString(flagName)
		return
	}
	if v := os.Getenv(viewangle.ENV_PREFIX + envName); v != "" {
		*dst = v
	}
}

func overrideInt(cmd *cobra.Command, flagName, envName string, dst *int) {
	if cmd.Flags().Changed(flagName) {
		*dst, _ = cmd.Flags().GetInt(flagName)
		return
	}
	if v := os.Getenv(viewangle.ENV_PREFIX + envName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideDuration(cmd *cobra.Command, flagName, envName string, dst *time.Duration) {
	if cmd.Flags().Changed(flagName) {
		*dst, _ = cmd.Flags().GetDuration(flagName)
		return
	}
	if v := os.Getenv(viewangle.ENV_PREFIX + envName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

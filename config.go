package viewangle

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DEM_NODATA  = -32767.0
	BAND_NODATA = 65535.0

	COORD_PRECISION = 3
	ANGLE_PRECISION = 2

	POSE_HEADER_LINES = 2
	POSE_MIN_FIELDS   = 4

	COL_X          = "Xw"
	COL_Y          = "Yw"
	COL_ELEV       = "elev"
	COL_BAND1      = "band1"
	COL_BAND_FMT   = "band%d"
	COL_VZA        = "vza"
	COL_VAA        = "vaa"
	COL_DEGENERATE = "degenerate"
	COL_PATH       = "path"
	COL_XCAM       = "xcam"
	COL_YCAM       = "ycam"
	COL_SUNELEV    = "sunelev"
	COL_SAA        = "saa"

	TAG_SOLAR_ELEVATION = "SolarElevation"
	TAG_SOLAR_AZIMUTH   = "SolarAzimuth"

	FILE_EXT_TIF = ".tif"

	READER_XMP      = "xmp"
	READER_EXIFTOOL = "exiftool"

	ENV_PREFIX = "VIEWANGLE_"
)

// 运行配置，对应yaml文件中的字段
type Config struct {
	OutDir         string        `yaml:"out_dir"`
	CamPath        string        `yaml:"cam_path"`
	DEMPath        string        `yaml:"dem_path"`
	SourceDirs     []string      `yaml:"source_dirs"`
	Name           string        `yaml:"name"`
	Pattern        string        `yaml:"pattern"`
	Chunks         int           `yaml:"chunks"`
	Workers        int           `yaml:"workers"`
	PoseEncoding   string        `yaml:"pose_encoding"`
	MetadataReader string        `yaml:"metadata_reader"`
	ExiftoolPath   string        `yaml:"exiftool_path"`
	ImageTimeout   time.Duration `yaml:"image_timeout"`
	LogFile        string        `yaml:"log_file"`
	LogLevel       string        `yaml:"log_level"`
	MetricsFile    string        `yaml:"metrics_file"`
}

func DefaultConfig() Config {
	return Config{
		OutDir:         "out",
		Name:           "viewangle",
		Chunks:         15,
		Workers:        1,
		PoseEncoding:   "utf8",
		MetadataReader: READER_XMP,
		ExiftoolPath:   "exiftool",
		LogFile:        "process.log",
		LogLevel:       "info",
	}
}

// 读取yaml配置，未出现的字段保留默认值；path为空时仅返回默认值
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrap(err, "read config")
		return
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		err = errors.Wrap(err, "parse config")
	}
	return
}

func (c *Config) Validate() (err error) {
	var missing []string
	for _, f := range [][2]string{
		{"out_dir", c.OutDir},
		{"cam_path", c.CamPath},
		{"dem_path", c.DEMPath},
		{"pattern", c.Pattern},
		{"name", c.Name},
	} {
		if f[1] == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return errors.Wrap(ErrConfigMissing, strings.Join(missing, ","))
	}
	if c.Chunks <= 0 {
		return errors.Wrapf(ErrConfigInvalid, "chunks=%d", c.Chunks)
	}
	if c.Workers < 0 {
		return errors.Wrapf(ErrConfigInvalid, "workers=%d", c.Workers)
	}
	switch c.MetadataReader {
	case READER_XMP, READER_EXIFTOOL:
	default:
		return errors.Wrapf(ErrConfigInvalid, "metadata_reader=%q", c.MetadataReader)
	}
	return
}

package viewangle

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/wgdzlh/viewangle/utils"
	"go.uber.org/zap"
)

const (
	xmpStartTag   = "<x:xmpmeta"
	xmpEndTag     = "</x:xmpmeta>"
	xmpMaxPacket  = 4 << 20
	xmpReadBuffer = 64 << 10
)

var (
	xmpTagPatterns = map[string][]*regexp.Regexp{
		TAG_SOLAR_ELEVATION: xmpPatterns(TAG_SOLAR_ELEVATION),
		TAG_SOLAR_AZIMUTH:   xmpPatterns(TAG_SOLAR_AZIMUTH),
	}
)

// 属性形式 Camera:SolarElevation="0.5"，或元素形式 <Camera:SolarElevation>0.5</Camera:SolarElevation>
func xmpPatterns(tag string) []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?:^|[\s<"'])(?:[\w.-]+:)?` + tag + `\s*=\s*["']([^"']*)["']`),
		regexp.MustCompile(`<(?:[\w.-]+:)?` + tag + `>\s*([^<]*?)\s*</`),
	}
}

// 原始影像索引：在源目录中按影像名查找携带元数据的文件。未配置源目录时直接使用正射影像本身
type SourceIndex struct {
	files []string
}

func NewSourceIndex(dirs []string) (idx *SourceIndex, err error) {
	idx = &SourceIndex{}
	var files []string
	for _, dir := range dirs {
		if files, err = utils.ListTifs(dir); err != nil {
			err = errors.Wrapf(err, "list source dir %s", dir)
			return
		}
		idx.files = append(idx.files, files...)
	}
	return
}

func (s *SourceIndex) Len() int {
	if s == nil {
		return 0
	}
	return len(s.files)
}

// Locate 返回文件名包含影像名的第一个源文件
func (s *SourceIndex) Locate(imagePath string) (string, error) {
	if s.Len() == 0 {
		return imagePath, nil
	}
	name := utils.GetFilenameWithoutExt(imagePath)
	for _, f := range s.files {
		if strings.Contains(filepath.Base(f), name) {
			return f, nil
		}
	}
	return "", ErrNoMetadataSource
}

type solarTagReader interface {
	// 返回弧度值
	readSolar(ctx context.Context, file string) (elev, az float64, err error)
}

// SolarReader resolves the solar angles of an image from the XMP tags of its metadata source.
type SolarReader struct {
	index  *SourceIndex
	tags   solarTagReader
	lg     *zap.Logger
	logTag string
}

func NewXMPSolarReader(lg *zap.Logger, index *SourceIndex) *SolarReader {
	return &SolarReader{index: index, tags: xmpReader{}, lg: lg, logTag: "SolarReader:"}
}

func NewExiftoolSolarReader(lg *zap.Logger, index *SourceIndex, exe string) *SolarReader {
	return &SolarReader{index: index, tags: exiftoolReader{exe: exe}, lg: lg, logTag: "SolarReader:"}
}

func (s *SolarReader) Resolve(ctx context.Context, imagePath string) (sun SolarAngles, err error) {
	start := time.Now()
	file, err := s.index.Locate(imagePath)
	if err != nil {
		err = &MetadataError{Path: imagePath, Err: err}
		return
	}
	elev, az, err := s.tags.readSolar(ctx, file)
	if err != nil {
		err = &MetadataError{Path: file, Err: err}
		return
	}
	sun = SolarAngles{Elevation: RadToDeg(elev), Azimuth: RadToDeg(az)}
	s.lg.Debug(s.logTag+"solar angles resolved", zap.String("file", file),
		zap.Float64("elevation", sun.Elevation), zap.Float64("azimuth", sun.Azimuth),
		zap.Duration("elapsed", time.Since(start)))
	return
}

type xmpReader struct{}

func (xmpReader) readSolar(ctx context.Context, file string) (elev, az float64, err error) {
	f, err := os.Open(file)
	if err != nil {
		return
	}
	defer f.Close()
	packet, err := findXMPPacket(ctx, f)
	if err != nil {
		return
	}
	if elev, err = xmpFloat(packet, TAG_SOLAR_ELEVATION); err != nil {
		return
	}
	az, err = xmpFloat(packet, TAG_SOLAR_AZIMUTH)
	return
}

// 流式扫描文件，取出第一个XMP数据包
func findXMPPacket(ctx context.Context, r io.Reader) (packet []byte, err error) {
	var (
		br     = bufio.NewReaderSize(r, xmpReadBuffer)
		buf    = make([]byte, xmpReadBuffer)
		window []byte
		keep   = len(xmpStartTag) - 1
		n      int
	)
	for {
		if err = ctx.Err(); err != nil {
			return
		}
		n, err = br.Read(buf)
		if packet == nil {
			window = append(window, buf[:n]...)
			if i := bytes.Index(window, []byte(xmpStartTag)); i >= 0 {
				packet = window[i:]
				window = nil
			} else if len(window) > keep {
				window = append(window[:0], window[len(window)-keep:]...)
			}
		} else {
			packet = append(packet, buf[:n]...)
		}
		if packet != nil {
			if j := bytes.Index(packet, []byte(xmpEndTag)); j >= 0 {
				return packet[:j+len(xmpEndTag)], nil
			}
			if len(packet) > xmpMaxPacket {
				return nil, errors.Wrap(ErrNoXMPPacket, "packet too large")
			}
		}
		if err == io.EOF {
			return nil, ErrNoXMPPacket
		}
		if err != nil {
			return nil, err
		}
	}
}

func xmpFloat(packet []byte, tag string) (v float64, err error) {
	for _, re := range xmpTagPatterns[tag] {
		if m := re.FindSubmatch(packet); m != nil {
			v, err = strconv.ParseFloat(strings.TrimSpace(string(m[1])), 64)
			if err != nil {
				err = errors.Wrapf(err, "xmp %s", tag)
			}
			return
		}
	}
	err = errors.Wrap(ErrSolarTagMissing, tag)
	return
}

// 调用exiftool读取XMP标签（-n 输出数值）
type exiftoolReader struct {
	exe string
}

func (e exiftoolReader) readSolar(ctx context.Context, file string) (elev, az float64, err error) {
	cmd := exec.CommandContext(ctx, e.exe, "-j", "-n",
		"-XMP:"+TAG_SOLAR_ELEVATION, "-XMP:"+TAG_SOLAR_AZIMUTH, file)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Wrap(ErrImageStageTimeout, ctx.Err().Error())
			return
		}
		err = errors.Wrapf(err, "exiftool: %s", strings.TrimSpace(stderr.String()))
		return
	}
	return parseExiftoolJSON(out)
}

func parseExiftoolJSON(out []byte) (elev, az float64, err error) {
	vals := [2]*float64{&elev, &az}
	for i, tag := range []string{TAG_SOLAR_ELEVATION, TAG_SOLAR_AZIMUTH} {
		r := gjson.GetBytes(out, "0."+tag)
		if !r.Exists() {
			err = errors.Wrap(ErrSolarTagMissing, tag)
			return
		}
		if r.Type == gjson.String {
			if *vals[i], err = strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err != nil {
				err = errors.Wrapf(err, "exiftool %s", tag)
				return
			}
			continue
		}
		*vals[i] = r.Float()
	}
	return
}

package gdalio

import (
	"context"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"
	"github.com/wgdzlh/viewangle"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// 基于godal的栅格读取，每次调用独立打开数据集，可并发使用
type Source struct {
	lg     *zap.Logger
	logTag string
}

func NewSource(lg *zap.Logger) *Source {
	registerOnce.Do(godal.RegisterAll)
	return &Source{lg: lg, logTag: "RasterSource:"}
}

func (s *Source) open(path string) (ds *godal.Dataset, info viewangle.GridInfo, err error) {
	if ds, err = godal.Open(path, godal.RasterOnly()); err != nil {
		s.lg.Error(s.logTag+"open tif failed", zap.String("path", path), zap.Error(err))
		err = &viewangle.RasterReadError{Path: path, Err: err}
		return
	}
	st := ds.Structure()
	info = viewangle.GridInfo{
		Path:  path,
		Rows:  st.SizeY,
		Cols:  st.SizeX,
		Bands: st.NBands,
		CRS:   ds.Projection(),
	}
	if info.Bands == 0 || info.Rows == 0 || info.Cols == 0 {
		err = viewangle.ErrEmptyTif
	} else if info.Transform, err = ds.GeoTransform(); err != nil {
		err = errors.Wrap(viewangle.ErrNoGeoTransform, err.Error())
	}
	if err != nil {
		s.lg.Error(s.logTag+"tif is malformed", zap.String("path", path), zap.Error(err))
		ds.Close()
		ds = nil
		err = &viewangle.RasterReadError{Path: path, Err: err}
	}
	return
}

// Probe 只读取尺寸、仿射变换与坐标系
func (s *Source) Probe(ctx context.Context, path string) (info viewangle.GridInfo, err error) {
	ds, info, err := s.open(path)
	if err != nil {
		return
	}
	ds.Close()
	return
}

// Load 读取全部波段，按float64存放
func (s *Source) Load(ctx context.Context, path string) (grid *viewangle.RasterGrid, err error) {
	ds, info, err := s.open(path)
	if err != nil {
		return
	}
	defer ds.Close()
	s.lg.Debug(s.logTag+"start read tif", zap.String("path", path), zap.Int("bands", info.Bands),
		zap.Int("width", info.Cols), zap.Int("height", info.Rows))
	grid = &viewangle.RasterGrid{
		GridInfo: info,
		Data:     make([][]float64, info.Bands),
	}
	for i, band := range ds.Bands() {
		if err = ctx.Err(); err != nil {
			grid = nil
			return
		}
		buf := make([]float64, info.Rows*info.Cols)
		if err = band.Read(0, 0, buf, info.Cols, info.Rows); err != nil {
			s.lg.Error(s.logTag+"read tif band failed", zap.String("path", path), zap.Int("band", i+1), zap.Error(err))
			grid, err = nil, &viewangle.RasterReadError{Path: path, Err: errors.Wrapf(err, "band %d", i+1)}
			return
		}
		grid.Data[i] = buf
	}
	return
}

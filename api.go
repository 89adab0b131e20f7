package viewangle

import (
	"context"
	"math"
)

// 栅格基本信息（不含像元数据）
type GridInfo struct {
	Path      string
	Rows      int
	Cols      int
	Bands     int
	Transform [6]float64 // GDAL顺序：x0, dx/dcol, dx/drow, y0, dy/dcol, dy/drow
	CRS       string     // WKT
}

// 四角经仿射变换后的范围 [minX, maxX, minY, maxY]
func (g GridInfo) Span() (span [4]float64) {
	gt := g.Transform
	span = [4]float64{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, rc := range [4][2]float64{{0, 0}, {0, float64(g.Cols)}, {float64(g.Rows), 0}, {float64(g.Rows), float64(g.Cols)}} {
		x := gt[0] + rc[1]*gt[1] + rc[0]*gt[2]
		y := gt[3] + rc[1]*gt[4] + rc[0]*gt[5]
		span[0] = math.Min(span[0], x)
		span[1] = math.Max(span[1], x)
		span[2] = math.Min(span[2], y)
		span[3] = math.Max(span[3], y)
	}
	return
}

// 只读栅格：Data按波段存放，每个波段为rows*cols的行优先数组
type RasterGrid struct {
	GridInfo
	Data [][]float64
}

// 相机位置
type CameraPose struct {
	PhotoID string
	X, Y, Z float64
}

// 太阳高度角、方位角（度）
type SolarAngles struct {
	Elevation float64
	Azimuth   float64
}

// RasterSource reads raster files. Probe must not read pixel data.
type RasterSource interface {
	Probe(ctx context.Context, path string) (GridInfo, error)
	Load(ctx context.Context, path string) (*RasterGrid, error)
}

type PoseResolver interface {
	Resolve(photoID string) (CameraPose, error)
}

type SolarResolver interface {
	Resolve(ctx context.Context, imagePath string) (SolarAngles, error)
}

// FootprintChecker rejects an image that cannot join the DEM (disjoint extent, other CRS).
type FootprintChecker interface {
	Check(dem, img GridInfo) error
}

// RecordWriter persists one chunk's records and returns the artifact path.
type RecordWriter interface {
	Write(chunk int, rs *RecordSet) (string, error)
}

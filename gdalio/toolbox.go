package gdalio

import (
	"sync"

	"github.com/lukeroth/gdal"
	"github.com/pkg/errors"
	"github.com/wgdzlh/viewangle"
	"go.uber.org/zap"
)

// 基于OGR的范围与坐标系检查
type Toolbox struct {
	refMap map[string]gdal.SpatialReference
	rLock  sync.Mutex
	lg     *zap.Logger
	logTag string
}

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

func NewToolbox(lg *zap.Logger) *Toolbox {
	return &Toolbox{
		refMap: map[string]gdal.SpatialReference{},
		lg:     lg,
		logTag: "GdalToolbox:",
	}
}

// 获取WKT对应的坐标系（可复用，故无需回收），调用方需持有rLock
func (g *Toolbox) getWktRef(wkt string) (ref gdal.SpatialReference, err error) {
	ref, ok := g.refMap[wkt]
	if ok {
		return
	}
	ref = gdal.CreateSpatialReference("")
	if err = ref.FromWKT(wkt); err != nil {
		g.lg.Error(g.logTag+"set ref from wkt failed", zap.Error(err))
		ref.Destroy()
		return
	}
	g.refMap[wkt] = ref
	return
}

// SameCRS 判断两个WKT是否为同一坐标系；任一为空时视为相同
func (g *Toolbox) SameCRS(a, b string) (same bool, err error) {
	if a == "" || b == "" || a == b {
		same = true
		return
	}
	g.rLock.Lock()
	defer g.rLock.Unlock()
	ra, err := g.getWktRef(a)
	if err != nil {
		return
	}
	rb, err := g.getWktRef(b)
	if err != nil {
		return
	}
	same = ra.IsSame(rb)
	return
}

func (g *Toolbox) parseWKT(wkt string) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKT(wkt, gdal.SpatialReference{})
	if err != nil {
		g.lg.Error(g.logTag+"parse wkt failed", zap.Error(err))
	}
	return
}

// 求两个栅格范围的公共面积（同一坐标系下）
func (g *Toolbox) OverlapArea(a, b viewangle.GridInfo) (area float64, err error) {
	geoA, err := g.parseWKT(viewangle.SpanToWkt(a.Span()))
	if err != nil {
		return
	}
	geoB, err := g.parseWKT(viewangle.SpanToWkt(b.Span()))
	if err != nil {
		geoA.Destroy()
		return
	}
	interGeo := geoA.Intersection(geoB)
	gc := []destroyable{geoA, geoB, interGeo}
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	if interGeo.IsEmpty() {
		return
	}
	area = interGeo.Area()
	return
}

// Check 影像与DEM须同一坐标系且范围相交，否则无法连接
func (g *Toolbox) Check(dem, img viewangle.GridInfo) (err error) {
	same, err := g.SameCRS(dem.CRS, img.CRS)
	if err != nil {
		return errors.Wrap(viewangle.ErrCRSMismatch, err.Error())
	}
	if !same {
		g.lg.Warn(g.logTag+"crs differs from dem", zap.String("image", img.Path))
		return viewangle.ErrCRSMismatch
	}
	area, err := g.OverlapArea(dem, img)
	if err != nil {
		return
	}
	if area <= 0 {
		g.lg.Warn(g.logTag+"image outside dem", zap.String("image", img.Path),
			zap.Float64s("demSpan", spanSlice(dem.Span())), zap.Float64s("imgSpan", spanSlice(img.Span())))
		return viewangle.ErrNoOverlap
	}
	return
}

func (g *Toolbox) Close() {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	for k, ref := range g.refMap {
		ref.Destroy()
		delete(g.refMap, k)
	}
}

func spanSlice(s [4]float64) []float64 {
	return s[:]
}

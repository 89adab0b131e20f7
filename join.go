package viewangle

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type coordKey struct {
	x, y float64
}

// 预处理后的DEM点集：坐标取整、去重、剔除无效高程，并按坐标建立索引。
// 建立后只读，同一分块内的所有影像共用
type DEMIndex struct {
	points PointSet
	index  map[coordKey][]int32
}

func NewDEMIndex(dem PointSet) (d *DEMIndex, err error) {
	if err = dem.check(); err != nil {
		return
	}
	if len(dem.Values) == 0 {
		err = ErrRaggedColumns
		return
	}
	pts := DropDEMNoData(dem.Round().Dedup())
	d = &DEMIndex{
		points: pts,
		index:  make(map[coordKey][]int32, pts.Len()),
	}
	for i := range pts.X {
		k := coordKey{pts.X[i], pts.Y[i]}
		d.index[k] = append(d.index[k], int32(i))
	}
	return
}

func (d *DEMIndex) Len() int {
	return d.points.Len()
}

// Merge joins DEM and band points of one image and derives the view geometry.
func Merge(dem, bands PointSet, cam CameraPose, sun SolarAngles, image string) (rs *RecordSet, err error) {
	d, err := NewDEMIndex(dem)
	if err != nil {
		err = &JoinError{Image: image, Err: err}
		return
	}
	return d.Merge(bands, cam, sun, image)
}

// Merge 按取整坐标内连接波段点与DEM点，计算vza/vaa并附加影像常量列。
// 结果顺序：波段点原始顺序，其次DEM点顺序
func (d *DEMIndex) Merge(bands PointSet, cam CameraPose, sun SolarAngles, image string) (rs *RecordSet, err error) {
	if err = bands.check(); err != nil {
		err = &JoinError{Image: image, Err: err}
		return
	}
	if len(bands.Names) == 0 || bands.Names[0] != COL_BAND1 {
		err = &JoinError{Image: image, Err: ErrNoBand1}
		return
	}
	b := bands.Round().Dedup()
	var bi, di []int32
	for i := range b.X {
		for _, j := range d.index[coordKey{b.X[i], b.Y[i]}] {
			bi = append(bi, int32(i))
			di = append(di, j)
		}
	}
	if len(bi) == 0 {
		err = &JoinError{Image: image, Err: ErrEmptyJoin}
		return
	}
	n := len(bi)
	rs = newRecordSet(b.Names, n)
	elev := d.points.Values[0]
	for k := 0; k < n; k++ {
		i, j := bi[k], di[k]
		rs.Xw = append(rs.Xw, b.X[i])
		rs.Yw = append(rs.Yw, b.Y[i])
		rs.Elev = append(rs.Elev, elev[j])
		for c, v := range b.Values {
			rs.Bands[c] = append(rs.Bands[c], v[i])
		}
	}
	rs.computeAngles(cam, sun)
	rs.maskNoData()
	rs.fillConstants(cam, sun, image)
	return
}

// dist == 0 时 vza 取 atan2 极限值（相机正上方为0），vaa 无定义置空并标记 degenerate
func (r *RecordSet) computeAngles(cam CameraPose, sun SolarAngles) {
	n := r.Len()
	dx := make([]float64, n)
	dy := make([]float64, n)
	dz := make([]float64, n)
	dist := make([]float64, n)
	copy(dx, r.Xw)
	floats.AddConst(-cam.X, dx) // Xw - Xcam
	copy(dy, r.Yw)
	floats.AddConst(-cam.Y, dy) // Yw - Ycam
	copy(dz, r.Elev)
	floats.Scale(-1, dz)
	floats.AddConst(cam.Z, dz) // Zcam - elev
	floats.MulTo(dist, dx, dx)
	floats.Add(dist, floats.MulTo(make([]float64, n), dy, dy))
	r.VZA = r.VZA[:n]
	r.VAA = r.VAA[:n]
	r.Degenerate = r.Degenerate[:n]
	for i := 0; i < n; i++ {
		dist[i] = math.Sqrt(dist[i])
		if dist[i] == 0 {
			r.VZA[i] = 90 - math.Atan2(dz[i], 0)*radToDeg
			r.VAA[i] = math.NaN()
			r.Degenerate[i] = true
			continue
		}
		r.VZA[i] = 90 - math.Atan(dz[i]/dist[i])*radToDeg
		az := math.Acos(clamp(-dy[i]/dist[i], -1, 1)) // (Ycam - Yw) / dist
		if dx[i] < 0 {
			az = -az
		}
		r.VAA[i] = roundAngle(az*radToDeg - sun.Azimuth)
	}
}

func (r *RecordSet) maskNoData() {
	for i, v := range r.Bands[0] {
		if v == BAND_NODATA {
			r.VZA[i] = math.NaN()
			r.VAA[i] = math.NaN()
		}
	}
}

func (r *RecordSet) fillConstants(cam CameraPose, sun SolarAngles, image string) {
	n := r.Len()
	sunElev, saa := roundAngle(sun.Elevation), roundAngle(sun.Azimuth)
	r.Path = r.Path[:n]
	r.XCam = r.XCam[:n]
	r.YCam = r.YCam[:n]
	r.SunElev = r.SunElev[:n]
	r.SAA = r.SAA[:n]
	for i := 0; i < n; i++ {
		r.Path[i] = image
		r.XCam[i] = cam.X
		r.YCam[i] = cam.Y
		r.SunElev[i] = sunElev
		r.SAA[i] = saa
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package viewangle

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// 栅格像元点集（按列存放）。X/Y为像元中心的世界坐标，Values[i]对应Names[i]
type PointSet struct {
	X      []float64
	Y      []float64
	Names  []string
	Values [][]float64
}

func (p PointSet) Len() int {
	return len(p.X)
}

func (p PointSet) check() error {
	n := len(p.X)
	if len(p.Y) != n || len(p.Values) != len(p.Names) {
		return ErrRaggedColumns
	}
	for _, v := range p.Values {
		if len(v) != n {
			return ErrRaggedColumns
		}
	}
	return nil
}

// Column returns the value column with the given name, or nil.
func (p PointSet) Column(name string) []float64 {
	for i, n := range p.Names {
		if n == name {
			return p.Values[i]
		}
	}
	return nil
}

// Sample turns every pixel of grid into one point at its pixel center. Value columns are
// shared with grid and must be treated as read-only. Without names bands are called band1..bandN.
func Sample(grid *RasterGrid, names ...string) (ps PointSet) {
	rows, cols := grid.Rows, grid.Cols
	n := rows * cols
	gt := grid.Transform
	// x = gt0 + (c+0.5)*gt1 + (r+0.5)*gt2，列项与行项分别预先算出
	colX := make([]float64, cols)
	colY := make([]float64, cols)
	for c := range colX {
		fc := float64(c) + 0.5
		colX[c] = gt[0] + fc*gt[1]
		colY[c] = gt[3] + fc*gt[4]
	}
	ps.X = make([]float64, n)
	ps.Y = make([]float64, n)
	for r := 0; r < rows; r++ {
		fr := float64(r) + 0.5
		xs := ps.X[r*cols : (r+1)*cols]
		ys := ps.Y[r*cols : (r+1)*cols]
		copy(xs, colX)
		copy(ys, colY)
		floats.AddConst(fr*gt[2], xs)
		floats.AddConst(fr*gt[5], ys)
	}
	ps.Values = make([][]float64, len(grid.Data))
	ps.Names = make([]string, len(grid.Data))
	for b, data := range grid.Data {
		ps.Values[b] = data[:n:n]
		if b < len(names) {
			ps.Names[b] = names[b]
		} else {
			ps.Names[b] = fmt.Sprintf(COL_BAND_FMT, b+1)
		}
	}
	return
}

// Round returns a copy whose coordinates are rounded to the join precision.
func (p PointSet) Round() PointSet {
	r := p
	r.X = make([]float64, len(p.X))
	r.Y = make([]float64, len(p.Y))
	for i := range p.X {
		r.X[i] = roundCoord(p.X[i])
		r.Y[i] = roundCoord(p.Y[i])
	}
	return r
}

// Dedup drops exact duplicate rows, keeping the first occurrence.
func (p PointSet) Dedup() PointSet {
	n := p.Len()
	seen := make(map[string]struct{}, n)
	keep := make([]bool, n)
	buf := make([]byte, 8*(2+len(p.Values)))
	dups := 0
	for i := 0; i < n; i++ {
		k := p.rowKey(i, buf)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
		keep[i] = true
	}
	if dups == 0 {
		return p
	}
	return p.filter(keep, n-dups)
}

func (p PointSet) rowKey(i int, buf []byte) string {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(p.X[i]))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Y[i]))
	for j, v := range p.Values {
		binary.LittleEndian.PutUint64(buf[16+8*j:], math.Float64bits(v[i]))
	}
	return string(buf)
}

func (p PointSet) filter(keep []bool, size int) (r PointSet) {
	r.Names = p.Names
	r.X = make([]float64, 0, size)
	r.Y = make([]float64, 0, size)
	r.Values = make([][]float64, len(p.Values))
	for j := range r.Values {
		r.Values[j] = make([]float64, 0, size)
	}
	for i, k := range keep {
		if !k {
			continue
		}
		r.X = append(r.X, p.X[i])
		r.Y = append(r.Y, p.Y[i])
		for j, v := range p.Values {
			r.Values[j] = append(r.Values[j], v[i])
		}
	}
	return
}

// DropDEMNoData removes points whose first value column equals the DEM nodata sentinel.
func DropDEMNoData(dem PointSet) PointSet {
	if len(dem.Values) == 0 {
		return dem
	}
	elev := dem.Values[0]
	keep := make([]bool, len(elev))
	size := 0
	for i, v := range elev {
		if v != DEM_NODATA {
			keep[i] = true
			size++
		}
	}
	if size == len(elev) {
		return dem
	}
	return dem.filter(keep, size)
}

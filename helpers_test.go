package viewangle

import (
	"math"
	"testing"
)

var nan = math.NaN()

// 北向上、像元大小为1的栅格，左上角位于(x0, y0)
func northUpGrid(path string, x0, y0 float64, rows, cols int, bands ...[]float64) *RasterGrid {
	return &RasterGrid{
		GridInfo: GridInfo{
			Path:      path,
			Rows:      rows,
			Cols:      cols,
			Bands:     len(bands),
			Transform: [6]float64{x0, 1, 0, y0, 0, -1},
		},
		Data: bands,
	}
}

func filled(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

func assertClose(t *testing.T, what string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol || math.IsNaN(got) != math.IsNaN(want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func equalRecordSets(a, b *RecordSet) bool {
	if a.Len() != b.Len() || len(a.BandNames) != len(b.BandNames) {
		return false
	}
	cols := [][2][]float64{
		{a.Xw, b.Xw}, {a.Yw, b.Yw}, {a.Elev, b.Elev}, {a.VZA, b.VZA}, {a.VAA, b.VAA},
		{a.XCam, b.XCam}, {a.YCam, b.YCam}, {a.SunElev, b.SunElev}, {a.SAA, b.SAA},
	}
	for i := range a.Bands {
		if a.BandNames[i] != b.BandNames[i] {
			return false
		}
		cols = append(cols, [2][]float64{a.Bands[i], b.Bands[i]})
	}
	for _, c := range cols {
		for i := range c[0] {
			if !sameFloat(c[0][i], c[1][i]) {
				return false
			}
		}
	}
	for i := 0; i < a.Len(); i++ {
		if a.Path[i] != b.Path[i] || a.Degenerate[i] != b.Degenerate[i] {
			return false
		}
	}
	return true
}

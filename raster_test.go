package viewangle

import (
	"math"
	"testing"
)

func TestSampleCountAndCenters(t *testing.T) {
	tests := []struct {
		name string
		rows int
		cols int
		gt   [6]float64
	}{
		{"north up", 3, 4, [6]float64{500000, 0.05, 0, 4100000, 0, -0.05}},
		{"rotated", 5, 2, [6]float64{10, 0.8, 0.3, -20, -0.2, -0.9}},
		{"single pixel", 1, 1, [6]float64{0, 1, 0, 0, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.rows * tt.cols
			data := make([]float64, n)
			for i := range data {
				data[i] = float64(i)
			}
			grid := &RasterGrid{
				GridInfo: GridInfo{Rows: tt.rows, Cols: tt.cols, Bands: 1, Transform: tt.gt},
				Data:     [][]float64{data},
			}
			ps := Sample(grid)
			if ps.Len() != n {
				t.Fatalf("got %d points, want %d", ps.Len(), n)
			}
			gt := tt.gt
			for r := 0; r < tt.rows; r++ {
				for c := 0; c < tt.cols; c++ {
					i := r*tt.cols + c
					fc, fr := float64(c)+0.5, float64(r)+0.5
					assertClose(t, "x", ps.X[i], gt[0]+fc*gt[1]+fr*gt[2], 1e-9)
					assertClose(t, "y", ps.Y[i], gt[3]+fc*gt[4]+fr*gt[5], 1e-9)
					if ps.Values[0][i] != data[i] {
						t.Errorf("value[%d] = %v, want %v", i, ps.Values[0][i], data[i])
					}
				}
			}
		})
	}
}

func TestSampleBandNames(t *testing.T) {
	grid := northUpGrid("", 0, 0, 1, 2, []float64{1, 2}, []float64{3, 4}, []float64{5, 6})
	ps := Sample(grid)
	want := []string{"band1", "band2", "band3"}
	for i, n := range want {
		if ps.Names[i] != n {
			t.Errorf("name[%d] = %q, want %q", i, ps.Names[i], n)
		}
	}
	if got := ps.Column("band3")[1]; got != 6 {
		t.Errorf("band3[1] = %v", got)
	}
	dem := Sample(northUpGrid("", 0, 0, 1, 2, []float64{7, 8}), COL_ELEV)
	if dem.Names[0] != COL_ELEV {
		t.Errorf("dem column = %q", dem.Names[0])
	}
}

func TestRoundIdempotent(t *testing.T) {
	ps := PointSet{
		X: []float64{1.00049, -2.12345, 3.9995, 500000.1234567},
		Y: []float64{0.0004, 4.5555, -7.77777, 4100000.98765},
	}
	once := ps.Round()
	twice := once.Round()
	for i := range once.X {
		if once.X[i] != twice.X[i] || once.Y[i] != twice.Y[i] {
			t.Errorf("row %d: %v,%v then %v,%v", i, once.X[i], once.Y[i], twice.X[i], twice.Y[i])
		}
	}
	if ps.X[0] != 1.00049 {
		t.Error("Round modified its input")
	}
	if once.X[0] != 1.0 || once.Y[2] != -7.778 {
		t.Errorf("rounded to %v, %v", once.X[0], once.Y[2])
	}
}

func TestDedupKeepsFirst(t *testing.T) {
	ps := PointSet{
		X:      []float64{1, 1, 1, 2, math.NaN(), math.NaN()},
		Y:      []float64{1, 1, 1, 2, 0, 0},
		Names:  []string{"band1"},
		Values: [][]float64{{5, 5, 6, 5, 1, 1}},
	}
	d := ps.Dedup()
	if d.Len() != 4 {
		t.Fatalf("got %d rows, want 4", d.Len())
	}
	if d.Values[0][1] != 6 {
		t.Errorf("second row value %v, want 6", d.Values[0][1])
	}
}

func TestDropDEMNoData(t *testing.T) {
	ps := Sample(northUpGrid("", 0, 0, 2, 2, []float64{10, DEM_NODATA, 12, DEM_NODATA}), COL_ELEV)
	d := DropDEMNoData(ps)
	if d.Len() != 2 {
		t.Fatalf("got %d rows, want 2", d.Len())
	}
	for _, v := range d.Values[0] {
		if v == DEM_NODATA {
			t.Error("nodata elevation kept")
		}
	}
}

func TestGridSpan(t *testing.T) {
	info := GridInfo{Rows: 2, Cols: 3, Transform: [6]float64{100, 2, 0, 50, 0, -1}}
	got := info.Span()
	want := [4]float64{100, 106, 48, 50}
	if got != want {
		t.Errorf("span = %v, want %v", got, want)
	}
	wkt := SpanToWkt(got)
	if wkt != "POLYGON((100.000000 48.000000, 100.000000 50.000000, 106.000000 50.000000, 106.000000 48.000000, 100.000000 48.000000))" {
		t.Errorf("wkt = %s", wkt)
	}
}

package viewangle

import (
	"math"
)

// 融合结果（按列存放），浮点列中NaN为空值
type RecordSet struct {
	Xw         []float64
	Yw         []float64
	Elev       []float64
	BandNames  []string
	Bands      [][]float64
	VZA        []float64
	VAA        []float64
	Degenerate []bool
	Path       []string
	XCam       []float64
	YCam       []float64
	SunElev    []float64
	SAA        []float64
}

func (r *RecordSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Xw)
}

func newRecordSet(bandNames []string, size int) *RecordSet {
	r := &RecordSet{
		Xw:         make([]float64, 0, size),
		Yw:         make([]float64, 0, size),
		Elev:       make([]float64, 0, size),
		BandNames:  bandNames,
		Bands:      make([][]float64, len(bandNames)),
		VZA:        make([]float64, 0, size),
		VAA:        make([]float64, 0, size),
		Degenerate: make([]bool, 0, size),
		Path:       make([]string, 0, size),
		XCam:       make([]float64, 0, size),
		YCam:       make([]float64, 0, size),
		SunElev:    make([]float64, 0, size),
		SAA:        make([]float64, 0, size),
	}
	for i := range r.Bands {
		r.Bands[i] = make([]float64, 0, size)
	}
	return r
}

// Concat appends record sets in order. Band columns are the union of all inputs in
// first-seen order; a band an input lacks is null for its rows.
func Concat(sets ...*RecordSet) *RecordSet {
	var (
		names []string
		pos   = map[string]int{}
		size  int
	)
	for _, s := range sets {
		size += s.Len()
		if s == nil {
			continue
		}
		for _, n := range s.BandNames {
			if _, ok := pos[n]; !ok {
				pos[n] = len(names)
				names = append(names, n)
			}
		}
	}
	out := newRecordSet(names, size)
	for _, s := range sets {
		if s.Len() == 0 {
			continue
		}
		n := s.Len()
		out.Xw = append(out.Xw, s.Xw...)
		out.Yw = append(out.Yw, s.Yw...)
		out.Elev = append(out.Elev, s.Elev...)
		out.VZA = append(out.VZA, s.VZA...)
		out.VAA = append(out.VAA, s.VAA...)
		out.Degenerate = append(out.Degenerate, s.Degenerate...)
		out.Path = append(out.Path, s.Path...)
		out.XCam = append(out.XCam, s.XCam...)
		out.YCam = append(out.YCam, s.YCam...)
		out.SunElev = append(out.SunElev, s.SunElev...)
		out.SAA = append(out.SAA, s.SAA...)
		filled := make([]bool, len(names))
		for i, bn := range s.BandNames {
			j := pos[bn]
			out.Bands[j] = append(out.Bands[j], s.Bands[i]...)
			filled[j] = true
		}
		for j, ok := range filled {
			if ok {
				continue
			}
			for k := 0; k < n; k++ {
				out.Bands[j] = append(out.Bands[j], math.NaN())
			}
		}
	}
	return out
}

package viewangle

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	radToDeg = 180 / math.Pi
)

func PointsToWkt(x1, x2, y1, y2 float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", x1, x2, y1, y2)
}

func SpanToWkt(span [4]float64) string {
	return PointsToWkt(span[0], span[1], span[2], span[3])
}

// 弧度转角度
func RadToDeg(rad float64) float64 {
	return rad * radToDeg
}

func roundCoord(v float64) float64 {
	return scalar.Round(v, COORD_PRECISION)
}

func roundAngle(v float64) float64 {
	return scalar.Round(v, ANGLE_PRECISION)
}

// NaN表示空值
func IsNull(v float64) bool {
	return math.IsNaN(v)
}

package feather

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/wgdzlh/viewangle"
	"github.com/wgdzlh/viewangle/utils"
	"go.uber.org/zap"
)

const (
	FILE_EXT = ".feather"
	TMP_EXT  = ".tmp"
)

// 以Arrow IPC文件（Feather v2, LZ4压缩）写出每个分块的结果，文件名为 <prefix>_<chunk>.feather。
// 先写临时文件再改名，失败时不会留下不完整的结果文件
type Writer struct {
	dir    string
	prefix string
	mem    memory.Allocator
	lg     *zap.Logger
	logTag string
}

func NewWriter(lg *zap.Logger, dir, prefix string) *Writer {
	return &Writer{
		dir:    dir,
		prefix: prefix,
		mem:    memory.NewGoAllocator(),
		lg:     lg,
		logTag: "FeatherWriter:",
	}
}

func (w *Writer) Path(chunk int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%d%s", w.prefix, chunk, FILE_EXT))
}

func (w *Writer) Write(chunk int, rs *viewangle.RecordSet) (path string, err error) {
	path = w.Path(chunk)
	defer func() {
		if err != nil {
			err = &viewangle.PersistError{Chunk: chunk, Path: path, Err: err}
		}
	}()
	if err = utils.EnsureDir(w.dir); err != nil {
		return
	}
	rec := w.build(rs)
	defer rec.Release()
	tmp := path + "." + uuid.NewString() + TMP_EXT
	f, err := os.Create(tmp)
	if err != nil {
		return
	}
	defer os.Remove(tmp)
	fw, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(w.mem), ipc.WithLZ4())
	if err != nil {
		f.Close()
		return
	}
	if err = fw.Write(rec); err != nil {
		fw.Close()
		f.Close()
		err = errors.Wrap(err, "write record")
		return
	}
	if err = fw.Close(); err != nil {
		f.Close()
		return
	}
	if err = f.Close(); err != nil {
		return
	}
	if err = os.Rename(tmp, path); err != nil {
		return
	}
	w.lg.Info(w.logTag+"chunk written", zap.Int("chunk", chunk), zap.String("path", path), zap.Int64("rows", rec.NumRows()))
	return
}

// Schema 列顺序：Xw, Yw, elev, band1..bandN, vza, vaa, degenerate, path, xcam, ycam, sunelev, saa
func Schema(bandNames []string) *arrow.Schema {
	f64 := arrow.PrimitiveTypes.Float64
	fields := []arrow.Field{
		{Name: viewangle.COL_X, Type: f64},
		{Name: viewangle.COL_Y, Type: f64},
		{Name: viewangle.COL_ELEV, Type: f64},
	}
	for _, n := range bandNames {
		fields = append(fields, arrow.Field{Name: n, Type: f64, Nullable: true})
	}
	fields = append(fields,
		arrow.Field{Name: viewangle.COL_VZA, Type: f64, Nullable: true},
		arrow.Field{Name: viewangle.COL_VAA, Type: f64, Nullable: true},
		arrow.Field{Name: viewangle.COL_DEGENERATE, Type: arrow.FixedWidthTypes.Boolean},
		arrow.Field{Name: viewangle.COL_PATH, Type: arrow.BinaryTypes.String},
		arrow.Field{Name: viewangle.COL_XCAM, Type: f64},
		arrow.Field{Name: viewangle.COL_YCAM, Type: f64},
		arrow.Field{Name: viewangle.COL_SUNELEV, Type: f64},
		arrow.Field{Name: viewangle.COL_SAA, Type: f64},
	)
	return arrow.NewSchema(fields, nil)
}

func (w *Writer) build(rs *viewangle.RecordSet) arrow.Record {
	b := array.NewRecordBuilder(w.mem, Schema(rs.BandNames))
	defer b.Release()
	i := 0
	next := func() array.Builder {
		f := b.Field(i)
		i++
		return f
	}
	next().(*array.Float64Builder).AppendValues(rs.Xw, nil)
	next().(*array.Float64Builder).AppendValues(rs.Yw, nil)
	next().(*array.Float64Builder).AppendValues(rs.Elev, nil)
	for _, band := range rs.Bands {
		next().(*array.Float64Builder).AppendValues(band, validity(band))
	}
	next().(*array.Float64Builder).AppendValues(rs.VZA, validity(rs.VZA))
	next().(*array.Float64Builder).AppendValues(rs.VAA, validity(rs.VAA))
	next().(*array.BooleanBuilder).AppendValues(rs.Degenerate, nil)
	next().(*array.StringBuilder).AppendValues(rs.Path, nil)
	next().(*array.Float64Builder).AppendValues(rs.XCam, nil)
	next().(*array.Float64Builder).AppendValues(rs.YCam, nil)
	next().(*array.Float64Builder).AppendValues(rs.SunElev, nil)
	next().(*array.Float64Builder).AppendValues(rs.SAA, nil)
	return b.NewRecord()
}

// NaN记为空值；全部有效时返回nil
func validity(vs []float64) (valid []bool) {
	for i, v := range vs {
		if !math.IsNaN(v) {
			continue
		}
		if valid == nil {
			valid = make([]bool, len(vs))
			for j := range valid {
				valid[j] = true
			}
		}
		valid[i] = false
	}
	return
}

package viewangle

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTif          = errors.New("empty tif")
	ErrNoGeoTransform    = errors.New("raster without geotransform")
	ErrRaggedColumns     = errors.New("point columns differ in length")
	ErrNoBand1           = errors.New("band points without band1")
	ErrEmptyJoin         = errors.New("join result is empty")
	ErrNoOverlap         = errors.New("image does not overlap dem")
	ErrCRSMismatch       = errors.New("image crs differs from dem crs")
	ErrSolarTagMissing   = errors.New("solar tag missing")
	ErrNoXMPPacket       = errors.New("no xmp packet")
	ErrNoMetadataSource  = errors.New("no metadata source image")
	ErrPoseTableEmpty    = errors.New("pose table is empty")
	ErrNoRecords         = errors.New("chunk produced no records")
	ErrAllChunksFailed   = errors.New("all chunks failed")
	ErrConfigMissing     = errors.New("config option missing")
	ErrConfigInvalid     = errors.New("config option invalid")
	ErrImageStageTimeout = errors.New("image stage timed out")
)

// 栅格不可读，对使用该栅格的DEM或影像是致命的
type RasterReadError struct {
	Path string
	Err  error
}

func (e *RasterReadError) Error() string {
	return fmt.Sprintf("read raster %s: %v", e.Path, e.Err)
}

func (e *RasterReadError) Unwrap() error { return e.Err }

type PoseNotFoundError struct {
	PhotoID string
}

func (e *PoseNotFoundError) Error() string {
	return fmt.Sprintf("no camera pose for photo %q", e.PhotoID)
}

type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("solar metadata of %s: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

type JoinError struct {
	Image string
	Err   error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join %s: %v", e.Image, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

type PersistError struct {
	Chunk int
	Path  string
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist chunk %d to %s: %v", e.Chunk, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

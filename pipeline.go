package viewangle

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"github.com/wgdzlh/viewangle/utils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	STAGE_POSE      = "pose"
	STAGE_SOLAR     = "solar"
	STAGE_PROBE     = "probe"
	STAGE_FOOTPRINT = "footprint"
	STAGE_SAMPLE    = "sample"
	STAGE_MERGE     = "merge"
	STAGE_DEM       = "dem"
	STAGE_PERSIST   = "persist"
)

// 单张影像的处理结果，Err非空时Stage为出错环节
type ImageResult struct {
	Image   string
	Rows    int
	Stage   string
	Err     error
	Elapsed time.Duration
}

// 单个分块的处理结果
type ChunkReport struct {
	Index    int
	Images   []ImageResult
	Artifact string
	Rows     int
	Stage    string
	Err      error
	Elapsed  time.Duration
}

func (c ChunkReport) Status() string {
	switch {
	case c.Err != nil:
		return STATUS_FAILED
	case len(c.Images) == 0:
		return STATUS_SKIPPED
	}
	return STATUS_OK
}

func (c ChunkReport) FailedImages() (ret []ImageResult) {
	for _, r := range c.Images {
		if r.Err != nil {
			ret = append(ret, r)
		}
	}
	return
}

// 一次运行的汇总，Reports按分块序号排列
type Summary struct {
	RunID   string
	Reports []ChunkReport
}

func (s Summary) Count(status string) (n int) {
	for _, r := range s.Reports {
		if r.Status() == status {
			n++
		}
	}
	return
}

func (s Summary) Artifacts() (paths []string) {
	for _, r := range s.Reports {
		if r.Artifact != "" {
			paths = append(paths, r.Artifact)
		}
	}
	return
}

// Err combines the errors of all failed chunks.
func (s Summary) Err() (err error) {
	for _, r := range s.Reports {
		err = multierr.Append(err, r.Err)
	}
	return
}

// 各外部依赖
type Deps struct {
	Rasters   RasterSource
	Poses     PoseResolver
	Solar     SolarResolver
	Footprint FootprintChecker // 可为nil
	Writer    RecordWriter
	Metrics   *Metrics // 可为nil
}

type Pipeline struct {
	Deps
	demPath      string
	chunks       int
	workers      int
	imageTimeout time.Duration
	lg           *zap.Logger
	logTag       string
}

func NewPipeline(lg *zap.Logger, cfg *Config, deps Deps) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{
		Deps:         deps,
		demPath:      cfg.DEMPath,
		chunks:       cfg.Chunks,
		workers:      workers,
		imageTimeout: cfg.ImageTimeout,
		lg:           lg,
		logTag:       "Pipeline:",
	}
}

// Run 将影像列表分块并发处理。仅当所有非空分块均失败时返回错误
func (p *Pipeline) Run(ctx context.Context, images []string) (sum Summary, err error) {
	start := time.Now()
	sum.RunID = uuid.NewString()
	chunks := Split(images, p.chunks)
	lg := p.lg.With(zap.String("run", sum.RunID))
	lg.Info(p.logTag+"start parallel processing", zap.Int("images", len(images)),
		zap.Int("chunks", len(chunks)), zap.Int("workers", p.workers))
	rp := pool.NewWithResults[ChunkReport]().WithMaxGoroutines(p.workers)
	for _, c := range chunks {
		c := c
		rp.Go(func() ChunkReport {
			return p.runChunk(ctx, lg, c)
		})
	}
	sum.Reports = rp.Wait()
	sort.Slice(sum.Reports, func(i, j int) bool {
		return sum.Reports[i].Index < sum.Reports[j].Index
	})
	ok, failed := sum.Count(STATUS_OK), sum.Count(STATUS_FAILED)
	lg.Info(p.logTag+"run finished", zap.Int("ok", ok), zap.Int("failed", failed),
		zap.Int("skipped", sum.Count(STATUS_SKIPPED)), zap.Duration("elapsed", time.Since(start)))
	if failed > 0 && ok == 0 {
		err = multierr.Append(ErrAllChunksFailed, sum.Err())
	}
	return
}

func (p *Pipeline) runChunk(ctx context.Context, lg *zap.Logger, c Chunk) (rep ChunkReport) {
	start := time.Now()
	lg = lg.With(zap.Int("chunk", c.Index))
	rep.Index = c.Index
	defer func() {
		rep.Elapsed = time.Since(start)
		p.Metrics.observeChunk(rep)
		if rep.Err != nil {
			lg.Error(p.logTag+"chunk failed", zap.String("stage", rep.Stage), zap.Error(rep.Err),
				zap.Duration("elapsed", rep.Elapsed))
			return
		}
		lg.Info(p.logTag+"total time of chunk", zap.Duration("elapsed", rep.Elapsed))
	}()
	if len(c.Paths) == 0 {
		lg.Info(p.logTag + "empty chunk skipped")
		return
	}
	lg.Info(p.logTag+"processing dem", zap.String("dem", p.demPath))
	dem, demInfo, err := p.loadDEM(ctx)
	if err != nil {
		rep.Stage, rep.Err = STAGE_DEM, err
		return
	}
	lg.Info(p.logTag+"dem processing completed", zap.Int("points", dem.Len()), zap.Duration("elapsed", time.Since(start)))
	rep.Images = make([]ImageResult, 0, len(c.Paths))
	parts := make([]*RecordSet, 0, len(c.Paths))
	for _, img := range c.Paths {
		res, rs := p.processImage(ctx, lg, dem, demInfo, img)
		p.Metrics.observeImage(res)
		rep.Images = append(rep.Images, res)
		if res.Err != nil {
			lg.Error(p.logTag+"error processing orthophoto", zap.String("image", res.Image),
				zap.String("stage", res.Stage), zap.Error(res.Err))
			continue
		}
		parts = append(parts, rs)
	}
	if len(parts) == 0 {
		rep.Stage, rep.Err = STAGE_PERSIST, ErrNoRecords
		return
	}
	merged := Concat(parts...)
	rep.Rows = merged.Len()
	if rep.Artifact, err = p.Writer.Write(c.Index, merged); err != nil {
		rep.Stage, rep.Artifact = STAGE_PERSIST, ""
		var pe *PersistError
		if !errors.As(err, &pe) {
			err = &PersistError{Chunk: c.Index, Err: err}
		}
		rep.Err = err
		return
	}
	lg.Info(p.logTag+"results saved", zap.String("artifact", rep.Artifact), zap.Int("rows", rep.Rows))
	return
}

func (p *Pipeline) loadDEM(ctx context.Context) (dem *DEMIndex, info GridInfo, err error) {
	grid, err := p.Rasters.Load(ctx, p.demPath)
	if err != nil {
		return
	}
	info = grid.GridInfo
	dem, err = NewDEMIndex(Sample(grid, COL_ELEV))
	if err != nil {
		err = &RasterReadError{Path: p.demPath, Err: err}
	}
	return
}

// 单张影像：相机位置 → 太阳角 → 范围检查 → 读取波段 → 融合
func (p *Pipeline) processImage(ctx context.Context, lg *zap.Logger, dem *DEMIndex, demInfo GridInfo, img string) (res ImageResult, rs *RecordSet) {
	start := time.Now()
	res.Image = filepath.Base(img)
	lg = lg.With(zap.String("image", res.Image))
	defer func() {
		res.Elapsed = time.Since(start)
	}()
	if p.imageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.imageTimeout)
		defer cancel()
	}
	fail := func(stage string, err error) {
		res.Stage, res.Err = stage, err
	}
	if err := ctx.Err(); err != nil {
		fail(STAGE_POSE, err)
		return
	}
	lg.Info(p.logTag + "processing orthophoto")

	t := time.Now()
	cam, err := p.Poses.Resolve(utils.GetFilenameWithoutExt(img))
	if err != nil {
		fail(STAGE_POSE, err)
		return
	}
	lg.Info(p.logTag+"camera position retrieved", zap.Duration("elapsed", time.Since(t)))

	t = time.Now()
	sun, err := p.Solar.Resolve(ctx, img)
	if err != nil {
		fail(STAGE_SOLAR, err)
		return
	}
	lg.Info(p.logTag+"solar angles retrieved", zap.Duration("elapsed", time.Since(t)))

	if err = stageCheck(ctx); err != nil {
		fail(STAGE_PROBE, err)
		return
	}
	info, err := p.Rasters.Probe(ctx, img)
	if err != nil {
		fail(STAGE_PROBE, err)
		return
	}
	if p.Footprint != nil {
		if err = p.Footprint.Check(demInfo, info); err != nil {
			fail(STAGE_FOOTPRINT, &JoinError{Image: res.Image, Err: err})
			return
		}
	}

	t = time.Now()
	grid, err := p.Rasters.Load(ctx, img)
	if err != nil {
		fail(STAGE_SAMPLE, err)
		return
	}
	bands := Sample(grid)
	lg.Info(p.logTag+"orthophoto bands processed", zap.Int("bands", len(bands.Names)),
		zap.Int("points", bands.Len()), zap.Duration("elapsed", time.Since(t)))

	if err = stageCheck(ctx); err != nil {
		fail(STAGE_MERGE, err)
		return
	}
	t = time.Now()
	if rs, err = dem.Merge(bands, cam, sun, res.Image); err != nil {
		fail(STAGE_MERGE, err)
		return
	}
	res.Rows = rs.Len()
	lg.Info(p.logTag+"merging and angle calculation completed", zap.Int("rows", res.Rows),
		zap.Duration("elapsed", time.Since(t)))
	return
}

func stageCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrImageStageTimeout
		}
		return err
	}
	return nil
}

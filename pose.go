package viewangle

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/wgdzlh/viewangle/utils"
	"go.uber.org/zap"
)

// 相机位置表：制表符分隔，跳过两行表头；列为 PhotoID, X, Y, Z, Omega, Phi, Kappa, r11..r33，
// 只使用前四列。加载一次后只读，可在多个分块间共享
type PoseTable struct {
	poses  []CameraPose
	byID   map[string]int
	lg     *zap.Logger
	logTag string
}

func LoadPoseTable(lg *zap.Logger, path, encoding string) (t *PoseTable, err error) {
	f, err := os.Open(path)
	if err != nil {
		err = errors.Wrap(err, "open pose table")
		return
	}
	defer f.Close()
	return ReadPoseTable(lg, f, encoding)
}

func ReadPoseTable(lg *zap.Logger, r io.Reader, encoding string) (t *PoseTable, err error) {
	t = &PoseTable{
		byID:   map[string]int{},
		lg:     lg,
		logTag: "PoseTable:",
	}
	dr, err := utils.NewDecodingReader(r, encoding)
	if err != nil {
		err = errors.Wrapf(err, "pose table encoding %q", encoding)
		return
	}
	cr := csv.NewReader(dr)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	var (
		rec    []string
		pose   CameraPose
		header = POSE_HEADER_LINES
	)
	for {
		if rec, err = cr.Read(); err != nil {
			if err == io.EOF {
				err = nil
				break
			}
			err = errors.Wrap(err, "read pose table")
			return
		}
		if header > 0 {
			header--
			continue
		}
		line, _ := cr.FieldPos(0)
		if pose, err = parsePoseRow(rec); err != nil {
			err = errors.Wrapf(err, "pose table line %d", line)
			return
		}
		if _, dup := t.byID[pose.PhotoID]; dup {
			lg.Warn(t.logTag+"duplicate photo id, keep first", zap.String("photo", pose.PhotoID), zap.Int("line", line))
		} else {
			t.byID[pose.PhotoID] = len(t.poses)
		}
		t.poses = append(t.poses, pose)
	}
	if len(t.poses) == 0 {
		err = ErrPoseTableEmpty
		return
	}
	lg.Info(t.logTag+"pose table loaded", zap.Int("poses", len(t.poses)))
	return
}

func parsePoseRow(rec []string) (pose CameraPose, err error) {
	if len(rec) < POSE_MIN_FIELDS {
		err = errors.Errorf("%d fields, want at least %d", len(rec), POSE_MIN_FIELDS)
		return
	}
	pose.PhotoID = strings.TrimSpace(rec[0])
	if pose.PhotoID == "" {
		err = errors.New("empty photo id")
		return
	}
	xyz := [3]*float64{&pose.X, &pose.Y, &pose.Z}
	for i, dst := range xyz {
		if *dst, err = strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64); err != nil {
			err = errors.Wrapf(err, "column %d", i+2)
			return
		}
	}
	return
}

func (t *PoseTable) Len() int {
	return len(t.poses)
}

// Resolve 优先精确匹配PhotoID，否则取第一个以photoID开头的行
func (t *PoseTable) Resolve(photoID string) (pose CameraPose, err error) {
	if i, ok := t.byID[photoID]; ok {
		return t.poses[i], nil
	}
	if photoID != "" {
		for _, p := range t.poses {
			if strings.HasPrefix(p.PhotoID, photoID) {
				return p, nil
			}
		}
	}
	err = &PoseNotFoundError{PhotoID: photoID}
	return
}

package viewangle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	m.observeImage(ImageResult{Image: "a.tif", Rows: 3, Elapsed: time.Second})
	m.observeImage(ImageResult{Image: "b.tif", Stage: STAGE_SOLAR, Err: ErrSolarTagMissing})
	m.observeChunk(ChunkReport{Index: 0, Images: []ImageResult{{}}, Rows: 3})
	m.observeChunk(ChunkReport{Index: 1, Images: []ImageResult{{}}, Rows: 5, Err: ErrNoRecords})
	m.observeChunk(ChunkReport{Index: 2})

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"ok images", testutil.ToFloat64(m.images.WithLabelValues(STATUS_OK, "")), 1},
		{"solar failures", testutil.ToFloat64(m.images.WithLabelValues(STATUS_FAILED, STAGE_SOLAR)), 1},
		{"ok chunks", testutil.ToFloat64(m.chunks.WithLabelValues(STATUS_OK)), 1},
		{"failed chunks", testutil.ToFloat64(m.chunks.WithLabelValues(STATUS_FAILED)), 1},
		{"skipped chunks", testutil.ToFloat64(m.chunks.WithLabelValues(STATUS_SKIPPED)), 1},
		{"rows", testutil.ToFloat64(m.rows), 3},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if n := testutil.CollectAndCount(m.imageSeconds); n != 2 {
		t.Errorf("%d histogram series, want 2", n)
	}
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	m.observeImage(ImageResult{Err: errors.New("x")})
	m.observeChunk(ChunkReport{})
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")); err != nil {
		t.Error(err)
	}
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.observeChunk(ChunkReport{Images: []ImageResult{{}}, Rows: 7})
	path := filepath.Join(t.TempDir(), "viewangle.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"viewangle_rows_written_total 7", `viewangle_chunks_total{status="ok"} 1`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile lacks %q:\n%s", want, data)
		}
	}
	if err = m.WriteTextfile(""); err != nil {
		t.Error(err)
	}
}

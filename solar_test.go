package viewangle

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const (
	xmpAttrPacket = `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about="" xmlns:Camera="http://pix4d.com/camera/1.0/"
    Camera:SolarElevation="0.5"
    Camera:SolarAzimuth="1.0"/>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`

	xmpElemPacket = `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF><rdf:Description>
<Camera:SolarElevation> 0.25 </Camera:SolarElevation>
<Camera:SolarAzimuth>-2.5</Camera:SolarAzimuth>
</rdf:Description></rdf:RDF></x:xmpmeta>`
)

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestXMPSolarReader(t *testing.T) {
	dir := t.TempDir()
	header := []byte("II*\x00binary tiff payload\x00\x01\x02")
	tests := []struct {
		name      string
		data      []byte
		elev, saa float64
	}{
		{"attributes", append(append([]byte{}, header...), xmpAttrPacket...), RadToDeg(0.5), RadToDeg(1.0)},
		{"elements", append(append([]byte{}, header...), xmpElemPacket...), RadToDeg(0.25), RadToDeg(-2.5)},
		{"across read buffer", append(bytes.Repeat([]byte{0}, xmpReadBuffer-4), xmpElemPacket...), RadToDeg(0.25), RadToDeg(-2.5)},
	}
	idx, err := NewSourceIndex(nil)
	if err != nil {
		t.Fatal(err)
	}
	r := NewXMPSolarReader(zap.NewNop(), idx)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeTemp(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".tif", tt.data)
			sun, err := r.Resolve(context.Background(), p)
			if err != nil {
				t.Fatal(err)
			}
			assertClose(t, "elevation", sun.Elevation, tt.elev, 1e-12)
			assertClose(t, "azimuth", sun.Azimuth, tt.saa, 1e-12)
		})
	}
}

func TestXMPFloatTagBoundary(t *testing.T) {
	tests := []struct {
		name   string
		packet string
		want   float64
	}{
		{"longer name first", `<rdf:Description Camera:XSolarElevation="9" Camera:SolarElevation="0.5"/>`, 0.5},
		{"no prefix", `<rdf:Description SolarElevation='0.25'/>`, 0.25},
		{"after newline", "<rdf:Description\nCamera:SolarElevation=\"1.5\"/>", 1.5},
		{"element", `<Camera:XSolarElevation>9</Camera:XSolarElevation><Camera:SolarElevation>2</Camera:SolarElevation>`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := xmpFloat([]byte(tt.packet), TAG_SOLAR_ELEVATION)
			if err != nil || v != tt.want {
				t.Errorf("got %v, %v, want %v", v, err, tt.want)
			}
		})
	}
	if _, err := xmpFloat([]byte(`<rdf:Description Camera:XSolarElevation="9"/>`), TAG_SOLAR_ELEVATION); !errors.Is(err, ErrSolarTagMissing) {
		t.Errorf("longer tag alone: err = %v", err)
	}
}

func TestXMPSolarReaderMissing(t *testing.T) {
	dir := t.TempDir()
	r := NewXMPSolarReader(zap.NewNop(), nil)
	noTag := writeTemp(t, dir, "no_tag.tif", []byte(`<x:xmpmeta><Camera:SolarElevation>0.5</Camera:SolarElevation></x:xmpmeta>`))
	noPacket := writeTemp(t, dir, "no_packet.tif", []byte("plain tiff bytes"))
	truncated := writeTemp(t, dir, "truncated.tif", []byte(`<x:xmpmeta Camera:SolarElevation="1"`))
	tests := []struct {
		path string
		want error
	}{
		{noTag, ErrSolarTagMissing},
		{noPacket, ErrNoXMPPacket},
		{truncated, ErrNoXMPPacket},
		{filepath.Join(dir, "absent.tif"), os.ErrNotExist},
	}
	for _, tt := range tests {
		_, err := r.Resolve(context.Background(), tt.path)
		var me *MetadataError
		if !errors.As(err, &me) || me.Path != tt.path {
			t.Errorf("%s: err = %v, want MetadataError", filepath.Base(tt.path), err)
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", filepath.Base(tt.path), err, tt.want)
		}
	}
}

func TestFindXMPPacketCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := findXMPPacket(ctx, strings.NewReader(xmpAttrPacket)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestSourceIndexLocate(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"DJI_0001_IMG_7.TIF", "IMG_7_raw.tif", "IMG_8.tif", "IMG_7.jpg"} {
		writeTemp(t, dir, f, nil)
	}
	if err := os.Mkdir(filepath.Join(dir, "IMG_7.tif"), 0o755); err != nil {
		t.Fatal(err)
	}
	idx, err := NewSourceIndex([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Fatalf("indexed %d files", idx.Len())
	}
	got, err := idx.Locate("/ortho/IMG_7.tif")
	if err != nil || filepath.Base(got) != "DJI_0001_IMG_7.TIF" {
		t.Errorf("got %q, %v", got, err)
	}
	if _, err = idx.Locate("/ortho/IMG_9.tif"); !errors.Is(err, ErrNoMetadataSource) {
		t.Errorf("err = %v", err)
	}
	var empty *SourceIndex
	if got, _ = empty.Locate("/ortho/IMG_9.tif"); got != "/ortho/IMG_9.tif" {
		t.Errorf("empty index located %q", got)
	}
	if _, err = NewSourceIndex([]string{filepath.Join(dir, "none")}); err == nil {
		t.Error("missing source dir accepted")
	}
}

func TestParseExiftoolJSON(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		elev, az float64
		want     error
	}{
		{"numbers", `[{"SourceFile":"a.tif","SolarElevation":0.5,"SolarAzimuth":1.25}]`, 0.5, 1.25, nil},
		{"strings", `[{"SourceFile":"a.tif","SolarElevation":" 0.5","SolarAzimuth":"-1"}]`, 0.5, -1, nil},
		{"missing", `[{"SourceFile":"a.tif","SolarElevation":0.5}]`, 0, 0, ErrSolarTagMissing},
		{"empty", `[]`, 0, 0, ErrSolarTagMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elev, az, err := parseExiftoolJSON([]byte(tt.out))
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Errorf("err = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil || elev != tt.elev || az != tt.az {
				t.Errorf("got %v, %v, %v", elev, az, err)
			}
		})
	}
	if _, _, err := parseExiftoolJSON([]byte(`[{"SolarElevation":"abc","SolarAzimuth":1}]`)); err == nil {
		t.Errorf("bad number accepted: %v", err)
	}
}

func TestExiftoolReaderMissingBinary(t *testing.T) {
	r := NewExiftoolSolarReader(zap.NewNop(), nil, filepath.Join(t.TempDir(), "no-exiftool"))
	_, err := r.Resolve(context.Background(), "IMG_1.tif")
	var me *MetadataError
	if !errors.As(err, &me) {
		t.Errorf("err = %v, want MetadataError", err)
	}
}

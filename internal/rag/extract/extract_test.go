package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeDescriber struct {
	reply    string
	err      error
	calls    int
	payload  []byte
	mimeType string
}

func (f *fakeDescriber) DescribeImage(ctx context.Context, img []byte, mimeType string, prompt string) (string, error) {
	f.calls++
	f.payload = img
	f.mimeType = mimeType
	return f.reply, f.err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writePNG(t *testing.T, name string, w, h int, fill color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return writeFile(t, name, buf.Bytes())
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "slides.pptx", []byte("whatever"))
	_, err := New().Extract(context.Background(), path, "slides.pptx")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
}

func TestExtract_TextStampsFilenameAndExtension(t *testing.T) {
	path := writeFile(t, "upload-123", []byte("para one\n\npara two\n"))

	units, err := New().Extract(context.Background(), path, "Notes.TXT")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "para one\n\npara two", units[0].Content)
	assert.Equal(t, "Notes.TXT", units[0].Filename)
	assert.Equal(t, ".txt", units[0].Extension)
	assert.Equal(t, commonModels.SourceText, units[0].SourceType)
	assert.Zero(t, units[0].PageNum)
}

func TestDecodeText_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		want     string
		encoding string
	}{
		{"utf8", []byte("naïve café"), "naïve café", "utf-8"},
		{"utf8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, "hello"...), "hello", "utf-8"},
		{"windows-1252 smart quotes", []byte("caf\xe9 \x93quoted\x94"), "café “quoted”", "windows-1252"},
		{"latin-1", []byte("se\xf1or"), "señor", "windows-1252"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, enc, err := DecodeText(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
			assert.Equal(t, tt.encoding, enc)
		})
	}
}

func TestDecodeText_BinaryIsEncodingError(t *testing.T) {
	_, _, err := DecodeText([]byte{0x00, 0x01, 0x02, 0x81, 0xff, 0x00})
	assert.ErrorIs(t, err, ragErrors.ErrEncoding)
}

func TestExtract_EmptyTextIsFormatError(t *testing.T) {
	path := writeFile(t, "blank.txt", []byte("  \n\n "))
	_, err := New().Extract(context.Background(), path, "blank.txt")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
}

func TestExtract_CSVRowPerUnit(t *testing.T) {
	path := writeFile(t, "people.csv", []byte("name,city,age\nAda,London,36\nAlan,,41\n"))

	units, err := New().Extract(context.Background(), path, "people.csv")
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "name: Ada\ncity: London\nage: 36", units[0].Content)
	assert.Equal(t, 1, units[0].RowNum)
	assert.Equal(t, "name: Alan\nage: 41", units[1].Content)
	assert.Equal(t, 2, units[1].RowNum)
}

func TestExtract_CSVHeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.csv", []byte("a,b,c\n"))
	_, err := New().Extract(context.Background(), path, "empty.csv")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
}

func TestExtract_CorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("this is not a pdf at all"))
	_, err := New().Extract(context.Background(), path, "broken.pdf")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
}

func TestExtract_MissingPDF(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "nope.pdf")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
}

func TestExtract_CorruptDOCX(t *testing.T) {
	path := writeFile(t, "broken.docx", []byte("PK garbage"))
	units, err := New().Extract(context.Background(), path, "broken.docx")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
	assert.Empty(t, units)
}

func TestExtract_PlainZipIsNotDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes/readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("not a word document"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	path := writeFile(t, "letter.docx", buf.Bytes())

	_, err = New().Extract(context.Background(), path, "letter.docx")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
	assert.ErrorContains(t, err, "not a docx document")
}

func createSQLite(t *testing.T, tables map[string]int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)

	for name, rows := range tables {
		_, err := db.Exec(fmt.Sprintf(`CREATE TABLE %q (id INTEGER PRIMARY KEY, label TEXT, amount REAL)`, name))
		require.NoError(t, err)

		tx, err := db.Begin()
		require.NoError(t, err)
		stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (label, amount) VALUES (?, ?)`, name))
		require.NoError(t, err)
		for i := 0; i < rows; i++ {
			_, err := stmt.Exec(fmt.Sprintf("%s-row-%d", name, i), float64(i)*1.5)
			require.NoError(t, err)
		}
		require.NoError(t, stmt.Close())
		require.NoError(t, tx.Commit())
	}
	return path
}

func TestExtract_SQLiteCapsRowsButKeepsTrueCount(t *testing.T) {
	path := createSQLite(t, map[string]int{"small": 5, "big": 3000})

	units, err := New(WithRowCap(1000)).Extract(context.Background(), path, "data.db")
	require.NoError(t, err)
	require.Len(t, units, 2)

	byTable := map[string]commonModels.ExtractedUnit{}
	for _, u := range units {
		assert.Equal(t, commonModels.SourceDatabase, u.SourceType)
		byTable[u.TableName] = u
	}

	big := byTable["big"]
	assert.Equal(t, 3000, big.RowCount)
	assert.True(t, strings.HasPrefix(big.Content, "Table: big (3000 rows, showing first 1000)"))
	lines := strings.Split(big.Content, "\n")
	assert.Len(t, lines, 1+1+1000)
	assert.Contains(t, big.Content, "big-row-999")
	assert.NotContains(t, big.Content, "big-row-1000")

	small := byTable["small"]
	assert.Equal(t, 5, small.RowCount)
	assert.True(t, strings.HasPrefix(small.Content, "Table: small (5 rows)\nid,label,amount"))
}

func TestExtract_SQLiteNoTables(t *testing.T) {
	path := createSQLite(t, nil)
	_, err := New().Extract(context.Background(), path, "empty.sqlite")
	assert.ErrorIs(t, err, ragErrors.ErrNoTables)
}

func TestExtract_SQLiteCorrupt(t *testing.T) {
	path := writeFile(t, "junk.db", bytes.Repeat([]byte("not sqlite "), 200))
	_, err := New().Extract(context.Background(), path, "junk.db")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
}

func TestExtract_ImageOCRText(t *testing.T) {
	path := writePNG(t, "scan.png", 20, 10, color.White)
	ocr := &fakeOCR{text: "  INVOICE 42  \n"}
	vision := &fakeDescriber{reply: "unused"}

	units, err := New(WithOCR(ocr), WithImageDescriber(vision)).Extract(context.Background(), path, "scan.png")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "INVOICE 42", units[0].Content)
	assert.Equal(t, commonModels.RecoveryOCR, units[0].Recovery)
	assert.False(t, units[0].VisionAnalyzed)
	assert.Zero(t, vision.calls)
}

func TestExtract_ImageVisionFallback(t *testing.T) {
	path := writePNG(t, "blank.png", 2000, 1000, color.White)
	ocr := &fakeOCR{text: "   "}
	vision := &fakeDescriber{reply: "A plain white rectangle with no content."}

	units, err := New(WithOCR(ocr), WithImageDescriber(vision)).Extract(context.Background(), path, "blank.png")
	require.NoError(t, err)
	require.Len(t, units, 1)

	u := units[0]
	assert.Equal(t, commonModels.SourceImage, u.SourceType)
	assert.Equal(t, commonModels.RecoveryVision, u.Recovery)
	assert.True(t, u.VisionAnalyzed)
	assert.Equal(t, "A plain white rectangle with no content.", u.Content)

	require.Equal(t, 1, vision.calls)
	assert.Equal(t, "image/jpeg", vision.mimeType)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(vision.payload))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}

func TestExtract_ImageVisionHonoursMaxDimension(t *testing.T) {
	path := writePNG(t, "tall.png", 300, 600, color.White)
	vision := &fakeDescriber{reply: "A white bar."}

	_, err := New(WithOCR(&fakeOCR{}), WithImageDescriber(vision), WithVisionMaxDimension(200)).
		Extract(context.Background(), path, "tall.png")
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(vision.payload))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestExtract_ImageVisionFailureUsesPlaceholder(t *testing.T) {
	path := writePNG(t, "photo.png", 40, 40, color.White)
	ocr := &fakeOCR{}
	vision := &fakeDescriber{err: errors.New("503 from provider")}

	units, err := New(WithOCR(ocr), WithImageDescriber(vision)).Extract(context.Background(), path, "photo.png")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, commonModels.RecoveryPlaceholder, units[0].Recovery)
	assert.False(t, units[0].VisionAnalyzed)
	assert.Contains(t, units[0].Content, "photo.png")
}

func TestExtract_ImageWithoutDescriberUsesPlaceholder(t *testing.T) {
	path := writePNG(t, "photo.png", 8, 8, color.White)

	units, err := New(WithOCR(&fakeOCR{})).Extract(context.Background(), path, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, commonModels.RecoveryPlaceholder, units[0].Recovery)
}

func TestExtract_ImageOCRMissingDoesNotFallBack(t *testing.T) {
	path := writePNG(t, "photo.png", 8, 8, color.White)
	ocr := &fakeOCR{err: ragErrors.Kind(ragErrors.ErrOCREngineUnavailable, errors.New("exec: not found"))}
	vision := &fakeDescriber{reply: "should not be used"}

	_, err := New(WithOCR(ocr), WithImageDescriber(vision)).Extract(context.Background(), path, "photo.png")
	assert.ErrorIs(t, err, ragErrors.ErrOCREngineUnavailable)
	assert.Zero(t, vision.calls)
}

func TestExtract_ImageOCRCrashIsFormatError(t *testing.T) {
	path := writePNG(t, "photo.jpg", 8, 8, color.White)
	ocr := &fakeOCR{err: errors.New("tesseract: exit status 1: cannot read image")}

	_, err := New(WithOCR(ocr)).Extract(context.Background(), path, "photo.jpg")
	assert.ErrorIs(t, err, ragErrors.ErrFormat)
}

func TestTesseract_MissingBinary(t *testing.T) {
	_, err := NewTesseract("docrag-no-such-ocr-binary").Recognize(context.Background(), "x.png")
	assert.ErrorIs(t, err, ragErrors.ErrOCREngineUnavailable)
}

func TestPrepareForVision_FlattensTransparency(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 300, 600))))

	out, err := PrepareForVision(buf.Bytes(), 100, 90)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	r, g, b, _ := img.At(25, 50).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestScaledSize(t *testing.T) {
	w, h := scaledSize(800, 600, 1024)
	assert.Equal(t, [2]int{800, 600}, [2]int{w, h})
	w, h = scaledSize(4000, 10, 1024)
	assert.Equal(t, [2]int{1024, 3}, [2]int{w, h})
}

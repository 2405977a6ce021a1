package encoding

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

func sampleRows() domain.RowSet {
	return domain.RowSet{
		Columns: []string{"id", "email", "name", "role", "created_at"},
		Rows: []map[string]any{
			{"id": "u-1", "email": "ana@example.com", "name": "Ana", "role": "admin", "created_at": time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
			{"id": "u-2", "email": "bo@example.com", "name": "Bo", "role": "user", "created_at": time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
			{"id": "u-3", "email": "cy@example.com", "name": "Cy", "role": "user"},
		},
	}
}

func sampleMeta() Metadata {
	return Metadata{
		ExportID:    "exp-1",
		ExportType:  domain.ExportTypeUsers,
		Format:      domain.FormatJSON,
		ExportedAt:  time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
		RecordCount: 3,
		Filters:     map[string]any{"role": "user"},
	}
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	_, err := Encode(domain.Format("dbf"), domain.RowSet{}, Options{})
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestAllFormatsHandleEmptyInput(t *testing.T) {
	for _, format := range domain.Formats() {
		out, err := Encode(format, domain.RowSet{}, Options{})
		if err != nil {
			t.Fatalf("%s: encode empty row set: %v", format, err)
		}
		if format == domain.FormatCSV {
			continue
		}
		if len(out) == 0 {
			t.Fatalf("%s: empty output for empty row set", format)
		}
	}
}

func TestAllFormatsEncodeSampleRows(t *testing.T) {
	for _, format := range domain.Formats() {
		out, err := Encode(format, sampleRows(), Options{IncludeMetadata: true, Meta: sampleMeta()})
		if err != nil {
			t.Fatalf("%s: encode: %v", format, err)
		}
		if len(out) == 0 {
			t.Fatalf("%s: produced no bytes", format)
		}
	}
}

func TestAllFormatsAreDeterministic(t *testing.T) {
	// The binary formats rely on pinned container metadata: fixed avro sync
	// block, zeroed pdf dates, pinned xlsx doc properties.
	opts := Options{IncludeMetadata: true, Meta: sampleMeta()}
	for _, format := range domain.Formats() {
		first, err := Encode(format, sampleRows(), opts)
		if err != nil {
			t.Fatalf("%s: encode: %v", format, err)
		}
		second, err := Encode(format, sampleRows(), opts)
		if err != nil {
			t.Fatalf("%s: re-encode: %v", format, err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("%s: repeated encode produced different bytes", format)
		}
	}
}

func TestClipCellRespectsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("ü", 40)
	clipped := clipCell(long, 32)
	if !utf8.ValidString(clipped) {
		t.Fatalf("clipped cell is not valid utf-8: %q", clipped)
	}
	if got := utf8.RuneCountInString(clipped); got != 32 {
		t.Fatalf("clipped cell rune count = %d, want 32", got)
	}
	if !strings.HasSuffix(clipped, "...") {
		t.Fatalf("clipped cell missing ellipsis: %q", clipped)
	}
	short := "café"
	if got := clipCell(short, 32); got != short {
		t.Fatalf("short cell must pass through unchanged, got %q", got)
	}
}

func TestCSVRoundTripAndMissingValues(t *testing.T) {
	out, err := Encode(domain.FormatCSV, sampleRows(), Options{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	wantHeader := []string{"id", "email", "name", "role", "created_at"}
	for i, h := range wantHeader {
		if records[0][i] != h {
			t.Fatalf("header mismatch at %d: got %q want %q", i, records[0][i], h)
		}
	}
	if records[1][4] != "2026-03-01T09:00:00Z" {
		t.Fatalf("timestamp cell: got %q", records[1][4])
	}
	// u-3 has no created_at; the cell stays empty.
	if records[3][4] != "" {
		t.Fatalf("missing value should encode empty, got %q", records[3][4])
	}
}

func TestCSVHasNoMetadataBlock(t *testing.T) {
	out, err := Encode(domain.FormatCSV, sampleRows(), Options{IncludeMetadata: true, Meta: sampleMeta()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(out), "export_id") {
		t.Fatalf("csv output should not carry metadata rows")
	}
}

func TestJSONMetadataEnvelope(t *testing.T) {
	out, err := Encode(domain.FormatJSON, sampleRows(), Options{IncludeMetadata: true, Meta: sampleMeta()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var payload struct {
		Metadata struct {
			ExportID    string `json:"export_id"`
			RecordCount int    `json:"record_count"`
		} `json:"metadata"`
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if payload.Metadata.ExportID != "exp-1" || payload.Metadata.RecordCount != 3 {
		t.Fatalf("metadata mismatch: %+v", payload.Metadata)
	}
	if len(payload.Data) != 3 {
		t.Fatalf("expected 3 records, got %d", len(payload.Data))
	}
	if payload.Data[0]["email"] != "ana@example.com" {
		t.Fatalf("first record email: %v", payload.Data[0]["email"])
	}
}

func TestJSONWithoutMetadataIsBareArray(t *testing.T) {
	out, err := Encode(domain.FormatJSON, sampleRows(), Options{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(out, &records); err != nil {
		t.Fatalf("parse json array: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	out, err := Encode(domain.FormatYAML, sampleRows(), Options{IncludeMetadata: true, Meta: sampleMeta()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var payload struct {
		Metadata map[string]any   `yaml:"metadata"`
		Data     []map[string]any `yaml:"data"`
	}
	if err := yaml.Unmarshal(out, &payload); err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if len(payload.Data) != 3 {
		t.Fatalf("expected 3 records, got %d", len(payload.Data))
	}
	if payload.Metadata["export_type"] != "users" {
		t.Fatalf("metadata export_type: %v", payload.Metadata["export_type"])
	}
}

func TestXMLOutputParses(t *testing.T) {
	out, err := Encode(domain.FormatXML, sampleRows(), Options{IncludeMetadata: true, Meta: sampleMeta()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(out))
	records := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("parse xml: %v", err)
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "record" {
			records++
		}
	}
	if records != 3 {
		t.Fatalf("expected 3 record elements, got %d", records)
	}
}

func TestXMLEscapesSpecialCharacters(t *testing.T) {
	rs := domain.RowSet{
		Columns: []string{"note"},
		Rows:    []map[string]any{{"note": "<script> & friends"}},
	}
	out, err := Encode(domain.FormatXML, rs, Options{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bytes.Contains(out, []byte("<script>")) {
		t.Fatalf("xml output contains unescaped markup")
	}
}

func TestFieldProjectionOrder(t *testing.T) {
	opts := Options{Fields: []string{"name", "id"}}
	out, err := Encode(domain.FormatCSV, sampleRows(), opts)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if records[0][0] != "name" || records[0][1] != "id" {
		t.Fatalf("projection order not honoured: %v", records[0])
	}
	if len(records[0]) != 2 {
		t.Fatalf("expected 2 projected columns, got %d", len(records[0]))
	}
	if records[1][0] != "Ana" || records[1][1] != "u-1" {
		t.Fatalf("projected cells wrong: %v", records[1])
	}
}

func TestMarkdownTableShape(t *testing.T) {
	out, err := Encode(domain.FormatMarkdown, sampleRows(), Options{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	var tableLines []string
	for _, l := range lines {
		if strings.HasPrefix(l, "|") {
			tableLines = append(tableLines, l)
		}
	}
	// header + separator + 3 data rows
	if len(tableLines) != 5 {
		t.Fatalf("expected 5 table lines, got %d", len(tableLines))
	}
	if !strings.Contains(tableLines[1], "---") {
		t.Fatalf("second table line should be the separator: %q", tableLines[1])
	}
}

func TestMarkdownEscapesPipes(t *testing.T) {
	rs := domain.RowSet{
		Columns: []string{"note"},
		Rows:    []map[string]any{{"note": "a|b"}},
	}
	out, err := Encode(domain.FormatMarkdown, rs, Options{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(out), `a\|b`) {
		t.Fatalf("pipe not escaped in %q", string(out))
	}
}

func TestHTMLEscapesCellContent(t *testing.T) {
	rs := domain.RowSet{
		Columns: []string{"note"},
		Rows:    []map[string]any{{"note": "<img src=x>"}},
	}
	out, err := Encode(domain.FormatHTML, rs, Options{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bytes.Contains(out, []byte("<img")) {
		t.Fatalf("html output contains unescaped markup")
	}
}

func TestPDFAndExcelProduceValidSignatures(t *testing.T) {
	pdfOut, err := Encode(domain.FormatPDF, sampleRows(), Options{})
	if err != nil {
		t.Fatalf("encode pdf: %v", err)
	}
	if !bytes.HasPrefix(pdfOut, []byte("%PDF-")) {
		t.Fatalf("pdf output missing signature")
	}

	xlsxOut, err := Encode(domain.FormatExcel, sampleRows(), Options{IncludeMetadata: true, Meta: sampleMeta()})
	if err != nil {
		t.Fatalf("encode excel: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(xlsxOut), int64(len(xlsxOut)))
	if err != nil {
		t.Fatalf("xlsx is not a zip container: %v", err)
	}
	found := false
	for _, f := range zr.File {
		if f.Name == "[Content_Types].xml" {
			found = true
		}
	}
	if !found {
		t.Fatalf("xlsx container missing [Content_Types].xml")
	}
}

func TestParquetAvroOrcProduceSignatures(t *testing.T) {
	parquetOut, err := Encode(domain.FormatParquet, sampleRows(), Options{})
	if err != nil {
		t.Fatalf("encode parquet: %v", err)
	}
	if !bytes.HasPrefix(parquetOut, []byte("PAR1")) || !bytes.HasSuffix(parquetOut, []byte("PAR1")) {
		t.Fatalf("parquet output missing PAR1 framing")
	}

	avroOut, err := Encode(domain.FormatAvro, sampleRows(), Options{})
	if err != nil {
		t.Fatalf("encode avro: %v", err)
	}
	if !bytes.HasPrefix(avroOut, []byte("Obj\x01")) {
		t.Fatalf("avro output missing OCF magic")
	}

	orcOut, err := Encode(domain.FormatORC, sampleRows(), Options{})
	if err != nil {
		t.Fatalf("encode orc: %v", err)
	}
	if !bytes.HasPrefix(orcOut, []byte("ORC")) {
		t.Fatalf("orc output missing magic")
	}
}

func TestGzipRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("compressible payload ", 100))
	compressed, err := Gzip(payload)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Fatalf("gzip did not shrink repetitive payload")
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("open gzip: %v", err)
	}
	restored, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if !bytes.Equal(restored, payload) {
		t.Fatalf("gzip round trip mismatch")
	}
}

func TestZipSingleRoundTrip(t *testing.T) {
	payload := []byte("zip me")
	archive, err := ZipSingle("export.xlsx", payload)
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "export.xlsx" {
		t.Fatalf("unexpected archive contents: %+v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	restored, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !bytes.Equal(restored, payload) {
		t.Fatalf("zip round trip mismatch")
	}
}

func TestCompressionRatio(t *testing.T) {
	if got := Ratio(1000, 250); got != 4.0 {
		t.Fatalf("Ratio(1000,250)=%v, want 4", got)
	}
	if got := Ratio(100, 200); got != 0.5 {
		t.Fatalf("Ratio(100,200)=%v, want 0.5", got)
	}
	if got := Ratio(100, 0); got != 0 {
		t.Fatalf("Ratio(100,0)=%v, want 0", got)
	}
}

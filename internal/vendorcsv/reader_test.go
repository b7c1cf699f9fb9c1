package vendorcsv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestRead_UTF8(t *testing.T) {
	path := writeTemp(t, "plain.csv", []byte("InstrumentID,LastPrice\nIF2401,3450.0\nIH2401,2400.5\n"))

	f, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if f.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", f.Encoding)
	}
	if len(f.Header) != 2 || f.Header[0] != "InstrumentID" {
		t.Errorf("unexpected header %v", f.Header)
	}
	if len(f.Rows) != 2 || f.Rows[1][1] != "2400.5" {
		t.Errorf("unexpected rows %v", f.Rows)
	}
}

func TestRead_UTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("InstrumentID,LastPrice\nIF2401,3450.0\n")...)
	path := writeTemp(t, "bom.csv", data)

	f, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if f.Encoding != "utf-8-bom" {
		t.Errorf("Encoding = %q, want utf-8-bom", f.Encoding)
	}
	// The BOM must not leak into the first header cell.
	if f.Header[0] != "InstrumentID" {
		t.Errorf("Header[0] = %q, want InstrumentID", f.Header[0])
	}
}

func TestRead_GBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("合约代码,最新价\nIF2401,3450.0\n"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := writeTemp(t, "gbk.csv", encoded)

	f, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if f.Encoding != "gbk" {
		t.Errorf("Encoding = %q, want gbk", f.Encoding)
	}
	if f.Header[0] != "合约代码" {
		t.Errorf("Header[0] = %q, want 合约代码", f.Header[0])
	}
}

func TestRead_UnknownEncoding(t *testing.T) {
	// 0xFF 0xFF is invalid in UTF-8 and in the GBK family.
	path := writeTemp(t, "garbage.csv", []byte{0xFF, 0xFF, 0xFF, 0xFE, 0x00})

	_, err := Read(path)
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("expected ErrUnknownEncoding, got %v", err)
	}
}

func TestRead_RaggedRows(t *testing.T) {
	path := writeTemp(t, "ragged.csv", []byte("a,b,c\n1,2\n1,2,3,4\n"))

	f, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(f.Rows) != 2 || len(f.Rows[0]) != 2 || len(f.Rows[1]) != 4 {
		t.Errorf("unexpected rows %v", f.Rows)
	}
}

func TestRead_EmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.csv", nil)

	f, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(f.Header) != 0 || len(f.Rows) != 0 {
		t.Errorf("expected empty file, got header %v rows %v", f.Header, f.Rows)
	}
}

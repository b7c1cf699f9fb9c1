// Package vendorcsv reads delimited vendor exports whose encoding is not
// known in advance. CFFEX and CTP exports arrive either as UTF-8 (with or
// without BOM) or as a GBK-family regional encoding.
package vendorcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned when no candidate decoder accepts the file.
var ErrUnknownEncoding = errors.New("file matches none of the attempted encodings")

// File is one fully decoded vendor export: a header plus raw string rows.
// Rows are positional; column resolution against a mapping happens later.
type File struct {
	Path     string
	Encoding string // name of the decoder that accepted the content
	Header   []string
	Rows     [][]string
}

// candidate pairs a name with a decoder. Order matters: the first decoder
// that converts the whole file without error wins.
type candidate struct {
	name    string
	decoder *encoding.Decoder
}

func candidates() []candidate {
	return []candidate{
		{"utf-8", unicode.UTF8.NewDecoder()},
		{"utf-8-bom", unicode.UTF8BOM.NewDecoder()},
		{"gbk", simplifiedchinese.GBK.NewDecoder()},
		{"gb18030", simplifiedchinese.GB18030.NewDecoder()},
	}
}

// Read loads and decodes a vendor CSV file. It returns ErrUnknownEncoding
// (wrapped) when every attempted decoder rejects the content.
func Read(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text, encName, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	f, err := parse(path, text)
	if err != nil {
		return nil, err
	}
	f.Encoding = encName
	return f, nil
}

// decode attempts the fixed candidate list and returns the first clean result.
func decode(raw []byte) (string, string, error) {
	for _, c := range candidates() {
		// Plain UTF-8 must reject a BOM so the BOM variant can claim it,
		// and must reject invalid byte sequences rather than replace them.
		if c.name == "utf-8" {
			if bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
				continue
			}
			if !utf8.Valid(raw) {
				continue
			}
			return string(raw), c.name, nil
		}

		decoded, _, err := transform.Bytes(c.decoder, raw)
		if err != nil {
			continue
		}
		// x/text decoders substitute U+FFFD for bytes that are invalid in
		// the source encoding instead of failing; treat that as a rejection
		// so the next candidate gets a chance.
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return string(decoded), c.name, nil
	}
	return "", "", ErrUnknownEncoding
}

// parse splits decoded text into header and rows.
func parse(path, text string) (*File, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1 // vendor exports pad or truncate trailing columns
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return &File{Path: path}, nil
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.TrimSpace(col)
	}

	return &File{
		Path:   path,
		Header: header,
		Rows:   records[1:],
	}, nil
}

package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type, expected csv or json")
	ErrMalformedFile       = errors.New("malformed import file")
)

type FileType string

const (
	CSV  FileType = "csv"
	JSON FileType = "json"
)

func ParseFileType(s string) (FileType, error) {
	switch FileType(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case CSV:
		return CSV, nil
	case JSON:
		return JSON, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFileType, "%q", s)
	}
}

// DetectFileType picks the format from the file extension.
func DetectFileType(filename string) (FileType, error) {
	return ParseFileType(filepath.Ext(filename))
}

// Row is one record of an export, keyed by column name (CSV) or object key (JSON).
type Row map[string]any

// Lookup resolves a dotted field either as a flat key ("reserve.symbol" CSV header)
// or as a path into nested JSON objects.
func (r Row) Lookup(field string) (any, bool) {
	if v, ok := r[field]; ok && v != nil {
		return v, true
	}
	if !strings.Contains(field, ".") {
		return nil, false
	}
	v, err := jsonpath.Get("$."+field, map[string]interface{}(r))
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the field as text; numbers are rendered without exponent noise.
func (r Row) String(field string) string {
	v, ok := r.Lookup(field)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func Parse(data []byte, ft FileType) ([]Row, error) {
	switch ft {
	case CSV:
		return parseCSV(data)
	case JSON:
		return parseJSON(data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFileType, "%q", ft)
	}
}

// parseCSV zips each record with the header row. Quoted fields may hold commas.
// Records with no non-empty field are dropped.
func parseCSV(data []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(ErrMalformedFile, "missing header row")
	}
	if err != nil {
		return nil, errors.Wrap(ErrMalformedFile, err.Error())
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(ErrMalformedFile, err.Error())
		}

		row := make(Row, len(header))
		for i, name := range header {
			if i >= len(record) || name == "" {
				continue
			}
			if value := strings.TrimSpace(record[i]); value != "" {
				row[name] = value
			}
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseJSON(data []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(ErrMalformedFile, "expected a JSON array of objects")
	}

	rows := make([]Row, 0, len(raw))
	for _, obj := range raw {
		if len(obj) == 0 {
			continue
		}
		rows = append(rows, Row(obj))
	}
	return rows, nil
}

package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// Encoding names accepted in Options.Encodings
const (
	EncodingUTF8      = "utf-8"
	EncodingLatin1    = "latin-1"
	EncodingCP1252    = "cp1252"
	EncodingISO8859_1 = "iso-8859-1"
)

// DefaultEncodings returns the CSV decoding order
func DefaultEncodings() []string {
	return []string{EncodingUTF8, EncodingLatin1, EncodingCP1252, EncodingISO8859_1}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoder turns raw bytes into UTF-8 text or rejects them
type decoder func(data []byte) (io.Reader, error)

func lookupEncoding(name string) (decoder, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case EncodingUTF8, "utf8":
		return decodeUTF8, true
	case EncodingLatin1, "latin1":
		return decodeLatin1, true
	case EncodingCP1252, "windows-1252":
		return decodeCP1252, true
	case EncodingISO8859_1, "iso8859-1":
		return decodeISO8859_1, true
	}
	return nil, false
}

func decodeUTF8(data []byte) (io.Reader, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("invalid UTF-8 byte sequence")
	}
	return bytes.NewReader(data), nil
}

// decodeLatin1 rejects C1 control bytes, which real latin-1 text does not contain.
// Such files fall through to cp1252, where those bytes are printable.
func decodeLatin1(data []byte) (io.Reader, error) {
	for i, b := range data {
		if b >= 0x80 && b <= 0x9F {
			return nil, fmt.Errorf("C1 control byte 0x%02X at offset %d", b, i)
		}
	}
	return transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder()), nil
}

func decodeCP1252(data []byte) (io.Reader, error) {
	for i, b := range data {
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return nil, fmt.Errorf("byte 0x%02X at offset %d is undefined in cp1252", b, i)
		}
	}
	return transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()), nil
}

// decodeISO8859_1 accepts every byte and is the last resort
func decodeISO8859_1(data []byte) (io.Reader, error) {
	return transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder()), nil
}

// loadCSV reads a CSV file trying each configured encoding in order
func (l *Loader) loadCSV(ctx context.Context, path string) (*models.TabularDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	return l.DecodeCSV(ctx, path, data)
}

// DecodeCSV parses CSV bytes with the encoding fallback list. The encoding that
// succeeded is recorded on the returned document. source names the input in errors.
func (l *Loader) DecodeCSV(ctx context.Context, source string, data []byte) (*models.TabularDocument, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	tried := make([]string, 0, len(l.opts.Encodings))
	for _, name := range l.opts.Encodings {
		if err := cancelled(ctx, "csv_loading"); err != nil {
			return nil, err
		}

		tried = append(tried, name)
		decode, ok := lookupEncoding(name)
		if !ok {
			lastErr = fmt.Errorf("unknown encoding '%s'", name)
			continue
		}

		rows, err := l.parseCSV(decode, data)
		if err != nil {
			l.logger.WithFields(logger.Fields{
				"encoding": name,
				"error":    err.Error(),
			}).Debug("CSV encoding attempt failed")
			lastErr = err
			continue
		}

		doc := models.NewTabularDocument(source, models.FormatCSV, rows)
		doc.Encoding = name
		return doc, nil
	}

	return nil, errors.UnreadableFileError(source, tried, lastErr)
}

func (l *Loader) parseCSV(decode decoder, data []byte) ([][]models.Cell, error) {
	r, err := decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = l.opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]models.Cell
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]models.Cell, len(record))
		for i, field := range record {
			if strings.ContainsRune(field, 0) {
				return nil, fmt.Errorf("NUL byte in field %d of row %d", i+1, len(rows)+1)
			}
			row[i] = models.TextCell(field)
		}
		rows = append(rows, row)

		if l.limitReached(len(rows)) {
			break
		}
	}
	return rows, nil
}

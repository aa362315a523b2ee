package render

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"

	"statement-pdf-service/pkg/errors"
)

// PDFInfo summarises a rendered PDF
type PDFInfo struct {
	Path       string  `json:"path,omitempty"`
	Size       int64   `json:"size_bytes"`
	Pages      int     `json:"pages"`
	Width      float64 `json:"page_width_pt"`
	Height     float64 `json:"page_height_pt"`
	TextLength int     `json:"text_length"`
	Text       string  `json:"-"`
}

// Landscape reports whether the first page is wider than it is tall
func (i *PDFInfo) Landscape() bool {
	return i.Width > i.Height
}

// Inspect reopens a PDF on disk and reports its page count, page size and
// extracted text.
func Inspect(path string) (*PDFInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}

	info, err := InspectBytes(data)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr.WithContext("file_path", path)
		}
		return nil, err
	}
	info.Path = path
	return info, nil
}

// InspectBytes is Inspect for an in-memory document
func InspectBytes(data []byte) (info *PDFInfo, err error) {
	// the reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = errors.FileError(errors.CodeFileCorrupted, "pdf", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, "pdf", err)
	}

	info = &PDFInfo{
		Size:  int64(len(data)),
		Pages: reader.NumPage(),
	}
	if info.Pages > 0 {
		info.Width, info.Height = mediaBox(reader.Page(1))
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, "pdf", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, "pdf", err)
	}
	info.Text = string(text)
	info.TextLength = len(info.Text)
	return info, nil
}

// mediaBox returns the page size, following inherited attributes up the page tree
func mediaBox(p pdf.Page) (float64, float64) {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.IsNull() || box.Len() < 4 {
			continue
		}
		return box.Index(2).Float64() - box.Index(0).Float64(),
			box.Index(3).Float64() - box.Index(1).Float64()
	}
	return 0, 0
}

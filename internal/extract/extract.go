// Package extract turns uploaded documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/thywilljoshua/haunted-syllabus/internal/ai"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
	"github.com/thywilljoshua/haunted-syllabus/internal/sanitize"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrNoText          = errors.New("no readable text found in document")
)

type Document struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Text     string `json:"text"`
	Pages    int    `json:"pages,omitempty"`
}

type Options struct {
	// MaxBytes rejects larger inputs. Zero disables the check.
	MaxBytes int64
	// Generator transcribes images. Nil leaves images unsupported.
	Generator ai.Generator
}

var allowedExt = map[string]bool{
	".pdf": true, ".txt": true, ".md": true, ".markdown": true,
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
}

// Validate checks an upload before reading it: extension, then declared
// type, then size. The first failure is returned.
func Validate(name, mimeType string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExt[ext] {
		return fmt.Errorf("%w: please upload a PDF, text or image file", ErrUnsupportedType)
	}
	if mimeType != "" && !supported(baseType(mimeType)) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: file exceeds %d MB limit", ErrTooLarge, maxBytes/(1024*1024))
	}
	return nil
}

func supported(mt string) bool {
	switch {
	case mt == "application/pdf", mt == "application/octet-stream":
		return true
	case strings.HasPrefix(mt, "text/"), strings.HasPrefix(mt, "image/"):
		return true
	}
	return false
}

// DetectMIME sniffs the content type from the first bytes of a file, using
// the standard library first and mimetype when that is inconclusive.
func DetectMIME(head []byte) string {
	if len(head) == 0 {
		return "application/octet-stream"
	}
	mt := http.DetectContentType(head)
	if mt == "application/octet-stream" {
		mt = mimetype.Detect(head).String()
	}
	return baseType(mt)
}

func baseType(mt string) string {
	if t, _, err := mime.ParseMediaType(mt); err == nil {
		return t
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func FromFile(ctx context.Context, path string, opts Options) (Document, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Document{}, err
	}
	if err := Validate(fi.Name(), "", fi.Size(), opts.MaxBytes); err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return FromBytes(ctx, fi.Name(), data, opts)
}

// FromBytes extracts the text of one document. PDFs are read page by page,
// text files as is and images through the generator. The result is always
// sanitized.
func FromBytes(ctx context.Context, name string, data []byte, opts Options) (Document, error) {
	if err := Validate(name, "", int64(len(data)), opts.MaxBytes); err != nil {
		return Document{}, err
	}
	doc := Document{Name: name, MIMEType: DetectMIME(data)}
	log := logger.FromContext(ctx).With("file", name, "mime", doc.MIMEType)

	var (
		raw string
		err error
	)
	switch {
	case doc.MIMEType == "application/pdf":
		raw, doc.Pages, err = pdfText(data)
	case strings.HasPrefix(doc.MIMEType, "text/"):
		raw = string(data)
	case strings.HasPrefix(doc.MIMEType, "image/"):
		if opts.Generator == nil {
			return doc, fmt.Errorf("image transcription: %w", ai.ErrNotConfigured)
		}
		raw, err = opts.Generator.ExtractText(ctx, data, doc.MIMEType)
	default:
		return doc, fmt.Errorf("%w: %s", ErrUnsupportedType, doc.MIMEType)
	}
	if err != nil {
		return doc, fmt.Errorf("failed to extract %s: %w", name, err)
	}

	doc.Text = sanitize.Sanitize(raw)
	if doc.Text == "" {
		return doc, ErrNoText
	}
	log.Debug("Extracted document", "pages", doc.Pages, "chars", len(doc.Text))
	return doc, nil
}

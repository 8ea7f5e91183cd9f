// Package export renders generated text as downloadable files.
package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"github.com/thywilljoshua/haunted-syllabus/internal/structure"
)

type Format string

const (
	FormatTXT      Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatTXT, FormatMarkdown, FormatHTML, FormatPDF:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "text":
		return FormatTXT, nil
	}
	return "", fmt.Errorf("unknown export format %q (want txt|md|html|pdf)", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Write renders content in format f. TXT is written byte for byte.
func Write(w io.Writer, f Format, content, title string) error {
	switch f {
	case FormatTXT:
		_, err := io.WriteString(w, TXT(content))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(content))
		return err
	case FormatHTML:
		s, err := HTML(content, title)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, s)
		return err
	case FormatPDF:
		return PDF(w, content, title)
	}
	return fmt.Errorf("unknown export format %q", f)
}

func TXT(content string) string { return content }

var numberedLineRe = regexp.MustCompile(`^\d+\.`)

// Markdown promotes heading-like lines: short all-caps lines become "#",
// colon-terminated or numbered lines become "##". Lines that already are
// markdown headings are kept.
func Markdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		n := utf8.RuneCountInString(t)
		if n == 0 || n >= 80 || strings.HasPrefix(t, "#") {
			continue
		}
		switch {
		case structure.IsAllCaps(t) && n < 50:
			lines[i] = "# " + t
		case strings.HasSuffix(t, ":") || numberedLineRe.MatchString(t):
			lines[i] = "## " + t
		}
	}
	return strings.Join(lines, "\n")
}

// HTML renders content as a standalone page.
func HTML(content, title string) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(content), &body); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	if title == "" {
		title = "Haunted"
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9\-]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "/", "-", ".", "-").Replace(s)
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

// Filename derives a download name from a title, "haunted" when the title
// has nothing usable.
func Filename(title string, f Format) string {
	s := slugify(title)
	if s == "" {
		s = "haunted"
	}
	return s + "." + string(f)
}

// Package export writes the combined transcript and its summary to plain
// text, markdown or docx files.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatDocx     Format = "docx"
)

const summaryTitle = "Özet"

var reSectionHeader = regexp.MustCompile(`^--- DOSYA: (.+) ---$`)

// Document is what gets exported.
type Document struct {
	Title   string
	Text    string
	Summary string
}

// Section is one per-file part of the document. Name is empty for any text
// the user typed before the first header.
type Section struct {
	Name string
	Body string
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "docx":
		return FormatDocx, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Sections splits the document on its per-file headers.
func Sections(text string) []Section {
	var sections []Section
	var cur *Section
	var body []string

	flush := func() {
		b := strings.TrimSpace(strings.Join(body, "\n"))
		if cur != nil {
			cur.Body = b
			sections = append(sections, *cur)
		} else if b != "" {
			sections = append(sections, Section{Body: b})
		}
		body = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := reSectionHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			cur = &Section{Name: m[1]}
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

// Write exports doc to path in the format given by its extension.
func Write(path string, doc Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format == FormatDocx {
		return writeDocx(doc, path)
	}
	return writeFile(path, format, doc)
}

// Render writes doc as text or markdown. Docx needs a file; use Write.
func Render(w io.Writer, format Format, doc Document) error {
	var out string
	switch format {
	case FormatText:
		out = renderText(doc)
	case FormatMarkdown:
		out = renderMarkdown(doc)
	default:
		return fmt.Errorf("render %s: not a text format", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

func renderText(doc Document) string {
	var b strings.Builder
	b.WriteString(doc.Text)
	if doc.Summary != "" {
		if !strings.HasSuffix(doc.Text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n=== " + summaryTitle + " ===\n")
		b.WriteString(strings.TrimSpace(doc.Summary))
		b.WriteString("\n")
	}
	return b.String()
}

func renderMarkdown(doc Document) string {
	var b strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	}
	for _, s := range Sections(doc.Text) {
		if s.Name != "" {
			fmt.Fprintf(&b, "## %s\n\n", s.Name)
		}
		if s.Body != "" {
			b.WriteString(s.Body)
			b.WriteString("\n\n")
		}
	}
	if doc.Summary != "" {
		fmt.Fprintf(&b, "## %s\n\n%s\n", summaryTitle, strings.TrimSpace(doc.Summary))
	}
	return b.String()
}

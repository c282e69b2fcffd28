package export

import (
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

var (
	reHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet  = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
)

// writeDocx lays the transcript out one bold heading per file, then the
// summary with its markdown rendered as styled runs.
func writeDocx(doc Document, outputPath string) error {
	d, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	if doc.Title != "" {
		addRun(d.AddParagraph(""), doc.Title, 16, true)
	}

	for _, s := range Sections(doc.Text) {
		if s.Name != "" {
			addRun(d.AddParagraph(""), s.Name, 14, true)
		}
		for _, line := range strings.Split(s.Body, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				addRun(d.AddParagraph(""), trimmed, fontSize, false)
			}
		}
	}

	if doc.Summary != "" {
		d.AddParagraph("")
		addRun(d.AddParagraph(""), summaryTitle, 15, true)
		addMarkdown(d, doc.Summary)
	}

	return d.SaveTo(outputPath)
}

// addMarkdown renders the subset of markdown summaries use: headings,
// bullets and **bold**. Numbered items stay as written.
func addMarkdown(d *docx.RootDoc, markdown string) {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			addRun(d.AddParagraph(""), m[2], headingSize(len(m[1])), true)
			continue
		}

		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			trimmed = "• " + m[1]
		}
		addInline(d.AddParagraph(""), trimmed)
	}
}

// headingSizes maps markdown heading depth to point size; deeper headings
// use the body size.
var headingSizes = map[int]uint64{1: 16, 2: 15, 3: 14}

func headingSize(level int) uint64 {
	if size, ok := headingSizes[level]; ok {
		return size
	}
	return fontSize
}

func addRun(p *docx.Paragraph, text string, size uint64, bold bool) {
	run := p.AddText(stripInlineMarks(text)).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

// addInline writes text with **bold** spans as separate bold runs.
func addInline(p *docx.Paragraph, text string) {
	last := 0
	for _, loc := range reBold.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			addRun(p, text[last:loc[0]], fontSize, false)
		}
		addRun(p, text[loc[2]:loc[3]], fontSize, true)
		last = loc[1]
	}
	if last < len(text) {
		addRun(p, text[last:], fontSize, false)
	}
}

func stripInlineMarks(s string) string {
	return inlineMarks.Replace(s)
}

var inlineMarks = strings.NewReplacer("**", "", "__", "", "`", "")

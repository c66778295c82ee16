// Package parser turns uploaded documents into plain text and splits text into
// overlapping chunks for indexing.
package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xuri/excelize/v2"

	"resume-rag/internal/models"
)

// Extensions lists the formats LoadText understands.
var Extensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".md", ".markdown", ".txt"}

// LoadText extracts the plain text of the document at filePath, picking the
// reader from the file extension.
func LoadText(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = parsePDF(filePath)
	case ".docx":
		text, err = parseDOCX(filePath)
	case ".pptx":
		text, err = parsePPTX(filePath)
	case ".xlsx":
		text, err = parseXLSX(filePath)
	case ".xlsm":
		text, err = parseWorkbook(filePath)
	case ".md", ".markdown":
		text, err = parseMarkdown(filePath)
	case ".txt":
		text, err = parseText(filePath)
	default:
		return "", fmt.Errorf("%w: unsupported file format: %q", models.ErrConfiguration, ext)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filepath.Base(filePath), err)
	}
	log.Debug().Str("file", filepath.Base(filePath)).Int("chars", len(text)).Msg("Loaded document")
	return text, nil
}

// Chunk splits text into windows of at most size characters overlapping by
// overlap, preferring paragraph, line and word boundaries. Non-positive
// values use the 1000/200 defaults.
func Chunk(text string, size, overlap int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if size <= 0 {
		size = models.DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = min(models.DefaultChunkOverlap, size/2)
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return chunks, nil
}

func parsePDF(filePath string) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	// GetContent returns the raw document.xml; each w:p is a paragraph
	content := r.Editable().GetContent()
	var paragraphs []string
	for _, p := range strings.Split(content, "</w:p>") {
		if t := strings.TrimSpace(xmlText(p, "w:t")); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range f.File {
		num, ok := slideNumber(file.Name)
		if !ok {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		if t := strings.TrimSpace(xmlText(string(data), "a:t")); t != "" {
			slides = append(slides, slide{num: num, text: t})
		}
	}
	// zip order is not slide order
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var text strings.Builder
	for _, s := range slides {
		fmt.Fprintf(&text, "## Slide %d\n%s\n\n", s.num, s.text)
	}
	return text.String(), nil
}

// slideNumber parses "ppt/slides/slide12.xml".
func slideNumber(name string) (int, bool) {
	const prefix, suffix = "ppt/slides/slide", ".xml"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
	return n, err == nil
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		fmt.Fprintf(&text, "## Sheet: %s\n", sheet.Name)
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			writeRow(&text, cells)
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

// parseWorkbook reads macro-enabled workbooks, which the xlsx reader rejects.
func parseWorkbook(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		fmt.Fprintf(&text, "## Sheet: %s\n", sheetName)
		for _, row := range rows {
			writeRow(&text, row)
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

func writeRow(w *strings.Builder, cells []string) {
	line := strings.TrimRight(strings.Join(cells, "\t"), "\t ")
	if line == "" {
		return
	}
	w.WriteString(line)
	w.WriteString("\n")
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// xmlText concatenates the character data of every <tag ...>...</tag>
// element in content.
func xmlText(content, tag string) string {
	open, closing := "<"+tag, "</"+tag+">"
	var text strings.Builder
	for {
		start := strings.Index(content, open)
		if start < 0 {
			break
		}
		rest := content[start+len(open):]
		// skip <w:tab>, <w:tbl> and friends sharing the prefix
		if len(rest) == 0 || (rest[0] != '>' && rest[0] != ' ') {
			content = rest
			continue
		}
		gt := strings.IndexByte(rest, '>')
		end := strings.Index(rest, closing)
		if gt < 0 || end < 0 || end < gt {
			content = rest
			continue
		}
		text.WriteString(unescapeXML(rest[gt+1 : end]))
		text.WriteString(" ")
		content = rest[end+len(closing):]
	}
	return strings.Join(strings.Fields(text.String()), " ")
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

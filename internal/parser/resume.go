package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"resume-rag/internal/helper"
	"resume-rag/internal/models"
)

// sectionOrder fixes where the usual resume sections land; anything else
// follows alphabetically.
var sectionOrder = []string{"EXPERIENCE", "PROJECTS", "EDUCATION", "SKILLS"}

// ResumeText renders structured resume sections into one text for chunking.
// enrichments holds extra notes keyed "{SECTION}-{index}".
func ResumeText(sections models.ResumeSections, enrichments map[string]string) string {
	var b strings.Builder
	for _, section := range orderedSections(sections) {
		fmt.Fprintf(&b, "\n\nSection: %s\n", section)
		for i, item := range sections[section] {
			title := strings.TrimSpace(item.Title)
			if title == "" {
				title = "N/A"
			}
			fmt.Fprintf(&b, "\n- %s", title)
			writeField(&b, "Subtitle", item.Subtitle)
			writeField(&b, "Date", item.Date)
			writeField(&b, "Description", item.Description)
			writeField(&b, "Additional Context", enrichments[fmt.Sprintf("%s-%d", section, i)])
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "\n  %s: %s", label, value)
	}
}

func orderedSections(sections models.ResumeSections) []string {
	out := make([]string, 0, len(sections))
	known := make(map[string]bool, len(sectionOrder))
	for _, s := range sectionOrder {
		known[s] = true
		if _, ok := sections[s]; ok {
			out = append(out, s)
		}
	}
	var rest []string
	for s := range sections {
		if !known[s] {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// WithTempFile copies r into a fresh file under dir named with ext and calls
// fn with its path. The file is removed on every return path.
func WithTempFile(dir, ext string, r io.Reader, fn func(path string) error) error {
	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "upload-"+id+ext)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			log.Warn().Err(rerr).Str("path", path).Msg("Failed to remove temp file")
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	return fn(path)
}

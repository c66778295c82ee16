package parser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resume-rag/internal/models"
)

func TestResumeText(t *testing.T) {
	sections := models.ResumeSections{
		"SKILLS": {{Title: "Go"}},
		"AWARDS": {{Title: "Hackathon winner"}},
		"PROJECTS": {
			{Title: "Chat system", Date: "2023", Description: "Realtime chat"},
			{Title: ""},
		},
	}
	enrichments := map[string]string{
		"PROJECTS-0": "Handled 10k concurrent users",
		"SKILLS-3":   "dangling",
	}

	got := ResumeText(sections, enrichments)

	projects := strings.Index(got, "Section: PROJECTS")
	skills := strings.Index(got, "Section: SKILLS")
	awards := strings.Index(got, "Section: AWARDS")
	if !(projects >= 0 && projects < skills && skills < awards) {
		t.Fatalf("section order wrong:\n%s", got)
	}
	for _, want := range []string{
		"\n- Chat system\n  Date: 2023\n  Description: Realtime chat\n  Additional Context: Handled 10k concurrent users",
		"\n- N/A",
		"\n- Go",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "dangling") {
		t.Errorf("enrichment for a missing item was rendered")
	}
}

func TestWithTempFile_RemovesFile(t *testing.T) {
	dir := t.TempDir()
	var seen string
	err := WithTempFile(dir, ".txt", strings.NewReader("resume body"), func(path string) error {
		seen = path
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if string(data) != "resume body" {
			t.Errorf("temp content = %q", data)
		}
		if filepath.Ext(path) != ".txt" {
			t.Errorf("temp ext = %s", filepath.Ext(path))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with temp file: %v", err)
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestWithTempFile_RemovesOnError(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	err := WithTempFile(dir, ".pdf", bytes.NewReader([]byte("%PDF")), func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp dir not empty: %d entries", len(entries))
	}
}

package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resume-rag/internal/chromemdb"
	"resume-rag/internal/vectorstore/storetest"
)

func writeConfig(t *testing.T, storeType, dataDir string) string {
	t.Helper()
	body := fmt.Sprintf("log:\n  level: error\n  pretty: false\nvector_store:\n  type: %s\n  chromem:\n    path: %s\n", storeType, dataDir)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(args ...string) error {
	RootCmd.SetArgs(args)
	RootCmd.SetOut(&bytes.Buffer{})
	return RootCmd.Execute()
}

func TestRenameCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := chromemdb.NewVectorDBManager(chromemdb.Options{Path: dir})
	if err != nil {
		t.Fatalf("open chromem: %v", err)
	}
	col, _ := m.Open(ctx, "temp-1")
	if err := col.Add(ctx, storetest.Records(0, 3, 4)); err != nil {
		t.Fatalf("add: %v", err)
	}
	m.Close()

	cfgPath := writeConfig(t, "chromem", dir)
	if err := execute("rename", "--config", cfgPath, "--from", "temp-1", "--to", "alice"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	m, err = chromemdb.NewVectorDBManager(chromemdb.Options{Path: dir})
	if err != nil {
		t.Fatalf("reopen chromem: %v", err)
	}
	defer m.Close()
	if ok, _ := m.Exists(ctx, "temp-1"); ok {
		t.Errorf("source still exists")
	}
	renamed, _ := m.Open(ctx, "alice")
	if n, _ := renamed.Count(ctx); n != 3 {
		t.Errorf("renamed count = %d", n)
	}
}

func TestRenameCommand_MissingSource(t *testing.T) {
	cfgPath := writeConfig(t, "chromem", t.TempDir())
	err := execute("rename", "--config", cfgPath, "--from", "ghost", "--to", "alice")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing collection error, got %v", err)
	}
}

func TestExportCommand_NeedsChromem(t *testing.T) {
	cfgPath := writeConfig(t, "memory", t.TempDir())
	err := execute("export", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "chromem") {
		t.Fatalf("expected chromem error, got %v", err)
	}
}

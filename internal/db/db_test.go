package db

import (
	"context"
	"os"
	"testing"
	"time"

	"resume-rag/internal/vectorstore"
	"resume-rag/internal/vectorstore/storetest"
)

// newTestStore connects to RAG_TEST_POSTGRES_DSN and recreates the tables so
// every subtest starts empty.
func newTestStore(t *testing.T) vectorstore.Store {
	t.Helper()
	dsn := os.Getenv("RAG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RAG_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	sqldb, err := ConnectDB(Config{DSN: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := NewDB(sqldb, false)
	if err := DropDocuments(ctx, db); err != nil {
		t.Fatalf("drop: %v", err)
	}
	db.Close()

	s, err := NewStore(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestConnectDB_RequiresDSN(t *testing.T) {
	if _, err := ConnectDB(Config{}); err == nil {
		t.Fatal("expected error without dsn")
	}
}

func TestConnectDB_Drivers(t *testing.T) {
	for _, driver := range []string{"pq", "pgdriver"} {
		sqldb, err := ConnectDB(Config{DSN: "postgres://u:p@127.0.0.1:1/db?sslmode=disable", Driver: driver})
		if err != nil {
			t.Fatalf("%s: open should be lazy, got %v", driver, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := sqldb.PingContext(ctx); err == nil {
			t.Errorf("%s: expected ping to fail against a closed port", driver)
		}
		cancel()
		sqldb.Close()
	}
}

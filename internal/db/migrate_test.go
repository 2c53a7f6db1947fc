package db

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- comment\nCREATE A;\n\nALTER B\n\tADD C;\nTRAILING")
	if len(got) != 3 {
		t.Fatalf("unexpected statements: %q", got)
	}
	if got[1] != "ALTER B\n\tADD C;" {
		t.Fatalf("unexpected multi-line statement: %q", got[1])
	}
	if got[2] != "TRAILING" {
		t.Fatalf("unexpected trailing statement: %q", got[2])
	}
}

func TestEmbeddedMigrationsCreateVectorExtension(t *testing.T) {
	t.Parallel()

	if !strings.Contains(preAutoMigrateSQL, "CREATE EXTENSION IF NOT EXISTS vector") {
		t.Fatalf("pre-migrate SQL must install pgvector")
	}
	if len(splitStatements(postAutoMigrateSQL)) < 5 {
		t.Fatalf("expected post-migrate SQL to contain index statements")
	}
}

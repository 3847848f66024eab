package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

func TestDumpCollectsChainAndCode(t *testing.T) {
	err := fmt.Errorf("checkout: %w", Wrap(CodeCommitFailed, fmt.Errorf("dial tcp: refused"), "create sale"))

	d := Dump(err)
	if d.Code != CodeCommitFailed {
		t.Fatalf("expected commit failed code, got %q", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
	if d.PGCode != "" {
		t.Fatalf("unexpected pg code %q", d.PGCode)
	}
	if !d.Retryable {
		t.Fatalf("expected commit failures to be retryable")
	}
}

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "sale_journal_sale_id_key", TableName: "sale_journal", Detail: "duplicate"}
	d := Dump(Wrap(CodeDependency, pgErr, "record sale"))
	if d.PGCode != "23505" || d.PGTable != "sale_journal" || d.PGConstraint != "sale_journal_sale_id_key" {
		t.Fatalf("unexpected dump %+v", d)
	}
}

func TestDumpExtractsSQLiteCode(t *testing.T) {
	liteErr := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	d := Dump(Wrap(CodeConflict, liteErr, "record sale"))
	if d.SQLiteCode == "" {
		t.Fatalf("expected sqlite code in dump %+v", d)
	}
	if d.PGCode != "" {
		t.Fatalf("unexpected pg code %q", d.PGCode)
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Chain) != 0 {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}

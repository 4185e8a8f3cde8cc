package repo

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"spyagency/internal/db"
	"spyagency/internal/domain"
)

func TestRebind(t *testing.T) {
	pg := Repo{Dialect: db.Postgres}
	if got := pg.rebind(`UPDATE missions SET cat_id=? WHERE id=?`); got != `UPDATE missions SET cat_id=$1 WHERE id=$2` {
		t.Fatalf("postgres rebind: %s", got)
	}
	lite := Repo{Dialect: db.SQLite}
	if got := lite.rebind(`SELECT 1 WHERE id=?`); got != `SELECT 1 WHERE id=?` {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	if pg.lockClause() != " FOR UPDATE" || lite.lockClause() != "" {
		t.Fatalf("unexpected lock clauses")
	}
}

func TestTranslatePostgres(t *testing.T) {
	err := translate(&pgconn.PgError{Code: "23505", ConstraintName: ActiveMissionIndex})
	if !errors.Is(err, ErrActiveMission) {
		t.Fatalf("expected active mission conflict, got %v", err)
	}
	err = translate(&pgconn.PgError{Code: "23505", ConstraintName: TargetNameIndex})
	if !errors.Is(err, ErrDuplicateTargetName) {
		t.Fatalf("expected duplicate target conflict, got %v", err)
	}
	err = translate(&pgconn.PgError{Code: "23514", ConstraintName: "cats_salary_check"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	plain := errors.New("boom")
	if translate(plain) != plain {
		t.Fatalf("non-constraint errors must pass through")
	}
}

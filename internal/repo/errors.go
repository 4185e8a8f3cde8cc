package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"spyagency/internal/domain"
)

// Constraint names shared by both migration sets.
const (
	ActiveMissionIndex = "uq_active_mission_per_cat"
	TargetNameIndex    = "uq_target_name_per_mission"
)

var (
	// ErrActiveMission is returned when a write would give a cat a second incomplete mission.
	ErrActiveMission = &domain.Error{Kind: domain.ErrConflict, Msg: "cat is already assigned to an active mission"}
	// ErrDuplicateTargetName is returned when a mission would hold two targets with the same name.
	ErrDuplicateTargetName = &domain.Error{Kind: domain.ErrConflict, Msg: "target names must be unique within a mission"}
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// translate maps driver constraint failures onto domain errors. Other errors pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return uniqueViolation(pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return domain.Conflictf("referenced record does not exist")
		case pgCheckViolation:
			return domain.InvalidInputf("value violates %s", pgErr.ConstraintName)
		}
		return err
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) && sqErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := sqErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return uniqueViolation(msg)
		case strings.Contains(msg, "FOREIGN KEY"):
			return domain.Conflictf("referenced record does not exist")
		case strings.Contains(msg, "CHECK"):
			return domain.InvalidInputf("value out of range")
		}
		return domain.Conflictf("constraint violation")
	}
	return err
}

// uniqueViolation recognises a constraint by name (postgres) or by its
// column list (sqlite reports "UNIQUE constraint failed: missions.cat_id").
func uniqueViolation(detail string) error {
	switch {
	case strings.Contains(detail, ActiveMissionIndex), strings.Contains(detail, "missions.cat_id"):
		return ErrActiveMission
	case strings.Contains(detail, TargetNameIndex), strings.Contains(detail, "targets.mission_id, targets.name"):
		return ErrDuplicateTargetName
	}
	return domain.Conflictf("duplicate record")
}

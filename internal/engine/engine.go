package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spyagency/internal/breeds"
	"spyagency/internal/db"
	"spyagency/internal/domain"
	"spyagency/internal/logger"
	"spyagency/internal/metrics"
	"spyagency/internal/repo"
)

// Engine applies the agency's business rules on top of the store. Every
// mutation runs in one transaction; storage constraints back the pre-checks.
type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Breeds  breeds.Validator
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func New(conn *sql.DB, dialect db.Dialect, validator breeds.Validator) Engine {
	return Engine{
		DB:     conn,
		Repo:   repo.Repo{DB: conn, Dialect: dialect},
		Breeds: validator,
		Logger: slog.Default(),
	}
}

func (e Engine) log(ctx context.Context) *slog.Logger {
	l := e.Logger
	if l == nil {
		l = slog.Default()
	}
	return logger.From(ctx, l)
}

func (e Engine) record(op string, err error) {
	e.Metrics.Operation(op, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrBreedUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// CatCreateOptions are parameters for recruiting a cat.
type CatCreateOptions struct {
	Name            string
	YearsExperience int
	Breed           string
	Salary          float64
}

// CreateCat validates the breed against the vocabulary before persisting.
func (e Engine) CreateCat(ctx context.Context, opts CatCreateOptions) (c domain.Cat, err error) {
	defer func() { e.record("create_cat", err) }()

	if strings.TrimSpace(opts.Name) == "" {
		return domain.Cat{}, domain.InvalidInputf("name is required")
	}
	if opts.YearsExperience < 0 || opts.YearsExperience > 50 {
		return domain.Cat{}, domain.InvalidInputf("years_experience must be between 0 and 50")
	}
	if opts.Salary <= 0 {
		return domain.Cat{}, domain.InvalidInputf("salary must be greater than 0")
	}
	if e.Breeds == nil {
		return domain.Cat{}, fmt.Errorf("%w: no breed validator configured", domain.ErrBreedUnavailable)
	}
	ok, err := e.Breeds.IsValid(ctx, opts.Breed)
	if err != nil {
		if !errors.Is(err, domain.ErrBreedUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrBreedUnavailable, err)
		}
		e.log(ctx).Warn("breed lookup failed", "breed", opts.Breed, "err", err)
		return domain.Cat{}, err
	}
	if !ok {
		return domain.Cat{}, domain.InvalidInputf("invalid breed: %s", opts.Breed)
	}
	c, err = e.Repo.InsertCat(ctx, domain.Cat{
		Name:            opts.Name,
		YearsExperience: opts.YearsExperience,
		Breed:           opts.Breed,
		Salary:          opts.Salary,
	})
	if err != nil {
		return domain.Cat{}, fmt.Errorf("insert cat: %w", err)
	}
	e.log(ctx).Info("cat created", "cat_id", c.ID, "breed", c.Breed)
	return c, nil
}

func (e Engine) ListCats(ctx context.Context) ([]domain.Cat, error) {
	return e.Repo.ListCats(ctx)
}

func (e Engine) GetCat(ctx context.Context, id int64) (domain.Cat, error) {
	return e.Repo.GetCat(ctx, id)
}

// UpdateCatSalary is the only mutation allowed on an existing cat.
func (e Engine) UpdateCatSalary(ctx context.Context, id int64, salary float64) (c domain.Cat, err error) {
	defer func() { e.record("update_cat_salary", err) }()

	if salary <= 0 {
		return domain.Cat{}, domain.InvalidInputf("salary must be greater than 0")
	}
	if err := e.Repo.UpdateCatSalary(ctx, id, salary); err != nil {
		return domain.Cat{}, err
	}
	return e.Repo.GetCat(ctx, id)
}

// DeleteCat refuses while the cat holds an incomplete mission. Completed
// missions survive with their cat reference cleared.
func (e Engine) DeleteCat(ctx context.Context, id int64) (err error) {
	defer func() { e.record("delete_cat", err) }()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetCatTx(ctx, tx, id); err != nil {
		return err
	}
	if _, busy, err := e.Repo.ActiveMissionForCatTx(ctx, tx, id); err != nil {
		return err
	} else if busy {
		return domain.Conflictf("cannot delete cat with active missions; complete or reassign missions first")
	}
	if err := e.Repo.DeleteCatTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.log(ctx).Info("cat deleted", "cat_id", id)
	return nil
}

// CreateMission stores the mission and all of its targets atomically.
func (e Engine) CreateMission(ctx context.Context, targets []domain.NewTarget) (m domain.Mission, err error) {
	defer func() { e.record("create_mission", err) }()

	if n := len(targets); n < domain.MinTargetsPerMission || n > domain.MaxTargetsPerMission {
		return domain.Mission{}, domain.InvalidInputf("a mission needs between %d and %d targets, got %d",
			domain.MinTargetsPerMission, domain.MaxTargetsPerMission, n)
	}
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Country) == "" {
			return domain.Mission{}, domain.InvalidInputf("target name and country are required")
		}
		if _, dup := seen[t.Name]; dup {
			return domain.Mission{}, domain.Conflictf("duplicate target name %q in mission", t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	id, err := e.Repo.InsertMissionTx(ctx, tx)
	if err != nil {
		return domain.Mission{}, fmt.Errorf("insert mission: %w", err)
	}
	m = domain.Mission{ID: id, Targets: make([]domain.Target, 0, len(targets))}
	for _, nt := range targets {
		t, err := e.Repo.InsertTargetTx(ctx, tx, id, nt)
		if err != nil {
			return domain.Mission{}, fmt.Errorf("insert target %q: %w", nt.Name, err)
		}
		m.Targets = append(m.Targets, t)
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	e.log(ctx).Info("mission created", "mission_id", id, "targets", len(m.Targets))
	return m, nil
}

func (e Engine) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	return e.Repo.ListMissions(ctx)
}

func (e Engine) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	return e.Repo.GetMission(ctx, id)
}

// DeleteMission removes an unassigned mission together with its targets.
func (e Engine) DeleteMission(ctx context.Context, id int64) (err error) {
	defer func() { e.record("delete_mission", err) }()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionRowTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if m.CatID != nil {
		return domain.Conflictf("cannot delete mission that is assigned to a cat; unassign first")
	}
	if err := e.Repo.DeleteMissionTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.log(ctx).Info("mission deleted", "mission_id", id)
	return nil
}

// AssignCat gives the mission to a cat. The checks run in a fixed order so
// the first violated rule is the one reported.
func (e Engine) AssignCat(ctx context.Context, missionID, catID int64) (m domain.Mission, err error) {
	defer func() { e.record("assign_cat", err) }()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	row, err := e.Repo.GetMissionRowTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if _, err := e.Repo.GetCatTx(ctx, tx, catID); err != nil {
		return domain.Mission{}, err
	}
	if row.Complete {
		return domain.Mission{}, domain.Conflictf("cannot assign cat to completed mission")
	}
	if row.CatID != nil {
		return domain.Mission{}, domain.Conflictf("mission is already assigned to another cat")
	}
	active, busy, err := e.Repo.ActiveMissionForCatTx(ctx, tx, catID)
	if err != nil {
		return domain.Mission{}, err
	}
	if busy {
		return domain.Mission{}, domain.Conflictf("cat is already assigned to mission %d", active)
	}
	if err := e.Repo.SetMissionCatTx(ctx, tx, missionID, &catID); err != nil {
		if errors.Is(err, repo.ErrActiveMission) {
			return domain.Mission{}, domain.Conflictf("cat %d is already assigned to an active mission", catID)
		}
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	e.log(ctx).Info("cat assigned", "mission_id", missionID, "cat_id", catID)
	return e.Repo.GetMission(ctx, missionID)
}

// UnassignCat clears the mission's cat so the mission can be deleted or reassigned.
func (e Engine) UnassignCat(ctx context.Context, missionID int64) (m domain.Mission, err error) {
	defer func() { e.record("unassign_cat", err) }()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	row, err := e.Repo.GetMissionRowTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if row.CatID == nil {
		return domain.Mission{}, domain.Conflictf("mission %d is not assigned to a cat", missionID)
	}
	if err := e.Repo.SetMissionCatTx(ctx, tx, missionID, nil); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	e.log(ctx).Info("cat unassigned", "mission_id", missionID, "cat_id", *row.CatID)
	return e.Repo.GetMission(ctx, missionID)
}

// TargetUpdateOptions carries the optional fields of a target update; nil means unchanged.
type TargetUpdateOptions struct {
	ID       int64
	Notes    *string
	Complete *bool
}

// TargetUpdateResult is the updated target and whether its mission is now complete.
type TargetUpdateResult struct {
	Target          domain.Target
	MissionComplete bool
}

// UpdateTarget edits notes and/or completion. Notes freeze once the target or
// its mission is complete. Completing the last open target completes the
// mission; un-completing a target never reopens it.
func (e Engine) UpdateTarget(ctx context.Context, opts TargetUpdateOptions) (res TargetUpdateResult, err error) {
	defer func() { e.record("update_target", err) }()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return TargetUpdateResult{}, err
	}
	defer tx.Rollback()

	missionID, err := e.Repo.TargetMissionTx(ctx, tx, opts.ID)
	if err != nil {
		return TargetUpdateResult{}, err
	}
	mission, err := e.Repo.GetMissionRowTx(ctx, tx, missionID)
	if err != nil {
		return TargetUpdateResult{}, err
	}
	t, err := e.Repo.GetTargetTx(ctx, tx, opts.ID)
	if err != nil {
		return TargetUpdateResult{}, err
	}

	if opts.Notes != nil {
		if t.Complete {
			return TargetUpdateResult{}, domain.Conflictf("cannot update notes for completed target")
		}
		if mission.Complete {
			return TargetUpdateResult{}, domain.Conflictf("cannot update notes for target in completed mission")
		}
		if err := e.Repo.UpdateTargetNotesTx(ctx, tx, t.ID, *opts.Notes); err != nil {
			return TargetUpdateResult{}, err
		}
		t.Notes = *opts.Notes
	}

	rolledUp := false
	if opts.Complete != nil {
		if err := e.Repo.UpdateTargetCompleteTx(ctx, tx, t.ID, *opts.Complete); err != nil {
			return TargetUpdateResult{}, err
		}
		t.Complete = *opts.Complete
		if t.Complete && !mission.Complete {
			all, err := e.Repo.AllTargetsCompleteTx(ctx, tx, missionID)
			if err != nil {
				return TargetUpdateResult{}, err
			}
			if all {
				if err := e.Repo.SetMissionCompleteTx(ctx, tx, missionID); err != nil {
					return TargetUpdateResult{}, err
				}
				mission.Complete = true
				rolledUp = true
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return TargetUpdateResult{}, err
	}
	if rolledUp {
		e.log(ctx).Info("mission completed", "mission_id", missionID, "last_target_id", t.ID)
	}
	return TargetUpdateResult{Target: t, MissionComplete: mission.Complete}, nil
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"spyagency/internal/db"
	"spyagency/internal/domain"
)

type Repo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

// rebind rewrites ? placeholders into $n for postgres.
func (r Repo) rebind(query string) string {
	if r.Dialect != db.Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// lockClause returns the row lock suffix; sqlite relies on BEGIN IMMEDIATE instead.
func (r Repo) lockClause() string {
	if r.Dialect == db.Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// Cats

const catColumns = `id,name,years_experience,breed,salary`

func scanCat(row interface{ Scan(...any) error }) (domain.Cat, error) {
	var c domain.Cat
	err := row.Scan(&c.ID, &c.Name, &c.YearsExperience, &c.Breed, &c.Salary)
	return c, err
}

func (r Repo) InsertCat(ctx context.Context, c domain.Cat) (domain.Cat, error) {
	row := r.DB.QueryRowContext(ctx, r.rebind(`INSERT INTO cats(name,years_experience,breed,salary) VALUES (?,?,?,?) RETURNING id`),
		c.Name, c.YearsExperience, c.Breed, c.Salary)
	if err := row.Scan(&c.ID); err != nil {
		return domain.Cat{}, translate(err)
	}
	return c, nil
}

func (r Repo) GetCat(ctx context.Context, id int64) (domain.Cat, error) {
	return r.getCat(ctx, nil, id, false)
}

// GetCatTx reads the cat inside tx, locking the row on postgres.
func (r Repo) GetCatTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Cat, error) {
	return r.getCat(ctx, tx, id, true)
}

func (r Repo) getCat(ctx context.Context, tx *sql.Tx, id int64, lock bool) (domain.Cat, error) {
	query := `SELECT ` + catColumns + ` FROM cats WHERE id=?`
	if lock {
		query += r.lockClause()
	}
	c, err := scanCat(r.q(tx).QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cat{}, domain.NotFoundf("cat %d not found", id)
	}
	return c, err
}

func (r Repo) ListCats(ctx context.Context) ([]domain.Cat, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+catColumns+` FROM cats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Cat{}
	for rows.Next() {
		c, err := scanCat(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCatSalary(ctx context.Context, id int64, salary float64) error {
	res, err := r.DB.ExecContext(ctx, r.rebind(`UPDATE cats SET salary=? WHERE id=?`), salary, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("cat %d not found", id)
	}
	return nil
}

func (r Repo) DeleteCatTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM cats WHERE id=?`), id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("cat %d not found", id)
	}
	return nil
}

// ActiveMissionForCatTx returns the id of the cat's incomplete mission, if any.
func (r Repo) ActiveMissionForCatTx(ctx context.Context, tx *sql.Tx, catID int64) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, r.rebind(`SELECT id FROM missions WHERE cat_id=? AND complete=? ORDER BY id LIMIT 1`), catID, false).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Missions

// MissionRow is a mission without its targets or cat projection.
type MissionRow struct {
	ID       int64
	Complete bool
	CatID    *int64
}

func (r Repo) InsertMissionTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	var id int64
	if err := tx.QueryRowContext(ctx, r.rebind(`INSERT INTO missions(complete) VALUES (?) RETURNING id`), false).Scan(&id); err != nil {
		return 0, translate(err)
	}
	return id, nil
}

// GetMissionRowTx reads and, on postgres, locks the mission row.
func (r Repo) GetMissionRowTx(ctx context.Context, tx *sql.Tx, id int64) (MissionRow, error) {
	var (
		m     MissionRow
		catID sql.NullInt64
	)
	err := tx.QueryRowContext(ctx, r.rebind(`SELECT id,complete,cat_id FROM missions WHERE id=?`+r.lockClause()), id).
		Scan(&m.ID, &m.Complete, &catID)
	if errors.Is(err, sql.ErrNoRows) {
		return MissionRow{}, domain.NotFoundf("mission %d not found", id)
	}
	if err != nil {
		return MissionRow{}, err
	}
	if catID.Valid {
		v := catID.Int64
		m.CatID = &v
	}
	return m, nil
}

const missionSelect = `SELECT m.id,m.complete,m.cat_id,c.name,c.breed,c.years_experience
FROM missions m LEFT JOIN cats c ON c.id = m.cat_id`

func scanMission(row interface{ Scan(...any) error }) (domain.Mission, error) {
	var (
		m     domain.Mission
		catID sql.NullInt64
		name  sql.NullString
		breed sql.NullString
		years sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.Complete, &catID, &name, &breed, &years); err != nil {
		return m, err
	}
	m.Targets = []domain.Target{}
	if catID.Valid {
		id := catID.Int64
		m.CatID = &id
		m.Cat = &domain.CatSummary{ID: id, Name: name.String, Breed: breed.String, YearsExperience: int(years.Int64)}
	}
	return m, nil
}

// GetMission returns the mission with its targets and assigned cat summary.
func (r Repo) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	return r.GetMissionTx(ctx, nil, id)
}

func (r Repo) GetMissionTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Mission, error) {
	m, err := scanMission(r.q(tx).QueryRowContext(ctx, r.rebind(missionSelect+` WHERE m.id=?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Mission{}, domain.NotFoundf("mission %d not found", id)
	}
	if err != nil {
		return domain.Mission{}, err
	}
	targets, err := r.listTargets(ctx, r.q(tx), `WHERE mission_id=?`, id)
	if err != nil {
		return domain.Mission{}, err
	}
	m.Targets = targets
	return m, nil
}

// ListMissions returns every mission ordered by id, targets attached in a second query.
func (r Repo) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, missionSelect+` ORDER BY m.id`)
	if err != nil {
		return nil, err
	}
	res := []domain.Mission{}
	index := map[int64]int{}
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[m.ID] = len(res)
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(res) == 0 {
		return res, nil
	}
	targets, err := r.listTargets(ctx, r.DB, "")
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if i, ok := index[t.MissionID]; ok {
			res[i].Targets = append(res[i].Targets, t)
		}
	}
	return res, nil
}

// SetMissionCatTx assigns (catID != nil) or clears the mission's cat.
func (r Repo) SetMissionCatTx(ctx context.Context, tx *sql.Tx, missionID int64, catID *int64) error {
	var arg any
	if catID != nil {
		arg = *catID
	}
	res, err := tx.ExecContext(ctx, r.rebind(`UPDATE missions SET cat_id=? WHERE id=?`), arg, missionID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("mission %d not found", missionID)
	}
	return nil
}

func (r Repo) SetMissionCompleteTx(ctx context.Context, tx *sql.Tx, missionID int64) error {
	_, err := tx.ExecContext(ctx, r.rebind(`UPDATE missions SET complete=? WHERE id=?`), true, missionID)
	return translate(err)
}

func (r Repo) DeleteMissionTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM missions WHERE id=?`), id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("mission %d not found", id)
	}
	return nil
}

// Targets

const targetColumns = `id,mission_id,name,country,notes,complete`

func scanTarget(row interface{ Scan(...any) error }) (domain.Target, error) {
	var t domain.Target
	err := row.Scan(&t.ID, &t.MissionID, &t.Name, &t.Country, &t.Notes, &t.Complete)
	return t, err
}

func (r Repo) InsertTargetTx(ctx context.Context, tx *sql.Tx, missionID int64, nt domain.NewTarget) (domain.Target, error) {
	t := domain.Target{MissionID: missionID, Name: nt.Name, Country: nt.Country, Notes: nt.Notes}
	err := tx.QueryRowContext(ctx, r.rebind(`INSERT INTO targets(mission_id,name,country,notes,complete) VALUES (?,?,?,?,?) RETURNING id`),
		missionID, nt.Name, nt.Country, nt.Notes, false).Scan(&t.ID)
	if err != nil {
		return domain.Target{}, translate(err)
	}
	return t, nil
}

// TargetMissionTx resolves the mission owning a target, so callers can lock
// the mission row before touching the target.
func (r Repo) TargetMissionTx(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	var missionID int64
	err := tx.QueryRowContext(ctx, r.rebind(`SELECT mission_id FROM targets WHERE id=?`), id).Scan(&missionID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFoundf("target %d not found", id)
	}
	return missionID, err
}

// GetTargetTx reads a target. Target rows are guarded by their mission's lock.
func (r Repo) GetTargetTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Target, error) {
	t, err := scanTarget(tx.QueryRowContext(ctx, r.rebind(`SELECT `+targetColumns+` FROM targets WHERE id=?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Target{}, domain.NotFoundf("target %d not found", id)
	}
	return t, err
}

func (r Repo) listTargets(ctx context.Context, q querier, where string, args ...any) ([]domain.Target, error) {
	rows, err := q.QueryContext(ctx, r.rebind(`SELECT `+targetColumns+` FROM targets `+where+` ORDER BY id`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Target{}
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateTargetNotesTx(ctx context.Context, tx *sql.Tx, id int64, notes string) error {
	_, err := tx.ExecContext(ctx, r.rebind(`UPDATE targets SET notes=? WHERE id=?`), notes, id)
	return translate(err)
}

func (r Repo) UpdateTargetCompleteTx(ctx context.Context, tx *sql.Tx, id int64, complete bool) error {
	_, err := tx.ExecContext(ctx, r.rebind(`UPDATE targets SET complete=? WHERE id=?`), complete, id)
	return translate(err)
}

// AllTargetsCompleteTx reports whether the mission has targets and none is incomplete.
func (r Repo) AllTargetsCompleteTx(ctx context.Context, tx *sql.Tx, missionID int64) (bool, error) {
	var total, open int
	err := tx.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN complete THEN 0 ELSE 1 END),0) FROM targets WHERE mission_id=?`), missionID).
		Scan(&total, &open)
	if err != nil {
		return false, fmt.Errorf("count targets: %w", err)
	}
	return total > 0 && open == 0, nil
}

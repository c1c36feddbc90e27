package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pych2536/rpca70/internal/catalog"
	"github.com/pych2536/rpca70/internal/member/models"
)

// Postgres persists alumni records in PostgreSQL. The table schema is fixed
// by the field catalog and never altered by an import; ReplaceAll is a
// row-level delete-then-insert inside one transaction.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// domainColumns returns the non-reserved internal ids in catalog order.
// These double as column names in the alumni table.
func domainColumns() []string {
	var cols []string
	for _, f := range catalog.All() {
		if !catalog.IsReserved(f.ID) {
			cols = append(cols, f.ID)
		}
	}
	return cols
}

// quoted joins column names as quoted identifiers ("position" is a reserved
// word in PostgreSQL).
func quoted(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = `"` + c + `"`
	}
	return strings.Join(q, ", ")
}

func selectColumns() string {
	return `seq, update_status, updated_at_display, ` + quoted(domainColumns())
}

// scanRecord scans one row in selectColumns order.
func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	cols := domainColumns()
	var (
		seq       int
		status    string
		updatedAt string
	)
	values := make([]sql.NullString, len(cols))
	dest := make([]any, 0, len(cols)+3)
	dest = append(dest, &seq, &status, &updatedAt)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	rec := &models.Record{
		SequenceID:  seq,
		Status:      models.Status(status),
		LastUpdated: updatedAt,
		Fields:      make(map[string]string, len(cols)),
	}
	// NULL means the column was absent from the source file; "" means present
	// but blank. Only non-NULL values land in the field map.
	for i, c := range cols {
		if values[i].Valid {
			rec.Fields[c] = values[i].String
		}
	}
	return rec, nil
}

func (s *Postgres) Get(ctx context.Context, seq int) (*models.Record, error) {
	query := `SELECT ` + selectColumns() + ` FROM alumni WHERE seq = $1`
	row := s.db.QueryRowContext(ctx, query, seq)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) FindByName(ctx context.Context, first, last string) (*models.Record, error) {
	query := `SELECT ` + selectColumns() + ` FROM alumni
		WHERE lower(btrim(coalesce("first_name", ''))) = lower($1)
		  AND lower(btrim(coalesce("last_name", ''))) = lower($2)
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, first, last)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find by name: %w", err)
	}
	return rec, nil
}

func (s *Postgres) SearchFreeText(ctx context.Context, query string) ([]*models.Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	q := `SELECT ` + selectColumns() + ` FROM alumni
		WHERE coalesce("first_name", '') ILIKE $1
		   OR coalesce("last_name", '') ILIKE $1
		   OR coalesce("nickname", '') ILIKE $1
		` + orderClause()
	return s.queryRecords(ctx, q, pattern)
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Record, error) {
	q := `SELECT ` + selectColumns() + ` FROM alumni ` + orderClause()
	return s.queryRecords(ctx, q)
}

func (s *Postgres) queryRecords(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func orderClause() string {
	return fmt.Sprintf(`ORDER BY CASE WHEN update_status = '%s' THEN 0 ELSE 1 END, seq`,
		models.StatusUnconfirmed)
}

// ReplaceAll wipes the table and inserts the given records in one transaction.
// A failure at any point rolls back so readers never observe a half-replaced
// or empty mid-import state.
func (s *Postgres) ReplaceAll(ctx context.Context, records []*models.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM alumni`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	cols := domainColumns()
	placeholders := make([]string, len(cols)+3)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := `INSERT INTO alumni (seq, update_status, updated_at_display, ` + quoted(cols) + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		args := make([]any, 0, len(cols)+3)
		args = append(args, rec.SequenceID, string(rec.Status), rec.LastUpdated)
		for _, c := range cols {
			if v, ok := rec.Field(c); ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("duplicate sequence %d: %w", rec.SequenceID, err)
			}
			return fmt.Errorf("insert record %d: %w", rec.SequenceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, rec *models.Record) error {
	cols := domainColumns()
	sets := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+3)
	n := 1
	appendSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf(`%q = $%d`, col, n))
		args = append(args, val)
		n++
	}
	appendSet("update_status", string(rec.Status))
	appendSet("updated_at_display", rec.LastUpdated)
	for _, c := range cols {
		if v, ok := rec.Field(c); ok {
			appendSet(c, v)
		} else {
			appendSet(c, nil)
		}
	}
	args = append(args, rec.SequenceID)
	query := fmt.Sprintf(`UPDATE alumni SET %s WHERE seq = $%d`, strings.Join(sets, ", "), n)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ResetStatus(ctx context.Context, seq int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alumni SET update_status = $1, updated_at_display = $2 WHERE seq = $3`,
		string(models.StatusUnconfirmed), models.PlaceholderUpdatedAt, seq)
	if err != nil {
		return fmt.Errorf("reset status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM alumni`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// escapeLike escapes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

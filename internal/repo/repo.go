package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aniiishetty/event/internal/model"
)

var (
	ErrCollegeNotFound      = errors.New("college not found")
	ErrDuplicateCollege     = errors.New("duplicate college")
	ErrDuplicateEmail       = errors.New("duplicate email")
	ErrCollegeTaken         = errors.New("college already registered")
	ErrRegistrationNotFound = errors.New("registration not found")
)

type Repository interface {
	Ping(ctx context.Context) error
	CreateCollege(ctx context.Context, name string) (int, error)
	GetCollegeByID(ctx context.Context, id int) (*model.College, error)
	GetOrCreateCollegeByName(ctx context.Context, name string) (*model.College, error)
	SearchColleges(ctx context.Context, search string, limit, offset int) ([]model.College, error)
	CollegeHasRegistration(ctx context.Context, collegeID int) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateRegistrationTx(ctx context.Context, reg *model.Registration) (int, int, error)
	GetRegistrationByID(ctx context.Context, id int) (*model.Registration, error)
	ListRegistrations(ctx context.Context, search string, limit, offset int) ([]model.Registration, error)
	ListRegistrationsWithPhotos(ctx context.Context) ([]model.Registration, error)
	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) Ping(ctx context.Context) error {
	return r.db.Master.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

func (r *repository) CreateCollege(ctx context.Context, name string) (int, error) {
	query := `
		INSERT INTO colleges (name)
		VALUES ($1)
		RETURNING id
	`

	var id int
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateCollege
		}
		return 0, fmt.Errorf("failed to insert college: %w", err)
	}
	return id, nil
}

func (r *repository) GetCollegeByID(ctx context.Context, id int) (*model.College, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM colleges WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var c model.College
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCollegeNotFound
		}
		return nil, fmt.Errorf("failed to get college: %w", err)
	}
	return &c, nil
}

// GetOrCreateCollegeByName inserts the college if the name is new and
// returns the existing row otherwise. The unique index on colleges.name
// plus ON CONFLICT DO NOTHING makes concurrent submissions of the same new
// name converge on one row.
func (r *repository) GetOrCreateCollegeByName(ctx context.Context, name string) (*model.College, error) {
	insert := `
		INSERT INTO colleges (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at, updated_at
	`

	var c model.College
	err := r.db.QueryRowContext(ctx, insert, name).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to insert college: %w", err)
	}

	query := `
		SELECT id, name, created_at, updated_at
		FROM colleges WHERE name = $1
	`
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to select college after conflict: %w", err)
	}
	return &c, nil
}

func (r *repository) SearchColleges(ctx context.Context, search string, limit, offset int) ([]model.College, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM colleges
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search colleges: %w", err)
	}
	defer rows.Close()

	var colleges []model.College
	for rows.Next() {
		var c model.College
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan college: %w", err)
		}
		colleges = append(colleges, c)
	}

	return colleges, rows.Err()
}

func (r *repository) CollegeHasRegistration(ctx context.Context, collegeID int) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM registrations WHERE college_id = $1)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, collegeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check college registration: %w", err)
	}
	return exists, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM registrations WHERE email = $1)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// CreateRegistrationTx re-runs the duplicate checks and inserts the row in
// one transaction. The badge number comes from event_seq inside the insert
// statement, so concurrent submissions can never collide on event_id.
func (r *repository) CreateRegistrationTx(ctx context.Context, reg *model.Registration) (int, int, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM registrations WHERE email = $1)
	`, reg.Email).Scan(&exists)
	if err != nil {
		_ = tx.Rollback()
		return 0, 0, fmt.Errorf("failed to check duplicate email: %w", err)
	}
	if exists {
		_ = tx.Rollback()
		return 0, 0, ErrDuplicateEmail
	}

	if reg.CollegeID != nil {
		var taken bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM registrations WHERE college_id = $1)
		`, *reg.CollegeID).Scan(&taken)
		if err != nil {
			_ = tx.Rollback()
			return 0, 0, fmt.Errorf("failed to check college registration: %w", err)
		}
		if taken {
			_ = tx.Rollback()
			return 0, 0, ErrCollegeTaken
		}
	}

	var id, eventID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations
			(name, designation, college_id, committee_member, phone, email,
			 photo, reason, research_paper, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, nextval('event_seq'))
		RETURNING id, event_id
	`,
		reg.Name, string(reg.Designation), reg.CollegeID, reg.CommitteeMember,
		reg.Phone, reg.Email, reg.Photo, reg.Reason, reg.ResearchPaper,
	).Scan(&id, &eventID)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return 0, 0, ErrDuplicateEmail
		}
		return 0, 0, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, eventID, nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id int) (*model.Registration, error) {
	query := `
		SELECT r.id, r.name, r.designation, r.college_id, r.committee_member,
		       r.phone, r.email, r.photo, r.reason, r.research_paper,
		       r.event_id, r.created_at, r.updated_at,
		       COALESCE(c.name, '')
		FROM registrations r
		LEFT JOIN colleges c ON c.id = r.college_id
		WHERE r.id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var reg model.Registration
	if err := row.Scan(
		&reg.ID,
		&reg.Name,
		&reg.Designation,
		&reg.CollegeID,
		&reg.CommitteeMember,
		&reg.Phone,
		&reg.Email,
		&reg.Photo,
		&reg.Reason,
		&reg.ResearchPaper,
		&reg.EventID,
		&reg.CreatedAt,
		&reg.UpdatedAt,
		&reg.CollegeName,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	return &reg, nil
}

// ListRegistrations returns the admin listing view. Blob columns are left
// out, only a has-paper flag is derived, so pages stay small.
func (r *repository) ListRegistrations(ctx context.Context, search string, limit, offset int) ([]model.Registration, error) {
	query := `
		SELECT r.id, r.name, r.designation, r.college_id, r.committee_member,
		       r.phone, r.email, r.reason,
		       (r.research_paper IS NOT NULL),
		       r.event_id, r.created_at, r.updated_at,
		       COALESCE(c.name, '')
		FROM registrations r
		LEFT JOIN colleges c ON c.id = r.college_id
		WHERE ($1 = '' OR r.name ILIKE '%' || $1 || '%')
		ORDER BY r.event_id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID,
			&reg.Name,
			&reg.Designation,
			&reg.CollegeID,
			&reg.CommitteeMember,
			&reg.Phone,
			&reg.Email,
			&reg.Reason,
			&reg.HasPaper,
			&reg.EventID,
			&reg.CreatedAt,
			&reg.UpdatedAt,
			&reg.CollegeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}

// ListRegistrationsWithPhotos loads every registration including the photo
// blob, for roster PDF rendering only.
func (r *repository) ListRegistrationsWithPhotos(ctx context.Context) ([]model.Registration, error) {
	query := `
		SELECT r.id, r.name, r.designation, r.phone, r.email, r.reason,
		       r.photo, r.event_id, COALESCE(c.name, '')
		FROM registrations r
		LEFT JOIN colleges c ON c.id = r.college_id
		ORDER BY r.event_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID,
			&reg.Name,
			&reg.Designation,
			&reg.Phone,
			&reg.Email,
			&reg.Reason,
			&reg.Photo,
			&reg.EventID,
			&reg.CollegeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}

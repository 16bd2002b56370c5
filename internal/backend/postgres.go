package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"regportal/internal/domain"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS students (
	student_id         TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	email              TEXT NOT NULL,
	phone              TEXT NOT NULL,
	department         TEXT NOT NULL,
	parent_name        TEXT NOT NULL,
	parent_email       TEXT NOT NULL,
	parent_phone       TEXT NOT NULL,
	dob                TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	has_photo          BOOLEAN NOT NULL DEFAULT FALSE,
	application_number TEXT,
	photo_url          TEXT NOT NULL DEFAULT '',
	registered_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	documents          JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE UNIQUE INDEX IF NOT EXISTS students_email_idx ON students (LOWER(email));
CREATE UNIQUE INDEX IF NOT EXISTS students_phone_idx ON students (REGEXP_REPLACE(phone, '\s', '', 'g'));
CREATE INDEX IF NOT EXISTS students_department_idx ON students (department);

CREATE TABLE IF NOT EXISTS admins (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	department    TEXT,
	permissions   JSONB NOT NULL DEFAULT '[]'::jsonb,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_by    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS admins_email_idx ON admins (LOWER(email));
`

// PostgresStore persists the backend in Postgres through database/sql and
// the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables when missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrate")
}

func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return errors.Wrap(err, what)
}

func (p *PostgresStore) CreateStudent(ctx context.Context, r StudentRecord) error {
	docs, err := json.Marshal(r.Documents)
	if err != nil {
		return errors.Wrap(err, "encode documents")
	}
	if r.Documents == nil {
		docs = []byte("{}")
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO students (student_id, name, email, phone, department, parent_name, parent_email, parent_phone, dob, status, has_photo, registered_at, documents)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, r.StudentID, r.Name, r.Email, r.Phone, r.Department, r.ParentName, r.ParentEmail, r.ParentPhone, r.DOB,
		string(r.Status), r.HasPhoto, r.RegisteredAt, string(docs))
	return mapErr(err, "insert student")
}

const studentColumns = `student_id, name, email, phone, department, parent_name, parent_email, parent_phone, dob, status, has_photo, application_number, photo_url, registered_at, documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (StudentRecord, error) {
	var (
		r      StudentRecord
		status string
		appNo  sql.NullString
		docs   []byte
	)
	if err := row.Scan(&r.StudentID, &r.Name, &r.Email, &r.Phone, &r.Department, &r.ParentName, &r.ParentEmail,
		&r.ParentPhone, &r.DOB, &status, &r.HasPhoto, &appNo, &r.PhotoURL, &r.RegisteredAt, &docs); err != nil {
		return StudentRecord{}, err
	}
	r.Status = domain.ParseStudentStatus(status)
	if appNo.Valid {
		v := appNo.String
		r.ApplicationNumber = &v
	}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &r.Documents); err != nil {
			return StudentRecord{}, errors.Wrap(err, "decode documents")
		}
	}
	r.RegisteredAt = r.RegisteredAt.UTC()
	return r, nil
}

func (p *PostgresStore) GetStudent(ctx context.Context, id string) (StudentRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = $1`, id)
	r, err := scanStudent(row)
	return r, mapErr(err, "select student")
}

func (p *PostgresStore) ListStudents(ctx context.Context) ([]StudentRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY registered_at, student_id`)
	if err != nil {
		return nil, mapErr(err, "list students")
	}
	defer rows.Close()
	var res []StudentRecord
	for rows.Next() {
		r, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan student")
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (p *PostgresStore) exec(ctx context.Context, what, query string, args ...any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) SetStatus(ctx context.Context, id string, status domain.StudentStatus) error {
	return p.exec(ctx, "update status", `UPDATE students SET status = $2 WHERE student_id = $1`, id, string(status))
}

func (p *PostgresStore) SetPhoto(ctx context.Context, id, applicationNumber, photoURL string) error {
	return p.exec(ctx, "update photo", `
		UPDATE students
		SET has_photo = TRUE, photo_url = $3, application_number = COALESCE(application_number, $2)
		WHERE student_id = $1
	`, id, applicationNumber, photoURL)
}

func (p *PostgresStore) SaveDocuments(ctx context.Context, id string, docs domain.DocumentMap) error {
	b, err := json.Marshal(docs)
	if err != nil {
		return errors.Wrap(err, "encode documents")
	}
	return p.exec(ctx, "update documents", `UPDATE students SET documents = $2 WHERE student_id = $1`, id, string(b))
}

func (p *PostgresStore) CreateAdmin(ctx context.Context, a AdminRecord) error {
	perms, err := json.Marshal(a.Permissions)
	if err != nil {
		return errors.Wrap(err, "encode permissions")
	}
	if a.Permissions == nil {
		perms = []byte("[]")
	}
	createdAt := time.Now().UTC()
	if t, ok := domain.ParseTimestamp(a.CreatedAt); ok {
		createdAt = t
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO admins (id, name, email, password_hash, role, department, permissions, is_active, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), a.Department, string(perms), a.IsActive, a.CreatedBy, createdAt)
	return mapErr(err, "insert admin")
}

const adminColumns = `id, name, email, password_hash, role, department, permissions, is_active, created_by, created_at`

func scanAdmin(row scanner) (AdminRecord, error) {
	var (
		a         AdminRecord
		role      string
		dept      sql.NullString
		perms     []byte
		createdAt time.Time
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &dept, &perms, &a.IsActive, &a.CreatedBy, &createdAt); err != nil {
		return AdminRecord{}, err
	}
	a.Role = domain.AdminRole(role)
	if dept.Valid {
		v := dept.String
		a.Department = &v
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &a.Permissions); err != nil {
			return AdminRecord{}, errors.Wrap(err, "decode permissions")
		}
	}
	a.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return a, nil
}

func (p *PostgresStore) AdminByEmail(ctx context.Context, email string) (AdminRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE LOWER(email) = LOWER($1)`, normalizeEmail(email))
	a, err := scanAdmin(row)
	return a, mapErr(err, "select admin")
}

func (p *PostgresStore) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY email`)
	if err != nil {
		return nil, mapErr(err, "list admins")
	}
	defer rows.Close()
	var res []domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan admin")
		}
		res = append(res, a.Admin)
	}
	return res, rows.Err()
}

func (p *PostgresStore) DeleteAdmin(ctx context.Context, id string) error {
	return p.exec(ctx, "delete admin", `DELETE FROM admins WHERE id = $1`, id)
}

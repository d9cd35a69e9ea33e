// Package postgres provides the PostgreSQL Store implementation.
//
// Ownership checks are pushed into SQL: mutating statements carry a
// WHERE owner_login = $n clause, so a zero-row result distinguishes
// "owned by another user" from plain success without a separate lookup.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/pkg/group"
	"github.com/exemee/Laba8-server/pkg/store"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Database       string        `mapstructure:"database"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MaxConns       int32         `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DSN renders the config as a pgx connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// PostgresStore implements store.Store on a pgxpool connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and runs schema migration.
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("Connected to postgres at %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return s, nil
}

func (s *PostgresStore) ValidateUser(ctx context.Context, login, password string) (bool, error) {
	var hash []byte
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM users WHERE login = $1`, login).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select user: %w", err)
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil, nil
}

func (s *PostgresStore) UserExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE login = $1)`, login).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AddUser(ctx context.Context, login, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2)`, login, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrLoginTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddGroup(ctx context.Context, g *group.Group, owner string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO study_groups (
			name, coord_x, coord_y, creation_date, students_count,
			form_of_education, semester,
			admin_name, admin_weight, admin_eye_color, admin_hair_color, admin_nationality,
			owner_login
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		g.Name, g.Coordinates.X, g.Coordinates.Y, g.CreationDate, g.StudentsCount,
		string(g.FormOfEducation), string(g.Semester),
		g.GroupAdmin.Name, g.GroupAdmin.Weight, string(g.GroupAdmin.EyeColor),
		string(g.GroupAdmin.HairColor), string(g.GroupAdmin.Nationality),
		owner,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateByID(ctx context.Context, g *group.Group, id int, owner string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE study_groups SET
			name = $1, coord_x = $2, coord_y = $3, students_count = $4,
			form_of_education = $5, semester = $6,
			admin_name = $7, admin_weight = $8, admin_eye_color = $9,
			admin_hair_color = $10, admin_nationality = $11
		WHERE id = $12 AND owner_login = $13`,
		g.Name, g.Coordinates.X, g.Coordinates.Y, g.StudentsCount,
		string(g.FormOfEducation), string(g.Semester),
		g.GroupAdmin.Name, g.GroupAdmin.Weight, string(g.GroupAdmin.EyeColor),
		string(g.GroupAdmin.HairColor), string(g.GroupAdmin.Nationality),
		id, owner,
	)
	if err != nil {
		return false, fmt.Errorf("update group %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) RemoveByID(ctx context.Context, id int, owner string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM study_groups WHERE id = $1 AND owner_login = $2`, id, owner)
	if err != nil {
		return false, fmt.Errorf("delete group %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ClearOwnedBy(ctx context.Context, owner string) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM study_groups WHERE owner_login = $1 RETURNING id`, owner)
	if err != nil {
		return nil, fmt.Errorf("clear groups of %s: %w", owner, err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (s *PostgresStore) IDsOwnedBy(ctx context.Context, owner string) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM study_groups WHERE owner_login = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("select ids of %s: %w", owner, err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (s *PostgresStore) Ownership(ctx context.Context) (map[int]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, owner_login FROM study_groups`)
	if err != nil {
		return nil, fmt.Errorf("select ownership: %w", err)
	}
	defer rows.Close()

	owners := make(map[int]string)
	for rows.Next() {
		var (
			id    int
			login string
		)
		if err := rows.Scan(&id, &login); err != nil {
			return nil, fmt.Errorf("scan ownership row: %w", err)
		}
		owners[id] = login
	}
	return owners, rows.Err()
}

func (s *PostgresStore) LoadGroups(ctx context.Context) ([]*group.Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, coord_x, coord_y, creation_date, students_count,
		       form_of_education, semester,
		       admin_name, admin_weight, admin_eye_color, admin_hair_color, admin_nationality
		FROM study_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	var groups []*group.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanGroup(rows pgx.Rows) (*group.Group, error) {
	var (
		g                                 group.Group
		form, sem, eye, hair, nationality string
	)
	err := rows.Scan(
		&g.ID, &g.Name, &g.Coordinates.X, &g.Coordinates.Y, &g.CreationDate,
		&g.StudentsCount, &form, &sem,
		&g.GroupAdmin.Name, &g.GroupAdmin.Weight, &eye, &hair, &nationality,
	)
	if err != nil {
		return nil, fmt.Errorf("scan group row: %w", err)
	}
	g.FormOfEducation = group.FormOfEducation(form)
	g.Semester = group.Semester(sem)
	g.GroupAdmin.EyeColor = group.Color(eye)
	g.GroupAdmin.HairColor = group.Color(hair)
	g.GroupAdmin.Nationality = group.Country(nationality)
	return &g, nil
}

func scanIDs(rows pgx.Rows) ([]int, error) {
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// isUniqueViolation reports whether err is a 23505 unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"jot/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

var noteColumns = []string{"id", "user_id", "content", "created_at"}

// Store persists users and their notes. Every note query is scoped by the
// owning user id.
type Store struct {
	db        *sql.DB
	sb        squirrel.StatementBuilderType
	returning bool
}

// New wraps db for driver "mysql" or "pgx".
func New(db *sql.DB, driver string) *Store {
	s := &Store{db: db, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)}
	if driver == "pgx" {
		s.sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		s.returning = true
	}
	return s
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	q := s.sb.Insert("users").Columns("email", "password_hash").Values(email, passwordHash)

	if s.returning {
		query, args, err := q.Suffix("RETURNING id, email, password_hash, created_at").ToSql()
		if err != nil {
			return models.User{}, fmt.Errorf("failed to build query: %w", err)
		}
		var u models.User
		err = s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
		if err != nil {
			return models.User{}, wrapWriteErr("create user", err)
		}
		return u, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to build query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.User{}, wrapWriteErr("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to read user id: %w", err)
	}
	return s.UserByID(ctx, id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.user(ctx, squirrel.Eq{"email": email})
}

func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	return s.user(ctx, squirrel.Eq{"id": id})
}

func (s *Store) user(ctx context.Context, where squirrel.Eq) (models.User, error) {
	query, args, err := s.sb.
		Select("id", "email", "password_hash", "created_at").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to build query: %w", err)
	}

	var u models.User
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Store) InsertNote(ctx context.Context, userID int64, content string) (models.Note, error) {
	q := s.sb.Insert("notes").Columns("user_id", "content").Values(userID, content)

	if s.returning {
		query, args, err := q.Suffix("RETURNING id, user_id, content, created_at").ToSql()
		if err != nil {
			return models.Note{}, fmt.Errorf("failed to build query: %w", err)
		}
		var n models.Note
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n.ID, &n.UserID, &n.Content, &n.CreatedAt); err != nil {
			return models.Note{}, wrapWriteErr("create note", err)
		}
		return n, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return models.Note{}, fmt.Errorf("failed to build query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Note{}, wrapWriteErr("create note", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Note{}, fmt.Errorf("failed to read note id: %w", err)
	}

	query, args, err = s.sb.Select(noteColumns...).From("notes").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return models.Note{}, fmt.Errorf("failed to build query: %w", err)
	}
	var n models.Note
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n.ID, &n.UserID, &n.Content, &n.CreatedAt); err != nil {
		return models.Note{}, fmt.Errorf("failed to read note %d: %w", id, err)
	}
	return n, nil
}

// ListNotes returns userID's notes by creation time, newest first unless
// newestFirst is false.
func (s *Store) ListNotes(ctx context.Context, userID int64, newestFirst bool) ([]models.Note, error) {
	order := "created_at DESC, id DESC"
	if !newestFirst {
		order = "created_at ASC, id ASC"
	}

	query, args, err := s.sb.Select(noteColumns...).
		From("notes").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy(order).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0, 16)
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteNote removes note id only if it belongs to userID and reports how
// many rows went away.
func (s *Store) DeleteNote(ctx context.Context, id, userID int64) (int64, error) {
	query, args, err := s.sb.Delete("notes").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete note %d for user %d: %w", id, userID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func wrapWriteErr(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

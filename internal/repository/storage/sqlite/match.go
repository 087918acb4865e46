package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
)

var _ repository.MatchRepository = (*matchStore)(nil)

type matchStore struct {
	db *sql.DB
}

func NewMatchRepository(storage *Storage) repository.MatchRepository {
	return &matchStore{
		db: storage.Connection,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (that *matchStore) Create(ctx context.Context, match *entity.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	_, err = that.db.ExecContext(ctx,
		`INSERT INTO matches (id, code, status, version, last_activity, data) VALUES (?, ?, ?, ?, ?, ?)`,
		match.ID, match.Code, string(match.Status), match.Version, unixMillis(match.LastActivity), string(data),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", apperror.ErrCodeTaken, match.Code)
	}

	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	return nil
}

func (that *matchStore) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	return scanMatch(that.db.QueryRowContext(ctx, `SELECT data FROM matches WHERE id = ?`, id))
}

func (that *matchStore) GetByCode(ctx context.Context, code string) (*entity.Match, error) {
	return scanMatch(that.db.QueryRowContext(ctx, `SELECT data FROM matches WHERE code = ?`, code))
}

func (that *matchStore) Update(ctx context.Context, match *entity.Match) error {
	next := *match
	next.Version = match.Version + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	result, err := that.db.ExecContext(ctx,
		`UPDATE matches SET status = ?, version = ?, last_activity = ?, data = ? WHERE id = ? AND version = ?`,
		string(next.Status), next.Version, unixMillis(next.LastActivity), string(data), match.ID, match.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	if affected == 0 {
		var exists int

		err = that.db.QueryRowContext(ctx, `SELECT 1 FROM matches WHERE id = ?`, match.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrMatchNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to update match: %w", err)
		}

		return apperror.ErrStaleWrite
	}

	match.Version = next.Version

	return nil
}

func (that *matchStore) DeleteByID(ctx context.Context, id string) error {
	result, err := that.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match by ID: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete match by ID: %w", err)
	}

	if affected == 0 {
		return repository.ErrMatchNotFound
	}

	return nil
}

func (that *matchStore) List(ctx context.Context) ([]*entity.Match, error) {
	rows, err := that.db.QueryContext(ctx, `SELECT data FROM matches ORDER BY last_activity, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*entity.Match

	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}

		matches = append(matches, match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	return matches, nil
}

func scanMatch(row rowScanner) (*entity.Match, error) {
	var data string

	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read match: %w", err)
	}

	var match entity.Match
	if err = json.Unmarshal([]byte(data), &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	if err = match.Board.Validate(); err != nil {
		return nil, err
	}

	return &match, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

var ErrMatchNotFound = fmt.Errorf("match %w", apperror.ErrNotFound)

const matchIndexKey = "matches"

// MatchRepository persists match session records.
// Update is a compare-and-set on Version: it fails with apperror.ErrStaleWrite when the stored
// record was changed since it was loaded, and bumps Version on success.
type MatchRepository interface {
	Create(ctx context.Context, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	GetByCode(ctx context.Context, code string) (*entity.Match, error)
	Update(ctx context.Context, match *entity.Match) error
	DeleteByID(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entity.Match, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

func matchKey(id string) string {
	return "match:" + id
}

func codeKey(code string) string {
	return "match:code:" + code
}

func (that *dbMatch) Create(ctx context.Context, match *entity.Match) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	claimed, err := that.client.SetNX(ctx, codeKey(match.Code), match.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim join code: %w", err)
	}

	if !claimed {
		return fmt.Errorf("%w: %s", apperror.ErrCodeTaken, match.Code)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(match.ID), matchJSON, 0)
		pipe.SAdd(ctx, matchIndexKey, match.ID)
		return nil
	})
	if err != nil {
		that.client.Del(ctx, codeKey(match.Code))
		return fmt.Errorf("failed to set match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	response, err := that.client.Get(ctx, matchKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}

	return decodeMatch(response)
}

func (that *dbMatch) GetByCode(ctx context.Context, code string) (*entity.Match, error) {
	id, err := that.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve join code: %w", err)
	}

	return that.GetByID(ctx, id)
}

func (that *dbMatch) Update(ctx context.Context, match *entity.Match) error {
	key := matchKey(match.ID)
	expected := match.Version

	next := *match
	next.Version = expected + 1

	matchJSON, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrMatchNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to read match: %w", err)
		}

		var probe struct {
			Version int64 `json:"version"`
		}
		if err = json.Unmarshal(stored, &probe); err != nil {
			return fmt.Errorf("failed to unmarshal match version: %w", err)
		}

		if probe.Version != expected {
			return apperror.ErrStaleWrite
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, matchJSON, 0)
			return nil
		})

		return err
	}

	err = that.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrStaleWrite
	}

	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	match.Version = next.Version

	return nil
}

func (that *dbMatch) DeleteByID(ctx context.Context, id string) error {
	match, err := that.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, matchKey(id))
		pipe.Del(ctx, codeKey(match.Code))
		pipe.SRem(ctx, matchIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete match by ID: %w", err)
	}

	return nil
}

func (that *dbMatch) List(ctx context.Context) ([]*entity.Match, error) {
	ids, err := that.client.SMembers(ctx, matchIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list match ids: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}

	matches := make([]*entity.Match, 0, len(values))

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry outlived its record
			that.client.SRem(ctx, matchIndexKey, ids[i])
			continue
		}

		match, err := decodeMatch([]byte(raw))
		if err != nil {
			return nil, err
		}

		matches = append(matches, match)
	}

	return matches, nil
}

func decodeMatch(data []byte) (*entity.Match, error) {
	var match entity.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	if err := match.Board.Validate(); err != nil {
		return nil, err
	}

	return &match, nil
}

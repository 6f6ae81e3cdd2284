package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"engrave-queue/internal/domain"
)

type TokenRepositoryInterface interface {
	Upsert(ctx context.Context, userID, token string) error
	// Latest returns the most recently used token of the user.
	Latest(ctx context.Context, userID string) (domain.PushToken, bool, error)
	Touch(ctx context.Context, userID, token string) error
	Delete(ctx context.Context, userID, token string) error
}

type TokenRepository struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) TokenRepositoryInterface {
	return &TokenRepository{db: db}
}

func (tr *TokenRepository) Upsert(ctx context.Context, userID, token string) error {
	if _, err := tr.db.Exec(ctx, `
		INSERT INTO user_tokens (user_id, token, created_at, last_used)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (user_id, token) DO UPDATE SET last_used = now()`, userID, token); err != nil {
		return fmt.Errorf("failed to save push token: %w", err)
	}
	return nil
}

func (tr *TokenRepository) Latest(ctx context.Context, userID string) (domain.PushToken, bool, error) {
	var t domain.PushToken
	err := tr.db.QueryRow(ctx, `
		SELECT user_id, token, created_at, last_used
		FROM user_tokens
		WHERE user_id = $1
		ORDER BY last_used DESC
		LIMIT 1`, userID).Scan(&t.UserID, &t.Token, &t.CreatedAt, &t.LastUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PushToken{}, false, nil
	}
	if err != nil {
		return domain.PushToken{}, false, fmt.Errorf("failed to load push token: %w", err)
	}
	return t, true, nil
}

func (tr *TokenRepository) Touch(ctx context.Context, userID, token string) error {
	if _, err := tr.db.Exec(ctx,
		`UPDATE user_tokens SET last_used = now() WHERE user_id = $1 AND token = $2`, userID, token); err != nil {
		return fmt.Errorf("failed to touch push token: %w", err)
	}
	return nil
}

func (tr *TokenRepository) Delete(ctx context.Context, userID, token string) error {
	if _, err := tr.db.Exec(ctx,
		`DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`, userID, token); err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}
	return nil
}

package repository

import "github.com/jackc/pgx/v5/pgxpool"

type Repository struct {
	NotificationRepo NotificationRepositoryInterface
	TokenRepo        TokenRepositoryInterface
}

func New(db *pgxpool.Pool) *Repository {
	return &Repository{
		NotificationRepo: NewNotificationRepository(db),
		TokenRepo:        NewTokenRepository(db),
	}
}

package ports

import (
	"context"

	"clipstream/internal/domain"
)

type WatchHistoryRepository interface {
	Upsert(ctx context.Context, wp domain.WatchPosition) error
	Get(ctx context.Context, id domain.VideoID) (domain.WatchPosition, error)
	ListRecent(ctx context.Context, limit int) ([]domain.WatchPosition, error)
}

type PlayerSettingsRepository interface {
	Get(ctx context.Context) (domain.PlayerSettings, bool, error)
	Set(ctx context.Context, settings domain.PlayerSettings) error
}

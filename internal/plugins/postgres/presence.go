package postgres

import (
	"context"
	"database/sql"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

type PresenceRepo struct {
	db *sql.DB
}

func NewPresenceRepository(db *sql.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

var _ domain.PresenceRepository = (*PresenceRepo)(nil)

func (r *PresenceRepo) Upsert(ctx context.Context, state *domain.PresenceState) error {
	if state.UserID == "" {
		return domain.ErrInvalidUserID
	}
	query := `
		INSERT INTO presence_states (user_id, status, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET status = EXCLUDED.status, last_seen_at = EXCLUDED.last_seen_at`
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query, state.UserID, string(state.Status), state.LastSeen)
	return err
}

func (r *PresenceRepo) Get(ctx context.Context, userID string) (*domain.PresenceState, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	state := &domain.PresenceState{UserID: userID}
	var status string
	query := `SELECT status, last_seen_at FROM presence_states WHERE user_id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, userID).Scan(&status, &state.LastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPresenceNotFound
		}
		return nil, err
	}
	state.Status = domain.PresenceStatus(status)
	return state, nil
}

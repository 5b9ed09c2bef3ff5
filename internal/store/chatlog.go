package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"applicant-screening/internal/common/database"
	"applicant-screening/internal/models"

	"github.com/google/uuid"
)

// ChatLogRepository is the append-only conversation log.
type ChatLogRepository struct {
	db *database.PostgresClient
}

func NewChatLogRepository(db *database.PostgresClient) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

func (r *ChatLogRepository) Append(ctx context.Context, entry *models.ChatLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := r.db.DB.ExecContext(ctx, `
		INSERT INTO chat_log (id, user_id, message, sender, stage, created_at, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.Message, string(entry.Sender), string(entry.Stage), entry.Timestamp, entry.Seq,
	)
	if err != nil {
		return fmt.Errorf("%w: append chat log: %v", ErrQueryFailed, err)
	}
	return nil
}

// Latest returns the newest entry timestamp for userID, or the zero time
// when the applicant has no log yet.
func (r *ChatLogRepository) Latest(ctx context.Context, userID string) (time.Time, error) {
	var ts sql.NullTime
	if err := r.db.DB.QueryRowContext(ctx, `SELECT MAX(created_at) FROM chat_log WHERE user_id = $1`, userID).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}

// History returns the most recent limit entries in display order.
func (r *ChatLogRepository) History(ctx context.Context, userID string, limit int) ([]models.ChatLogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, user_id, message, sender, stage, created_at, seq
		FROM (
			SELECT id, user_id, message, sender, stage, created_at, seq
			FROM chat_log
			WHERE user_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []models.ChatLogEntry
	for rows.Next() {
		var e models.ChatLogEntry
		var sender, stage string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &sender, &stage, &e.Timestamp, &e.Seq); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		e.Sender = models.Sender(sender)
		e.Stage = models.Stage(stage)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return out, nil
}

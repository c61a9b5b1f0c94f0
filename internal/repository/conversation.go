package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestbank/teller/internal/domain"
)

// ConversationRepository persists conversation turns. Ordering within a
// conversation is the insertion order of the bigserial primary key.
type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

// AppendTurn records one completed exchange for a conversation.
func (r *ConversationRepository) AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversation_turns (conversation_id, user_text, ai_text, created_at)
		 VALUES ($1, $2, $3, $4)`,
		conversationID, turn.UserText, turn.AIText, createdAt,
	)
	return err
}

// ListTurns returns a conversation's turns oldest first. An unknown
// conversation id yields an empty history, not an error.
func (r *ConversationRepository) ListTurns(ctx context.Context, conversationID string) ([]domain.Turn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_text, ai_text, created_at
		 FROM conversation_turns WHERE conversation_id = $1 ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.UserText, &t.AIText, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

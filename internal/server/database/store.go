package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultTier is the tier of accounts that were never upgraded.
const DefaultTier = "FREE"

// ErrUnknownResponse is returned when a history lookup names a response id
// that is not part of the conversation.
var ErrUnknownResponse = errors.New("unknown response id")

// Turn is one generated step, hint or instruction hint.
type Turn struct {
	AccountID      string
	ConversationID string
	ResponseID     string
	Step           int
	Mode           string
	Prompt         string
	Content        string
	CreatedAt      time.Time
}

// Store provides typed queries over DB.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store over db.
func NewStore(db *DB) *Store {
	return &Store{db: db.DB}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetTier returns the tier of accountID, DefaultTier for unknown accounts.
func (s *Store) GetTier(ctx context.Context, accountID string) (string, error) {
	var tier string
	err := s.db.QueryRowContext(ctx,
		`SELECT tier FROM accounts WHERE id = ?`, accountID).Scan(&tier)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultTier, nil
	}
	if err != nil {
		return "", fmt.Errorf("get tier: %w", err)
	}
	return tier, nil
}

// SetTier creates or updates accountID with tier.
func (s *Store) SetTier(ctx context.Context, accountID, tier string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, tier) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET tier = excluded.tier, updated_at = CURRENT_TIMESTAMP
	`, accountID, tier)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	return nil
}

// AppendTurn records a completed turn.
func (s *Store) AppendTurn(ctx context.Context, t Turn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tutorial_turns
			(account_id, conversation_id, response_id, step, mode, prompt, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.AccountID, t.ConversationID, t.ResponseID, t.Step, t.Mode, t.Prompt, t.Content)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// History returns the turns of conversationID up to and including
// previousResponseID, oldest first. An empty previousResponseID yields no
// history: the conversation starts fresh.
func (s *Store) History(ctx context.Context, accountID, conversationID, previousResponseID string) ([]Turn, error) {
	if previousResponseID == "" {
		return nil, nil
	}

	var lastSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT seq FROM tutorial_turns
		WHERE response_id = ? AND conversation_id = ? AND account_id = ?
	`, previousResponseID, conversationID, accountID).Scan(&lastSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResponse, previousResponseID)
	}
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, conversation_id, response_id, step, mode, prompt, content, created_at
		FROM tutorial_turns
		WHERE conversation_id = ? AND account_id = ? AND seq <= ?
		ORDER BY seq ASC
	`, conversationID, accountID, lastSeq)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.AccountID, &t.ConversationID, &t.ResponseID,
			&t.Step, &t.Mode, &t.Prompt, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

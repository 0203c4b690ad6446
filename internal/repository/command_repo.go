package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/autito-icc/relay/internal/model"
)

// CommandRepository journals commands for operator review.
type CommandRepository struct {
	db *sql.DB
}

// NewCommandRepository creates a new CommandRepository.
func NewCommandRepository(db *sql.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

// Create inserts a command into the journal.
func (r *CommandRepository) Create(ctx context.Context, cmd *model.Command) error {
	query := `
		INSERT INTO commands (id, directive, raw, speed, turn, duration, source, outcome, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		cmd.ID,
		cmd.Directive,
		cmd.Raw,
		cmd.Speed,
		cmd.Turn,
		cmd.Duration,
		cmd.Source,
		cmd.Outcome,
		cmd.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create command: %w", err)
	}

	return nil
}

// GetByID retrieves a command by its ID.
func (r *CommandRepository) GetByID(ctx context.Context, id string) (*model.Command, error) {
	query := `
		SELECT id, directive, raw, speed, turn, duration, source, outcome, received_at
		FROM commands
		WHERE id = ?
	`

	cmd, err := scanCommand(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, model.ErrCommandNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get command: %w", err)
	}

	return cmd, nil
}

// ListRecent retrieves the newest commands, newest first.
func (r *CommandRepository) ListRecent(ctx context.Context, limit int) ([]*model.Command, error) {
	query := `
		SELECT id, directive, raw, speed, turn, duration, source, outcome, received_at
		FROM commands
		ORDER BY received_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	defer rows.Close()

	var commands []*model.Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		commands = append(commands, cmd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commands: %w", err)
	}

	return commands, nil
}

// Count returns the number of journaled commands.
func (r *CommandRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count commands: %w", err)
	}

	return count, nil
}

// Handle journals the command. It lets the repository act as a command sink.
func (r *CommandRepository) Handle(ctx context.Context, cmd *model.Command) error {
	return r.Create(ctx, cmd)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(row rowScanner) (*model.Command, error) {
	cmd := &model.Command{}
	var speed, turn, duration sql.NullInt64
	var source, outcome string

	err := row.Scan(
		&cmd.ID,
		&cmd.Directive,
		&cmd.Raw,
		&speed,
		&turn,
		&duration,
		&source,
		&outcome,
		&cmd.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	cmd.Source = model.CommandSource(source)
	cmd.Outcome = model.CommandOutcome(outcome)
	cmd.Speed = nullIntPtr(speed)
	cmd.Turn = nullIntPtr(turn)
	cmd.Duration = nullIntPtr(duration)

	return cmd, nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

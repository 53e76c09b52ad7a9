package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
	"github.com/crosslane/bridge_service/internal/domain/repositories"
)

type BridgeEventRepository struct {
	db *sqlx.DB
}

func NewBridgeEventRepository(db *sqlx.DB) *BridgeEventRepository {
	return &BridgeEventRepository{db: db}
}

func (r *BridgeEventRepository) Create(ctx context.Context, event *entities.BridgeEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		details = []byte("{}")
	}

	query := `
		INSERT INTO bridge_events (id, event_type, actor, subject, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Type, event.Actor, event.Subject, details, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bridge event: %w", err)
	}
	return nil
}

func (r *BridgeEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.BridgeEvent, error) {
	query := `SELECT id, event_type, actor, subject, details, created_at FROM bridge_events WHERE id = $1`

	var event entities.BridgeEvent
	var details []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID, &event.Type, &event.Actor, &event.Subject, &details, &event.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundError("bridge_event")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bridge event: %w", err)
	}

	if len(details) > 0 {
		json.Unmarshal(details, &event.Details)
	}
	return &event, nil
}

func buildEventFilter(sb *strings.Builder, filter repositories.BridgeEventFilter, args *[]interface{}) int {
	argIdx := 1
	if filter.Type != nil {
		sb.WriteString(fmt.Sprintf(" AND event_type = $%d", argIdx))
		*args = append(*args, *filter.Type)
		argIdx++
	}
	if filter.Actor != nil {
		sb.WriteString(fmt.Sprintf(" AND actor = $%d", argIdx))
		*args = append(*args, *filter.Actor)
		argIdx++
	}
	if filter.Subject != nil {
		sb.WriteString(fmt.Sprintf(" AND subject = $%d", argIdx))
		*args = append(*args, *filter.Subject)
		argIdx++
	}
	if filter.StartDate != nil {
		sb.WriteString(fmt.Sprintf(" AND created_at >= $%d", argIdx))
		*args = append(*args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		sb.WriteString(fmt.Sprintf(" AND created_at <= $%d", argIdx))
		*args = append(*args, *filter.EndDate)
		argIdx++
	}
	return argIdx
}

func (r *BridgeEventRepository) List(ctx context.Context, filter repositories.BridgeEventFilter) ([]*entities.BridgeEvent, error) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString(`SELECT id, event_type, actor, subject, details, created_at FROM bridge_events WHERE 1=1`)
	argIdx := buildEventFilter(&sb, filter, &args)

	sb.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argIdx))
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", argIdx))
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bridge events: %w", err)
	}
	defer rows.Close()

	var events []*entities.BridgeEvent
	for rows.Next() {
		var event entities.BridgeEvent
		var details []byte
		if err := rows.Scan(&event.ID, &event.Type, &event.Actor, &event.Subject, &details, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bridge event: %w", err)
		}
		if len(details) > 0 {
			json.Unmarshal(details, &event.Details)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

func (r *BridgeEventRepository) Count(ctx context.Context, filter repositories.BridgeEventFilter) (int64, error) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString(`SELECT COUNT(*) FROM bridge_events WHERE 1=1`)
	buildEventFilter(&sb, filter, &args)

	var count int64
	err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bridge events: %w", err)
	}
	return count, nil
}

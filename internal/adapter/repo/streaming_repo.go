package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaume768/splashmy/internal/domain"
)

// StreamingEventRepositoryPG implements domain.StreamingEventRepository.
type StreamingEventRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStreamingEventRepository creates a new StreamingEventRepositoryPG.
func NewStreamingEventRepository(pool *pgxpool.Pool) *StreamingEventRepositoryPG {
	return &StreamingEventRepositoryPG{pool: pool}
}

// Append stores one streaming event.
func (r *StreamingEventRepositoryPG) Append(ctx context.Context, ev *domain.StreamingEvent) error {
	query := `
INSERT INTO streaming_events (id, job_id, event_type, partial_index, metadata)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.pool.Exec(ctx, query, ev.ID, ev.JobID, ev.EventType, ev.PartialIndex, nullableBytes(ev.Metadata))
	return err
}

// ListByJob returns a job's events in arrival order.
func (r *StreamingEventRepositoryPG) ListByJob(ctx context.Context, jobID string) ([]domain.StreamingEvent, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, job_id, event_type, partial_index, metadata, received_at
FROM streaming_events
WHERE job_id = $1
ORDER BY received_at, partial_index NULLS FIRST;
`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.StreamingEvent
	for rows.Next() {
		var ev domain.StreamingEvent
		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.EventType, &ev.PartialIndex, &ev.Metadata, &ev.ReceivedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteByJob removes all events for a job.
func (r *StreamingEventRepositoryPG) DeleteByJob(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM streaming_events WHERE job_id = $1`, jobID)
	return err
}

var _ domain.StreamingEventRepository = (*StreamingEventRepositoryPG)(nil)

package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"lt-go/internal/model"
)

// DefaultRelayBatchSize caps outbox records processed per relay run.
const DefaultRelayBatchSize = 128

// SyncOutbox processes one batch of pending outbox records, oldest first:
// each payload is decoded, appended to the flat-file mirror, and marked
// processed. The first failure aborts the batch — records already marked
// processed in this batch stay processed and are never replayed. Returns
// the number of records processed.
func (s *Storage) SyncOutbox() (int, error) {
	ctx := context.Background()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload_json FROM json_outbox WHERE processed_at IS NULL ORDER BY created_at ASC LIMIT ?`,
		s.batch)
	if err != nil {
		return 0, fmt.Errorf("querying pending outbox: %w", err)
	}

	type record struct {
		id      string
		payload string
	}
	var pending []record
	for rows.Next() {
		var r record
		if err := rows.Scan(&r.id, &r.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning outbox record: %w", err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("reading pending outbox: %w", err)
	}
	rows.Close()

	processed := 0
	for _, r := range pending {
		var event model.Event
		if err := json.Unmarshal([]byte(r.payload), &event); err != nil {
			return processed, fmt.Errorf("decoding outbox payload %s: %w", r.id, err)
		}

		if err := s.mirror.AppendEvent(event.EnsureMetadata()); err != nil {
			return processed, fmt.Errorf("appending event %s to flat files: %w", r.id, err)
		}

		_, err := s.db.ExecContext(ctx,
			`UPDATE json_outbox SET processed_at = ? WHERE id = ?`,
			s.clock.Now().UnixMilli(), r.id)
		if err != nil {
			return processed, fmt.Errorf("marking outbox record %s processed: %w", r.id, err)
		}
		processed++
	}

	if processed > 0 {
		s.logger.Info("synced events to flat files", "plugin", PluginID, "count", processed)
	}
	return processed, nil
}

// PendingOutboxCount returns the number of outbox records not yet relayed.
func (s *Storage) PendingOutboxCount() (int64, error) {
	var n int64
	err := s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM json_outbox WHERE processed_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending outbox: %w", err)
	}
	return n, nil
}

// drainOutbox runs relay batches until the backlog is empty. A short final
// batch means nothing was pending behind it.
func (s *Storage) drainOutbox() error {
	for {
		n, err := s.SyncOutbox()
		if err != nil {
			return err
		}
		if n < s.batch {
			return nil
		}
	}
}

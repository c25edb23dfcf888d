// Package chatevent implements the append-only chat event log.
//
// chat_events is list-partitioned by channel id (0 for events without a channel)
// and each channel partition is range-partitioned by received_at. Partitions are
// created at runtime the first time an event lands in them, so new channels never
// need a migration.
package chatevent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo appends and reads chat events.
type Repo struct {
	db          postgres.DB
	tx          *postgres.TxManager
	granularity domain.PartitionGranularity

	mu    sync.RWMutex
	known map[string]struct{}
}

// New creates a new event repository. Time partitions are granularity wide.
func New(db postgres.DB, granularity domain.PartitionGranularity) *Repo {
	if !granularity.IsValid() {
		granularity = domain.GranularityMonth
	}
	return &Repo{
		db:          db,
		tx:          postgres.NewTxManager(db),
		granularity: granularity,
		known:       make(map[string]struct{}),
	}
}

// ---------------------------------------------------------------------------
// SQL
// ---------------------------------------------------------------------------

const insertSQL = `
INSERT INTO chat_events (id, event_type, protocol_message_id, message, channel_id, sender_user_id, tags, received_at)
VALUES ($1, $2::chat_event_type, $3, $4, $5, $6, $7, $8)
ON CONFLICT (channel_id, received_at, id) DO NOTHING`

func insertArgs(ev domain.ChatEvent) []any {
	tags := ev.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	return []any{
		ev.ID, string(ev.Type), ev.ProtocolMessageID, ev.Text,
		ev.PartitionChannel(), ev.SenderUserID, tags, ev.ReceivedAt.UTC().Truncate(time.Microsecond),
	}
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Append persists one event. Re-appending an event with the same
// (channel, received_at, id) is a no-op.
func (r *Repo) Append(ctx context.Context, ev domain.ChatEvent) error {
	return r.AppendBatch(ctx, []domain.ChatEvent{ev})
}

// AppendBatch persists events in one transaction, in slice order.
func (r *Repo) AppendBatch(ctx context.Context, events []domain.ChatEvent) error {
	if len(events) == 0 {
		return nil
	}

	err := r.appendOnce(ctx, events)
	if postgres.HasCode(err, postgres.CodeCheckViolation) {
		// A partition was dropped behind our cache.
		r.forget()
		err = r.appendOnce(ctx, events)
	}
	if err != nil {
		return fmt.Errorf("append %d events: %w", len(events), err)
	}
	return nil
}

func (r *Repo) appendOnce(ctx context.Context, events []domain.ChatEvent) error {
	for _, ev := range events {
		if err := r.EnsurePartition(ctx, ev.PartitionChannel(), ev.ReceivedAt); err != nil {
			return err
		}
	}

	if len(events) == 1 {
		_, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, insertSQL, insertArgs(events[0])...)
		return err
	}

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, ev := range events {
			batch.Queue(insertSQL, insertArgs(ev)...)
		}
		br := postgres.QuerierFromCtx(ctx, r.db).SendBatch(ctx, batch)
		for range events {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return err
			}
		}
		return br.Close()
	})
}

// ListEvents returns up to limit events of a channel received in [from, to),
// oldest first. Use domain.NoChannel for events without a channel.
func (r *Repo) ListEvents(ctx context.Context, channelID int32, from, to time.Time, limit int) ([]domain.ChatEvent, error) {
	sb := psql.Select(
		"id", "event_type::text AS event_type", "protocol_message_id", "message",
		"channel_id", "sender_user_id", "tags", "received_at",
	).
		From(rootTable).
		Where(squirrel.Eq{"channel_id": channelID}).
		Where("received_at >= ?", from).
		Where("received_at < ?", to).
		OrderBy("received_at", "id")
	if limit > 0 {
		sb = sb.Limit(uint64(limit))
	}

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events query: %w", err)
	}

	var rows []eventRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sqlStr, args...); err != nil {
		return nil, postgres.MapError(err, "chat events of channel", channelID)
	}

	out := make([]domain.ChatEvent, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

type eventRow struct {
	ID                uuid.UUID         `db:"id"`
	EventType         string            `db:"event_type"`
	ProtocolMessageID *uuid.UUID        `db:"protocol_message_id"`
	Message           *string           `db:"message"`
	ChannelID         int32             `db:"channel_id"`
	SenderUserID      *int32            `db:"sender_user_id"`
	Tags              map[string]string `db:"tags"`
	ReceivedAt        time.Time         `db:"received_at"`
}

func (r eventRow) toDomain() domain.ChatEvent {
	ev := domain.ChatEvent{
		ID:                r.ID,
		Type:              domain.EventType(r.EventType),
		ProtocolMessageID: r.ProtocolMessageID,
		Text:              r.Message,
		SenderUserID:      r.SenderUserID,
		Tags:              r.Tags,
		ReceivedAt:        r.ReceivedAt.UTC(),
	}
	if r.ChannelID != domain.NoChannel {
		ch := r.ChannelID
		ev.ChannelID = &ch
	}
	if ev.Tags == nil {
		ev.Tags = map[string]string{}
	}
	return ev
}

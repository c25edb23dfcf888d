package chatevent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

const rootTable = "chat_events"

// partitionRange returns the UTC [start, end) range of the time partition containing t.
// Weeks start on Monday.
func partitionRange(g domain.PartitionGranularity, t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case domain.GranularityDay:
		return day, day.AddDate(0, 0, 1)
	case domain.GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	default:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
}

func channelTable(channelID int32) string {
	return rootTable + "_c" + strconv.FormatInt(int64(channelID), 10)
}

func timeTable(channelID int32, start time.Time) string {
	return channelTable(channelID) + "_" + start.Format("20060102")
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func literal(t time.Time) string {
	return "'" + t.UTC().Format("2006-01-02 15:04:05Z07:00") + "'"
}

func (r *Repo) isKnown(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.known[name]
	return ok
}

func (r *Repo) remember(name string) {
	r.mu.Lock()
	r.known[name] = struct{}{}
	r.mu.Unlock()
}

func (r *Repo) forget() {
	r.mu.Lock()
	r.known = make(map[string]struct{})
	r.mu.Unlock()
}

// EnsurePartition creates, if missing, the channel partition for channelID and the
// time partition covering at. Safe to call concurrently and from several processes.
func (r *Repo) EnsurePartition(ctx context.Context, channelID int32, at time.Time) error {
	start, end := partitionRange(r.granularity, at)
	parent := channelTable(channelID)
	name := timeTable(channelID, start)
	if r.isKnown(name) {
		return nil
	}

	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rootTable); err != nil {
			return fmt.Errorf("lock partitions: %w", err)
		}

		createChannel := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES IN (%d) PARTITION BY RANGE (received_at)`,
			ident(parent), ident(rootTable), channelID,
		)
		if _, err := q.Exec(ctx, createChannel); err != nil {
			return fmt.Errorf("create channel partition %s: %w", parent, err)
		}

		createTime := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM (%s) TO (%s)`,
			ident(name), ident(parent), literal(start), literal(end),
		)
		if _, err := q.Exec(ctx, createTime); err != nil {
			return fmt.Errorf("create time partition %s: %w", name, err)
		}

		if _, err := q.Exec(ctx, registerPartitionSQL, name, parent, channelID, start, end); err != nil {
			return fmt.Errorf("register partition %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.remember(name)
	return nil
}

const registerPartitionSQL = `
INSERT INTO chat_event_partitions (name, parent, channel_id, range_start, range_end)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO NOTHING`

type partitionRow struct {
	Name      string `db:"name"`
	Parent    string `db:"parent"`
	ChannelID int32  `db:"channel_id"`
}

// DropPartitionsBefore detaches and drops every time partition whose range ended
// at or before cutoff. When channelID is set only that channel is pruned.
// Returns the dropped partition names.
func (r *Repo) DropPartitionsBefore(ctx context.Context, cutoff time.Time, channelID *int32) ([]string, error) {
	var dropped []string

	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rootTable); err != nil {
			return fmt.Errorf("lock partitions: %w", err)
		}

		sb := psql.Select("name", "parent", "channel_id").
			From("chat_event_partitions").
			Where("range_end <= ?", cutoff).
			OrderBy("channel_id", "range_start")
		if channelID != nil {
			sb = sb.Where("channel_id = ?", *channelID)
		}
		sqlStr, args, err := sb.ToSql()
		if err != nil {
			return fmt.Errorf("build partition query: %w", err)
		}

		var parts []partitionRow
		if err := pgxscan.Select(ctx, q, &parts, sqlStr, args...); err != nil {
			return fmt.Errorf("list partitions: %w", err)
		}

		for _, p := range parts {
			if _, err := q.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s DETACH PARTITION %s`, ident(p.Parent), ident(p.Name))); err != nil {
				return fmt.Errorf("detach partition %s: %w", p.Name, err)
			}
			if _, err := q.Exec(ctx, fmt.Sprintf(`DROP TABLE %s`, ident(p.Name))); err != nil {
				return fmt.Errorf("drop partition %s: %w", p.Name, err)
			}
			if _, err := q.Exec(ctx, `DELETE FROM chat_event_partitions WHERE name = $1`, p.Name); err != nil {
				return fmt.Errorf("unregister partition %s: %w", p.Name, err)
			}
			dropped = append(dropped, p.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(dropped) > 0 {
		r.forget()
	}
	return dropped, nil
}

//go:build e2e

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/botconfig"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/channel"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/chatevent"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/command"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/chatbot-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/eventsource"
	"github.com/heartmarshall/chatbot-backend/internal/metrics"
	"github.com/heartmarshall/chatbot-backend/internal/service/catalog"
	"github.com/heartmarshall/chatbot-backend/internal/service/cooldown"
	"github.com/heartmarshall/chatbot-backend/internal/service/directory"
	"github.com/heartmarshall/chatbot-backend/internal/service/eventlog"
	"github.com/heartmarshall/chatbot-backend/internal/service/ingest"
	"github.com/heartmarshall/chatbot-backend/internal/service/router"
	"github.com/heartmarshall/chatbot-backend/internal/service/snapshot"
	"github.com/heartmarshall/chatbot-backend/internal/transport/rest"
)

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

type harness struct {
	events  *chatevent.Repo
	cache   *snapshot.Cache
	handler http.Handler
	replies *bytes.Buffer
	run     func(t *testing.T, input string)
}

// setupBot wires the same components as Run against a test database, with a
// JSONL source fed from the test.
func setupBot(t *testing.T) *harness {
	t.Helper()

	pool := testhelper.SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)

	txm := postgres.NewTxManager(pool)
	channels := channel.New(pool)
	users := user.New(pool)
	events := chatevent.New(pool, domain.GranularityDay)

	cache := snapshot.NewCache(logger, botconfig.New(pool, txm), m, snapshot.Options{ReloadTimeout: 10 * time.Second})
	tracker := cooldown.NewTracker(cooldown.NewMemoryStore(time.Hour), time.Hour)
	dir := directory.NewService(logger, channels, users, 100, time.Minute)

	registry := router.NewRegistry()
	require.NoError(t, router.RegisterBuiltins(registry, cache, dir))

	h := &harness{
		events:  events,
		cache:   cache,
		replies: &bytes.Buffer{},
		handler: rest.NewRouter(logger,
			rest.NewHealthHandler(pool, cache, nil, "e2e"),
			rest.NewCommandsHandler(logger, catalog.NewService(logger, command.New(pool))),
			m.Handler(),
		),
	}

	h.run = func(t *testing.T, input string) {
		t.Helper()
		src := eventsource.NewJSONL(logger, strings.NewReader(input), h.replies)
		r := router.New(logger, cache, tracker, registry, ingest.NewReplier(src), m, router.Options{
			DefaultPrefix:  "!",
			HandlerTimeout: 5 * time.Second,
		})
		writer := eventlog.NewWriter(logger, events, m, eventlog.Options{Shards: 2, MaxAttempts: 3})
		pipeline := ingest.NewPipeline(logger, dir, writer, r, ingest.Options{Workers: 2})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		writerCtx, stopWriter := context.WithCancel(ctx)
		writerDone := make(chan error, 1)
		go func() { writerDone <- writer.Run(writerCtx) }()

		require.NoError(t, pipeline.Run(ctx, src))
		r.Wait()
		stopWriter()
		require.NoError(t, <-writerDone)
	}
	return h
}

func jsonLine(t *testing.T, ev eventsource.Event) string {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return string(b) + "\n"
}

func TestE2E_PingIsRoutedAndEverythingPersisted(t *testing.T) {
	h := setupBot(t)
	pool := testhelper.SetupTestDB(t)
	ch := testhelper.SeedChannel(t, pool, nil)

	base := time.Now().UTC().Truncate(time.Microsecond)
	sender := &eventsource.Sender{ID: "ext-" + testhelper.UniqueSuffix(), Login: "alice"}
	text := func(s string) *string { return &s }

	input := jsonLine(t, eventsource.Event{Type: domain.EventTypeMessage, Channel: ch.Name, Text: text("!ping"), Sender: sender, ReceivedAt: base}) +
		jsonLine(t, eventsource.Event{Type: domain.EventTypeMessage, Channel: ch.Name, Text: text("hello chat"), Sender: sender, ReceivedAt: base.Add(time.Second)}) +
		jsonLine(t, eventsource.Event{Type: domain.EventTypeNotice, Channel: ch.Name, ReceivedAt: base.Add(2 * time.Second)})

	h.run(t, input)

	// One reply, addressed to the channel.
	lines := strings.Split(strings.TrimSpace(h.replies.String()), "\n")
	require.Len(t, lines, 1)
	var reply eventsource.Reply
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &reply))
	assert.Equal(t, eventsource.FrameMessage, reply.Type)
	assert.Equal(t, ch.Name, reply.Channel)
	assert.Equal(t, "@alice pong", reply.Text)

	// Every event is persisted in receipt order, regardless of routing.
	got, err := h.events.ListEvents(context.Background(), ch.ID, base.Add(-time.Minute), base.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.EventTypeMessage, got[0].Type)
	assert.Equal(t, "hello chat", *got[1].Text)
	assert.Equal(t, domain.EventTypeNotice, got[2].Type)
	require.NotNil(t, got[0].SenderUserID)
	assert.Nil(t, got[2].SenderUserID)
}

func TestE2E_SilentChannelPersistsButIgnores(t *testing.T) {
	h := setupBot(t)
	pool := testhelper.SetupTestDB(t)
	ch := testhelper.SeedChannel(t, pool, nil)
	_, err := pool.Exec(context.Background(), `UPDATE channels SET silent = true WHERE id = $1`, ch.ID)
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Microsecond)
	text := "!ping"
	h.run(t, jsonLine(t, eventsource.Event{
		Type:       domain.EventTypeMessage,
		Channel:    ch.Name,
		Text:       &text,
		Sender:     &eventsource.Sender{ID: "ext-" + testhelper.UniqueSuffix(), Login: "bob"},
		ReceivedAt: base,
	}))

	assert.Empty(t, strings.TrimSpace(h.replies.String()))

	got, err := h.events.ListEvents(context.Background(), ch.ID, base.Add(-time.Minute), base.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestE2E_OpsEndpoints(t *testing.T) {
	h := setupBot(t)
	_, err := h.cache.Current(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(h.handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(fmt.Sprintf("%s/api/commands?per_page=%d", srv.URL, catalog.MaxPerPage))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page domain.Page[domain.CommandSummary]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	handlers := make(map[string]bool)
	for _, c := range page.Items {
		handlers[c.HandlerName] = true
	}
	assert.True(t, handlers[router.HandlerPing])
	assert.True(t, handlers[router.HandlerReload])

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

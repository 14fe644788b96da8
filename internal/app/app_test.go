package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	types "github.com/yungbote/burstreply-backend/internal/domain"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SCHEDULER", "local")
	t.Setenv("GROUP_DEBOUNCE_DELAY_MS", "50")
	t.Setenv("GROUP_LOCK_TTL_MS", "500")
	t.Setenv("GROUP_TTL_MS", "1000")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestAppAggregatesBurstEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := New(ctx, logger.Nop(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	t.Cleanup(func() { _ = a.Services.LocalWorker.Stop(context.Background()) })
	require.Equal(t, SchedulerLocal, a.Services.SchedulerBy)

	post := func(body map[string]any) int {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.Server.Engine.ServeHTTP(rec, req)
		return rec.Code
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	require.Equal(t, http.StatusCreated, post(map[string]any{"type": "NEW_CONVERSATION", "timestamp": now, "data": map[string]string{"id": "c-1"}}))
	require.Equal(t, http.StatusAccepted, post(map[string]any{"type": "NEW_MESSAGE", "timestamp": now, "data": map[string]string{"id": "m-1", "content": "a", "conversation_id": "c-1"}}))
	require.Equal(t, http.StatusAccepted, post(map[string]any{"type": "NEW_MESSAGE", "timestamp": now, "data": map[string]string{"id": "m-2", "content": "b", "conversation_id": "c-1"}}))

	db := a.Clients.DB.DB()
	require.Eventually(t, func() bool {
		var n int64
		db.Model(&types.Message{}).Where("conversation_id = ? AND direction = ?", "c-1", types.MessageOutbound).Count(&n)
		return n == 1
	}, 3*time.Second, 20*time.Millisecond)

	var reply types.Message
	require.NoError(t, db.Where("conversation_id = ? AND direction = ?", "c-1", types.MessageOutbound).Take(&reply).Error)
	require.Equal(t, "Mensagens recebidas:\nm-1\nm-2", reply.Content)

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func unreachableTemporal(cfg *Config, scheduler string) {
	cfg.Scheduler = scheduler
	cfg.Temporal.Address = "127.0.0.1:1"
	cfg.Temporal.DialTimeout = time.Second
	cfg.Temporal.DialMaxWait = 0
}

func TestAutoSchedulerFallsBackWhenTemporalUnreachable(t *testing.T) {
	cfg := testConfig(t)
	unreachableTemporal(&cfg, SchedulerAuto)
	ctx := context.Background()

	a, err := New(ctx, logger.Nop(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	t.Cleanup(func() {
		if a.Services.LocalWorker != nil {
			_ = a.Services.LocalWorker.Stop(context.Background())
		}
	})
	require.Nil(t, a.Clients.Temporal)
	require.Equal(t, SchedulerLocal, a.Services.SchedulerBy)
}

func TestTemporalSchedulerFailsWhenTemporalUnreachable(t *testing.T) {
	cfg := testConfig(t)
	unreachableTemporal(&cfg, SchedulerTemporal)

	_, err := wireClients(context.Background(), logger.Nop(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "init temporal client")
}

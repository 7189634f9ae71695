// internal/workers/infrastructure/usage-quota/handler_test.go
package usagequota

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "propoflash/internal/common/errors"
	"propoflash/internal/common/logger"
)

const planQuery = `SELECT plan, monthly_allowance FROM user_profiles WHERE user_id = \$1`

var fixedNow = time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC)

func createTestConfig() *Config {
	return &Config{
		Timeout:          time.Second,
		PlanCacheTTL:     time.Minute,
		DefaultAllowance: 3,
		UsageTTL:         32 * 24 * time.Hour,
	}
}

func createTestHandler(t *testing.T, db *sql.DB, redisClient *redis.Client) *Handler {
	h := NewHandler(createTestConfig(), db, redisClient, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestHandler_Execute_AllowsUnderAllowance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, rdb := newMiniredis(t)

	mock.ExpectQuery(planQuery).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "monthly_allowance"}).AddRow("pro", 2))

	h := createTestHandler(t, db, rdb)

	out, err := h.execute(context.Background(), &Input{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, out.Allowed)
	assert.Equal(t, "pro", out.Plan)
	assert.Equal(t, int64(1), out.Used)

	// second call hits the plan cache, no further query expected
	out, err = h.execute(context.Background(), &Input{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Used)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.True(t, mr.Exists("plan:user-1"))
	val, err := mr.Get("usage:user-1:2026-10")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
	assert.True(t, mr.TTL("usage:user-1:2026-10") > 0)
}

func TestHandler_Execute_DeniesOverAllowance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr, rdb := newMiniredis(t)

	mock.ExpectQuery(planQuery).WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "monthly_allowance"}).AddRow("free", 1))

	h := createTestHandler(t, db, rdb)

	_, err = h.execute(context.Background(), &Input{UserID: "user-2"})
	require.NoError(t, err)

	out, err := h.execute(context.Background(), &Input{UserID: "user-2"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.False(t, out.Allowed)
	assert.Equal(t, int64(1), out.Used)

	val, err := mr.Get("usage:user-2:2026-10")
	require.NoError(t, err)
	assert.Equal(t, "1", val, "denied requests are refunded")
}

func TestHandler_Execute_UnknownUserGetsDefaultPlan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, rdb := newMiniredis(t)

	mock.ExpectQuery(planQuery).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	out, err := createTestHandler(t, db, rdb).execute(context.Background(), &Input{UserID: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, defaultPlan, out.Plan)
	assert.Equal(t, int64(3), out.Allowance)
}

func TestHandler_Execute_UnlimitedPlan(t *testing.T) {
	_, rdb := newMiniredis(t)
	h := createTestHandler(t, nil, rdb)
	h.config.DefaultAllowance = -1

	for i := 0; i < 5; i++ {
		out, err := h.execute(context.Background(), &Input{UserID: "vip"})
		require.NoError(t, err)
		assert.True(t, out.Allowed)
	}
}

func TestHandler_Consume(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, rdb := newMiniredis(t)

	mock.ExpectQuery(planQuery).WithArgs("user-3").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "monthly_allowance"}).AddRow("free", 1))

	h := createTestHandler(t, db, rdb)
	require.NoError(t, h.Consume(context.Background(), "user-3"))

	err = h.Consume(context.Background(), "user-3")
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeQuotaExceeded, stdErr.Code)
	assert.Equal(t, "free", stdErr.Metadata["plan"])

	assert.NoError(t, h.Consume(context.Background(), ""), "anonymous callers are not gated")
}

func TestHandler_Consume_FailsOpen(t *testing.T) {
	t.Run("database error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		_, rdb := newMiniredis(t)
		mock.ExpectQuery(planQuery).WithArgs("user-4").WillReturnError(errors.New("connection refused"))

		h := createTestHandler(t, db, rdb)
		_, err = h.execute(context.Background(), &Input{UserID: "user-4"})
		assert.ErrorIs(t, err, ErrQuotaCheckFailed)

		mock.ExpectQuery(planQuery).WithArgs("user-4").WillReturnError(errors.New("connection refused"))
		assert.NoError(t, h.Consume(context.Background(), "user-4"))
	})

	t.Run("redis down", func(t *testing.T) {
		mr, rdb := newMiniredis(t)
		mr.Close()
		assert.NoError(t, createTestHandler(t, nil, rdb).Consume(context.Background(), "user-5"))
	})

	t.Run("no redis", func(t *testing.T) {
		assert.NoError(t, createTestHandler(t, nil, nil).Consume(context.Background(), "user-6"))
	})
}

func TestHandler_Execute_RedisErrors(t *testing.T) {
	t.Run("incr fails", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet("plan:user-7").SetVal(`{"plan":"pro","allowance":5}`)
		mock.ExpectIncr("usage:user-7:2026-10").SetErr(errors.New("READONLY"))

		_, err := createTestHandler(t, nil, rdb).execute(context.Background(), &Input{UserID: "user-7"})
		assert.ErrorIs(t, err, ErrQuotaCheckFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache read fails", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet("plan:user-8").SetErr(errors.New("timeout"))

		_, err := createTestHandler(t, nil, rdb).execute(context.Background(), &Input{UserID: "user-8"})
		assert.ErrorIs(t, err, ErrQuotaCheckFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first use sets expiry", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet("plan:user-9").SetVal(`{"plan":"pro","allowance":5}`)
		mock.ExpectIncr("usage:user-9:2026-10").SetVal(1)
		mock.ExpectExpire("usage:user-9:2026-10", 32*24*time.Hour).SetVal(true)

		out, err := createTestHandler(t, nil, rdb).execute(context.Background(), &Input{UserID: "user-9"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), out.Used)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(configFixture())
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.PlanCacheTTL)
	assert.Equal(t, int64(50), cfg.DefaultAllowance)
}

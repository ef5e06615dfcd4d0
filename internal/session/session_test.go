package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

func newRedisRepo(t *testing.T) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSessionRepository(client, time.Hour), mr
}

func TestRedisSessionRoundTrip(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	session := &models.Session{
		ID:        "s1",
		Phone:     "+1555",
		ToolCalls: []string{"identify_user", "fetch_slots"},
	}
	require.NoError(t, repo.SetSession(ctx, session))

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "+1555", got.Phone)
	assert.Equal(t, []string{"identify_user", "fetch_slots"}, got.ToolCalls)
}

func TestRedisSessionMissing(t *testing.T) {
	repo, _ := newRedisRepo(t)

	got, err := repo.GetSession(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionClear(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, &models.Session{ID: "s1"}))
	require.NoError(t, repo.ClearSession(ctx, "s1"))

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionTTL(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, &models.Session{ID: "s1"}))
	mr.FastForward(2 * time.Hour)

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisRateLimit(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "s1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i+1)
	}
	allowed, err := repo.CheckRateLimit(ctx, "s1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Separate sessions have separate budgets.
	allowed, err = repo.CheckRateLimit(ctx, "s2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimitWindowReset(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		repo.CheckRateLimit(ctx, "s1", 3, time.Minute)
	}
	mr.FastForward(2 * time.Minute)

	allowed, err := repo.CheckRateLimit(ctx, "s1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetSession(ctx, &models.Session{ID: "s1", Phone: "+1555"}))
	got, err = repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "+1555", got.Phone)

	require.NoError(t, repo.ClearSession(ctx, "s1"))
	got, err = repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionCopies(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	stored := &models.Session{ID: "s1", Phone: "+1555", ToolCalls: []string{"identify_user"}}
	require.NoError(t, repo.SetSession(ctx, stored))

	// Mutating the caller's session after Set must not reach the store.
	stored.Phone = "+1666"
	stored.ToolCalls = append(stored.ToolCalls, "book_appointment")

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "+1555", got.Phone)
	assert.Equal(t, []string{"identify_user"}, got.ToolCalls)

	// Two loads of the same session must not alias each other's ToolCalls.
	first, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	second, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		first.ToolCalls = append(first.ToolCalls, "fetch_slots")
	}()
	go func() {
		defer wg.Done()
		second.ToolCalls = append(second.ToolCalls, "cancel_appointment")
	}()
	wg.Wait()

	assert.Equal(t, []string{"identify_user", "fetch_slots"}, first.ToolCalls)
	assert.Equal(t, []string{"identify_user", "cancel_appointment"}, second.ToolCalls)
}

func TestMemoryRateLimit(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "s1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := repo.CheckRateLimit(ctx, "s1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

type failingRepo struct{}

func (failingRepo) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return nil, errors.New("connection refused")
}
func (failingRepo) SetSession(ctx context.Context, session *models.Session) error {
	return errors.New("connection refused")
}
func (failingRepo) ClearSession(ctx context.Context, id string) error {
	return errors.New("connection refused")
}
func (failingRepo) CheckRateLimit(ctx context.Context, id string, limit int, window time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestFailoverFallsBackToMemory(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemorySessionRepository(time.Hour)
	repo := NewFailoverSessionRepository(failingRepo{}, fallback, &logger)
	ctx := context.Background()

	// First call hits the failing primary and falls through.
	require.NoError(t, repo.SetSession(ctx, &models.Session{ID: "s1", Phone: "+1555"}))

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "+1555", got.Phone)

	allowed, err := repo.CheckRateLimit(ctx, "s1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestFailoverMirrorsIntoFallback(t *testing.T) {
	logger := zerolog.Nop()
	primary, _ := newRedisRepo(t)
	fallback := NewMemorySessionRepository(time.Hour)
	repo := NewFailoverSessionRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, &models.Session{ID: "s1", Phone: "+1555"}))

	// A write through the healthy primary is also visible in the fallback,
	// so an outage right after does not lose the identification.
	got, err := fallback.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "+1555", got.Phone)
}

func TestFailoverRecovers(t *testing.T) {
	logger := zerolog.Nop()
	primary, mr := newRedisRepo(t)
	fallback := NewMemorySessionRepository(time.Hour)
	repo := NewFailoverSessionRepository(primary, fallback, &logger)
	ctx := context.Background()

	mr.SetError("down for maintenance")
	require.NoError(t, repo.SetSession(ctx, &models.Session{ID: "s1", Phone: "+1555"}))
	assert.True(t, repo.isDown.Load())

	// Recovery probe is time-gated; force it due.
	mr.SetError("")
	repo.lastCheck.Store(time.Now().Add(-2 * recoveryInterval).UnixNano())

	// Once the primary answers again the failover trusts it, even though
	// the outage-era session lives only in the fallback.
	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, repo.isDown.Load())
}

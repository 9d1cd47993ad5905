package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medical-booking-server/internal/cache"
	"medical-booking-server/internal/models"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func newResetFixture(t *testing.T) (*memStore, *fakeNotifier, *cache.MemoryKV, *PasswordResetService) {
	t.Helper()
	store := newMemStore()
	u := models.User{BaseModel: models.BaseModel{ID: "pat-1"}, Email: "ana@example.com", FirstName: "Ana", Role: models.RolePatient}
	require.NoError(t, u.SetPassword("old-password"))
	store.addUser(u)

	notifier := &fakeNotifier{}
	kv := cache.NewMemoryKV()
	svc := NewPasswordResetService(store, kv, notifier, 30*time.Minute, zap.NewNop())
	return store, notifier, kv, svc
}

func sentCode(t *testing.T, n *fakeNotifier) string {
	t.Helper()
	note := n.last()
	require.Equal(t, models.NotifyPasswordReset, note.Msg.Kind)
	code := codePattern.FindString(note.Msg.Body)
	require.NotEmpty(t, code)
	return code
}

func TestPasswordReset(t *testing.T) {
	store, notifier, _, svc := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, " ANA@example.com"))
	code := sentCode(t, notifier)
	assert.Contains(t, notifier.last().Msg.Body, "30 minutes")

	assert.ErrorIs(t, svc.Reset(ctx, "ana@example.com", "not-it", "new-password"), ErrInvalidResetCode)
	require.NoError(t, svc.Reset(ctx, "ana@example.com", code, "new-password"))

	assert.True(t, store.users["pat-1"].CheckPassword("new-password"))
	assert.Equal(t, []string{"pat-1"}, store.revoked)

	assert.ErrorIs(t, svc.Reset(ctx, "ana@example.com", code, "again"), ErrInvalidResetCode, "codes are single use")
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	_, notifier, _, svc := newResetFixture(t)

	require.NoError(t, svc.RequestReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, notifier.sent)
}

func TestPasswordReset_Cooldown(t *testing.T) {
	_, notifier, _, svc := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "ana@example.com"))
	require.NoError(t, svc.RequestReset(ctx, "ana@example.com"))
	assert.Len(t, notifier.sent, 1)
}

func TestPasswordReset_AttemptsExhausted(t *testing.T) {
	_, notifier, _, svc := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "ana@example.com"))
	code := sentCode(t, notifier)

	for i := 0; i < maxResetAttempts; i++ {
		assert.ErrorIs(t, svc.Reset(ctx, "ana@example.com", "000000x", "pw"), ErrInvalidResetCode)
	}
	assert.ErrorIs(t, svc.Reset(ctx, "ana@example.com", code, "new-password"), ErrInvalidResetCode)
}

// slowKV delays reads of reset codes the way a network round-trip would and
// counts the reads that find a live code.
type slowKV struct {
	*cache.MemoryKV
	liveReads atomic.Int64
}

func (k *slowKV) Get(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, resetCodeKey) {
		return k.MemoryKV.Get(ctx, key)
	}
	time.Sleep(time.Millisecond)
	v, err := k.MemoryKV.Get(ctx, key)
	if err == nil {
		k.liveReads.Add(1)
	}
	return v, err
}

func TestPasswordReset_ConcurrentGuessesAreLimited(t *testing.T) {
	store, notifier, _, _ := newResetFixture(t)
	kv := &slowKV{MemoryKV: cache.NewMemoryKV()}
	svc := NewPasswordResetService(store, kv, notifier, 30*time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "ana@example.com"))
	code := sentCode(t, notifier)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.ErrorIs(t, svc.Reset(ctx, "ana@example.com", wrong, "pw"), ErrInvalidResetCode)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, kv.liveReads.Load(), int64(maxResetAttempts))
	assert.ErrorIs(t, svc.Reset(ctx, "ana@example.com", code, "new-password"), ErrInvalidResetCode)
	assert.True(t, store.users["pat-1"].CheckPassword("old-password"))
}

type failingKV struct {
	*cache.MemoryKV
}

func (failingKV) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestPasswordReset_AttemptCounterFailure(t *testing.T) {
	store, notifier, _, _ := newResetFixture(t)
	svc := NewPasswordResetService(store, failingKV{cache.NewMemoryKV()}, notifier, 30*time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "ana@example.com"))
	code := sentCode(t, notifier)

	err := svc.Reset(ctx, "ana@example.com", code, "new-password")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidResetCode)
	assert.True(t, store.users["pat-1"].CheckPassword("old-password"))
}

package entitlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-app/internal/domain/entitlement"
	"subscription-app/internal/infra/notify"
	"subscription-app/internal/testutil"
)

type capturingPublisher struct {
	mu      sync.Mutex
	intents []notify.AlertIntent
}

func (p *capturingPublisher) PublishAlertIntent(_ context.Context, intent notify.AlertIntent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents = append(p.intents, intent)
	return nil
}

func (p *capturingPublisher) fired() []notify.AlertIntent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.AlertIntent(nil), p.intents...)
}

func newEmitter(t *testing.T) (*entitlement.Emitter, *capturingPublisher) {
	t.Helper()
	pub := &capturingPublisher{}
	return entitlement.NewEmitter(testutil.OpenDB(t), pub), pub
}

// Plan limit 5: the 80% alert fires at 4, the 100% alert at 5, and the
// earlier 80% alert is not refired on the way up.
func TestWarningThenFullAlert(t *testing.T) {
	emitter, pub := newEmitter(t)
	ctx := context.Background()

	for current := 1; current <= 3; current++ {
		require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, current, 5))
	}
	assert.Empty(t, pub.fired())

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 4, 5))
	intents := pub.fired()
	require.Len(t, intents, 1)
	assert.Equal(t, entitlement.ThresholdWarning, intents[0].ThresholdCrossed)
	assert.Equal(t, "users", intents[0].ResourceKind)
	assert.NotEmpty(t, intents[0].SuggestedMessage)

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 5, 5))
	intents = pub.fired()
	require.Len(t, intents, 2)
	assert.Equal(t, entitlement.ThresholdFull, intents[1].ThresholdCrossed)
}

func TestAlertNotRefiredWhileAboveThreshold(t *testing.T) {
	emitter, pub := newEmitter(t)
	ctx := context.Background()

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindRecords, 4, 5))
	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindRecords, 4, 5))
	assert.Len(t, pub.fired(), 1)
}

func TestAlertResetsOnDropBelowThreshold(t *testing.T) {
	emitter, pub := newEmitter(t)
	ctx := context.Background()

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 4, 5))
	require.Len(t, pub.fired(), 1)

	// Drop below 80% acknowledges the alert; crossing again fires a new one.
	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 3, 5))
	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 4, 5))
	assert.Len(t, pub.fired(), 2)
}

// A jump straight to full capacity fires only the 100% alert; the two
// thresholds are independent.
func TestFullAlertDoesNotRequireWarningFirst(t *testing.T) {
	emitter, pub := newEmitter(t)
	ctx := context.Background()

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindOrganizations, 1, 1))
	intents := pub.fired()
	require.Len(t, intents, 1)
	assert.Equal(t, entitlement.ThresholdFull, intents[0].ThresholdCrossed)
}

func TestFullAlertResetsIndependently(t *testing.T) {
	emitter, pub := newEmitter(t)
	ctx := context.Background()

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 5, 5))
	require.Len(t, pub.fired(), 1)

	// Back under 100% but still at 80%: the 100% alert resets, the 80%
	// alert fires for its own crossing.
	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 4, 5))
	intents := pub.fired()
	require.Len(t, intents, 2)
	assert.Equal(t, entitlement.ThresholdWarning, intents[1].ThresholdCrossed)

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 5, 5))
	intents = pub.fired()
	require.Len(t, intents, 3)
	assert.Equal(t, entitlement.ThresholdFull, intents[2].ThresholdCrossed)
}

func TestAlertsPerResourceKindAreIndependent(t *testing.T) {
	emitter, pub := newEmitter(t)
	ctx := context.Background()

	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindUsers, 4, 5))
	require.NoError(t, emitter.Observe(ctx, "u1", entitlement.KindRecords, 400, 500))
	assert.Len(t, pub.fired(), 2)
}

func TestObserveIgnoresZeroLimit(t *testing.T) {
	emitter, pub := newEmitter(t)
	require.NoError(t, emitter.Observe(context.Background(), "u1", entitlement.KindUsers, 3, 0))
	assert.Empty(t, pub.fired())
}

// The schema enforces the one-open-alert rule independently of the emitter:
// a second unacknowledged row for the same (account, kind, threshold) is
// rejected, while an acknowledged one frees the slot.
func TestSchemaRejectsSecondOpenAlert(t *testing.T) {
	db := testutil.OpenDB(t)

	first := entitlement.Alert{
		ID: "a1", AccountID: "u1", ResourceKind: "users",
		ThresholdCrossed: entitlement.ThresholdWarning, FiredAt: time.Now(),
	}
	require.NoError(t, db.Create(&first).Error)

	second := entitlement.Alert{
		ID: "a2", AccountID: "u1", ResourceKind: "users",
		ThresholdCrossed: entitlement.ThresholdWarning, FiredAt: time.Now(),
	}
	assert.Error(t, db.Create(&second).Error)

	ack := time.Now()
	require.NoError(t, db.Model(&first).Update("acknowledged_at", &ack).Error)
	assert.NoError(t, db.Create(&second).Error)
}

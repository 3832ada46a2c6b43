package entitlements_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-app/internal/api/entitlements"
	"subscription-app/internal/domain/entitlement"
	"subscription-app/internal/domain/plans"
	"subscription-app/internal/domain/subscription"
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

type fixture struct {
	router *gin.Engine
	store  *entitlement.Store
	pub    *capturingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	catalog := plans.NewCatalog(plans.DefaultPlans())
	store := entitlement.NewStore(db, catalog)
	pub := &capturingPublisher{}
	store.SetObserver(entitlement.NewEmitter(db, pub))
	handler := entitlements.NewHandler(store, catalog)

	router := gin.New()
	// Stands in for the auth middleware: identity is external, the engine
	// only ever sees a validated account id.
	router.Use(func(c *gin.Context) {
		c.Set("account_id", "u1")
		c.Next()
	})
	router.GET("/subscription", handler.GetSubscription)
	router.GET("/usage", handler.GetUsage)
	router.POST("/usage/:kind", handler.ConsumeResource)
	router.DELETE("/usage/:kind", handler.ReleaseResource)

	return &fixture{router: router, store: store, pub: pub}
}

func (f *fixture) activate(t *testing.T, planID string) {
	t.Helper()
	expires := time.Now().AddDate(0, 1, 0)
	occurred := time.Now()
	err := f.store.ApplyTransition(context.Background(), "u1", func(*subscription.Record) (*subscription.Record, error) {
		return &subscription.Record{
			AccountID:            "u1",
			PlanID:               planID,
			Status:               subscription.StatusActive,
			LastProcessedEventID: "seed",
			LastProcessedAt:      &occurred,
			ExpiresAt:            &expires,
		}, nil
	})
	require.NoError(t, err)
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestConsumeUpToLimit(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "basic") // 3 users

	for i := 0; i < 3; i++ {
		w := f.do(t, http.MethodPost, "/usage/users")
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(t, http.MethodPost, "/usage/users")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConsumeWithoutSubscription(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/usage/users")
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestConsumeUnknownKind(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "basic")
	w := f.do(t, http.MethodPost, "/usage/widgets")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Pro grants 10 users: 8 of 10 fires the 80% alert, 10 of 10 the 100% alert,
// and the earlier 80% alert is not refired on the way up.
func TestConsumeFiresThresholdAlerts(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "pro")

	for i := 0; i < 8; i++ {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/usage/users").Code)
	}
	intents := f.pub.fired()
	require.Len(t, intents, 1)
	assert.Equal(t, entitlement.ThresholdWarning, intents[0].ThresholdCrossed)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/usage/users").Code)
	}
	intents = f.pub.fired()
	require.Len(t, intents, 2)
	assert.Equal(t, entitlement.ThresholdFull, intents[1].ThresholdCrossed)
}

func TestReleaseRearmsAlert(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "pro")

	for i := 0; i < 8; i++ {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/usage/users").Code)
	}
	require.Len(t, f.pub.fired(), 1)

	w := f.do(t, http.MethodDelete, "/usage/users")
	assert.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/usage/users").Code)
	assert.Len(t, f.pub.fired(), 2)
}

func TestGetSubscriptionSurface(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "basic")
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/usage/users").Code)

	w := f.do(t, http.MethodGet, "/subscription")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Subscription subscription.Record `json:"subscription"`
		Usage        struct {
			UsersCount int `json:"users_count"`
		} `json:"usage"`
		Evaluation struct {
			Remaining map[string]int `json:"remaining"`
		} `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, subscription.StatusActive, resp.Subscription.Status)
	assert.Equal(t, 1, resp.Usage.UsersCount)
	assert.Equal(t, 2, resp.Evaluation.Remaining["users"])
}

func TestGetSubscriptionWithoutRecord(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/subscription")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"subscription-app/internal/infra/metrics"
	"subscription-app/internal/infra/notify"
)

// Emitter watches usage-ratio crossings after counter mutations and produces
// Alert rows plus notification intents. Per (account, kind, threshold) at
// most one unacknowledged alert exists; it resets when usage drops back
// below the threshold.
type Emitter struct {
	db        *gorm.DB
	publisher notify.Publisher
	now       func() time.Time
}

func NewEmitter(db *gorm.DB, publisher notify.Publisher) *Emitter {
	return &Emitter{db: db, publisher: publisher, now: time.Now}
}

// Observe implements Store's Observer: it runs under the account lock with
// every committed counter value and the plan limit, so crossings are seen in
// commit order. It fires missing alerts for crossed thresholds and
// acknowledges alerts whose threshold the usage dropped back under.
func (e *Emitter) Observe(ctx context.Context, accountID string, kind ResourceKind, current, limit int) error {
	if limit <= 0 {
		return nil
	}

	// The 80% alert covers [80%,100%); the 100% alert is independent and
	// fires at full capacity without requiring the 80% one first.
	inWarning := current*100 >= limit*ThresholdWarning && current < limit
	atFull := current >= limit

	if err := e.syncThreshold(ctx, accountID, kind, ThresholdWarning, inWarning, current, limit); err != nil {
		return err
	}
	return e.syncThreshold(ctx, accountID, kind, ThresholdFull, atFull, current, limit)
}

func (e *Emitter) syncThreshold(ctx context.Context, accountID string, kind ResourceKind, threshold int, crossed bool, current, limit int) error {
	open, err := e.openAlert(ctx, accountID, kind, threshold)
	if err != nil {
		return err
	}

	if !crossed {
		// Below threshold (or past it, for the 80% band): an open alert is
		// acknowledged so a later re-crossing can fire again. Leaving the
		// 80% band upward does not acknowledge it — only dropping under
		// 80% does.
		if open != nil && current*100 < limit*threshold {
			ack := e.now()
			return e.db.WithContext(ctx).Model(open).Update("acknowledged_at", &ack).Error
		}
		return nil
	}

	if open != nil {
		return nil // already fired for this crossing
	}

	alert := Alert{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		ResourceKind:     string(kind),
		ThresholdCrossed: threshold,
		FiredAt:          e.now(),
	}
	if err := e.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return err
	}

	metrics.AlertsFired.WithLabelValues(string(kind), strconv.Itoa(threshold)).Inc()
	log.Info().
		Str("account_id", accountID).
		Str("resource_kind", string(kind)).
		Int("threshold", threshold).
		Int("current", current).
		Int("limit", limit).
		Msg("usage threshold alert fired")

	intent := notify.AlertIntent{
		IntentID:         alert.ID,
		AccountID:        accountID,
		ResourceKind:     string(kind),
		ThresholdCrossed: threshold,
		SuggestedMessage: suggestedMessage(kind, threshold, current, limit),
		FiredAt:          alert.FiredAt,
	}
	if err := e.publisher.PublishAlertIntent(ctx, intent); err != nil {
		// The alert row is the source of truth; a failed publish must not
		// roll back the crossing.
		log.Error().Err(err).Str("intent_id", intent.IntentID).Msg("failed to publish alert intent")
	}
	return nil
}

func (e *Emitter) openAlert(ctx context.Context, accountID string, kind ResourceKind, threshold int) (*Alert, error) {
	var alert Alert
	err := e.db.WithContext(ctx).
		Where("account_id = ? AND resource_kind = ? AND threshold_crossed = ? AND acknowledged_at IS NULL",
			accountID, string(kind), threshold).
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func suggestedMessage(kind ResourceKind, threshold, current, limit int) string {
	if threshold >= ThresholdFull {
		return fmt.Sprintf("Your %s limit is fully used (%d/%d). Upgrade your plan to keep adding %s.",
			kind, current, limit, kind)
	}
	return fmt.Sprintf("You are using %d of %d available %s. Consider upgrading before you hit the limit.",
		current, limit, kind)
}

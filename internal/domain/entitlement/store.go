package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"subscription-app/internal/domain/plans"
	"subscription-app/internal/domain/subscription"
)

// Observer is notified of every committed counter value. The store calls it
// while still holding the account lock, so observations arrive in commit
// order and two racing commits can never observe each other's window.
type Observer interface {
	Observe(ctx context.Context, accountID string, kind ResourceKind, current, limit int) error
}

// Store holds one subscription record and one usage counter set per account
// and gives both linearizable per-account mutation. Cross-account operations
// never contend: each account gets its own mutex.
type Store struct {
	db       *gorm.DB
	catalog  *plans.Catalog
	observer Observer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(db *gorm.DB, catalog *plans.Catalog) *Store {
	return &Store{db: db, catalog: catalog, locks: make(map[string]*sync.Mutex)}
}

// SetObserver wires the post-commit observer. Called once during startup,
// before the store serves requests.
func (s *Store) SetObserver(o Observer) {
	s.observer = o
}

func (s *Store) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// GetSubscription returns the account's record, or nil when none exists yet.
func (s *Store) GetSubscription(ctx context.Context, accountID string) (*subscription.Record, error) {
	var rec subscription.Record
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetUsage returns the account's counters; a missing row reads as all zeros.
func (s *Store) GetUsage(ctx context.Context, accountID string) (UsageCounters, error) {
	var usage UsageCounters
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UsageCounters{AccountID: accountID}, nil
	}
	if err != nil {
		return UsageCounters{}, err
	}
	return usage, nil
}

// TryIncrement is the sole counter mutation path. Under the account lock it
// reads the counter and the plan limit and commits current+delta only when
// the result stays within [0, limit]. Returns the committed value and
// whether the commit happened; a denial leaves the counter unchanged.
func (s *Store) TryIncrement(ctx context.Context, accountID string, kind ResourceKind, delta int) (int, bool, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.GetSubscription(ctx, accountID)
	if err != nil {
		return 0, false, err
	}
	if rec == nil {
		return 0, false, subscription.ErrSubscriptionInactive
	}
	plan, ok := s.catalog.Get(rec.PlanID)
	if !ok {
		return 0, false, fmt.Errorf("subscription references unknown plan %q", rec.PlanID)
	}
	limit := LimitFor(plan, kind)

	usage, err := s.GetUsage(ctx, accountID)
	if err != nil {
		return 0, false, err
	}
	current := usage.Count(kind)
	next := current + delta
	if next < 0 {
		return current, false, nil
	}
	if delta > 0 && next > limit {
		return current, false, nil
	}

	usage.AccountID = accountID
	usage.setCount(kind, next)
	if err := s.db.WithContext(ctx).Save(&usage).Error; err != nil {
		return current, false, err
	}

	// Still under the account lock: the observer sees committed values in
	// commit order. Its failure never rolls back the committed counter.
	if s.observer != nil {
		if err := s.observer.Observe(ctx, accountID, kind, next, limit); err != nil {
			log.Error().Err(err).Str("account_id", accountID).Str("resource_kind", string(kind)).
				Msg("usage observer failed after commit")
		}
	}
	return next, true, nil
}

// ApplyTransition is the reconciler's only write path for subscription
// records. fn receives the current record (nil when none exists) and returns
// the record to commit, or nil for a no-op. Status, expiry, and the
// processed-event markers land in one statement; no intermediate state is
// observable.
func (s *Store) ApplyTransition(ctx context.Context, accountID string, fn func(current *subscription.Record) (*subscription.Record, error)) error {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.GetSubscription(ctx, accountID)
	if err != nil {
		return err
	}

	var snapshot *subscription.Record
	if current != nil {
		cp := *current
		snapshot = &cp
	}
	next, err := fn(snapshot)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	if current == nil {
		return s.db.WithContext(ctx).Create(next).Error
	}
	return s.db.WithContext(ctx).Save(next).Error
}

// LimitFor returns the plan ceiling for a resource kind.
func LimitFor(plan plans.Plan, kind ResourceKind) int {
	switch kind {
	case KindUsers:
		return plan.Limits.MaxUsers
	case KindRecords:
		return plan.Limits.MaxRecords
	case KindOrganizations:
		return plan.Limits.MaxOrganizations
	}
	return 0
}

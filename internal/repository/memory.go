package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/joyla/internal/models"
)

// MemoryStore is an in-process PaymentStore. It backs the state-machine and
// handler tests; Locked serializes transitions with a single mutex, which
// matches the row-lock contract for a single process.
type MemoryStore struct {
	mu            sync.Mutex
	payments      map[uuid.UUID]*models.Payment
	tariffs       map[uuid.UUID]*models.TariffPlan
	services      map[string]*models.Service
	subscriptions map[uuid.UUID]*models.Subscription
	featured      map[uuid.UUID]*models.FeaturedService
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:      map[uuid.UUID]*models.Payment{},
		tariffs:       map[uuid.UUID]*models.TariffPlan{},
		services:      map[string]*models.Service{},
		subscriptions: map[uuid.UUID]*models.Subscription{},
		featured:      map[uuid.UUID]*models.FeaturedService{},
	}
}

// AddTariff seeds a tariff plan.
func (s *MemoryStore) AddTariff(t *models.TariffPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.tariffs[t.ID] = t
}

// AddService seeds a merchant listing.
func (s *MemoryStore) AddService(svc *models.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	s.services[svc.PublicID] = svc
}

// Subscriptions returns a snapshot of all subscription rows.
func (s *MemoryStore) Subscriptions() []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, *sub)
	}
	return out
}

// Featured returns a snapshot of all featured-listing rows.
func (s *MemoryStore) Featured() []models.FeaturedService {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FeaturedService, 0, len(s.featured))
	for _, f := range s.featured {
		out = append(out, *f)
	}
	return out
}

func clonePayment(p *models.Payment) *models.Payment {
	cp := *p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		cp.CompletedAt = &t
	}
	if p.Metadata.CancelReason != nil {
		r := *p.Metadata.CancelReason
		cp.Metadata.CancelReason = &r
	}
	return &cp
}

func (s *MemoryStore) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *MemoryStore) ByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *MemoryStore) ByProviderTxnID(ctx context.Context, provider models.PaymentProvider, txnID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.Provider == provider && p.ProviderTxnID != "" && p.ProviderTxnID == txnID {
			return clonePayment(p), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) byAccount(provider models.PaymentProvider, match func(*models.Payment) bool) (*models.Payment, error) {
	var best *models.Payment
	for _, p := range s.payments {
		if p.Provider != provider || !match(p) {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		bestPending := best.Status == models.PaymentPending
		pPending := p.Status == models.PaymentPending
		if pPending && !bestPending {
			best = p
		} else if pPending == bestPending && p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return clonePayment(best), nil
}

func (s *MemoryStore) ByTariffAccount(ctx context.Context, provider models.PaymentProvider, phone string, tariffID uuid.UUID, months int) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byAccount(provider, func(p *models.Payment) bool {
		return p.Kind == models.KindTariffSubscription &&
			p.Metadata.PhoneNumber == phone &&
			p.Metadata.TariffID == tariffID.String() &&
			p.Metadata.MonthCount == months
	})
}

func (s *MemoryStore) ByBoostAccount(ctx context.Context, provider models.PaymentProvider, phone, serviceID string, days int) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byAccount(provider, func(p *models.Payment) bool {
		return p.Kind == models.KindFeaturedService &&
			p.Metadata.PhoneNumber == phone &&
			p.Metadata.ServiceID == serviceID &&
			p.Metadata.DaysCount == days
	})
}

func (s *MemoryStore) Statement(ctx context.Context, provider models.PaymentProvider, fromMs, toMs int64) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.Provider != provider || p.ProviderTxnID == "" {
			continue
		}
		t := p.CreateTimeMs()
		if t < fromMs || t > toMs {
			continue
		}
		out = append(out, *clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreateTimeMs() < out[j].CreateTimeMs()
	})
	return out, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID uuid.UUID, provider, status string, limit, offset int) ([]models.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Payment
	for _, p := range s.payments {
		if p.UserID != userID {
			continue
		}
		if provider != "" && string(p.Provider) != provider {
			continue
		}
		if status != "" && string(p.Status) != status {
			continue
		}
		all = append(all, *clonePayment(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryStore) Locked(ctx context.Context, id uuid.UUID, fn func(tx Tx, p *models.Payment) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payments[id]
	if !ok {
		return ErrNotFound
	}
	return fn(&memTx{store: s}, clonePayment(stored))
}

func (s *MemoryStore) TariffByID(ctx context.Context, id uuid.UUID) (*models.TariffPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tariffByID(id)
}

func (s *MemoryStore) tariffByID(id uuid.UUID) (*models.TariffPlan, error) {
	t, ok := s.tariffs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ServiceByPublicID(ctx context.Context, publicID string) (*models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serviceByPublicID(publicID)
}

func (s *MemoryStore) serviceByPublicID(publicID string) (*models.Service, error) {
	svc, ok := s.services[publicID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

// memTx reuses the store maps; the caller already holds the store mutex.
type memTx struct {
	store *MemoryStore
}

func (t *memTx) SavePayment(p *models.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	t.store.payments[p.ID] = clonePayment(p)
	return nil
}

func (t *memTx) TariffByID(id uuid.UUID) (*models.TariffPlan, error) {
	return t.store.tariffByID(id)
}

func (t *memTx) ServiceByPublicID(publicID string) (*models.Service, error) {
	return t.store.serviceByPublicID(publicID)
}

func (t *memTx) SubscriptionByPaymentID(paymentID uuid.UUID) (*models.Subscription, error) {
	for _, sub := range t.store.subscriptions {
		if sub.PaymentID != nil && *sub.PaymentID == paymentID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ActiveSubscription(userID uuid.UUID) (*models.Subscription, error) {
	var best *models.Subscription
	for _, sub := range t.store.subscriptions {
		if sub.UserID != userID || sub.Status != models.SubscriptionActive {
			continue
		}
		if best == nil || sub.ExpiresAt.After(best.ExpiresAt) {
			best = sub
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (t *memTx) SaveSubscription(sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	cp := *sub
	t.store.subscriptions[sub.ID] = &cp
	return nil
}

func (t *memTx) FeaturedByPaymentID(paymentID uuid.UUID) (*models.FeaturedService, error) {
	for _, f := range t.store.featured {
		if f.PaymentID != nil && *f.PaymentID == paymentID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) SaveFeatured(f *models.FeaturedService) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	cp := *f
	t.store.featured[f.ID] = &cp
	return nil
}

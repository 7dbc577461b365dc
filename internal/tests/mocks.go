package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"negotiation/internal/domain"
	"negotiation/internal/provider"
	"negotiation/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK NEGOTIATION REPOSITORY
// ──────────────────────────────────────────────

// MockNegotiationRepository is a mock implementation of NegotiationRepository.
// ResolvePending performs the same atomic check-and-write the Postgres
// implementation does, guarded by the mutex, so arbitration races behave the
// same way under test.
type MockNegotiationRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Negotiation
	order   []string // Creation order for ListByTrip

	// Counters for verification
	CreateCallCount  int32
	ResolveCallCount int32

	// Error injection
	CreateError  error
	ResolveError error
}

// NewMockNegotiationRepository creates a new mock negotiation repository.
func NewMockNegotiationRepository() *MockNegotiationRepository {
	return &MockNegotiationRepository{
		records: make(map[string]*domain.Negotiation),
	}
}

// AddNegotiation adds a record to the mock repository.
func (m *MockNegotiationRepository) AddNegotiation(n *domain.Negotiation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[n.ID] = n
	m.order = append(m.order, n.ID)
}

func (m *MockNegotiationRepository) Create(ctx context.Context, n *domain.Negotiation) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *n
	m.records[n.ID] = &copy
	m.order = append(m.order, n.ID)
	return nil
}

func (m *MockNegotiationRepository) GetByID(ctx context.Context, id string) (*domain.Negotiation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *record
	return &copy, nil
}

func (m *MockNegotiationRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.Negotiation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Negotiation
	for _, id := range m.order {
		if r, ok := m.records[id]; ok && r.TripID == tripID {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockNegotiationRepository) GetPendingByTrip(ctx context.Context, tripID string) (*domain.Negotiation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.TripID == tripID && r.Status == domain.NegotiationStatusPending {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockNegotiationRepository) ListPending(ctx context.Context) ([]*domain.Negotiation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Negotiation
	for _, r := range m.records {
		if r.Status == domain.NegotiationStatusPending {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExpiresAt.Before(result[j].ExpiresAt) })
	return result, nil
}

func (m *MockNegotiationRepository) ResolvePending(ctx context.Context, id string, res repository.Resolution) (bool, error) {
	atomic.AddInt32(&m.ResolveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResolveError != nil {
		return false, m.ResolveError
	}
	record, ok := m.records[id]
	if !ok {
		return false, nil
	}
	if record.Status != domain.NegotiationStatusPending {
		return false, nil
	}
	record.Status = res.Status
	if res.ResponderID != "" {
		record.ResponderID = res.ResponderID
	}
	if res.CounterAmount > 0 {
		record.CounterAmount = res.CounterAmount
	}
	record.ResolvedAt = res.ResolvedAt
	return true, nil
}

// SetResolveError swaps the injected ResolvePending error. Safe to call while
// scheduler goroutines are arbitrating.
func (m *MockNegotiationRepository) SetResolveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResolveError = err
}

// GetNegotiation returns a record for test assertions.
func (m *MockNegotiationRepository) GetNegotiation(id string) *domain.Negotiation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// CountNegotiations returns the number of stored records.
func (m *MockNegotiationRepository) CountNegotiations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

var _ repository.NegotiationRepository = (*MockNegotiationRepository)(nil)

// ──────────────────────────────────────────────
// MOCK TRIP ATTRIBUTES PROVIDER
// ──────────────────────────────────────────────

// MockTripAttributesProvider is a mock implementation of TripAttributesProvider.
type MockTripAttributesProvider struct {
	mu    sync.RWMutex
	attrs map[string]*domain.TripAttributes

	// Error injection
	GetError error
}

// NewMockTripAttributesProvider creates a new mock trip attributes provider.
func NewMockTripAttributesProvider() *MockTripAttributesProvider {
	return &MockTripAttributesProvider{
		attrs: make(map[string]*domain.TripAttributes),
	}
}

// AddTrip registers attributes for a trip.
func (m *MockTripAttributesProvider) AddTrip(attrs *domain.TripAttributes) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs[attrs.TripID] = attrs
}

func (m *MockTripAttributesProvider) GetTripAttributes(ctx context.Context, tripID string) (*domain.TripAttributes, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	attrs, ok := m.attrs[tripID]
	if !ok {
		return nil, provider.ErrUpstreamUnavailable
	}
	copy := *attrs
	return &copy, nil
}

var _ provider.TripAttributesProvider = (*MockTripAttributesProvider)(nil)

// ──────────────────────────────────────────────
// MOCK CONDITIONS PROVIDER
// ──────────────────────────────────────────────

// MockConditionsProvider is a mock implementation of ConditionsProvider.
type MockConditionsProvider struct {
	mu        sync.RWMutex
	condition domain.ConditionTag

	// Error injection
	GetError error
}

// NewMockConditionsProvider creates a mock reporting the given condition.
func NewMockConditionsProvider(condition domain.ConditionTag) *MockConditionsProvider {
	return &MockConditionsProvider{condition: condition}
}

func (m *MockConditionsProvider) GetCondition(ctx context.Context, lat, lng float64) (domain.ConditionTag, error) {
	if m.GetError != nil {
		return "", m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.condition, nil
}

// SetCondition changes the reported condition.
func (m *MockConditionsProvider) SetCondition(condition domain.ConditionTag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.condition = condition
}

var _ provider.ConditionsProvider = (*MockConditionsProvider)(nil)

// ──────────────────────────────────────────────
// MOCK TRIP LOCK STORE
// ──────────────────────────────────────────────

// MockTripLockStore is a mock implementation of TripLockInterface.
type MockTripLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockTripLockStore creates a new mock trip lock store.
func NewMockTripLockStore() *MockTripLockStore {
	return &MockTripLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockTripLockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:trip:" + tripID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockTripLockStore) ReleaseTripLock(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:trip:"+tripID)
	return nil
}

package testutils

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/notifications"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/domain/users"
)

// MemStore is an in-memory billing.Repository with the same upsert and
// transaction semantics as the Postgres store.
type MemStore struct {
	mu sync.Mutex

	Subscriptions map[string]*billing.Subscription
	Invoices      map[string]*billing.Invoice
	Events        map[string]*billing.StripeEvent
	Profiles      map[string]*users.Profile
	Preferences   map[string]*notifications.Preferences

	// Fail makes the named method return the given error.
	Fail map[string]error

	// BeforeClaim runs inside ClaimEvent before the existence check, so a
	// test can stand in for a delivery that claimed the event concurrently.
	BeforeClaim func(events map[string]*billing.StripeEvent, ev *billing.StripeEvent)

	Writes int
}

var _ billing.Repository = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		Subscriptions: map[string]*billing.Subscription{},
		Invoices:      map[string]*billing.Invoice{},
		Events:        map[string]*billing.StripeEvent{},
		Profiles:      map[string]*users.Profile{},
		Preferences:   map[string]*notifications.Preferences{},
		Fail:          map[string]error{},
	}
}

// AddProfile seeds a profile and returns it.
func (m *MemStore) AddProfile(id, email string) *users.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &users.Profile{ID: id, Email: email, Role: users.RoleUser, Plan: plans.Free}
	m.Profiles[id] = p
	return p
}

// Subscription returns a copy of the stored row, or nil.
func (m *MemStore) Subscription(userID string) *billing.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subscriptions[userID]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (m *MemStore) failure(op string) error {
	return m.Fail[op]
}

func (m *MemStore) FindSubscription(ctx context.Context, userID string) (*billing.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindSubscription"); err != nil {
		return nil, err
	}
	s, ok := m.Subscriptions[userID]
	if !ok {
		return nil, billing.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) FindSubscriptionByCustomer(ctx context.Context, customerID string) (*billing.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindSubscriptionByCustomer"); err != nil {
		return nil, err
	}
	for _, s := range m.Subscriptions {
		if customerID != "" && s.CustomerID() == customerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, billing.ErrNotFound
}

func (m *MemStore) SaveCustomerID(ctx context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SaveCustomerID"); err != nil {
		return err
	}
	m.Writes++
	id := customerID
	if s, ok := m.Subscriptions[userID]; ok {
		s.StripeCustomerID = &id
		s.UpdatedAt = time.Now()
		return nil
	}
	m.Subscriptions[userID] = &billing.Subscription{
		UserID:           userID,
		Plan:             plans.Free,
		Status:           billing.StatusIncomplete,
		StripeCustomerID: &id,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	return nil
}

func (m *MemStore) UpsertCheckoutIntent(ctx context.Context, userID string, plan plans.Key, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpsertCheckoutIntent"); err != nil {
		return err
	}
	m.Writes++
	id := customerID
	s, ok := m.Subscriptions[userID]
	if !ok {
		s = &billing.Subscription{UserID: userID, CreatedAt: time.Now()}
		m.Subscriptions[userID] = s
	}
	s.Plan = plan
	s.Status = billing.StatusIncomplete
	s.StripeCustomerID = &id
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemStore) ApplySnapshot(ctx context.Context, snap billing.Snapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ApplySnapshot"); err != nil {
		return false, err
	}
	s, ok := m.Subscriptions[snap.UserID]
	if !ok {
		s = &billing.Subscription{UserID: snap.UserID, Plan: plans.Free, CreatedAt: time.Now()}
	}
	if !snap.Apply(s) {
		return false, nil
	}
	m.Writes++
	s.UpdatedAt = time.Now()
	m.Subscriptions[snap.UserID] = s
	return true, nil
}

func (m *MemStore) UpsertInvoice(ctx context.Context, inv *billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpsertInvoice"); err != nil {
		return err
	}
	m.Writes++
	if existing, ok := m.Invoices[inv.StripeInvoiceID]; ok {
		id, created := existing.ID, existing.CreatedAt
		*existing = *inv
		existing.ID, existing.CreatedAt = id, created
		existing.UpdatedAt = time.Now()
		return nil
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	cp := *inv
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.Invoices[inv.StripeInvoiceID] = &cp
	return nil
}

func (m *MemStore) ListInvoices(ctx context.Context, userID string, limit int) ([]billing.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListInvoices"); err != nil {
		return nil, err
	}
	var out []billing.Invoice
	for _, inv := range m.Invoices {
		if inv.UserID == userID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("IsEventProcessed"); err != nil {
		return false, err
	}
	_, ok := m.Events[eventID]
	return ok, nil
}

func (m *MemStore) ClaimEvent(ctx context.Context, ev *billing.StripeEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ClaimEvent"); err != nil {
		return false, err
	}
	if m.BeforeClaim != nil {
		m.BeforeClaim(m.Events, ev)
	}
	if _, ok := m.Events[ev.EventID]; ok {
		return false, nil
	}
	m.Writes++
	cp := *ev
	m.Events[ev.EventID] = &cp
	return true, nil
}

func (m *MemStore) FindProfile(ctx context.Context, userID string) (*users.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindProfile"); err != nil {
		return nil, err
	}
	p, ok := m.Profiles[userID]
	if !ok {
		return nil, billing.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemStore) FindProfileByEmail(ctx context.Context, email string) (*users.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindProfileByEmail"); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, p := range m.Profiles {
		if strings.ToLower(p.Email) == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, billing.ErrNotFound
}

func (m *MemStore) FindProfileByGoogleSub(ctx context.Context, sub string) (*users.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Profiles {
		if p.GoogleSub != nil && *p.GoogleSub == sub {
			cp := *p
			return &cp, nil
		}
	}
	return nil, billing.ErrNotFound
}

func (m *MemStore) CreateProfile(ctx context.Context, p *users.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateProfile"); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = users.RoleUser
	}
	if p.Plan == "" {
		p.Plan = plans.Free
	}
	cp := *p
	m.Profiles[p.ID] = &cp
	return nil
}

func (m *MemStore) LinkGoogleSub(ctx context.Context, userID, sub string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Profiles[userID]; ok && p.GoogleSub == nil {
		s := sub
		p.GoogleSub = &s
	}
	return nil
}

func (m *MemStore) UpdateProfileName(ctx context.Context, userID, firstName, lastName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateProfileName"); err != nil {
		return err
	}
	p, ok := m.Profiles[userID]
	if !ok {
		return billing.ErrNotFound
	}
	first, last := firstName, lastName
	full := strings.TrimSpace(first + " " + last)
	p.FirstName, p.LastName, p.FullName = &first, &last, &full
	return nil
}

func (m *MemStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SetPasswordHash"); err != nil {
		return err
	}
	p, ok := m.Profiles[userID]
	if !ok {
		return billing.ErrNotFound
	}
	h := hash
	p.PasswordHash = &h
	return nil
}

func (m *MemStore) SetProfilePlan(ctx context.Context, userID string, plan plans.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SetProfilePlan"); err != nil {
		return err
	}
	if p, ok := m.Profiles[userID]; ok {
		m.Writes++
		p.Plan = plan
	}
	return nil
}

func (m *MemStore) NotificationPreferences(ctx context.Context, userID string) (*notifications.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Preferences[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return notifications.DefaultPreferences(userID), nil
}

func (m *MemStore) UpsertNotificationPreferences(ctx context.Context, prefs *notifications.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpsertNotificationPreferences"); err != nil {
		return err
	}
	cp := *prefs
	cp.UpdatedAt = time.Now()
	m.Preferences[prefs.UserID] = &cp
	return nil
}

// Transaction snapshots every table and restores them when fn fails.
func (m *MemStore) Transaction(ctx context.Context, fn func(tx billing.Repository) error) error {
	m.mu.Lock()
	saved := m.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(saved)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memState struct {
	subs     map[string]billing.Subscription
	invoices map[string]billing.Invoice
	events   map[string]billing.StripeEvent
	plans    map[string]plans.Key
	writes   int
}

func (m *MemStore) clone() memState {
	st := memState{
		subs:     make(map[string]billing.Subscription, len(m.Subscriptions)),
		invoices: make(map[string]billing.Invoice, len(m.Invoices)),
		events:   make(map[string]billing.StripeEvent, len(m.Events)),
		plans:    make(map[string]plans.Key, len(m.Profiles)),
		writes:   m.Writes,
	}
	for k, v := range m.Subscriptions {
		st.subs[k] = *v
	}
	for k, v := range m.Invoices {
		st.invoices[k] = *v
	}
	for k, v := range m.Events {
		st.events[k] = *v
	}
	for k, v := range m.Profiles {
		st.plans[k] = v.Plan
	}
	return st
}

func (m *MemStore) restore(st memState) {
	m.Subscriptions = make(map[string]*billing.Subscription, len(st.subs))
	for k, v := range st.subs {
		v := v
		m.Subscriptions[k] = &v
	}
	m.Invoices = make(map[string]*billing.Invoice, len(st.invoices))
	for k, v := range st.invoices {
		v := v
		m.Invoices[k] = &v
	}
	m.Events = make(map[string]*billing.StripeEvent, len(st.events))
	for k, v := range st.events {
		v := v
		m.Events[k] = &v
	}
	for k, p := range st.plans {
		if prof, ok := m.Profiles[k]; ok {
			prof.Plan = p
		}
	}
	m.Writes = st.writes
}

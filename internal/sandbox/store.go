package sandbox

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrChargeNotFound   = errors.New("charge not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// Store persists sandbox state. MemStore is the default; PGStore keeps state
// across restarts for long-lived sandbox deployments.
type Store interface {
	CreateCharge(ctx context.Context, c *Charge) error
	GetCharge(ctx context.Context, id string) (*Charge, error)
	UpdateCharge(ctx context.Context, c *Charge) error

	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) error

	CreateRefund(ctx context.Context, r *Refund) error
}

type MemStore struct {
	mu        sync.RWMutex
	charges   map[string]Charge
	customers map[string]Customer
	refunds   map[string]Refund
}

func NewMemStore() *MemStore {
	return &MemStore{
		charges:   make(map[string]Charge),
		customers: make(map[string]Customer),
		refunds:   make(map[string]Refund),
	}
}

func (s *MemStore) CreateCharge(_ context.Context, c *Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charges[c.ID] = *c
	return nil
}

func (s *MemStore) GetCharge(_ context.Context, id string) (*Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.charges[id]
	if !ok {
		return nil, ErrChargeNotFound
	}
	return &c, nil
}

func (s *MemStore) UpdateCharge(_ context.Context, c *Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.charges[c.ID]; !ok {
		return ErrChargeNotFound
	}
	s.charges[c.ID] = *c
	return nil
}

func (s *MemStore) CreateCustomer(_ context.Context, c *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = *c
	return nil
}

func (s *MemStore) GetCustomer(_ context.Context, id string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}

func (s *MemStore) UpdateCustomer(_ context.Context, c *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; !ok {
		return ErrCustomerNotFound
	}
	s.customers[c.ID] = *c
	return nil
}

func (s *MemStore) CreateRefund(_ context.Context, r *Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds[r.ID] = *r
	return nil
}

// Package memory is an in-process store with the same transactional
// contract as the PostgreSQL store. Transactions are serialized and rolled
// back by restoring a snapshot; reads outside a transaction may observe
// writes of a transaction in progress.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"oilmill/internal/core/id"
	"oilmill/internal/core/idempotency"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/events"
	"oilmill/internal/domain/finance"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/production"
	"oilmill/internal/domain/resolver"
)

type state struct {
	items     map[id.ID]catalog.Item
	movements []ledger.Movement
	eventKeys map[string]struct{}
	mappings  map[resolver.Role]resolver.Mapping
	batches   map[id.ID]production.Batch
	expenses  map[id.ID]finance.Expense
	loans     map[id.ID]finance.Loan
	loanTxs   []finance.LoanTransaction
	sequences map[string]int64
	outbox    []events.Message
	audit     []AuditEntry
	seq       int64
}

func newState() *state {
	return &state{
		items:     make(map[id.ID]catalog.Item),
		eventKeys: make(map[string]struct{}),
		mappings:  make(map[resolver.Role]resolver.Mapping),
		batches:   make(map[id.ID]production.Batch),
		expenses:  make(map[id.ID]finance.Expense),
		loans:     make(map[id.ID]finance.Loan),
		sequences: make(map[string]int64),
	}
}

func (s *state) clone() *state {
	return &state{
		items:     maps.Clone(s.items),
		movements: slices.Clone(s.movements),
		eventKeys: maps.Clone(s.eventKeys),
		mappings:  maps.Clone(s.mappings),
		batches:   maps.Clone(s.batches),
		expenses:  maps.Clone(s.expenses),
		loans:     maps.Clone(s.loans),
		loanTxs:   slices.Clone(s.loanTxs),
		sequences: maps.Clone(s.sequences),
		outbox:    slices.Clone(s.outbox),
		audit:     slices.Clone(s.audit),
		seq:       s.seq,
	}
}

// Store holds every table in memory.
type Store struct {
	txMu sync.Mutex // held for the whole of a transaction

	mu sync.RWMutex
	st *state

	idem *IdempotencyStore
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState(), idem: newIdempotencyStore()}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTransaction implements tx.Manager. Nested calls join the outer
// transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

func (s *Store) restore(st *state) {
	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Items returns the inventory item repository.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s: s} }

// Movements returns the stock movement repository.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Mappings returns the role mapping repository.
func (s *Store) Mappings() *MappingRepo { return &MappingRepo{s: s} }

// Batches returns the production batch repository.
func (s *Store) Batches() *BatchRepo { return &BatchRepo{s: s} }

// Finance returns the expense and loan repository.
func (s *Store) Finance() *FinanceRepo { return &FinanceRepo{s: s} }

// Numerator returns the sequence generator.
func (s *Store) Numerator() *Numerator { return &Numerator{s: s} }

// Outbox returns the transactional outbox.
func (s *Store) Outbox() *Outbox { return &Outbox{s: s} }

// Audit returns the audit log.
func (s *Store) Audit() *AuditLog { return &AuditLog{s: s} }

// Idempotency returns the request replay store.
func (s *Store) Idempotency() idempotency.Store { return s.idem }

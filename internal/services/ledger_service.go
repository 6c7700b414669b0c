package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pfledger/internal/core"
	"pfledger/internal/log"
	"pfledger/internal/storage"
)

// Persistence is the load/save surface the service needs from storage.Persister.
type Persistence interface {
	Load(ctx context.Context) (core.Ledger, error)
	Save(ctx context.Context, l core.Ledger) error
	Clear(ctx context.Context) error
	Raw(ctx context.Context) ([]byte, bool, error)
}

// ChangePublisher is notified after every committed mutation.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, operation, ref string) error
}

type Options struct {
	AmountPolicy core.AmountPolicy
	// FreshStart clears persisted state before loading.
	FreshStart bool
	Publisher  ChangePublisher
	Logger     *log.Logger
	NewID      func() string
	Now        func() time.Time
}

// LedgerService owns the ledger. Every mutation is persisted before it
// returns and is visible to the next read.
type LedgerService struct {
	mu          sync.RWMutex
	ledger      core.Ledger
	persistence Persistence
	policy      core.AmountPolicy
	publisher   ChangePublisher
	logger      *log.Logger
	newID       func() string
	now         func() time.Time
}

// NewLedgerService hydrates a service from persistence. Load problems are
// logged and never fatal: the service starts from whatever could be recovered.
func NewLedgerService(ctx context.Context, p Persistence, opts Options) *LedgerService {
	s := &LedgerService{
		persistence: p,
		policy:      opts.AmountPolicy,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		newID:       opts.NewID,
		now:         opts.Now,
	}
	if !s.policy.IsValid() {
		s.policy = core.CoerceAmounts
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	if s.newID == nil {
		s.newID = core.NewID
	}
	if s.now == nil {
		s.now = time.Now
	}

	if opts.FreshStart {
		if err := p.Clear(ctx); err != nil {
			s.logFor(ctx).WarnContext(ctx, "Could not clear persisted ledger on fresh start", log.FieldError, err)
		} else {
			s.logFor(ctx).InfoContext(ctx, "Persisted ledger cleared on fresh start")
		}
	}

	ledger, err := p.Load(ctx)
	if err != nil {
		s.logFor(ctx).WarnContext(ctx, "Ledger loaded with degradations", log.FieldError, err)
	}
	s.ledger = ledger.Clone()
	return s
}

// AddTransaction validates the draft, assigns a new id and stores the record.
func (s *LedgerService) AddTransaction(ctx context.Context, d core.Draft) (core.Transaction, error) {
	s.mu.Lock()
	tx, err := s.build(ctx, s.newID(), d, "")
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	s.ledger.Transactions = append(s.ledger.Transactions, tx)
	s.persist(ctx, log.OpCreate)
	s.mu.Unlock()

	s.logFor(ctx).InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithTransaction(tx.ID, string(tx.Type), tx.Amount.String(), tx.Date, tx.Category).
			WithOperation(log.OpCreate).
			ToSlice()...)
	s.notify(ctx, log.OpCreate, tx.ID)
	return tx, nil
}

// UpdateTransaction replaces the transaction with the given id, keeping the
// id and recomputing derived fields. Unknown ids fail with core.ErrNotFound
// and leave the ledger unchanged.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, d core.Draft) (core.Transaction, error) {
	s.mu.Lock()
	idx := s.ledger.IndexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		s.logFor(ctx).WarnContext(ctx, "Update of unknown transaction", log.FieldTransactionID, id)
		return core.Transaction{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	tx, err := s.build(ctx, id, d, s.ledger.Transactions[idx].Category)
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	s.ledger.Transactions[idx] = tx
	s.persist(ctx, log.OpUpdate)
	s.mu.Unlock()

	s.logFor(ctx).InfoContext(ctx, "Transaction updated",
		log.NewFields().
			WithTransaction(tx.ID, string(tx.Type), tx.Amount.String(), tx.Date, tx.Category).
			WithOperation(log.OpUpdate).
			ToSlice()...)
	s.notify(ctx, log.OpUpdate, tx.ID)
	return tx, nil
}

// DeleteTransaction removes the transaction with the given id. Unknown ids are a no-op.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.ledger.IndexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.ledger.Transactions = append(s.ledger.Transactions[:idx:idx], s.ledger.Transactions[idx+1:]...)
	s.persist(ctx, log.OpDelete)
	s.mu.Unlock()

	s.logFor(ctx).InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)
	s.notify(ctx, log.OpDelete, id)
	return nil
}

// AddCategory appends name if it is non-empty and not already present.
// It reports whether the category was added.
func (s *LedgerService) AddCategory(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	s.mu.Lock()
	if s.ledger.HasCategory(name) {
		s.mu.Unlock()
		return false, nil
	}
	s.ledger.Categories = append(s.ledger.Categories, name)
	s.persist(ctx, log.OpAddCategory)
	s.mu.Unlock()

	s.logFor(ctx).InfoContext(ctx, "Category added", log.FieldCategory, name)
	s.notify(ctx, log.OpAddCategory, name)
	return true, nil
}

// Reset restores the default categories, drops every transaction, purges
// persisted storage and saves the clean state.
func (s *LedgerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.ledger = core.NewLedger()
	if err := s.persistence.Clear(ctx); err != nil {
		s.logFor(ctx).ErrorContext(ctx, "Could not purge persisted ledger", log.FieldOperation, log.OpReset, log.FieldError, err)
	}
	s.persist(ctx, log.OpReset)
	s.mu.Unlock()

	s.logFor(ctx).InfoContext(ctx, "Ledger reset to defaults")
	s.notify(ctx, log.OpReset, "")
	return nil
}

// Export returns the persisted JSON verbatim. When nothing has been stored
// yet, or storage cannot be read, the in-memory ledger is encoded instead.
func (s *LedgerService) Export(ctx context.Context) ([]byte, error) {
	raw, ok, err := s.persistence.Raw(ctx)
	if err == nil && ok {
		return raw, nil
	}
	if err != nil {
		s.logFor(ctx).WarnContext(ctx, "Could not read persisted ledger for export, encoding memory state",
			log.FieldOperation, log.OpExport, log.FieldError, err)
	}
	return storage.Encode(s.Snapshot())
}

// Snapshot returns a deep copy of the ledger for read-only use.
func (s *LedgerService) Snapshot() core.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Clone()
}

func (s *LedgerService) Categories() []string {
	return s.Snapshot().Categories
}

func (s *LedgerService) Summary() core.Summary {
	return core.Summarize(s.Snapshot())
}

func (s *LedgerService) Recent(n int) []core.Transaction {
	return core.Recent(s.Snapshot(), n)
}

func (s *LedgerService) MonthsPresent() []string {
	return core.MonthsPresent(s.Snapshot())
}

func (s *LedgerService) FilterByMonth(month string) []core.Transaction {
	return core.FilterByMonth(s.Snapshot(), month)
}

// Analytics computes analytics for the month containing ref. A zero ref
// means the current date.
func (s *LedgerService) Analytics(ref time.Time) core.Analytics {
	if ref.IsZero() {
		ref = s.now()
	}
	return core.AnalyticsFor(s.Snapshot(), ref)
}

// build turns a draft into a transaction. The category must exist, except
// that an update may keep the transaction's current (possibly orphaned) one.
// Callers hold s.mu.
func (s *LedgerService) build(ctx context.Context, id string, d core.Draft, current string) (core.Transaction, error) {
	tx, err := d.Build(id, s.policy)
	if err != nil {
		s.logFor(ctx).WarnContext(ctx, "Transaction draft rejected", log.FieldTransactionID, id, log.FieldError, err)
		return core.Transaction{}, err
	}
	if !s.ledger.HasCategory(tx.Category) && (current == "" || tx.Category != current) {
		s.logFor(ctx).WarnContext(ctx, "Transaction draft rejected", log.FieldCategory, tx.Category, log.FieldError, core.ErrUnknownCategory)
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, tx.Category)
	}
	if _, perr := core.ParseAmount(d.Amount); perr != nil {
		// only reachable under the coerce policy
		s.logFor(ctx).WarnContext(ctx, "Invalid amount coerced to zero",
			log.FieldTransactionID, id, log.FieldAmount, d.Amount)
	}
	return tx, nil
}

// persist saves the current ledger. A failure is logged; the in-memory state
// stays authoritative. Callers hold s.mu.
func (s *LedgerService) persist(ctx context.Context, op string) {
	if err := s.persistence.Save(ctx, s.ledger); err != nil {
		s.logFor(ctx).ErrorContext(ctx, "Could not save ledger, keeping in-memory state",
			log.FieldOperation, op, log.FieldError, err)
	}
}

func (s *LedgerService) notify(ctx context.Context, op, ref string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, op, ref); err != nil {
		s.logFor(ctx).ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldOperation, op, log.FieldError, err)
	}
}

// logFor returns the service logger tagged with the request ID carried by ctx.
func (s *LedgerService) logFor(ctx context.Context) *log.Logger {
	if id := log.RequestIDFromContext(ctx); id != "" {
		return s.logger.With(log.FieldRequestID, id)
	}
	return s.logger
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pfledger/internal/core"
	"pfledger/internal/log"
)

// DefaultKey is the storage key the ledger is persisted under.
const DefaultKey = "pf_dashboard_v1"

// Persister loads and saves a ledger as one JSON document in a KeyValueStore.
type Persister struct {
	store  KeyValueStore
	key    string
	logger *log.Logger
	newID  func() string
}

// persistedLedger is the on-disk layout. Unknown fields are ignored.
type persistedLedger struct {
	Categories   []string               `json:"categories"`
	Transactions []persistedTransaction `json:"transactions"`
}

type persistedTransaction struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Month       string          `json:"month"`
}

func NewPersister(store KeyValueStore, key string, logger *log.Logger) *Persister {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Persister{
		store:  store,
		key:    key,
		logger: logger.WithComponent(log.ComponentStorage),
		newID:  core.NewID,
	}
}

// Key returns the storage key in use.
func (p *Persister) Key() string {
	return p.key
}

// Load reads the persisted ledger. The returned ledger is always usable: on a
// missing entry it is the default seed, and on unreadable or partially invalid
// data every invalid field falls back to its default while valid fields are
// kept. A non-nil error only reports such a degradation.
func (p *Persister) Load(ctx context.Context) (core.Ledger, error) {
	raw, ok, err := p.store.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		p.logger.ErrorContext(ctx, "Failed to read persisted ledger, using defaults",
			log.FieldStorageKey, p.key, log.FieldError, err)
		return core.NewLedger(), err
	}
	if !ok {
		p.logger.InfoContext(ctx, "No persisted ledger found, using defaults", log.FieldStorageKey, p.key)
		return core.NewLedger(), nil
	}

	ledger, problems := p.decode(raw)
	if len(problems) > 0 {
		err := fmt.Errorf("%w: %s", ErrMalformedState, strings.Join(problems, "; "))
		p.logger.WarnContext(ctx, "Persisted ledger partially invalid, defaults applied",
			log.FieldStorageKey, p.key, "problems", len(problems), log.FieldError, err)
		return ledger, err
	}

	p.logger.InfoContext(ctx, "Loaded persisted ledger",
		log.FieldStorageKey, p.key,
		"categories", len(ledger.Categories),
		"transactions", len(ledger.Transactions))
	return ledger, nil
}

// Save writes the full ledger under the key.
func (p *Persister) Save(ctx context.Context, l core.Ledger) error {
	data, err := Encode(l)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := p.store.Set(ctx, p.key, data); err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return err
	}
	return nil
}

// Clear removes the persisted entry. Clearing twice is fine.
func (p *Persister) Clear(ctx context.Context) error {
	if err := p.store.Delete(ctx, p.key); err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return err
	}
	return nil
}

// Raw returns the persisted bytes verbatim.
func (p *Persister) Raw(ctx context.Context) ([]byte, bool, error) {
	return p.store.Get(ctx, p.key)
}

// Encode serializes a ledger in the persisted layout, amounts as JSON numbers.
func Encode(l core.Ledger) ([]byte, error) {
	out := persistedLedger{
		Categories:   l.Categories,
		Transactions: make([]persistedTransaction, 0, len(l.Transactions)),
	}
	if out.Categories == nil {
		out.Categories = []string{}
	}
	for _, t := range l.Transactions {
		out.Transactions = append(out.Transactions, persistedTransaction{
			ID:          t.ID,
			Type:        string(t.Type),
			Description: t.Description,
			Amount:      json.RawMessage(t.Amount.String()),
			Date:        t.Date,
			Category:    t.Category,
			Month:       t.Month,
		})
	}
	return json.Marshal(out)
}

func (p *Persister) decode(raw []byte) (core.Ledger, []string) {
	ledger := core.NewLedger()
	var problems []string

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return ledger, []string{fmt.Sprintf("payload is not a JSON object: %v", err)}
	}

	if v, ok := fields["categories"]; !ok {
		problems = append(problems, "categories missing")
	} else {
		var cats []string
		if err := json.Unmarshal(v, &cats); err != nil || cats == nil {
			problems = append(problems, "categories is not an array of strings")
		} else {
			ledger.Categories = dedupe(cats)
		}
	}

	v, ok := fields["transactions"]
	if !ok {
		problems = append(problems, "transactions missing")
		return ledger, problems
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil || items == nil {
		problems = append(problems, "transactions is not an array")
		return ledger, problems
	}

	seen := map[string]struct{}{}
	for i, item := range items {
		var pt persistedTransaction
		if err := json.Unmarshal(item, &pt); err != nil {
			problems = append(problems, fmt.Sprintf("transaction %d skipped: %v", i, err))
			continue
		}
		if pt.ID == "" {
			pt.ID = p.newID()
		}
		if _, dup := seen[pt.ID]; dup {
			problems = append(problems, fmt.Sprintf("transaction %d skipped: duplicate id %q", i, pt.ID))
			continue
		}
		seen[pt.ID] = struct{}{}

		amount, err := decodeAmount(pt.Amount)
		if err != nil {
			problems = append(problems, fmt.Sprintf("transaction %q amount set to 0: %v", pt.ID, err))
		}
		ledger.Transactions = append(ledger.Transactions, core.Transaction{
			ID:          pt.ID,
			Type:        core.TxType(pt.Type),
			Description: pt.Description,
			Amount:      amount,
			Date:        pt.Date,
			Category:    pt.Category,
			Month:       core.MonthKey(pt.Date),
		})
	}
	return ledger, problems
}

// decodeAmount accepts a JSON number or a quoted number. Missing amounts are
// zero; negative or unparseable ones are zero and reported.
func decodeAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	s := string(raw)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", d)
	}
	return d, nil
}

// dedupe drops blanks and repeats while preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

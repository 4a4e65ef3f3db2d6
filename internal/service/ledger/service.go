package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/domain/validation"
	"github.com/mamadbah2/comedor/internal/service/notify"
	"github.com/mamadbah2/comedor/pkg/money"
)

const openingRef = "opening"

var (
	// errAlreadyApplied aborts a transaction whose entry is already in the log.
	errAlreadyApplied = errors.New("ledger entry already applied")
	// errNothingToReverse aborts a reversal whose original never reached the ledger.
	errNothingToReverse = errors.New("original ledger entry missing")
)

// Repository is the persistence of balances, entries and manual movements.
type Repository interface {
	EnsureAccounts(ctx context.Context) error
	ReadBalances(ctx context.Context) (models.Balances, error)
	IncrementBalances(ctx context.Context, delta models.Balances) error
	SetBalances(ctx context.Context, balances models.Balances) error
	AppendEntry(ctx context.Context, entry models.LedgerEntry) (bool, error)
	HasEntry(ctx context.Context, kind models.EntryKind, refID string) (bool, error)
	ListEntries(ctx context.Context) ([]models.LedgerEntry, error)

	// WithinTransaction runs fn so that its reads and writes commit together. Without
	// transaction support fn runs directly and SupportsTransactions reports false.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	SupportsTransactions() bool

	CreateMovement(ctx context.Context, m models.CashMovement) (models.CashMovement, error)
	GetMovement(ctx context.Context, id string) (models.CashMovement, error)
	ListMovements(ctx context.Context) ([]models.CashMovement, error)
	DeleteMovement(ctx context.Context, id string) error
}

// SaleLister lists recorded sales for reconciliation.
type SaleLister interface {
	ListSales(ctx context.Context, from, to time.Time) ([]models.Sale, error)
}

// MovementInput is a manual movement request.
type MovementInput struct {
	Type        models.MovementType   `json:"type" validate:"required,oneof=income expense"`
	Source      models.MovementSource `json:"source" validate:"required,oneof=capital profit"`
	Amount      decimal.Decimal       `json:"amount" validate:"gt=0"`
	Description string                `json:"description" validate:"required,notblank"`
}

// ReconcileResult describes a reconciliation run. Drift is the fold of the entry log minus
// the stored balances; Corrected reports whether the balances were rewritten to the fold.
type ReconcileResult struct {
	Before            models.Balances `json:"before"`
	After             models.Balances `json:"after"`
	RepairedSales     []string        `json:"repairedSales"`
	RepairedMovements []string        `json:"repairedMovements"`
	Entries           int             `json:"entries"`
	Drift             models.Balances `json:"drift"`
	Corrected         bool            `json:"corrected"`
}

// reversalOf names the entry a reversal undoes and when its record was created.
type reversalOf struct {
	kind       models.EntryKind
	refID      string
	recordedAt time.Time
}

// Service keeps the Capital and Ganancia balances. Every change is appended to the entry
// log, keyed by (kind, reference), and applied with an atomic increment in the same
// transaction.
type Service struct {
	repo     Repository
	sales    SaleLister
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	opening time.Time
}

// NewService wires a ledger service. sales may be nil when reconciliation is not needed.
func NewService(repo Repository, sales SaleLister, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, sales: sales, notifier: notifier, logger: logger, now: time.Now}
}

// Bootstrap creates both accounts at zero when absent. Balances that predate the entry log
// are captured once as an opening entry so the fold of entries matches them.
func (s *Service) Bootstrap(ctx context.Context) error {
	const op = "bootstrap ledger"
	if err := s.repo.EnsureAccounts(ctx); err != nil {
		return apperr.Persistence(op, err)
	}

	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if len(entries) > 0 {
		for _, e := range entries {
			if e.Kind == models.EntryOpeningBalance {
				s.setOpening(e.CreatedAt)
			}
		}
		return nil
	}

	balances, err := s.repo.ReadBalances(ctx)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if balances.IsZero() {
		return nil
	}

	opening := models.LedgerEntry{
		Kind:        models.EntryOpeningBalance,
		RefID:       openingRef,
		Capital:     balances.Capital,
		Profit:      balances.Profit,
		Description: "Saldo inicial",
		CreatedAt:   s.now(),
	}
	if _, err := s.repo.AppendEntry(ctx, opening); err != nil {
		return apperr.Persistence(op, err)
	}
	s.setOpening(opening.CreatedAt)
	s.logger.Info("opening balance recorded",
		zap.String("capital", balances.Capital.String()),
		zap.String("profit", balances.Profit.String()))
	return nil
}

// Balances reads both accounts.
func (s *Service) Balances(ctx context.Context) (models.Balances, error) {
	b, err := s.repo.ReadBalances(ctx)
	if err != nil {
		return models.Balances{}, apperr.Persistence("read balances", err)
	}
	return b, nil
}

// Entries returns the entry log.
func (s *Service) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, apperr.Persistence("list ledger entries", err)
	}
	return entries, nil
}

// CreditSale adds the cost of a sale to Capital and its profit to Ganancia.
func (s *Service) CreditSale(ctx context.Context, saleID string, cost, profit decimal.Decimal) error {
	return s.apply(ctx, "credit sale", models.LedgerEntry{
		Kind:        models.EntrySaleCredit,
		RefID:       saleID,
		Capital:     money.Round(cost),
		Profit:      money.Round(profit),
		Description: "Venta " + saleID,
	}, nil)
}

// DebitSale removes exactly what CreditSale added for the same amounts. A sale whose
// credit never reached the ledger, and that the opening balance does not cover, is left
// alone: there is nothing to take back.
func (s *Service) DebitSale(ctx context.Context, saleID string, recordedAt time.Time, cost, profit decimal.Decimal) error {
	return s.apply(ctx, "debit sale", models.LedgerEntry{
		Kind:        models.EntrySaleDebit,
		RefID:       saleID,
		Capital:     money.Round(cost).Neg(),
		Profit:      money.Round(profit).Neg(),
		Description: "Venta eliminada " + saleID,
	}, &reversalOf{kind: models.EntrySaleCredit, refID: saleID, recordedAt: recordedAt})
}

// RecordMovement stores a manual movement and applies it to its source account.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (models.CashMovement, error) {
	const op = "record cash movement"
	if err := validation.Struct(op, in); err != nil {
		return models.CashMovement{}, err
	}

	movement, err := s.repo.CreateMovement(ctx, models.CashMovement{
		Type:        in.Type,
		Source:      in.Source,
		Amount:      money.Round(in.Amount),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now(),
	})
	if err != nil {
		err = apperr.Persistence(op, err)
		notify.Failure(ctx, s.notifier, "Error al registrar el movimiento", err)
		return models.CashMovement{}, err
	}

	delta := movement.Delta()
	if err := s.apply(ctx, op, models.LedgerEntry{
		Kind:        movementKind(movement),
		RefID:       movement.ID,
		Capital:     delta.Capital,
		Profit:      delta.Profit,
		Description: movement.Description,
	}, nil); err != nil {
		notify.Failure(ctx, s.notifier, "Error al registrar el movimiento", err)
		return movement, err
	}
	notify.Success(ctx, s.notifier, models.NotificationCash, "Movimiento de caja registrado correctamente", movement.Description)
	return movement, nil
}

// DeleteMovement applies the inverse of a movement and removes it. It requires explicit
// confirmation.
func (s *Service) DeleteMovement(ctx context.Context, id string, confirmed bool) error {
	const op = "delete cash movement"
	if !confirmed {
		return apperr.Validation(op, "deletion must be confirmed")
	}

	movement, err := s.repo.GetMovement(ctx, id)
	if err != nil {
		err = apperr.FromStore(op, "cash movement", id, err)
		notify.Failure(ctx, s.notifier, "Error al eliminar el movimiento", err)
		return err
	}

	inverse := movement.Delta().Neg()
	if err := s.apply(ctx, op, models.LedgerEntry{
		Kind:        models.EntryMovementReversal,
		RefID:       movement.ID,
		Capital:     inverse.Capital,
		Profit:      inverse.Profit,
		Description: "Anulado: " + movement.Description,
	}, &reversalOf{kind: movementKind(movement), refID: movement.ID, recordedAt: movement.CreatedAt}); err != nil {
		notify.Failure(ctx, s.notifier, "Error al eliminar el movimiento", err)
		return err
	}

	if err := s.repo.DeleteMovement(ctx, id); err != nil {
		err = apperr.FromStore(op, "cash movement", id, err)
		notify.Failure(ctx, s.notifier, "Error al eliminar el movimiento", err)
		return err
	}
	notify.Success(ctx, s.notifier, models.NotificationCash, "Movimiento eliminado correctamente", movement.Description)
	return nil
}

// Movements lists manual movements.
func (s *Service) Movements(ctx context.Context) ([]models.CashMovement, error) {
	list, err := s.repo.ListMovements(ctx)
	if err != nil {
		return nil, apperr.Persistence("list cash movements", err)
	}
	return list, nil
}

// Reconcile appends the entries of recorded sales and movements that never reached the
// ledger, then rewrites both balances to the fold of the entry log. Records older than the
// opening entry are part of the opening balance and are not applied again. The fold and
// the rewrite run in one transaction, so an entry applied meanwhile either lands in the
// fold or retries the rewrite. Without transactions the drift is reported and the stored
// balances are left alone.
func (s *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	const op = "reconcile ledger"

	before, err := s.repo.ReadBalances(ctx)
	if err != nil {
		return ReconcileResult{}, apperr.Persistence(op, err)
	}
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return ReconcileResult{}, apperr.Persistence(op, err)
	}

	result := ReconcileResult{Before: before, RepairedSales: []string{}, RepairedMovements: []string{}}

	repaired, err := s.repair(ctx, entries)
	if err != nil {
		return ReconcileResult{}, apperr.Persistence(op, err)
	}
	for _, e := range repaired {
		if e.Kind == models.EntrySaleCredit {
			result.RepairedSales = append(result.RepairedSales, e.RefID)
		} else {
			result.RepairedMovements = append(result.RepairedMovements, e.RefID)
		}
	}

	transactional := s.repo.SupportsTransactions()
	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.ReadBalances(ctx)
		if err != nil {
			return err
		}
		entries, err := s.repo.ListEntries(ctx)
		if err != nil {
			return err
		}

		folded := models.Fold(entries)
		result.Entries = len(entries)
		result.Drift = folded.Add(current.Neg())
		result.After = current
		result.Corrected = false
		if result.Drift.IsZero() || !transactional {
			return nil
		}
		if err := s.repo.SetBalances(ctx, folded); err != nil {
			return err
		}
		result.After = folded
		result.Corrected = true
		return nil
	})
	if err != nil {
		return ReconcileResult{}, apperr.Persistence(op, err)
	}

	if !result.Drift.IsZero() && !result.Corrected {
		s.logger.Warn("ledger drift detected but not corrected without transactions",
			zap.String("capital_drift", result.Drift.Capital.String()),
			zap.String("profit_drift", result.Drift.Profit.String()))
	}
	s.logger.Info("ledger reconciled",
		zap.Int("entries", result.Entries),
		zap.Int("repaired_sales", len(result.RepairedSales)),
		zap.Int("repaired_movements", len(result.RepairedMovements)),
		zap.Bool("corrected", result.Corrected),
		zap.String("capital_before", before.Capital.String()),
		zap.String("capital_after", result.After.Capital.String()),
		zap.String("profit_before", before.Profit.String()),
		zap.String("profit_after", result.After.Profit.String()))
	return result, nil
}

func (s *Service) repair(ctx context.Context, entries []models.LedgerEntry) ([]models.LedgerEntry, error) {
	var cutoff time.Time
	applied := make(map[models.EntryKind]map[string]struct{})
	for _, e := range entries {
		if e.Kind == models.EntryOpeningBalance {
			cutoff = e.CreatedAt
		}
		if applied[e.Kind] == nil {
			applied[e.Kind] = make(map[string]struct{})
		}
		applied[e.Kind][e.RefID] = struct{}{}
	}
	missing := func(kind models.EntryKind, refID string, createdAt time.Time) bool {
		if _, ok := applied[kind][refID]; ok {
			return false
		}
		return cutoff.IsZero() || createdAt.After(cutoff)
	}

	var candidates []models.LedgerEntry

	if s.sales != nil {
		sales, err := s.sales.ListSales(ctx, time.Time{}, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("list sales: %w", err)
		}
		for _, sale := range sales {
			if !missing(models.EntrySaleCredit, sale.ID, sale.CreatedAt) {
				continue
			}
			cost, profit := sale.LedgerAmounts()
			candidates = append(candidates, models.LedgerEntry{
				Kind:        models.EntrySaleCredit,
				RefID:       sale.ID,
				Capital:     money.Round(cost),
				Profit:      money.Round(profit),
				Description: "Venta " + sale.ID + " (reconciliada)",
			})
		}
	}

	movements, err := s.repo.ListMovements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	for _, m := range movements {
		kind := movementKind(m)
		if !missing(kind, m.ID, m.CreatedAt) {
			continue
		}
		delta := m.Delta()
		candidates = append(candidates, models.LedgerEntry{
			Kind:        kind,
			RefID:       m.ID,
			Capital:     delta.Capital,
			Profit:      delta.Profit,
			Description: m.Description + " (reconciliado)",
		})
	}

	var repaired []models.LedgerEntry
	for _, entry := range candidates {
		entry.CreatedAt = s.now()
		inserted, err := s.commit(ctx, entry, nil)
		if err != nil {
			return nil, fmt.Errorf("append %s/%s: %w", entry.Kind, entry.RefID, err)
		}
		if inserted {
			repaired = append(repaired, entry)
			s.logger.Warn("missing ledger entry appended during reconciliation",
				zap.String("kind", string(entry.Kind)),
				zap.String("ref_id", entry.RefID))
		}
	}
	return repaired, nil
}

func (s *Service) apply(ctx context.Context, op string, entry models.LedgerEntry, of *reversalOf) error {
	entry.CreatedAt = s.now()

	inserted, err := s.commit(ctx, entry, of)
	if errors.Is(err, errNothingToReverse) {
		s.logger.Warn("reversal skipped, original entry missing",
			zap.String("kind", string(entry.Kind)),
			zap.String("ref_id", entry.RefID),
			zap.String("original_kind", string(of.kind)))
		return nil
	}
	if err != nil {
		return apperr.Persistence(op, fmt.Errorf("apply entry %s/%s: %w", entry.Kind, entry.RefID, err))
	}
	if !inserted {
		s.logger.Info("ledger entry already applied", zap.String("kind", string(entry.Kind)), zap.String("ref_id", entry.RefID))
		return nil
	}

	s.logger.Debug("ledger entry applied",
		zap.String("kind", string(entry.Kind)),
		zap.String("ref_id", entry.RefID),
		zap.String("capital", entry.Capital.String()),
		zap.String("profit", entry.Profit.String()))
	return nil
}

// commit appends the entry and increments the balances in one transaction. It reports
// false when the entry was already in the log.
func (s *Service) commit(ctx context.Context, entry models.LedgerEntry, of *reversalOf) (bool, error) {
	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if of != nil {
			ok, err := s.reversible(ctx, of)
			if err != nil {
				return err
			}
			if !ok {
				return errNothingToReverse
			}
		}

		inserted, err := s.repo.AppendEntry(ctx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyApplied
		}
		return s.repo.IncrementBalances(ctx, entry.Delta())
	})
	if errors.Is(err, errAlreadyApplied) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// reversible reports whether the original of a reversal is part of the balances, either
// as its own entry or through the opening balance.
func (s *Service) reversible(ctx context.Context, of *reversalOf) (bool, error) {
	ok, err := s.repo.HasEntry(ctx, of.kind, of.refID)
	if err != nil || ok {
		return ok, err
	}
	opening := s.openedAt()
	return !opening.IsZero() && !of.recordedAt.After(opening), nil
}

func (s *Service) setOpening(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opening = at
}

func (s *Service) openedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opening
}

func movementKind(m models.CashMovement) models.EntryKind {
	if m.Type == models.MovementExpense {
		return models.EntryMovementExpense
	}
	return models.EntryMovementIncome
}

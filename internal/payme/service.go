package payme

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/joyla/internal/models"
	"github.com/example/joyla/internal/repository"
)

// defaultCancelReason is what the processor means when it omits the reason.
const defaultCancelReason = 4

// Service implements the five protocol methods and the statement sweep.
// Every replayed call returns the same response as the first one while the
// payment status is unchanged.
type Service struct {
	store   repository.PaymentStore
	fulfill *Fulfillment
	log     *zap.Logger
}

func NewService(store repository.PaymentStore, fulfill *Fulfillment, log *zap.Logger) *Service {
	return &Service{store: store, fulfill: fulfill, log: log}
}

type CheckPerformParams struct {
	Amount  int64           `json:"amount"`
	Account json.RawMessage `json:"account"`
}

type CreateTransactionParams struct {
	ID      string          `json:"id"`
	Time    int64           `json:"time"`
	Amount  int64           `json:"amount"`
	Account json.RawMessage `json:"account"`
}

type PerformTransactionParams struct {
	ID string `json:"id"`
}

type CancelTransactionParams struct {
	ID     string `json:"id"`
	Reason *int   `json:"reason"`
}

type CheckTransactionParams struct {
	ID string `json:"id"`
}

type StatementParams struct {
	From *int64 `json:"from"`
	To   *int64 `json:"to"`
}

type CheckPerformResult struct {
	Allow bool `json:"allow"`
}

type CreateTransactionResult struct {
	CreateTime  int64  `json:"create_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
}

type PerformTransactionResult struct {
	Transaction string `json:"transaction"`
	PerformTime int64  `json:"perform_time"`
	State       int    `json:"state"`
}

type CancelTransactionResult struct {
	Transaction string `json:"transaction"`
	CancelTime  int64  `json:"cancel_time"`
	State       int    `json:"state"`
}

type CheckTransactionResult struct {
	CreateTime  int64  `json:"create_time"`
	PerformTime int64  `json:"perform_time"`
	CancelTime  int64  `json:"cancel_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
	Reason      *int   `json:"reason"`
}

type StatementEntry struct {
	ID          string         `json:"id"`
	Time        int64          `json:"time"`
	Amount      int64          `json:"amount"`
	Account     map[string]any `json:"account"`
	CreateTime  int64          `json:"create_time"`
	PerformTime int64          `json:"perform_time"`
	CancelTime  int64          `json:"cancel_time"`
	Transaction string         `json:"transaction"`
	State       int            `json:"state"`
	Reason      *int           `json:"reason"`
}

type StatementResult struct {
	Transactions []StatementEntry `json:"transactions"`
}

// resolveAccount validates the account shape and checks that the referenced
// tariff or service exists.
func (s *Service) resolveAccount(ctx context.Context, raw json.RawMessage, id any) (*Account, error) {
	account, reason := ValidateAccount(raw)
	if reason != "" {
		return nil, accountError(id, reason)
	}
	switch account.Kind {
	case AccountTariff:
		plan, err := s.store.TariffByID(ctx, account.TariffID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, accountError(id, ReasonTariffNotFound)
		}
		if err != nil {
			return nil, err
		}
		account.Plan = plan
	case AccountBoost:
		if _, err := s.store.ServiceByPublicID(ctx, account.ServiceID); errors.Is(err, repository.ErrNotFound) {
			return nil, accountError(id, ReasonServiceNotFound)
		} else if err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *Service) findByAccount(ctx context.Context, a *Account) (*models.Payment, error) {
	if a.Kind == AccountTariff {
		return s.store.ByTariffAccount(ctx, models.ProviderPayme, a.Phone, a.TariffID, a.Months)
	}
	return s.store.ByBoostAccount(ctx, models.ProviderPayme, a.Phone, a.ServiceID, a.Days)
}

// lookupByAccount resolves the payment for the account, falling back to the
// pricing recomputation when nothing matches so the processor sees the most
// informative error: a wrong amount beats an unknown account.
func (s *Service) lookupByAccount(ctx context.Context, a *Account, amount int64, id any) (*models.Payment, error) {
	p, err := s.findByAccount(ctx, a)
	if errors.Is(err, repository.ErrNotFound) {
		if expected := ExpectedTiyins(a); expected != amount {
			return nil, amountError(id, expected, amount)
		}
		return nil, accountError(id, ReasonPaymentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CheckPerformTransaction reports whether a transaction may be created for
// the account and amount.
func (s *Service) CheckPerformTransaction(ctx context.Context, params CheckPerformParams, id any) (*CheckPerformResult, error) {
	if params.Amount <= 0 {
		return nil, newError(ErrInvalidAmount, id)
	}
	account, err := s.resolveAccount(ctx, params.Account, id)
	if err != nil {
		return nil, err
	}
	p, err := s.lookupByAccount(ctx, account, params.Amount, id)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case models.PaymentCompleted:
		return nil, stateError(id, ReasonAlreadyPaid)
	case models.PaymentCancelled, models.PaymentFailed:
		return nil, stateError(id, ReasonCancelled)
	}
	if p.AmountTiyins() != params.Amount {
		return nil, amountError(id, p.AmountTiyins(), params.Amount)
	}
	return &CheckPerformResult{Allow: true}, nil
}

// CreateTransaction binds the processor's transaction id to the pending
// payment matching the account. Replays with the same id return the stored
// create time; a different id is rejected for as long as the payment exists.
func (s *Service) CreateTransaction(ctx context.Context, params CreateTransactionParams, id any) (*CreateTransactionResult, error) {
	if params.ID == "" {
		return nil, newError(ErrInvalidParams, id)
	}
	if params.Amount <= 0 {
		return nil, newError(ErrInvalidAmount, id)
	}
	account, err := s.resolveAccount(ctx, params.Account, id)
	if err != nil {
		return nil, err
	}
	p, err := s.lookupByAccount(ctx, account, params.Amount, id)
	if err != nil {
		return nil, err
	}

	var result *CreateTransactionResult
	err = s.store.Locked(ctx, p.ID, func(tx repository.Tx, p *models.Payment) error {
		// Once an account is bound to a processor transaction, no second
		// transaction may create against it, whatever the status.
		if p.ProviderTxnID != "" && p.ProviderTxnID != params.ID {
			return accountError(id, ReasonAccountBeingProcessed)
		}
		switch p.Status {
		case models.PaymentCompleted:
			return accountError(id, ReasonAlreadyPaid)
		case models.PaymentCancelled, models.PaymentFailed:
			return accountError(id, ReasonCancelled)
		}
		if p.ProviderTxnID == params.ID {
			result = &CreateTransactionResult{
				CreateTime:  p.CreateTimeMs(),
				Transaction: p.ID.String(),
				State:       StatePending,
			}
			return nil
		}
		if p.AmountTiyins() != params.Amount {
			return amountError(id, p.AmountTiyins(), params.Amount)
		}
		p.ProviderTxnID = params.ID
		p.Metadata.CreateTime = params.Time
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		result = &CreateTransactionResult{
			CreateTime:  params.Time,
			Transaction: p.ID.String(),
			State:       StatePending,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PerformTransaction completes the payment and activates its fulfillment.
// Fulfillment failures are logged and retried out of band; once money has
// moved the processor must see a consistent completed state.
func (s *Service) PerformTransaction(ctx context.Context, params PerformTransactionParams, id any) (*PerformTransactionResult, error) {
	if params.ID == "" {
		return nil, newError(ErrInvalidParams, id)
	}
	p, err := s.store.ByProviderTxnID(ctx, models.ProviderPayme, params.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var result *PerformTransactionResult
	err = s.store.Locked(ctx, p.ID, func(tx repository.Tx, p *models.Payment) error {
		switch p.Status {
		case models.PaymentCompleted:
			result = &PerformTransactionResult{
				Transaction: p.ID.String(),
				PerformTime: p.PerformTimeMs(),
				State:       StateCompleted,
			}
			return nil
		case models.PaymentPending:
		default:
			return newError(ErrCantDoOperation, id)
		}

		now := time.Now()
		nowMs := now.UnixMilli()
		p.Status = models.PaymentCompleted
		p.CompletedAt = &now
		p.Metadata.PerformTime = nowMs
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		if err := s.fulfill.Activate(tx, p, now); err != nil {
			s.log.Error("fulfillment failed",
				zap.String("payment_id", p.ID.String()),
				zap.String("kind", string(p.Kind)),
				zap.Error(err))
		}
		result = &PerformTransactionResult{
			Transaction: p.ID.String(),
			PerformTime: nowMs,
			State:       StateCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelTransaction cancels the payment. Cancelling a completed payment is
// permitted and marks a refund; the state reported is then -2.
func (s *Service) CancelTransaction(ctx context.Context, params CancelTransactionParams, id any) (*CancelTransactionResult, error) {
	if params.ID == "" {
		return nil, newError(ErrInvalidParams, id)
	}
	p, err := s.store.ByProviderTxnID(ctx, models.ProviderPayme, params.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	reason := defaultCancelReason
	if params.Reason != nil {
		reason = *params.Reason
	}

	var result *CancelTransactionResult
	err = s.store.Locked(ctx, p.ID, func(tx repository.Tx, p *models.Payment) error {
		state := StateCancelled
		if p.EverCompleted() {
			state = StateCancelledPaid
		}

		if p.Status == models.PaymentCancelled || p.Status == models.PaymentFailed {
			cancelTime := p.Metadata.CancelTime
			if cancelTime == 0 {
				// Legacy rows predate the cancel metadata; back-fill it.
				cancelTime = time.Now().UnixMilli()
				p.Metadata.CancelTime = cancelTime
				if p.Metadata.CancelReason == nil {
					r := reason
					p.Metadata.CancelReason = &r
				}
				if err := tx.SavePayment(p); err != nil {
					return err
				}
			}
			result = &CancelTransactionResult{
				Transaction: p.ID.String(),
				CancelTime:  cancelTime,
				State:       state,
			}
			return nil
		}

		nowMs := time.Now().UnixMilli()
		p.Status = models.PaymentCancelled
		p.Metadata.CancelTime = nowMs
		r := reason
		p.Metadata.CancelReason = &r
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		result = &CancelTransactionResult{
			Transaction: p.ID.String(),
			CancelTime:  nowMs,
			State:       state,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckTransaction returns the full status object for the transaction.
func (s *Service) CheckTransaction(ctx context.Context, params CheckTransactionParams, id any) (*CheckTransactionResult, error) {
	if params.ID == "" {
		return nil, newError(ErrInvalidParams, id)
	}
	p, err := s.store.ByProviderTxnID(ctx, models.ProviderPayme, params.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &CheckTransactionResult{
		CreateTime:  p.CreateTimeMs(),
		PerformTime: p.PerformTimeMs(),
		CancelTime:  p.Metadata.CancelTime,
		Transaction: p.ID.String(),
		State:       protocolState(p),
		Reason:      p.Metadata.CancelReason,
	}, nil
}

// GetStatement enumerates every payment whose transaction was created inside
// the window, ascending by create time.
func (s *Service) GetStatement(ctx context.Context, params StatementParams, id any) (*StatementResult, error) {
	if params.From == nil || params.To == nil || *params.From > *params.To {
		return nil, newError(ErrInvalidParams, id)
	}
	payments, err := s.store.Statement(ctx, models.ProviderPayme, *params.From, *params.To)
	if err != nil {
		return nil, err
	}
	entries := make([]StatementEntry, 0, len(payments))
	for i := range payments {
		p := &payments[i]
		entries = append(entries, StatementEntry{
			ID:          p.ProviderTxnID,
			Time:        p.CreateTimeMs(),
			Amount:      p.AmountTiyins(),
			Account:     accountEcho(p),
			CreateTime:  p.CreateTimeMs(),
			PerformTime: p.PerformTimeMs(),
			CancelTime:  p.Metadata.CancelTime,
			Transaction: p.ID.String(),
			State:       protocolState(p),
			Reason:      p.Metadata.CancelReason,
		})
	}
	return &StatementResult{Transactions: entries}, nil
}

func protocolState(p *models.Payment) int {
	switch p.Status {
	case models.PaymentPending:
		return StatePending
	case models.PaymentCompleted:
		return StateCompleted
	default:
		if p.EverCompleted() {
			return StateCancelledPaid
		}
		return StateCancelled
	}
}

func accountEcho(p *models.Payment) map[string]any {
	m := p.Metadata
	switch {
	case m.TariffID != "":
		return map[string]any{
			"phone_number": m.PhoneNumber,
			"tariff_id":    m.TariffID,
			"month_count":  m.MonthCount,
		}
	case m.ServiceID != "":
		return map[string]any{
			"phone_number": m.PhoneNumber,
			"service_id":   m.ServiceID,
			"days_count":   m.DaysCount,
		}
	default:
		// Legacy rows without echo fields.
		return map[string]any{"order_id": p.ID.String()}
	}
}

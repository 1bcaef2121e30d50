package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
	"github.com/papertrade/settlement/internal/models/events"
)

// TopicTradeSettled is the event topic for settled trades.
const TopicTradeSettled = "trade_settled"

const (
	compensationAttempts = 3
	compensationBackoff  = 50 * time.Millisecond
)

// TradeResult is what ExecuteTrade hands back to the caller.
type TradeResult struct {
	Outcome    Outcome
	NewBalance decimal.Decimal
	// Transaction is populated only when Outcome is OutcomeSettled.
	Transaction models.TransactionRecord
}

// Engine runs the trade settlement saga against a store that offers
// only individually-atomic row operations. Consistency across the
// wallet, holdings, instrument and history tables comes from the step
// ordering and the single compensating branch, not from the store.
type Engine struct {
	registry  *Registry
	wallet    *Wallet
	book      *Book
	history   *Log
	publisher interfaces.EventPublisher // optional, best-effort

	muMap map[string]*sync.Mutex // per-account locks
	mapMu sync.Mutex             // protects muMap itself
}

// NewEngine wires the settlement components over one store. publisher
// may be nil; settled-trade events are then skipped.
func NewEngine(store interfaces.SettlementStore, publisher interfaces.EventPublisher) *Engine {
	return &Engine{
		registry:  NewRegistry(store),
		wallet:    NewWallet(store),
		book:      NewBook(store),
		history:   NewLog(store),
		publisher: publisher,
		muMap:     make(map[string]*sync.Mutex),
	}
}

func (e *Engine) accountLock(accountID string) *sync.Mutex {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	if _, exists := e.muMap[accountID]; !exists {
		e.muMap[accountID] = &sync.Mutex{}
	}
	return e.muMap[accountID]
}

// ExecuteTrade settles one buy or sell:
//
//  1. resolve the instrument (created on first trade of the symbol)
//  2. load the current balance and holding
//  3. validate funds (buy) or share availability (sell)
//  4. apply the signed ledger adjustment — first durable side effect
//  5. upsert/reduce/delete the holding; on failure, reverse step 4
//  6. adjust the advisory investor count if the position opened or closed
//  7. append the history record (best effort)
//  8. return the new balance
//
// Trades on the same account are serialized so two concurrent orders
// cannot both validate against the same balance and overdraw it.
func (e *Engine) ExecuteTrade(ctx context.Context, req models.TradeRequest) (TradeResult, error) {
	if err := req.Validate(); err != nil {
		return TradeResult{Outcome: OutcomeRejected}, err
	}

	lock := e.accountLock(req.AccountID)
	lock.Lock()
	defer lock.Unlock()

	// Step 1: resolve.
	inst, err := e.registry.Resolve(ctx, req.Symbol)
	if err != nil {
		return TradeResult{Outcome: OutcomeRejected}, fmt.Errorf("%w: %w", ErrInstrumentResolution, err)
	}

	// Step 2: load.
	balance, err := e.wallet.Balance(ctx, req.AccountID)
	if err != nil {
		return TradeResult{Outcome: OutcomeRejected}, fmt.Errorf("load balance for %s: %w", req.AccountID, err)
	}
	holding, held, err := e.book.Get(ctx, req.AccountID, inst.ID)
	if err != nil {
		return TradeResult{Outcome: OutcomeRejected}, fmt.Errorf("load holding: %w", err)
	}

	// Step 3: validate before touching anything.
	total := req.Total()
	switch req.Side {
	case models.SideBuy:
		if balance.Cmp(total) < 0 {
			return TradeResult{Outcome: OutcomeRejected, NewBalance: balance}, ErrInsufficientFunds
		}
	case models.SideSell:
		var qty int64
		if held {
			qty = holding.Quantity
		}
		if qty < req.Quantity {
			return TradeResult{Outcome: OutcomeRejected, NewBalance: balance}, ErrInsufficientShares
		}
	}

	// Step 4: ledger adjustment, the first durable side effect.
	delta := total.Neg()
	if req.Side == models.SideSell {
		delta = total
	}
	newBalance, err := e.wallet.Apply(ctx, req.AccountID, delta)
	if err != nil {
		if errors.Is(err, interfaces.ErrInsufficientBalance) {
			return TradeResult{Outcome: OutcomeRejected, NewBalance: balance}, ErrInsufficientFunds
		}
		return TradeResult{Outcome: OutcomeRejected, NewBalance: balance}, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}

	// Step 5: holdings mutation; the only step with a rollback path.
	effect, err := e.book.ApplyTrade(ctx, req.AccountID, inst.ID, req.Side, req.Quantity, req.PricePerShare)
	if err != nil {
		return e.compensate(ctx, req, delta, balance, fmt.Errorf("%w: %w", ErrHoldingsWrite, err))
	}

	// Step 6: investor count, only on open/close. The counter is
	// advisory; a failed update never unwinds a settled trade.
	if countDelta := investorDelta(effect.Change); countDelta != 0 {
		if err := e.registry.AdjustInvestorCount(ctx, inst.ID, countDelta); err != nil {
			log.Warn().Err(err).
				Str("symbol", req.Symbol).
				Str("instrument_id", inst.ID).
				Msg("investor count update failed")
		}
	}

	// Step 7: history, best effort.
	rec := models.TransactionRecord{
		ID:            uuid.New().String(),
		AccountID:     req.AccountID,
		InstrumentID:  inst.ID,
		Side:          req.Side,
		Quantity:      req.Quantity,
		PricePerShare: req.PricePerShare,
		TotalAmount:   total,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.history.Append(ctx, rec); err != nil {
		log.Error().Err(err).
			Str("account_id", req.AccountID).
			Str("symbol", req.Symbol).
			Msg("transaction history write failed, trade remains settled")
	}

	e.publishSettled(rec, req.Symbol)

	return TradeResult{Outcome: OutcomeSettled, NewBalance: newBalance, Transaction: rec}, nil
}

// compensate reverses the already-applied ledger delta after a holdings
// failure. Retried a bounded number of times; if every attempt fails
// the account's cash and holdings are divergent and the caller gets the
// distinct CompensationError instead of the original failure.
func (e *Engine) compensate(ctx context.Context, req models.TradeRequest, applied, priorBalance decimal.Decimal, cause error) (TradeResult, error) {
	reversal := applied.Neg()

	var lastErr error
	for attempt := 1; attempt <= compensationAttempts; attempt++ {
		_, lastErr = e.wallet.Apply(ctx, req.AccountID, reversal)
		if lastErr == nil {
			log.Warn().Err(cause).
				Str("account_id", req.AccountID).
				Str("symbol", req.Symbol).
				Msg("trade failed, ledger adjustment reversed")
			return TradeResult{Outcome: OutcomeFailedCompensated, NewBalance: priorBalance}, cause
		}
		time.Sleep(time.Duration(attempt) * compensationBackoff)
	}

	cerr := &CompensationError{
		AccountID: req.AccountID,
		Amount:    applied,
		Cause:     cause,
		Err:       lastErr,
	}
	log.Error().Err(cerr).
		Str("account_id", req.AccountID).
		Str("symbol", req.Symbol).
		Str("unreversed_delta", applied.String()).
		Msg("compensation failed, account state is divergent")
	return TradeResult{Outcome: OutcomeFailedUncompensated}, cerr
}

func (e *Engine) publishSettled(rec models.TransactionRecord, symbol string) {
	if e.publisher == nil {
		return
	}
	evt := events.TradeSettled{
		TransactionID: rec.ID,
		AccountID:     rec.AccountID,
		InstrumentID:  rec.InstrumentID,
		Symbol:        symbol,
		Side:          string(rec.Side),
		Quantity:      rec.Quantity,
		PricePerShare: rec.PricePerShare,
		TotalAmount:   rec.TotalAmount,
		OccurredAt:    rec.CreatedAt,
	}
	if err := e.publisher.Publish(TopicTradeSettled, evt); err != nil {
		log.Error().Err(err).
			Str("transaction_id", rec.ID).
			Msg("trade settled event publish failed")
	}
}

func investorDelta(change PositionChange) int64 {
	switch change {
	case PositionOpened:
		return 1
	case PositionClosed:
		return -1
	default:
		return 0
	}
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/papertrade/settlement/internal/events/kafka"
	"github.com/papertrade/settlement/internal/interfaces"
	"github.com/papertrade/settlement/internal/models"
	"github.com/papertrade/settlement/internal/settlement"
	"github.com/papertrade/settlement/internal/storage/memory"
	"github.com/papertrade/settlement/internal/storage/postgres"
)

// Accounts are provisioned at signup with this opening cash balance.
var defaultOpeningBalance = decimal.NewFromInt(10000)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	store, err := buildStore()
	if err != nil {
		log.Fatal().Err(err).Msg("store initialization failed")
	}

	var publisher interfaces.EventPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		publisher = kafka.NewPublisher(strings.Split(brokers, ","))
		log.Info().Str("brokers", brokers).Msg("kafka publisher enabled")
	}

	engine := settlement.NewEngine(store, publisher)

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		var req models.TradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := engine.ExecuteTrade(r.Context(), req)
		if err != nil {
			writeTradeError(w, result, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"outcome":        result.Outcome.String(),
			"new_balance":    result.NewBalance,
			"transaction_id": result.Transaction.ID,
		})
	}).Methods(http.MethodPost)

	r.HandleFunc("/accounts/{id}/balance", func(w http.ResponseWriter, r *http.Request) {
		accountID := mux.Vars(r)["id"]

		balance, err := engine.Balance(r.Context(), accountID)
		if err != nil {
			writeLookupError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"account_id": accountID,
			"balance":    balance,
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/accounts/{id}/portfolio", func(w http.ResponseWriter, r *http.Request) {
		accountID := mux.Vars(r)["id"]

		holdings, err := engine.Portfolio(r.Context(), accountID)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		if holdings == nil {
			holdings = []models.Holding{}
		}

		writeJSON(w, http.StatusOK, holdings)
	}).Methods(http.MethodGet)

	r.HandleFunc("/accounts/{id}/transactions", func(w http.ResponseWriter, r *http.Request) {
		accountID := mux.Vars(r)["id"]

		records, err := engine.History(r.Context(), accountID)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		if records == nil {
			records = []models.TransactionRecord{}
		}

		writeJSON(w, http.StatusOK, records)
	}).Methods(http.MethodGet)

	r.HandleFunc("/instruments/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		symbol := mux.Vars(r)["symbol"]

		inst, err := engine.Instrument(r.Context(), symbol)
		if err != nil {
			writeLookupError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, inst)
	}).Methods(http.MethodGet)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Msg("starting settlement server")
	log.Fatal().Err(http.ListenAndServe(":"+port, r)).Msg("server stopped")
}

// buildStore picks Postgres when DATABASE_URL is set, the in-memory
// store otherwise. The memory store is seeded with demo accounts from
// SEED_ACCOUNTS (comma-separated ids) so the simulator is usable out of
// the box; account creation itself belongs to the signup flow, not here.
func buildStore() (interfaces.SettlementStore, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			return nil, err
		}
		log.Info().Msg("using postgres store")
		return postgres.NewPostgresStore(db), nil
	}

	store := memory.NewMemoryStore()
	for _, id := range strings.Split(os.Getenv("SEED_ACCOUNTS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			if err := store.CreateAccount(context.Background(), id, defaultOpeningBalance); err != nil {
				return nil, err
			}
			log.Info().Str("account_id", id).Str("balance", defaultOpeningBalance.String()).Msg("seeded account")
		}
	}
	log.Info().Msg("using in-memory store")
	return store, nil
}

func writeTradeError(w http.ResponseWriter, result settlement.TradeResult, err error) {
	var cerr *settlement.CompensationError
	switch {
	case errors.As(err, &cerr):
		// Distinct, loud failure: the account state is divergent and
		// the displayed balance can no longer be trusted.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"outcome": result.Outcome.String(),
			"error":   "trade failed and could not be rolled back; contact support before trading again",
		})
	case errors.Is(err, settlement.ErrInsufficientFunds),
		errors.Is(err, settlement.ErrInsufficientShares):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"outcome": result.Outcome.String(),
			"error":   err.Error(),
		})
	case result.Outcome == settlement.OutcomeRejected:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"outcome": result.Outcome.String(),
			"error":   err.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"outcome": result.Outcome.String(),
			"error":   err.Error(),
		})
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, interfaces.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

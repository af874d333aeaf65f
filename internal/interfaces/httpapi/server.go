package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hfbridge/internal/application"
	"hfbridge/internal/domain"
)

// TransactionService is the canonical operation surface exposed to the
// consuming UI/GraphQL layer.
type TransactionService interface {
	Whoami(ctx context.Context) (domain.Counterparty, error)
	Ledger(ctx context.Context) (domain.Ledger, error)
	AllCompleted(ctx context.Context) ([]domain.Transaction, error)
	AllActionable(ctx context.Context) ([]domain.Transaction, error)
	AllWaiting(ctx context.Context) ([]domain.Transaction, error)
	AllNonPending(ctx context.Context) ([]domain.Transaction, error)
	AllNonActionableByState(ctx context.Context, stateFilter string) ([]domain.Transaction, error)
	GetPending(ctx context.Context, origin string) (domain.Transaction, error)
	GetPendingCanceled(ctx context.Context, origin string) (domain.Transaction, error)
	GetPendingDeclined(ctx context.Context, origin string) (domain.Transaction, error)
	CreateRequest(ctx context.Context, counterparty, amount, notes string) (domain.Transaction, error)
	CreateOffer(ctx context.Context, counterparty, amount, notes, requestOrigin string) (domain.Transaction, error)
	Accept(ctx context.Context, origin string) (domain.Transaction, error)
	AcceptMany(ctx context.Context, origins []string) ([]domain.Transaction, []application.BatchFailure, error)
	AcceptAll(ctx context.Context) ([]domain.Transaction, []application.BatchFailure, error)
	Decline(ctx context.Context, origin string) (domain.Transaction, error)
	Cancel(ctx context.Context, origin string) (domain.Transaction, error)
	RecoverFunds(ctx context.Context, origin string) (domain.Transaction, error)
}

type CounterpartyResolver interface {
	GetCounterparty(ctx context.Context, agentID string) domain.Counterparty
	GetTxCounterparties(ctx context.Context, txs []domain.Transaction) []domain.Counterparty
	Enrich(ctx context.Context, txs []domain.Transaction) []domain.Transaction
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	svc       TransactionService
	resolver  CounterpartyResolver
	metrics   *Metrics
	buildInfo BuildInfo
}

func NewServer(svc TransactionService, resolver CounterpartyResolver, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if svc == nil || resolver == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{svc: svc, resolver: resolver, metrics: metrics, buildInfo: buildInfo}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/user", s.handleUser)
	mux.HandleFunc("/counterparty", s.handleCounterparty)
	mux.HandleFunc("/ledger", s.handleLedger)
	mux.HandleFunc("/transactions/completed", s.listHandler("completed", s.svc.AllCompleted))
	mux.HandleFunc("/transactions/actionable", s.listHandler("actionable", s.svc.AllActionable))
	mux.HandleFunc("/transactions/waiting", s.listHandler("waiting", s.svc.AllWaiting))
	mux.HandleFunc("/transactions/nonpending", s.listHandler("nonpending", s.svc.AllNonPending))
	mux.HandleFunc("/transactions/history", s.handleHistory)
	mux.HandleFunc("/transactions/pending", s.lookupHandler("pending", s.svc.GetPending))
	mux.HandleFunc("/transactions/pending-canceled", s.lookupHandler("pending_canceled", s.svc.GetPendingCanceled))
	mux.HandleFunc("/transactions/pending-declined", s.lookupHandler("pending_declined", s.svc.GetPendingDeclined))
	mux.HandleFunc("/requests", s.handleCreateRequest)
	mux.HandleFunc("/offers", s.handleCreateOffer)
	mux.HandleFunc("/offers/accept", s.mutationHandler("accept", s.svc.Accept))
	mux.HandleFunc("/offers/accept-many", s.handleAcceptMany)
	mux.HandleFunc("/offers/accept-all", s.handleAcceptAll)
	mux.HandleFunc("/transactions/decline", s.mutationHandler("decline", s.svc.Decline))
	mux.HandleFunc("/transactions/cancel", s.mutationHandler("cancel", s.svc.Cancel))
	mux.HandleFunc("/transactions/recover", s.mutationHandler("recover_funds", s.svc.RecoverFunds))
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/version", s.handleVersion)
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError maps the application error taxonomy to status codes.
// NotFound is the caller acting on stale state; rejected and malformed
// backend responses are upstream faults.
func (s *Server) respondAppError(w http.ResponseWriter, op string, err error) {
	s.metrics.IncError(op)
	switch {
	case errors.Is(err, application.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrBackendRejected),
		errors.Is(err, application.ErrUnrecognizedEvent):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

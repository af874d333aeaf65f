package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"hfbridge/internal/application"
	"hfbridge/internal/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.svc.Whoami(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "conductor not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("whoami")
	user, err := s.svc.Whoami(r.Context())
	if err != nil {
		s.respondAppError(w, "whoami", err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleCounterparty(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("counterparty")
	agentID := r.URL.Query().Get("id")
	if agentID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	respondJSON(w, http.StatusOK, s.resolver.GetCounterparty(r.Context(), agentID))
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("ledger")
	ledger, err := s.svc.Ledger(r.Context())
	if err != nil {
		s.respondAppError(w, "ledger", err)
		return
	}
	respondJSON(w, http.StatusOK, ledger)
}

func (s *Server) listHandler(op string, list func(context.Context) ([]domain.Transaction, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncRequest(op)
		txs, err := list(r.Context())
		if err != nil {
			s.respondAppError(w, op, err)
			return
		}
		respondJSON(w, http.StatusOK, s.maybeResolve(r, txs))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("history")
	txs, err := s.svc.AllNonActionableByState(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		s.respondAppError(w, "history", err)
		return
	}
	respondJSON(w, http.StatusOK, s.maybeResolve(r, txs))
}

func (s *Server) lookupHandler(op string, lookup func(context.Context, string) (domain.Transaction, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncRequest(op)
		origin := r.URL.Query().Get("id")
		if origin == "" {
			respondError(w, http.StatusBadRequest, "id is required")
			return
		}
		tx, err := lookup(r.Context(), origin)
		if err != nil {
			s.respondAppError(w, op, err)
			return
		}
		respondJSON(w, http.StatusOK, tx)
	}
}

type createRequestBody struct {
	Counterparty string `json:"counterparty"`
	Amount       string `json:"amount"`
	Notes        string `json:"notes"`
	RequestID    string `json:"request_id"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("create_request")
	body, ok := decodeCreateBody(w, r)
	if !ok {
		return
	}
	tx, err := s.svc.CreateRequest(r.Context(), body.Counterparty, body.Amount, body.Notes)
	if err != nil {
		s.respondAppError(w, "create_request", err)
		return
	}
	s.metrics.IncMutation()
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("create_offer")
	body, ok := decodeCreateBody(w, r)
	if !ok {
		return
	}
	tx, err := s.svc.CreateOffer(r.Context(), body.Counterparty, body.Amount, body.Notes, body.RequestID)
	if err != nil {
		s.respondAppError(w, "create_offer", err)
		return
	}
	s.metrics.IncMutation()
	respondJSON(w, http.StatusCreated, tx)
}

func decodeCreateBody(w http.ResponseWriter, r *http.Request) (createRequestBody, bool) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return createRequestBody{}, false
	}
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return createRequestBody{}, false
	}
	if body.Counterparty == "" || body.Amount == "" {
		respondError(w, http.StatusBadRequest, "counterparty and amount are required")
		return createRequestBody{}, false
	}
	return body, true
}

func (s *Server) mutationHandler(op string, mutate func(context.Context, string) (domain.Transaction, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncRequest(op)
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
			respondError(w, http.StatusBadRequest, "id is required")
			return
		}
		tx, err := mutate(r.Context(), body.ID)
		if err != nil {
			s.respondAppError(w, op, err)
			return
		}
		s.metrics.IncMutation()
		respondJSON(w, http.StatusOK, tx)
	}
}

type batchResponse struct {
	Accepted []domain.Transaction       `json:"accepted"`
	Failed   []application.BatchFailure `json:"failed,omitempty"`
}

func (s *Server) handleAcceptMany(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("accept_many")
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids are required")
		return
	}
	accepted, failed, err := s.svc.AcceptMany(r.Context(), body.IDs)
	if err != nil {
		s.respondAppError(w, "accept_many", err)
		return
	}
	s.metrics.ObserveBatch(len(accepted), len(failed))
	respondJSON(w, http.StatusOK, batchResponse{Accepted: accepted, Failed: failed})
}

func (s *Server) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRequest("accept_all")
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	accepted, failed, err := s.svc.AcceptAll(r.Context())
	if err != nil {
		s.respondAppError(w, "accept_all", err)
		return
	}
	s.metrics.ObserveBatch(len(accepted), len(failed))
	respondJSON(w, http.StatusOK, batchResponse{Accepted: accepted, Failed: failed})
}

// maybeResolve enriches the list with counterparty nicknames when the
// caller asks for it; the extra whois round trips are opt-in.
func (s *Server) maybeResolve(r *http.Request, txs []domain.Transaction) []domain.Transaction {
	if r.URL.Query().Get("resolve") != "1" {
		return txs
	}
	return s.resolver.Enrich(r.Context(), txs)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

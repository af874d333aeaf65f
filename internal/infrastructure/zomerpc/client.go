// Package zomerpc talks to the HoloFuel conductor over its JSON-RPC call
// surface. Field names on the wire are the backend's versioned contract;
// they are decoded into domain records here and nowhere else.
package zomerpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hfbridge/internal/application"
	"hfbridge/internal/domain"
)

const zomeName = "transactions"

type Client struct {
	url        string
	instance   string
	httpClient *http.Client
	idCounter  uint64
}

type Config struct {
	URL      string
	Instance string
	Timeout  time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("conductor url is required")
	}
	if cfg.Instance == "" {
		cfg.Instance = "holofuel"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		instance:   cfg.Instance,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) Whoami(ctx context.Context) (domain.Counterparty, error) {
	var result wireAgent
	if err := c.call(ctx, "whoami", struct{}{}, &result); err != nil {
		return domain.Counterparty{}, err
	}
	return domain.Counterparty{ID: result.PubSignKey, Nickname: result.Nick}, nil
}

func (c *Client) Whois(ctx context.Context, agentID string) (domain.Counterparty, error) {
	args := map[string]any{"agent_id": agentID}
	var result wireAgent
	if err := c.call(ctx, "whois", args, &result); err != nil {
		return domain.Counterparty{}, err
	}
	if result.PubSignKey == "" {
		return domain.Counterparty{}, fmt.Errorf("whois returned no identity for %s", agentID)
	}
	return domain.Counterparty{ID: result.PubSignKey, Nickname: result.Nick}, nil
}

func (c *Client) LedgerState(ctx context.Context) (domain.Ledger, error) {
	var result wireLedger
	if err := c.call(ctx, "ledger_state", struct{}{}, &result); err != nil {
		return domain.Ledger{}, err
	}
	return domain.Ledger{
		Balance:    result.Balance,
		Credit:     result.Credit,
		Payable:    result.Payable,
		Receivable: result.Receivable,
		Fees:       result.Fees,
	}, nil
}

func (c *Client) ListPending(ctx context.Context, origins []string) (domain.PendingSet, error) {
	return c.listPending(ctx, "list_pending", origins)
}

func (c *Client) ListPendingCanceled(ctx context.Context, origins []string) (domain.PendingSet, error) {
	return c.listPending(ctx, "list_pending_canceled", origins)
}

func (c *Client) ListPendingDeclined(ctx context.Context, origins []string) (domain.PendingSet, error) {
	return c.listPending(ctx, "list_pending_declined", origins)
}

func (c *Client) listPending(ctx context.Context, function string, origins []string) (domain.PendingSet, error) {
	args := map[string]any{}
	if len(origins) > 0 {
		args["origins"] = origins
	}
	var result wirePendingSet
	if err := c.call(ctx, function, args, &result); err != nil {
		return domain.PendingSet{}, err
	}

	set := domain.PendingSet{
		Requests: make([]domain.PendingEntry, 0, len(result.Requests)),
		Promises: make([]domain.PendingEntry, 0, len(result.Promises)),
	}
	for _, raw := range result.Requests {
		entry, err := decodePendingEntry(raw)
		if err != nil {
			return domain.PendingSet{}, fmt.Errorf("%s: %w", function, err)
		}
		set.Requests = append(set.Requests, entry)
	}
	for _, raw := range result.Promises {
		entry, err := decodePendingEntry(raw)
		if err != nil {
			return domain.PendingSet{}, fmt.Errorf("%s: %w", function, err)
		}
		set.Promises = append(set.Promises, entry)
	}
	return set, nil
}

func (c *Client) ListTransactions(ctx context.Context, stateFilter string) ([]domain.LedgerRecord, error) {
	args := map[string]any{}
	if stateFilter != "" {
		args["state"] = stateFilter
	}
	var result wireTransactionList
	if err := c.call(ctx, "list_transactions", args, &result); err != nil {
		return nil, err
	}

	records := make([]domain.LedgerRecord, 0, len(result.Transactions))
	for _, raw := range result.Transactions {
		state, err := domain.ParseState(raw.State)
		if err != nil {
			return nil, fmt.Errorf("list_transactions %s: %v: %w", raw.Origin, err, application.ErrUnrecognizedEvent)
		}
		record := domain.LedgerRecord{
			Origin:    raw.Origin,
			State:     state,
			Event:     raw.Event,
			Timestamp: raw.Timestamp.Event,
		}
		if raw.Adjustment.Ok != nil {
			record.Adjustment = domain.Adjustment{
				Fees:             raw.Adjustment.Ok.Fees,
				ResultingBalance: raw.Adjustment.Ok.ResultingBalance,
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) CreateRequest(ctx context.Context, counterparty, amount, notes, deadline string) (string, error) {
	args := map[string]any{
		"from":     counterparty,
		"amount":   amount,
		"notes":    notes,
		"deadline": deadline,
	}
	var origin string
	if err := c.call(ctx, "request", args, &origin); err != nil {
		return "", err
	}
	return origin, nil
}

func (c *Client) CreatePromise(ctx context.Context, counterparty, amount, notes, deadline, requestOrigin string) (string, error) {
	args := map[string]any{
		"to":       counterparty,
		"amount":   amount,
		"notes":    notes,
		"deadline": deadline,
	}
	if requestOrigin != "" {
		args["requestId"] = requestOrigin
	}
	var origin string
	if err := c.call(ctx, "promise", args, &origin); err != nil {
		return "", err
	}
	return origin, nil
}

func (c *Client) DeclinePending(ctx context.Context, origin, reason string) (string, error) {
	return c.callForProof(ctx, "decline_pending", origin, reason)
}

func (c *Client) CancelTransactions(ctx context.Context, origin, reason string) (string, error) {
	return c.callForProof(ctx, "cancel_transactions", origin, reason)
}

func (c *Client) Cancel(ctx context.Context, origin, reason string) (string, error) {
	return c.callForProof(ctx, "cancel", origin, reason)
}

func (c *Client) callForProof(ctx context.Context, function, origin, reason string) (string, error) {
	args := map[string]any{
		"origin": origin,
		"reason": reason,
	}
	var proof string
	if err := c.call(ctx, function, args, &proof); err != nil {
		return "", err
	}
	return proof, nil
}

func (c *Client) ReceivePayments(ctx context.Context, origins []string) (map[string]domain.ReceiveOutcome, error) {
	args := map[string]any{}
	if len(origins) > 0 {
		args["origins"] = origins
	}
	var result map[string]wireOutcome
	if err := c.call(ctx, "receive_payments_pending", args, &result); err != nil {
		return nil, err
	}

	outcomes := make(map[string]domain.ReceiveOutcome, len(result))
	for origin, outcome := range result {
		if outcome.Err != nil {
			outcomes[origin] = domain.ReceiveOutcome{Err: rawToString(outcome.Err)}
			continue
		}
		outcomes[origin] = domain.ReceiveOutcome{OK: true}
	}
	return outcomes, nil
}

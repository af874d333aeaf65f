package zomerpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"hfbridge/internal/application"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	InstanceID string `json:"instance_id"`
	Zome       string `json:"zome"`
	Function   string `json:"function"`
	Args       any    `json:"args"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// zomeEnvelope is the Ok/Err wrapper most zome functions put around their
// result. Some older functions return the payload bare; both forms are
// accepted.
type zomeEnvelope struct {
	Ok  json.RawMessage `json:"Ok"`
	Err json.RawMessage `json:"Err"`
}

func (c *Client) call(ctx context.Context, function string, args any, out any) error {
	tracer := otel.Tracer("hfbridge/zomerpc")
	ctx, span := tracer.Start(ctx, "zome."+function, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("zome.instance", c.instance),
		attribute.String("zome.function", function),
	)

	err := c.doCall(ctx, function, args, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) doCall(ctx context.Context, function string, args any, out any) error {
	id := atomic.AddUint64(&c.idCounter, 1)
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "call",
		Params: rpcParams{
			InstanceID: c.instance,
			Zome:       zomeName,
			Function:   function,
			Args:       args,
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("conductor status %d", resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s: %w", function, decoded.Error.Code, decoded.Error.Message, application.ErrBackendRejected)
	}
	if len(decoded.Result) == 0 {
		return errors.New("conductor result is empty")
	}

	result := decoded.Result
	var envelope zomeEnvelope
	if err := json.Unmarshal(result, &envelope); err == nil {
		if envelope.Err != nil {
			return fmt.Errorf("%s: %s: %w", function, rawToString(envelope.Err), application.ErrBackendRejected)
		}
		if envelope.Ok != nil {
			result = envelope.Ok
		}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(result, out)
}

package banklink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

//go:generate mockgen -destination=mocks/mock_credit_client.go -package=mocks github.com/arhyth/banklink CreditClient

const (
	transferIDHeader = "X-Transfer-ID"
	maxDestBodyBytes = 64 << 10
)

type CreditReq struct {
	ToID     int64           `json:"to_id"`
	Amount   decimal.Decimal `json:"amount"`
	FromBank string          `json:"from_bank"`
	FromID   int64           `json:"from_id"`
	// TransferID travels as a header for log correlation on the receiving
	// side. The destination does not deduplicate on it.
	TransferID snowflake.ID `json:"-"`
}

type CreditResult struct {
	ToID   int64
	Amount decimal.Decimal
}

// CreditClient delivers a credit to the destination bank. A non-2xx answer
// is ErrDestinationRejected; anything that prevents a definite answer is
// ErrNetwork.
type CreditClient interface {
	Credit(ctx context.Context, req CreditReq) error
}

type BreakerSettings struct {
	// MaxFailures is the number of consecutive transport failures that opens
	// the breaker.
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// HTTPCreditClient posts credits to `{baseURL}/api/receive`. Calls are never
// retried. While the breaker is open calls fail fast with ErrNetwork so the
// caller compensates without waiting out the timeout.
type HTTPCreditClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	brkr    *gobreaker.CircuitBreaker[struct{}]
	log     *zerolog.Logger
}

var (
	_ CreditClient = (*HTTPCreditClient)(nil)
)

func NewHTTPCreditClient(baseURL string, timeout time.Duration, bs BreakerSettings, log *zerolog.Logger) *HTTPCreditClient {
	c := &HTTPCreditClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		log:     log,
	}
	c.brkr = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "credit:" + c.baseURL,
		Timeout: bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
		// a rejection is a definite answer, only transport failures count
		IsSuccessful: func(err error) bool {
			var errnet ErrNetwork
			return !errors.As(err, &errnet)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return c
}

func (c *HTTPCreditClient) Credit(ctx context.Context, req CreditReq) error {
	_, err := c.brkr.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrNetwork{Err: err}
	}
	return err
}

func (c *HTTPCreditClient) post(ctx context.Context, req CreditReq) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bits, err := json.Marshal(req)
	if err != nil {
		return ErrNetwork{Err: err}
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/receive", bytes.NewReader(bits))
	if err != nil {
		return ErrNetwork{Err: err}
	}
	hreq.Header.Set("Content-Type", "application/json")
	if req.TransferID != 0 {
		hreq.Header.Set(transferIDHeader, req.TransferID.String())
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return ErrNetwork{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDestBodyBytes))
	if err != nil {
		return ErrNetwork{Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return ErrDestinationRejected{
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	// The status code alone decides success. An unreadable 2xx body is
	// logged; compensating here could duplicate money already credited.
	var ack creditJSONResp
	if err = json.Unmarshal(body, &ack); err != nil {
		c.log.Warn().
			Err(err).
			Str("transfer_id", req.TransferID.String()).
			Msg("destination acknowledged credit with unreadable body")
	}
	return nil
}

package accounting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vidinfra/tariffd/internal/config"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/httpclient"
	"github.com/vidinfra/tariffd/internal/logger"
)

// httpProvider talks to the external ledger system over its JSON API.
type httpProvider struct {
	cfg    *config.Configuration
	client httpclient.Client
	log    *logger.Logger
}

func NewHTTPProvider(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) Provider {
	return &httpProvider{cfg: cfg, client: client, log: log}
}

func (p *httpProvider) send(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if !p.cfg.Accounting.IsConfigured() {
		return ierr.NewError("accounting provider not configured").
			WithHint("no accounting endpoint is set up for this deployment").
			Mark(ierr.ErrProviderNotConfigured)
	}

	u := strings.TrimRight(p.cfg.Accounting.APIURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to encode accounting request").
				Mark(ierr.ErrValidation)
		}
	}

	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    u,
		Headers: map[string]string{
			"Authorization": "Bearer " + p.cfg.Accounting.APIKey,
		},
		Body: payload,
	})
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.IsNotFound() {
			return ierr.WithError(err).
				WithHintf("ledger has no record for %s", path).
				Mark(ierr.ErrNotFound)
		}
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return ierr.WithError(err).
				WithHint("failed to decode accounting response").
				Mark(ierr.ErrHTTPClient)
		}
	}
	return nil
}

func (p *httpProvider) GetBalance(ctx context.Context, tenantID string) (*Balance, error) {
	var balance Balance
	path := fmt.Sprintf("/balances/%s", url.PathEscape(tenantID))
	if err := p.send(ctx, http.MethodGet, path, nil, nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (p *httpProvider) OpenSession(ctx context.Context, tenantID string) (*Session, error) {
	var session Session
	path := fmt.Sprintf("/sessions/%s", url.PathEscape(tenantID))
	if err := p.send(ctx, http.MethodPost, path, nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// PerformOperation applies the mutation and long-polls the balance until the
// asynchronous ledger write becomes observable. It must give up and log
// rather than hang indefinitely.
func (p *httpProvider) PerformOperation(ctx context.Context, tenantID string, session *Session, op Operation) error {
	if session == nil {
		return ierr.NewError("nil accounting session").
			WithHint("open a session before performing operations").
			Mark(ierr.ErrValidation)
	}

	before, err := p.GetBalance(ctx, tenantID)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/sessions/%s/operations", url.PathEscape(session.SessionID))
	if err := p.send(ctx, http.MethodPost, path, nil, op, nil); err != nil {
		return err
	}

	poll := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(p.cfg.Accounting.LongPollInterval),
			p.cfg.Accounting.LongPollAttempts,
		),
		ctx,
	)

	err = backoff.Retry(func() error {
		after, err := p.GetBalance(ctx, tenantID)
		if err != nil {
			return err
		}
		if after.Amount.Equal(before.Amount) && !after.AsOf.After(before.AsOf) {
			return ierr.NewError("operation not yet observable").
				WithHintf("balance unchanged for operation %s", op.OperationID).
				Mark(ierr.ErrSystem)
		}
		return nil
	}, poll)
	if err != nil {
		p.log.Errorw("gave up waiting for ledger operation to become observable",
			"tenant_id", tenantID,
			"operation_id", op.OperationID,
			"error", err)
	}
	return nil
}

func (p *httpProvider) GetOperations(ctx context.Context, tenantID string, from, to time.Time) ([]OperationRecord, error) {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))

	var records []OperationRecord
	path := fmt.Sprintf("/balances/%s/operations", url.PathEscape(tenantID))
	if err := p.send(ctx, http.MethodGet, path, query, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *httpProvider) GetCurrencies(ctx context.Context) ([]Currency, error) {
	var currencies []Currency
	if err := p.send(ctx, http.MethodGet, "/currencies", nil, nil, &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}

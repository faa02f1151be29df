package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vidinfra/tariffd/internal/config"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/httpclient"
	"github.com/vidinfra/tariffd/internal/logger"
)

// httpProvider talks to the external subscription system over its JSON API.
type httpProvider struct {
	cfg    *config.Configuration
	client httpclient.Client
	log    *logger.Logger
}

func NewHTTPProvider(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) Provider {
	return &httpProvider{cfg: cfg, client: client, log: log}
}

func (p *httpProvider) notConfigured() error {
	return ierr.NewError("billing provider not configured").
		WithHint("no billing endpoint is set up for this deployment").
		Mark(ierr.ErrProviderNotConfigured)
}

func (p *httpProvider) send(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if !p.cfg.Billing.IsConfigured() {
		return p.notConfigured()
	}

	u := strings.TrimRight(p.cfg.Billing.APIURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to encode provider request").
				Mark(ierr.ErrValidation)
		}
	}

	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    u,
		Headers: map[string]string{
			"Authorization": "Bearer " + p.cfg.Billing.APIKey,
		},
		Body: payload,
	})
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.IsNotFound() {
			return ierr.WithError(err).
				WithHintf("provider has no record for %s", path).
				Mark(ierr.ErrNotFound)
		}
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return ierr.WithError(err).
				WithHint("failed to decode provider response").
				Mark(ierr.ErrHTTPClient)
		}
	}
	return nil
}

func (p *httpProvider) GetCurrentPayments(ctx context.Context, portalID string, forceRefresh bool) ([]PaymentRow, error) {
	query := url.Values{}
	if forceRefresh {
		query.Set("refresh", "true")
	}

	var rows []PaymentRow
	path := fmt.Sprintf("/payments/%s/current", url.PathEscape(portalID))
	if err := p.send(ctx, http.MethodGet, path, query, nil, &rows); err != nil {
		return nil, err
	}

	// Callers fold rows in coverage order.
	sort.Slice(rows, func(i, j int) bool { return rows[i].EndDate.Before(rows[j].EndDate) })
	return rows, nil
}

func (p *httpProvider) ChangeSubscription(ctx context.Context, portalID string, quantities map[string]int) (bool, error) {
	var result struct {
		Changed bool `json:"changed"`
	}
	path := fmt.Sprintf("/subscriptions/%s", url.PathEscape(portalID))
	body := map[string]any{"quantities": quantities}
	if err := p.send(ctx, http.MethodPut, path, nil, body, &result); err != nil {
		return false, err
	}
	return result.Changed, nil
}

func (p *httpProvider) CalculateSubscription(ctx context.Context, portalID string, quantities map[string]int) (decimal.Decimal, error) {
	var result struct {
		Amount decimal.Decimal `json:"amount"`
	}
	path := fmt.Sprintf("/subscriptions/%s/calculate", url.PathEscape(portalID))
	body := map[string]any{"quantities": quantities}
	if err := p.send(ctx, http.MethodPost, path, nil, body, &result); err != nil {
		return decimal.Zero, err
	}
	return result.Amount, nil
}

func (p *httpProvider) GetCustomerInfo(ctx context.Context, portalID string) (*Customer, error) {
	var customer Customer
	path := fmt.Sprintf("/customers/%s", url.PathEscape(portalID))
	if err := p.send(ctx, http.MethodGet, path, nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (p *httpProvider) GetAccountLink(ctx context.Context, portalID string, backURL string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	query := url.Values{}
	query.Set("back_url", backURL)
	path := fmt.Sprintf("/customers/%s/account-link", url.PathEscape(portalID))
	if err := p.send(ctx, http.MethodGet, path, query, nil, &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

func (p *httpProvider) GetPaymentURL(ctx context.Context, portalID string, productIDs []string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	query := url.Values{}
	query.Set("products", strings.Join(productIDs, ","))
	path := fmt.Sprintf("/payments/%s/url", url.PathEscape(portalID))
	if err := p.send(ctx, http.MethodGet, path, query, nil, &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

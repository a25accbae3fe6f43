// Package fec talks to the FEC HTTP API and classifies what comes back.
package fec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"fecharvest/internal/collect/metrics"
	"fecharvest/internal/collect/ratelimit"
	"fecharvest/internal/core/domain"
)

// CallError is the structured failure from a single API call. Kind is set
// for transport-level failures; Status for non-2xx responses.
type CallError struct {
	Kind    domain.ErrorKind
	Status  int
	Message string
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Options configures the API client.
type Options struct {
	BaseURL     string
	Key         string
	CallTimeout time.Duration
	PageSize    int
}

// Client issues single-attempt requests against the FEC API. It never
// retries; retry policy belongs to the collection passes. Every outbound
// call consumes one limiter permit.
type Client struct {
	http     *resty.Client
	limiter  *ratelimit.Limiter
	pageSize int
	log      *slog.Logger
}

// NewClient creates an API client sharing the given limiter.
func NewClient(opts Options, limiter *ratelimit.Limiter) *Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.CallTimeout)
	client.SetQueryParam("api_key", opts.Key)
	client.SetHeader("user-agent", "fecharvest/1.0")
	client.SetRetryCount(0)

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		http:     client,
		limiter:  limiter,
		pageSize: pageSize,
		log:      slog.Default(),
	}
}

// FetchEntity performs the fixed call sequence for one entity. The returned
// error, when non-nil, is either ctx's error or a *CallError for the
// classifier.
func (c *Client) FetchEntity(ctx context.Context, entity domain.Entity) (*EntityData, error) {
	data := &EntityData{}

	var totals totalsResponse
	err := c.get(ctx, "/candidate/"+entity.ID+"/totals/", map[string]string{
		"cycle": strconv.Itoa(entity.Cycle),
	}, &totals)
	if err != nil {
		return nil, err
	}
	if totals.Pagination == nil {
		return nil, &CallError{Kind: domain.ErrorKindSchema, Message: "totals response missing pagination"}
	}

	var committees committeeListResponse
	err = c.get(ctx, "/candidate/"+entity.ID+"/committees/", map[string]string{
		"cycle": strconv.Itoa(entity.Cycle),
	}, &committees)
	if err != nil {
		return nil, err
	}
	if committees.Pagination == nil {
		return nil, &CallError{Kind: domain.ErrorKindSchema, Message: "committees response missing pagination"}
	}
	if committees.Pagination.Count == 0 && len(committees.Results) == 0 {
		data.NoCommittees = true
		return data, nil
	}

	for _, committee := range committees.Results {
		// Only committees whose filings are attributed to the
		// candidate's primary total.
		if committee.Designation != string(domain.DesignationPrincipal) &&
			committee.Designation != string(domain.DesignationAuthorized) {
			continue
		}

		reports, explicitEmpty, err := c.fetchReports(ctx, committee.CommitteeID, entity.Cycle)
		if err != nil {
			return nil, err
		}
		data.Committees = append(data.Committees, CommitteeReports{
			Committee:     committee,
			Reports:       reports,
			ExplicitEmpty: explicitEmpty,
		})
	}

	return data, nil
}

// fetchReports pages through all filing-period reports for a committee.
func (c *Client) fetchReports(
	ctx context.Context,
	committeeID string,
	cycle int,
) ([]Report, bool, error) {
	var all []Report

	page := 1
	for {
		var resp reportListResponse
		err := c.get(ctx, "/committee/"+committeeID+"/reports/", map[string]string{
			"cycle":    strconv.Itoa(cycle),
			"per_page": strconv.Itoa(c.pageSize),
			"page":     strconv.Itoa(page),
		}, &resp)
		if err != nil {
			return nil, false, err
		}
		if resp.Pagination == nil {
			return nil, false, &CallError{
				Kind:    domain.ErrorKindSchema,
				Message: fmt.Sprintf("reports response for %s missing pagination", committeeID),
			}
		}
		if resp.Pagination.Count == 0 && page == 1 {
			return nil, true, nil
		}

		all = append(all, resp.Results...)

		if page >= resp.Pagination.Pages || len(resp.Results) == 0 {
			break
		}
		page++
	}

	return all, false, nil
}

// get performs one rate-limited GET and decodes the response. Single
// attempt by design.
func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	metrics.RequestLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		kind := domain.ErrorKindNetwork
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = domain.ErrorKindTimeout
		} else if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.ErrorKindTimeout
		}
		metrics.RequestsTotal.WithLabelValues(string(kind)).Inc()
		return &CallError{Kind: kind, Message: err.Error()}
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusTooManyRequests:
		metrics.RequestsTotal.WithLabelValues("rate_limited").Inc()
		return &CallError{Status: status, Message: "rate limited"}
	case status >= 500:
		metrics.RequestsTotal.WithLabelValues("server_error").Inc()
		return &CallError{Status: status, Kind: domain.ErrorKindServer, Message: truncate(resp.String(), 200)}
	case status >= 400:
		metrics.RequestsTotal.WithLabelValues("client_error").Inc()
		return &CallError{Status: status, Message: truncate(resp.String(), 200)}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		metrics.RequestsTotal.WithLabelValues("schema_error").Inc()
		return &CallError{Kind: domain.ErrorKindSchema, Message: "malformed payload: " + err.Error()}
	}

	metrics.RequestsTotal.WithLabelValues("ok").Inc()
	c.log.Debug("API call", "path", path, "status", status)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

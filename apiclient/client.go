// Package apiclient is the remote access layer over the drug REST API.
// Every operation issues one JSON request against a fixed base origin.
// Reads degrade to built-in demo data when the API cannot be reached;
// mutations never do.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/logging"
	"github.com/giygas/drugdb/metrics"
	"github.com/giygas/drugdb/result"
	"github.com/google/uuid"
	"github.com/juju/ratelimit"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"
)

// Compile-time check to ensure Client implements DrugAPI
var _ interfaces.DrugAPI = (*Client)(nil)

const (
	defaultTimeout          = 30 * time.Second
	defaultAssociationLimit = 4
	maxResponseSize         = 10 * 1024 * 1024
)

// Client talks to the drug REST API
type Client struct {
	baseURL          string
	httpClient       *http.Client
	limiter          *ratelimit.Bucket
	associationLimit int
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit throttles outbound requests to perSecond with the given burst
func WithRateLimit(perSecond float64, burst int64) Option {
	return func(c *Client) {
		c.limiter = ratelimit.NewBucketWithRate(perSecond, burst)
	}
}

// WithAssociationLimit bounds how many association requests run at once
// after a drug is created
func WithAssociationLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.associationLimit = n
		}
	}
}

// New creates a client for the API at baseURL (e.g. http://localhost:5000)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:          baseURL,
		httpClient:       &http.Client{Timeout: defaultTimeout},
		associationLimit: defaultAssociationLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API origin this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDrugs fetches GET /drugs
func (c *Client) ListDrugs(ctx context.Context) result.Result[[]entities.DrugSummary] {
	var drugs []entities.DrugSummary
	if err := c.do(ctx, "list_drugs", http.MethodGet, "/drugs", nil, &drugs); err != nil {
		return degradeOnTransport("list_drugs", err, FallbackDrugs)
	}
	if drugs == nil {
		drugs = []entities.DrugSummary{}
	}
	return result.Ok(drugs)
}

// GetDrug fetches GET /drugs/{id}
func (c *Client) GetDrug(ctx context.Context, id int) result.Result[entities.DrugRecord] {
	var drug entities.DrugRecord
	if err := c.do(ctx, "get_drug", http.MethodGet, drugPath(id), nil, &drug); err != nil {
		return degradeOnTransport("get_drug", err, func() entities.DrugRecord { return FallbackDrug(id) })
	}
	return result.Ok(drug)
}

// ListManufacturers fetches GET /manufacturers
func (c *Client) ListManufacturers(ctx context.Context) result.Result[[]entities.Manufacturer] {
	var manufacturers []entities.Manufacturer
	if err := c.do(ctx, "list_manufacturers", http.MethodGet, "/manufacturers", nil, &manufacturers); err != nil {
		return degradeOnTransport("list_manufacturers", err, FallbackManufacturers)
	}
	if manufacturers == nil {
		manufacturers = []entities.Manufacturer{}
	}
	return result.Ok(manufacturers)
}

// CreateDrug issues POST /drugs, then attaches the requested manufacturers
// and molecules in parallel. Association failures are logged and do not
// fail the creation: the drug already exists server-side at that point.
func (c *Client) CreateDrug(ctx context.Context, drug entities.DrugCreate) (entities.CreateResponse, error) {
	var created entities.CreateResponse
	if err := c.do(ctx, "create_drug", http.MethodPost, "/drugs", drug, &created); err != nil {
		return entities.CreateResponse{}, err
	}

	if len(drug.ManufacturerIDs) == 0 && len(drug.MoleculeIDs) == 0 {
		return created, nil
	}
	if created.DrugID == 0 {
		logging.Warn("Create response carried no DrugID, skipping associations",
			"manufacturers", len(drug.ManufacturerIDs), "molecules", len(drug.MoleculeIDs))
		return created, nil
	}

	c.attachAll(ctx, created.DrugID, drug.ManufacturerIDs, drug.MoleculeIDs)
	return created, nil
}

func (c *Client) attachAll(ctx context.Context, drugID int, manufacturerIDs, moleculeIDs []int) {
	var g errgroup.Group
	g.SetLimit(c.associationLimit)

	for _, manufacturerID := range manufacturerIDs {
		g.Go(func() error {
			if err := c.AttachManufacturer(ctx, drugID, manufacturerID); err != nil {
				logging.Warn("Failed to attach manufacturer to new drug",
					"drug_id", drugID, "manufacturer_id", manufacturerID, "error", err)
				return err
			}
			return nil
		})
	}

	for _, moleculeID := range moleculeIDs {
		g.Go(func() error {
			if err := c.AttachMolecule(ctx, drugID, moleculeID); err != nil {
				logging.Warn("Failed to attach molecule to new drug",
					"drug_id", drugID, "molecule_id", moleculeID, "error", err)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logging.Warn("Drug created with incomplete associations", "drug_id", drugID, "error", err)
	}
}

// UpdateDrug issues PUT /drugs/{id} with the non-nil fields of update
func (c *Client) UpdateDrug(ctx context.Context, id int, update entities.DrugUpdate) error {
	return c.do(ctx, "update_drug", http.MethodPut, drugPath(id), update, nil)
}

// DeleteDrug issues DELETE /drugs/{id}
func (c *Client) DeleteDrug(ctx context.Context, id int) error {
	return c.do(ctx, "delete_drug", http.MethodDelete, drugPath(id), nil, nil)
}

// AttachManufacturer issues POST /drugs/{id}/manufacturers
func (c *Client) AttachManufacturer(ctx context.Context, drugID, manufacturerID int) error {
	body := entities.AttachManufacturer{ManufacturerID: manufacturerID}
	return c.do(ctx, "attach_manufacturer", http.MethodPost, drugPath(drugID)+"/manufacturers", body, nil)
}

// AttachMolecule issues POST /drugs/{id}/molecules
func (c *Client) AttachMolecule(ctx context.Context, drugID, moleculeID int) error {
	body := entities.AttachMolecule{MoleculeID: moleculeID}
	return c.do(ctx, "attach_molecule", http.MethodPost, drugPath(drugID)+"/molecules", body, nil)
}

// CreateManufacturer issues POST /manufacturers
func (c *Client) CreateManufacturer(ctx context.Context, manufacturer entities.ManufacturerCreate) (entities.CreateResponse, error) {
	var created entities.CreateResponse
	if err := c.do(ctx, "create_manufacturer", http.MethodPost, "/manufacturers", manufacturer, &created); err != nil {
		return entities.CreateResponse{}, err
	}
	return created, nil
}

func drugPath(id int) string {
	return "/drugs/" + strconv.Itoa(id)
}

// degradeOnTransport substitutes fallback data for network-level failures
// only. HTTP error answers and cancelled contexts stay failures.
func degradeOnTransport[T any](operation string, err error, fallback func() T) result.Result[T] {
	if IsTransport(err) {
		logging.Warn("Drug API unreachable, serving fallback data", "operation", operation, "error", err)
		return result.Degraded(fallback(), err)
	}
	return result.Failed[T](err)
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil)
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, body, out)
	metrics.ObserveUpstream(operation, outcomeLabel(err), time.Since(start))

	if err != nil {
		logging.Debug("Drug API request failed", "operation", operation, "method", method, "path", path, "error", err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return transportError(method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return transportError(method, path, err)
	}
	data = toUTF8(data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// wait blocks until the outbound limiter grants a token or ctx ends
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}

	d := c.limiter.Take(1)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// toUTF8 decodes bodies the server sent as ISO-8859-1
func toUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if IsTransport(err) {
		return "transport_error"
	}
	if apiErr, ok := AsAPIError(err); ok {
		return strconv.Itoa(apiErr.StatusCode)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "error"
}

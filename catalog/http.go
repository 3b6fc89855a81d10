package catalog

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/csc-fi/etsin-harvester/hub"
)

const (
	datasetsPath     = "/rest/datasets"
	dataCatalogsPath = "/rest/datacatalogs"

	// maxResponseBody caps how much of a response is read.
	maxResponseBody = 1 << 20
)

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	cfg     Config
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// New creates a catalog client.
func New(cfg Config) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &HTTPClient{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Create posts a new catalog record. A 409 Conflict is resolved by looking
// up the existing record by preferred identifier.
func (c *HTTPClient) Create(ctx context.Context, ds *Dataset) (CreateResult, error) {
	payload, err := c.envelope(ds, "")
	if err != nil {
		return CreateResult{}, err
	}

	resp, err := c.do(ctx, "create", http.MethodPost, datasetsPath, payload)
	if err != nil {
		return CreateResult{}, err
	}

	switch {
	case resp.ok():
		id, err := identifierFrom(resp.body)
		if err != nil {
			return CreateResult{}, fmt.Errorf("create: %w", err)
		}
		return CreateResult{RemoteID: id}, nil
	case resp.status == http.StatusConflict:
		slog.Debug("catalog record already exists", "preferred_identifier", ds.Record.PreferredIdentifier)
		id, err := c.lookupByPreferredIdentifier(ctx, ds.Record.PreferredIdentifier)
		if err != nil {
			return CreateResult{}, err
		}
		return CreateResult{RemoteID: id, Existed: true}, nil
	default:
		return CreateResult{}, resp.remoteError("create", payload)
	}
}

// Update replaces a catalog record.
func (c *HTTPClient) Update(ctx context.Context, remoteID string, ds *Dataset) error {
	payload, err := c.envelope(ds, remoteID)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, "update", http.MethodPut, datasetPath(remoteID), payload)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.remoteError("update", payload)
	}
	return nil
}

// Delete removes a catalog record.
func (c *HTTPClient) Delete(ctx context.Context, remoteID string) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, datasetPath(remoteID), nil)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.remoteError("delete", nil)
	}
	return nil
}

// Exists checks a catalog record with a HEAD request. 404 and 410 mean the
// record is gone; any other non-2xx status is a RemoteError.
func (c *HTTPClient) Exists(ctx context.Context, remoteID string) (bool, error) {
	if remoteID == "" {
		return false, nil
	}
	return c.head(ctx, "exists", datasetPath(remoteID))
}

func (c *HTTPClient) head(ctx context.Context, op, path string) (bool, error) {
	resp, err := c.do(ctx, op, http.MethodHead, path, nil)
	if err != nil {
		return false, err
	}
	switch {
	case resp.ok():
		return true, nil
	case resp.status == http.StatusNotFound || resp.status == http.StatusGone:
		return false, nil
	default:
		return false, resp.remoteError(op, nil)
	}
}

func (c *HTTPClient) lookupByPreferredIdentifier(ctx context.Context, pid string) (string, error) {
	path := datasetsPath + "?preferred_identifier=" + url.QueryEscape(pid)
	resp, err := c.do(ctx, "lookup", http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", resp.remoteError("lookup", nil)
	}
	id, err := identifierFrom(resp.body)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", pid, err)
	}
	return id, nil
}

// envelope wraps the record in the catalog record shape.
func (c *HTTPClient) envelope(ds *Dataset, remoteID string) ([]byte, error) {
	if ds == nil || ds.Record == nil {
		return nil, errors.New("catalog: nil dataset")
	}
	rd, err := hub.ToStruct(ds.Record)
	if err != nil {
		return nil, err
	}

	env := &structpb.Struct{Fields: map[string]*structpb.Value{
		"data_catalog":           structpb.NewStringValue(ds.DataCatalog),
		"metadata_provider_org":  structpb.NewStringValue(c.cfg.MetadataProviderOrg),
		"metadata_provider_user": structpb.NewStringValue(c.cfg.MetadataProviderUser),
		"research_dataset":       structpb.NewStructValue(rd),
	}}
	if remoteID != "" {
		env.Fields["identifier"] = structpb.NewStringValue(remoteID)
	}

	data, err := protojson.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding catalog record: %w", err)
	}
	return data, nil
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) remoteError(op string, payload []byte) *RemoteError {
	return &RemoteError{Op: op, Status: r.status, Body: string(r.body), Payload: payload}
}

// do sends one request. Transport failures come back as
// *RemoteTransientError; HTTP error statuses are left to the caller.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body []byte) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &RemoteTransientError{Op: op, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteTransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &RemoteTransientError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	slog.Debug("catalog request", "op", op, "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	return &response{status: resp.StatusCode, body: data}, nil
}

func datasetPath(remoteID string) string {
	return datasetsPath + "/" + url.PathEscape(remoteID)
}

// identifierFrom reads "identifier" from a JSON object, or from the first
// element of a JSON array or of a paginated "results" list.
func identifierFrom(body []byte) (string, error) {
	var v structpb.Value
	if err := protojson.Unmarshal(body, &v); err != nil {
		return "", fmt.Errorf("decoding catalog response: %w", err)
	}

	obj := v.GetStructValue()
	if list := v.GetListValue(); list != nil {
		if len(list.GetValues()) == 0 {
			return "", errors.New("catalog response is an empty list")
		}
		obj = list.GetValues()[0].GetStructValue()
	} else if results := obj.GetFields()["results"].GetListValue(); results != nil {
		if len(results.GetValues()) == 0 {
			return "", errors.New("catalog response has no results")
		}
		obj = results.GetValues()[0].GetStructValue()
	}

	id := obj.GetFields()["identifier"].GetStringValue()
	if id == "" {
		return "", errors.New("catalog response has no identifier")
	}
	return id, nil
}

// Package devops provides a client for the Azure DevOps work item REST API.
package devops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/microerror"
)

const (
	DefaultBaseURL    = "https://dev.azure.com"
	DefaultAPIVersion = "7.0"

	// batchSize is the service limit for ids per work item batch request.
	batchSize = 200
)

// fields requested for every work item.
var fields = []string{
	"System.Id",
	"System.Title",
	"System.WorkItemType",
	"System.Tags",
	"System.State",
	"System.IterationPath",
	"System.AreaPath",
}

// Config holds Azure DevOps connection settings.
type Config struct {
	BaseURL      string // e.g. https://dev.azure.com
	Organization string // e.g. Grupo-KFC
	Project      string // e.g. SIR
	Token        string // personal access token
	APIVersion   string
	Timeout      time.Duration
}

// Client is an Azure DevOps REST API client scoped to one project.
type Client struct {
	baseURL      string
	organization string
	project      string
	token        string
	apiVersion   string
	httpClient   *http.Client
}

// New creates a new Azure DevOps client.
func New(cfg Config) (*Client, error) {
	if cfg.Organization == "" {
		return nil, microerror.Maskf(invalidConfigError, "organization must not be empty")
	}
	if cfg.Project == "" {
		return nil, microerror.Maskf(invalidConfigError, "project must not be empty")
	}
	if cfg.Token == "" {
		return nil, microerror.Maskf(authError, "token must not be empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		organization: cfg.Organization,
		project:      cfg.Project,
		token:        cfg.Token,
		apiVersion:   cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Project returns the configured team project.
func (c *Client) Project() string {
	return c.project
}

// WorkItemURL returns the browser link for a work item.
func (c *Client) WorkItemURL(id string) string {
	return fmt.Sprintf("%s/%s/%s/_workitems/edit/%s",
		c.baseURL, url.PathEscape(c.organization), url.PathEscape(c.project), url.PathEscape(id))
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlResponse struct {
	WorkItems []struct {
		ID int64 `json:"id"`
	} `json:"workItems"`
}

type workItemsResponse struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

// WorkItem is the loosely-typed payload returned by the work items API.
type WorkItem struct {
	ID     json.RawMessage            `json:"id"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// QueryIDs runs a WIQL query for work items tagged with tag and returns
// their ids, newest first.
func (c *Client) QueryIDs(ctx context.Context, tag string) ([]int64, error) {
	query := fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.Tags] CONTAINS '%s' AND [System.TeamProject] = '%s' ORDER BY [System.Id] DESC",
		escapeWIQL(tag), escapeWIQL(c.project),
	)
	body, err := json.Marshal(wiqlRequest{Query: query})
	if err != nil {
		return nil, microerror.Mask(err)
	}

	data, err := c.do(ctx, http.MethodPost, c.projectURL("wit/wiql", nil), body)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	var resp wiqlResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode wiql response: %w", queryError, err)
	}

	ids := make([]int64, 0, len(resp.WorkItems))
	for _, wi := range resp.WorkItems {
		ids = append(ids, wi.ID)
	}
	return ids, nil
}

// GetWorkItems fetches the given ids in batches and returns them in the
// order requested. An id the service omits fails the whole call.
func (c *Client) GetWorkItems(ctx context.Context, ids []int64) ([]WorkItem, error) {
	byID := make(map[string]WorkItem, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))

		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, fmt.Sprintf("%d", id))
		}
		params := url.Values{
			"ids":    {strings.Join(parts, ",")},
			"fields": {strings.Join(fields, ",")},
		}

		data, err := c.do(ctx, http.MethodGet, c.projectURL("wit/workitems", params), nil)
		if err != nil {
			return nil, microerror.Mask(err)
		}

		var resp workItemsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("%w: decode work items: %w", queryError, err)
		}
		for _, wi := range resp.Value {
			byID[strings.Trim(string(wi.ID), `"`)] = wi
		}
	}

	items := make([]WorkItem, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		wi, ok := byID[fmt.Sprintf("%d", id)]
		if !ok {
			missing = append(missing, id)
			continue
		}
		items = append(items, wi)
	}
	if len(missing) > 0 {
		return nil, microerror.Maskf(queryError, "work items %v missing from response", missing)
	}
	return items, nil
}

// Ping checks that the credentials can read the configured project.
func (c *Client) Ping(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/%s/_apis/projects/%s?%s",
		c.baseURL, url.PathEscape(c.organization), url.PathEscape(c.project),
		url.Values{"api-version": {c.apiVersion}}.Encode())
	if _, err := c.do(ctx, http.MethodGet, reqURL, nil); err != nil {
		return microerror.Mask(err)
	}
	return nil
}

func (c *Client) projectURL(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api-version", c.apiVersion)
	return fmt.Sprintf("%s/%s/%s/_apis/%s?%s",
		c.baseURL, url.PathEscape(c.organization), url.PathEscape(c.project), path, params.Encode())
}

func (c *Client) do(ctx context.Context, method, reqURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", queryError, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+c.token)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", queryError, method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", queryError, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, microerror.Maskf(authError, "Azure DevOps API returned %d, check the personal access token", resp.StatusCode)
	case resp.StatusCode == http.StatusNonAuthoritativeInfo:
		// An expired or malformed token gets a 203 with the sign-in page.
		return nil, microerror.Maskf(authError, "Azure DevOps API returned the sign-in page, check the personal access token")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, microerror.Maskf(queryError, "Azure DevOps API returned %d: %s", resp.StatusCode, string(data[:min(len(data), 200)]))
	}

	return data, nil
}

func escapeWIQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

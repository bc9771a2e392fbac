package devops

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir-timeline/timeline/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:      srv.URL,
		Organization: "Grupo-KFC",
		Project:      "SIR",
		Token:        "test-token",
	})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFindByVersionTag(t *testing.T) {
	var wiql string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte(":test-token"))
		if r.Header.Get("Authorization") != wantAuth {
			t.Errorf("unexpected auth: %s", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("api-version") != "7.0" {
			t.Errorf("api-version: got %q", r.URL.Query().Get("api-version"))
		}

		switch r.URL.Path {
		case "/Grupo-KFC/SIR/_apis/wit/wiql":
			if r.Method != http.MethodPost {
				t.Errorf("wiql method: got %s", r.Method)
			}
			var req wiqlRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			wiql = req.Query
			writeJSON(w, map[string]any{"workItems": []map[string]any{{"id": 20}, {"id": 10}}})
		case "/Grupo-KFC/SIR/_apis/wit/workitems":
			if got := r.URL.Query().Get("ids"); got != "20,10" {
				t.Errorf("ids: got %q", got)
			}
			// Returned out of order on purpose.
			writeJSON(w, map[string]any{"count": 2, "value": []map[string]any{
				{"id": 10, "fields": map[string]any{
					"System.Title": "Second", "System.WorkItemType": "Bug", "System.Tags": "V.1.58.1.1; ECU",
					"System.State": "Done", "System.IterationPath": `SIR\Sprint 21`, "System.AreaPath": `SIR\Back`,
				}},
				{"id": 20, "fields": map[string]any{"System.Title": "First", "System.Tags": nil}},
			}})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
		}
	})

	tickets, err := c.FindByVersionTag(context.Background(), "V.1.58.1.1")
	require.NoError(t, err)
	assert.Contains(t, wiql, "[System.Tags] CONTAINS 'V.1.58.1.1'")
	assert.Contains(t, wiql, "[System.TeamProject] = 'SIR'")

	assert.Equal(t, []model.Ticket{
		{ID: "20", Title: "First"},
		{ID: "10", Title: "Second", Kind: "Bug", Tags: "V.1.58.1.1; ECU", State: "Done", IterationPath: `SIR\Sprint 21`, AreaPath: `SIR\Back`},
	}, tickets)
}

func TestFindByVersionTagEmpty(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, map[string]any{"workItems": []any{}})
	})

	tickets, err := c.FindByVersionTag(context.Background(), "V.9.9")
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
	assert.Equal(t, 1, calls, "no work item fetch when the query is empty")
}

func TestFindByVersionTagBatches(t *testing.T) {
	const total = 250
	var batches []int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/wiql") {
			items := make([]map[string]any, 0, total)
			for i := total; i > 0; i-- {
				items = append(items, map[string]any{"id": i})
			}
			writeJSON(w, map[string]any{"workItems": items})
			return
		}
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		batches = append(batches, len(ids))
		var value []map[string]any
		for _, id := range ids {
			value = append(value, map[string]any{"id": json.Number(id), "fields": map[string]any{"System.Title": "t" + id}})
		}
		writeJSON(w, map[string]any{"count": len(value), "value": value})
	})

	tickets, err := c.FindByVersionTag(context.Background(), "V.1.0")
	require.NoError(t, err)
	assert.Equal(t, []int{200, 50}, batches)
	require.Len(t, tickets, total)
	assert.Equal(t, fmt.Sprint(total), tickets[0].ID)
	assert.Equal(t, "1", tickets[total-1].ID)
}

func TestFindByVersionTagMissingWorkItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/wiql") {
			writeJSON(w, map[string]any{"workItems": []map[string]any{{"id": 3}, {"id": 2}, {"id": 1}}})
			return
		}
		writeJSON(w, map[string]any{"count": 2, "value": []map[string]any{
			{"id": 3, "fields": map[string]any{"System.Title": "three"}},
			{"id": 1, "fields": map[string]any{"System.Title": "one"}},
		}})
	})

	tickets, err := c.FindByVersionTag(context.Background(), "V.1.0")
	require.Error(t, err)
	assert.True(t, IsQuery(err), "want query error, got %v", err)
	assert.Nil(t, tickets)
}

func TestFindByVersionTagErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		isAuth  bool
		isQuery bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, isAuth: true},
		{name: "forbidden", status: http.StatusForbidden, isAuth: true},
		{name: "sign-in page", status: http.StatusNonAuthoritativeInfo, body: "<html>", isAuth: true},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", isQuery: true},
		{name: "bad wiql", status: http.StatusBadRequest, body: `{"message":"TF51005"}`, isQuery: true},
		{name: "malformed json", status: http.StatusOK, body: "{", isQuery: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.FindByVersionTag(context.Background(), "V.1.0")
			require.Error(t, err)
			assert.Equal(t, tt.isAuth, IsAuth(err), "IsAuth: %v", err)
			assert.Equal(t, tt.isQuery, IsQuery(err), "IsQuery: %v", err)
			assert.Contains(t, err.Error(), "V.1.0")
		})
	}
}

func TestFindByVersionTagUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Organization: "o", Project: "p", Token: "t"})
	require.NoError(t, err)

	_, err = c.FindByVersionTag(context.Background(), "V.1.0")
	assert.True(t, IsQuery(err))
}

func TestWIQLEscapesQuotes(t *testing.T) {
	var wiql string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req wiqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		wiql = req.Query
		writeJSON(w, map[string]any{"workItems": []any{}})
	})

	_, err := c.FindByVersionTag(context.Background(), "V.1' OR '1'='1")
	require.NoError(t, err)
	assert.Contains(t, wiql, "CONTAINS 'V.1'' OR ''1''=''1'")
}

func TestToTicket(t *testing.T) {
	t.Run("string id", func(t *testing.T) {
		tk, err := ToTicket(WorkItem{ID: json.RawMessage(`"abc-1"`)})
		require.NoError(t, err)
		assert.Equal(t, "abc-1", tk.ID)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := ToTicket(WorkItem{})
		assert.True(t, IsQuery(err))
	})

	t.Run("fractional id", func(t *testing.T) {
		_, err := ToTicket(WorkItem{ID: json.RawMessage(`1.5`)})
		assert.True(t, IsQuery(err))
	})

	t.Run("non-string field", func(t *testing.T) {
		_, err := ToTicket(WorkItem{
			ID:     json.RawMessage(`7`),
			Fields: map[string]json.RawMessage{"System.Tags": json.RawMessage(`["ECU"]`)},
		})
		require.Error(t, err)
		assert.True(t, IsQuery(err))
		assert.Contains(t, err.Error(), "System.Tags")
	})
}

func TestNewRequiresSettings(t *testing.T) {
	_, err := New(Config{Project: "p", Token: "t"})
	assert.True(t, IsInvalidConfig(err))

	_, err = New(Config{Organization: "o", Token: "t"})
	assert.True(t, IsInvalidConfig(err))

	_, err = New(Config{Organization: "o", Project: "p"})
	assert.True(t, IsAuth(err))
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Grupo-KFC/_apis/projects/SIR" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, map[string]any{"name": "SIR"})
	})
	require.NoError(t, c.Ping(context.Background()))
}

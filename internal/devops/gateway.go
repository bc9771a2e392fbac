package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/giantswarm/microerror"

	"github.com/sir-timeline/timeline/internal/model"
)

// FindByVersionTag returns every work item tagged with tag, coerced into
// tickets. No match is an empty slice, not an error. Either the whole batch
// is returned or the call fails.
func (c *Client) FindByVersionTag(ctx context.Context, tag string) ([]model.Ticket, error) {
	ids, err := c.QueryIDs(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("find work items tagged %q: %w", tag, err)
	}
	if len(ids) == 0 {
		return []model.Ticket{}, nil
	}

	items, err := c.GetWorkItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch work items tagged %q: %w", tag, err)
	}

	tickets := make([]model.Ticket, 0, len(items))
	for _, wi := range items {
		t, err := ToTicket(wi)
		if err != nil {
			return nil, fmt.Errorf("work items tagged %q: %w", tag, err)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// ToTicket validates a raw work item and coerces it into a Ticket. Missing
// or null fields become empty strings; fields of the wrong JSON type are
// rejected.
func ToTicket(wi WorkItem) (model.Ticket, error) {
	id, err := coerceID(wi.ID)
	if err != nil {
		return model.Ticket{}, microerror.Maskf(queryError, "work item id: %s", err)
	}

	t := model.Ticket{ID: id}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"System.Title", &t.Title},
		{"System.WorkItemType", &t.Kind},
		{"System.Tags", &t.Tags},
		{"System.IterationPath", &t.IterationPath},
		{"System.AreaPath", &t.AreaPath},
		{"System.State", &t.State},
	} {
		v, err := coerceString(wi.Fields[f.name])
		if err != nil {
			return model.Ticket{}, microerror.Maskf(queryError, "work item %s field %s: %s", id, f.name, err)
		}
		*f.dst = v
	}
	return t, nil
}

func coerceID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("missing")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("empty")
		}
		return s, nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("unsupported value %s", string(raw))
	}
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return "", fmt.Errorf("not an integer: %s", n)
	}
	return strconv.FormatInt(i, 10), nil
}

func coerceString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string, got %s", string(raw[:min(len(raw), 40)]))
	}
	return s, nil
}

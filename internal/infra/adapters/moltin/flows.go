package moltin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
)

func (c *Client) SaveCustomer(ctx context.Context, email string, meta adapter.CustomerMeta) error {
	name := fmt.Sprintf("%s user %s (id %s)", platformOf(meta.UserID), meta.Username, meta.UserID)
	body := map[string]any{
		"data": map[string]any{
			"type":  "customer",
			"name":  name,
			"email": email,
		},
	}
	return c.call(ctx, "save_customer", http.MethodPost, "/v2/customers", body, nil)
}

func platformOf(user model.UserID) string {
	if strings.HasPrefix(user.String(), "facebookid_") {
		return "Messenger"
	}
	return "Telegram"
}

func entriesPath(flow string) string {
	return "/v2/flows/" + url.PathEscape(flow) + "/entries"
}

func (c *Client) AddFlowEntry(ctx context.Context, flow string, data map[string]any) error {
	entry := map[string]any{"type": "entry"}
	for k, v := range data {
		entry[k] = v
	}
	return c.call(ctx, "add_flow_entry", http.MethodPost, entriesPath(flow), map[string]any{"data": entry}, nil)
}

func (c *Client) listEntries(ctx context.Context, flow string) ([]map[string]any, error) {
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	if err := c.call(ctx, "list_flow_entries", http.MethodGet, entriesPath(flow), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetFlowEntry returns the most recent entry whose fields equal every
// filter value.
func (c *Client) GetFlowEntry(ctx context.Context, flow string, filter map[string]string) (map[string]any, error) {
	entries, err := c.listEntries(ctx, flow)
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if matches(entries[i], filter) {
			return entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no %s entry", domain.ErrNotFound, flow)
}

func matches(entry map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		if fieldString(entry[k]) != want {
			return false
		}
	}
	return true
}

func (c *Client) ListPizzerias(ctx context.Context) ([]model.Pizzeria, error) {
	entries, err := c.listEntries(ctx, c.pizzeriaFlow)
	if err != nil {
		return nil, err
	}
	out := make([]model.Pizzeria, 0, len(entries))
	for _, e := range entries {
		lon, okLon := fieldFloat(e["longitude"])
		lat, okLat := fieldFloat(e["latitude"])
		if !okLon || !okLat {
			c.logger.Warn().Str("entry", fieldString(e["id"])).Msg("pizzeria without coordinates skipped")
			continue
		}
		out = append(out, model.Pizzeria{
			ID:            fieldString(e["id"]),
			Address:       fieldString(e["address"]),
			Location:      model.Point{Lon: lon, Lat: lat},
			DeliverymanID: fieldString(e["deliveryman_telegram_id"]),
		})
	}
	return out, nil
}

func (c *Client) GetDeliverymanContact(ctx context.Context, pizzeriaID string) (string, error) {
	var resp struct {
		Data map[string]any `json:"data"`
	}
	path := entriesPath(c.pizzeriaFlow) + "/" + url.PathEscape(pizzeriaID)
	if err := c.call(ctx, "get_flow_entry", http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	id := fieldString(resp.Data["deliveryman_telegram_id"])
	if id == "" {
		return "", fmt.Errorf("%w: pizzeria %s has no deliveryman", domain.ErrNotFound, pizzeriaID)
	}
	return id, nil
}

func fieldString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func fieldFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

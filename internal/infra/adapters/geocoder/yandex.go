package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pizza-order-bot/internal/config"
	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/infra/metrics"
)

var _ adapter.Geocoder = (*Yandex)(nil)

// Yandex resolves addresses with the Yandex HTTP Geocoder.
type Yandex struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewYandex(cfg *config.GeocoderConfig) (*Yandex, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("geocoder api key empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://geocode-maps.yandex.ru/1.x"
	}
	return &Yandex{baseURL: base, apiKey: cfg.APIKey, client: &http.Client{Timeout: timeout}}, nil
}

type geocodeResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Point struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

// Geocode returns the most relevant match for address.
func (y *Yandex) Geocode(ctx context.Context, address string) (p model.Point, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		switch {
		case errors.Is(err, domain.ErrAddressNotFound):
			result = "not_found"
		case errors.Is(err, domain.ErrTransient):
			result = "transient"
		case err != nil:
			result = "remote"
		}
		metrics.ObserveGatewayCall("yandex", "geocode", result, time.Since(start))
	}()

	address = strings.TrimSpace(address)
	if address == "" {
		return model.Point{}, domain.ErrAddressNotFound
	}
	q := url.Values{
		"geocode": {address},
		"apikey":  {y.apiKey},
		"format":  {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return model.Point{}, err
	}
	resp, err := y.client.Do(req)
	if err != nil {
		return model.Point{}, fmt.Errorf("%w: geocode: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return model.Point{}, fmt.Errorf("%w: geocode: status %d", domain.ErrTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return model.Point{}, fmt.Errorf("%w: geocode: status %d", domain.ErrRemote, resp.StatusCode)
	}

	var out geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.Point{}, fmt.Errorf("%w: geocode decode: %v", domain.ErrRemote, err)
	}
	found := out.Response.GeoObjectCollection.FeatureMember
	if len(found) == 0 {
		return model.Point{}, domain.ErrAddressNotFound
	}
	return parsePos(found[0].GeoObject.Point.Pos)
}

// parsePos parses "lon lat".
func parsePos(pos string) (model.Point, error) {
	f := strings.Fields(pos)
	if len(f) != 2 {
		return model.Point{}, fmt.Errorf("%w: bad pos %q", domain.ErrRemote, pos)
	}
	lon, err1 := strconv.ParseFloat(f[0], 64)
	lat, err2 := strconv.ParseFloat(f[1], 64)
	if err1 != nil || err2 != nil {
		return model.Point{}, fmt.Errorf("%w: bad pos %q", domain.ErrRemote, pos)
	}
	return model.Point{Lon: lon, Lat: lat}, nil
}

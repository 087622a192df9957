//go:build !integration

package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pizza-order-bot/internal/config"
	"pizza-order-bot/internal/domain"
)

func newTestYandex(t *testing.T, h http.HandlerFunc) *Yandex {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	y, err := NewYandex(&config.GeocoderConfig{BaseURL: srv.URL + "/1.x", APIKey: "key"})
	if err != nil {
		t.Fatal(err)
	}
	return y
}

func TestYandex_Geocode(t *testing.T) {
	y := newTestYandex(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "key" || q.Get("format") != "json" || q.Get("geocode") != "Москва, Красная площадь" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[
{"GeoObject":{"Point":{"pos":"37.617698 55.755864"}}},
{"GeoObject":{"Point":{"pos":"1 1"}}}]}}}`))
	})

	p, err := y.Geocode(context.Background(), "Москва, Красная площадь")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lon != 37.617698 || p.Lat != 55.755864 {
		t.Errorf("point = %+v", p)
	}
}

func TestYandex_Errors(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
		want error
	}{
		{"no matches", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[]}}}`))
		}, domain.ErrAddressNotFound},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusServiceUnavailable)
		}, domain.ErrTransient},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", http.StatusForbidden)
		}, domain.ErrRemote},
		{"malformed pos", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[{"GeoObject":{"Point":{"pos":"north"}}}]}}}`))
		}, domain.ErrRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := newTestYandex(t, tt.h)
			if _, err := y.Geocode(context.Background(), "somewhere"); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	y := newTestYandex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("blank address must not reach the API")
	})
	if _, err := y.Geocode(context.Background(), "   "); !errors.Is(err, domain.ErrAddressNotFound) {
		t.Errorf("blank address: %v", err)
	}
}

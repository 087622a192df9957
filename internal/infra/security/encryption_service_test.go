//go:build !integration

package security

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptionService_SealOpen(t *testing.T) {
	svc, err := NewEncryptionService(testKey)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sealed, err := svc.Seal([]byte(`{"lon":37.61,"lat":55.75}`), "order-1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(sealed, "37.61") {
		t.Fatal("plaintext leaked into ciphertext")
	}
	got, err := svc.Open(sealed, "order-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(got) != `{"lon":37.61,"lat":55.75}` {
		t.Fatalf("roundtrip mismatch: %s", got)
	}

	again, _ := svc.Seal([]byte(`{"lon":37.61,"lat":55.75}`), "order-1")
	if again == sealed {
		t.Fatal("expected a fresh nonce per seal")
	}
}

func TestEncryptionService_BoundToRecord(t *testing.T) {
	svc, _ := NewEncryptionService(testKey)
	sealed, _ := svc.Seal([]byte("secret"), "order-1")
	if _, err := svc.Open(sealed, "order-2"); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("expected ErrCiphertext for another record, got %v", err)
	}
	if _, err := svc.Open("!!not-base64", "order-1"); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("expected ErrCiphertext for garbage, got %v", err)
	}
	if _, err := svc.Open(base64.StdEncoding.EncodeToString([]byte("short")), "order-1"); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("expected ErrCiphertext for short input, got %v", err)
	}
}

func TestNewEncryptionService_Keys(t *testing.T) {
	if _, err := NewEncryptionService(base64.StdEncoding.EncodeToString([]byte(testKey))); err != nil {
		t.Fatalf("base64 key rejected: %v", err)
	}
	if _, err := NewEncryptionService("too-short"); err == nil {
		t.Fatal("expected an error for a bad key length")
	}
}

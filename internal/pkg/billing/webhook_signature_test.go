package billing

import (
	"errors"
	"strings"
	"testing"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"meta":{"event_name":"order_created"},"data":{}}`)
	secret := "top-secret"
	validSig := SignWebhookPayload(payload, secret)

	if err := VerifyWebhookSignature(payload, validSig, secret); err != nil {
		t.Fatalf("expected signature to validate, got %v", err)
	}
	if err := VerifyWebhookSignature(payload, strings.ToUpper(validSig), secret); err != nil {
		t.Fatalf("expected upper-case hex to validate, got %v", err)
	}
	if err := VerifyWebhookSignature(payload, "deadbeef", secret); !errors.Is(err, ErrSignature) {
		t.Fatalf("expected short signature to fail with ErrSignature, got %v", err)
	}
	if err := VerifyWebhookSignature(payload, "", secret); !errors.Is(err, ErrSignature) {
		t.Fatalf("expected empty signature to fail with ErrSignature, got %v", err)
	}
	if err := VerifyWebhookSignature(payload, SignWebhookPayload(payload, "other"), secret); !errors.Is(err, ErrSignature) {
		t.Fatalf("expected wrong secret to fail, got %v", err)
	}
}

func TestVerifyWebhookSignature_TamperedByte(t *testing.T) {
	payload := []byte(`{"meta":{"event_name":"order_created","custom_data":{"user_id":"1","credits":"100"}},"data":{}}`)
	secret := "top-secret"
	sig := SignWebhookPayload(payload, secret)

	for i := range payload {
		tampered := append([]byte(nil), payload...)
		tampered[i] ^= 0x01
		if err := VerifyWebhookSignature(tampered, sig, secret); !errors.Is(err, ErrSignature) {
			t.Fatalf("expected tampered byte %d to fail verification, got %v", i, err)
		}
	}
}

func TestVerifyWebhookSignature_MissingSecret(t *testing.T) {
	payload := []byte(`{}`)
	err := VerifyWebhookSignature(payload, SignWebhookPayload(payload, "x"), "  ")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

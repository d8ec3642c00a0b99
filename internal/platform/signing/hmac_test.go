package signing

import (
	"errors"
	"strings"
	"testing"
)

func newSigner() *Signer { return New("test-signing-secret-32-bytes-ok!") }

func TestSign_Verify_HappyPath(t *testing.T) {
	s := newSigner()
	sig := s.Sign([]byte("000001.000002"))
	if !s.Verify([]byte("000001.000002"), sig) {
		t.Fatal("expected Verify to return true for valid signature")
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	s := newSigner()
	sig := s.Sign([]byte("000001"))
	if s.Verify([]byte("000002"), sig) {
		t.Fatal("expected Verify to fail for tampered payload")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	s1 := newSigner()
	s2 := New("different-secret-32-bytes-padded!!")
	sig := s1.Sign([]byte("000001"))
	if s2.Verify([]byte("000001"), sig) {
		t.Fatal("expected Verify to fail with different secret")
	}
}

func TestSeal_Open_Roundtrip(t *testing.T) {
	s := newSigner()
	token := s.Seal([]byte(`{"k":"000001.000003","d":"next"}`))

	payload, err := s.Open(token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(payload) != `{"k":"000001.000003","d":"next"}` {
		t.Fatalf("unexpected payload %q", payload)
	}
}

func TestOpen_Rejects(t *testing.T) {
	s := newSigner()
	valid := s.Seal([]byte("payload"))
	body, _, _ := strings.Cut(valid, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"missing sig", body + "."},
		{"bad base64", "!!!." + s.Sign([]byte("payload"))},
		{"forged sig", body + ".AAAA"},
		{"other secret", New("another-secret").Seal([]byte("payload"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Open(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

package codex

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"
)

var unreservedPattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]+$`)

func TestPKCECodesFromBytesRFC7636Vector(t *testing.T) {
	// RFC 7636 appendix B
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	const challenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	entropy, err := base64.RawURLEncoding.DecodeString(verifier)
	if err != nil {
		t.Fatalf("decode vector: %v", err)
	}
	codes, err := PKCECodesFromBytes(entropy)
	if err != nil {
		t.Fatalf("PKCECodesFromBytes() error = %v", err)
	}
	if codes.CodeVerifier != verifier {
		t.Fatalf("CodeVerifier = %q, want %q", codes.CodeVerifier, verifier)
	}
	if codes.CodeChallenge != challenge {
		t.Fatalf("CodeChallenge = %q, want %q", codes.CodeChallenge, challenge)
	}
	if got := generateCodeChallenge(verifier); got != challenge {
		t.Fatalf("generateCodeChallenge() = %q, want %q", got, challenge)
	}
}

func TestPKCECodesFromBytesLength(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
		wantErr bool
	}{
		{"too short", 31, 0, true},
		{"minimum", 32, 43, false},
		{"middle", 64, 86, false},
		{"maximum", 96, 128, false},
		{"too long", 97, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes, err := PKCECodesFromBytes(make([]byte, tt.size))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("PKCECodesFromBytes(%d bytes) expected error", tt.size)
				}
				return
			}
			if err != nil {
				t.Fatalf("PKCECodesFromBytes(%d bytes) error = %v", tt.size, err)
			}
			if len(codes.CodeVerifier) != tt.wantLen {
				t.Fatalf("verifier length = %d, want %d", len(codes.CodeVerifier), tt.wantLen)
			}
		})
	}
}

func TestPKCECodesFromBytesDeterministic(t *testing.T) {
	entropy := make([]byte, 48)
	for i := range entropy {
		entropy[i] = byte(i * 7)
	}
	first, err := PKCECodesFromBytes(entropy)
	if err != nil {
		t.Fatalf("PKCECodesFromBytes() error = %v", err)
	}
	second, err := PKCECodesFromBytes(entropy)
	if err != nil {
		t.Fatalf("PKCECodesFromBytes() error = %v", err)
	}
	if *first != *second {
		t.Fatalf("same entropy produced %+v and %+v", first, second)
	}
}

func TestGeneratePKCECodes(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		codes, err := GeneratePKCECodes()
		if err != nil {
			t.Fatalf("GeneratePKCECodes() error = %v", err)
		}
		if n := len(codes.CodeVerifier); n < 43 || n > 128 {
			t.Fatalf("verifier length %d outside [43,128]", n)
		}
		if !unreservedPattern.MatchString(codes.CodeVerifier) {
			t.Fatalf("verifier %q has characters outside the unreserved set", codes.CodeVerifier)
		}
		sum := sha256.Sum256([]byte(codes.CodeVerifier))
		if want := base64.RawURLEncoding.EncodeToString(sum[:]); codes.CodeChallenge != want {
			t.Fatalf("challenge = %q, want %q", codes.CodeChallenge, want)
		}
		if seen[codes.CodeVerifier] {
			t.Fatalf("duplicate verifier generated")
		}
		seen[codes.CodeVerifier] = true
	}
}

func TestGenerateRandomState(t *testing.T) {
	a, err := GenerateRandomState()
	if err != nil {
		t.Fatalf("GenerateRandomState() error = %v", err)
	}
	b, err := GenerateRandomState()
	if err != nil {
		t.Fatalf("GenerateRandomState() error = %v", err)
	}
	if a == b {
		t.Fatalf("two states are equal: %q", a)
	}
	if len(a) != 43 || !unreservedPattern.MatchString(a) {
		t.Fatalf("state %q is not 43 URL-safe characters", a)
	}
}

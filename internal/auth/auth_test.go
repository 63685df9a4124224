package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "  test-api-key-12345 ")
	key, err := GetAPIKey()
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "test-api-key-12345" {
		t.Errorf("GetAPIKey() = %q", key)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv("HOME", t.TempDir())

	_, err := GetAPIKey()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("GetAPIKey() error = %v, want ErrNoAPIKey", err)
	}
}

func TestCredentialPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := credentialPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".postrender", "credentials.gpg"); got != want {
		t.Errorf("credentialPath() = %q, want %q", got, want)
	}
}

func TestGPGArgs(t *testing.T) {
	dir := t.TempDir()
	private := filepath.Join(dir, "private")
	shared := filepath.Join(dir, "shared")
	if err := os.WriteFile(private, []byte("pw"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shared, []byte("pw"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		passphrase string
		want       []string
	}{
		{"no passphrase", "", []string{"--decrypt", "--quiet", "--batch", "creds.gpg"}},
		{"owner only", private, []string{"--decrypt", "--quiet", "--batch", "--pinentry-mode", "loopback", "--passphrase-file", private, "creds.gpg"}},
		{"too permissive", shared, []string{"--decrypt", "--quiet", "--batch", "creds.gpg"}},
		{"missing", filepath.Join(dir, "nope"), []string{"--decrypt", "--quiet", "--batch", "creds.gpg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, gpgArgs("creds.gpg", tt.passphrase)); diff != "" {
				t.Errorf("gpgArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"api 403", &genai.APIError{Code: 403, Message: "denied"}, KindInvalidKey},
		{"api 429", &genai.APIError{Code: 429}, KindQuota},
		{"api 503", &genai.APIError{Code: 503}, KindNetwork},
		{"api 404", &genai.APIError{Code: 404, Message: "model not found"}, KindUnknown},
		{"message key", errors.New("API key not valid. Please pass a valid API key."), KindInvalidKey},
		{"message quota", errors.New("RESOURCE EXHAUSTED"), KindQuota},
		{"message dial", errors.New("dial tcp: lookup generativelanguage.googleapis.com: no such host"), KindNetwork},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("classify() kind = %v, want %v", got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classify() does not wrap the cause")
			}
		})
	}
}

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f fakeModels) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func TestValidateAPIKey(t *testing.T) {
	ok := fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}}
	if err := ValidateAPIKey(context.Background(), ok, "m"); err != nil {
		t.Errorf("ValidateAPIKey() error = %v", err)
	}

	var verr *ValidationError
	err := ValidateAPIKey(context.Background(), fakeModels{err: &genai.APIError{Code: 401}}, "m")
	if !errors.As(err, &verr) || verr.Kind != KindInvalidKey || verr.Retryable() {
		t.Errorf("ValidateAPIKey() error = %v, want non-retryable invalid key", err)
	}

	err = ValidateAPIKey(context.Background(), fakeModels{resp: &genai.GenerateContentResponse{}}, "m")
	if !errors.As(err, &verr) || verr.Kind != KindUnknown {
		t.Errorf("empty response error = %v", err)
	}
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=conveyorstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/conveyorstore;"

func TestNewReturnsSystem(t *testing.T) {
	cfg := &Config{
		Container:        "conveyor",
		ConnectionString: azuriteConnString,
	}

	sys, err := New(cfg, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, sys)
}

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := &Config{
		Container:        "conveyor",
		ConnectionString: "not-a-connection-string",
	}

	_, err := New(cfg, slog.Default())
	assert.Error(t, err)
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found maps to 404", ErrNotFound, http.StatusNotFound},
		{"empty key maps to 400", ErrEmptyKey, http.StatusBadRequest},
		{"invalid key maps to 400", ErrInvalidKey, http.StatusBadRequest},
		{"wrapped not found maps to 404", fmt.Errorf("operation failed: %w", ErrNotFound), http.StatusNotFound},
		{"unknown error maps to 500", fmt.Errorf("unexpected failure"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapHTTPStatus(tt.err))
		})
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"empty returns default", "", DefaultListMax, false},
		{"valid value within cap", "100", 100, false},
		{"value exceeding cap is clamped", "9999", MaxListCap, false},
		{"value at cap returns cap", "500", MaxListCap, false},
		{"zero is invalid", "0", 0, true},
		{"negative is invalid", "-1", 0, true},
		{"non-numeric is invalid", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMaxResults(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid key", "invoices/abc123/source.pdf", nil},
		{"empty key", "", ErrEmptyKey},
		{"path traversal", "invoices/../secrets/key", ErrInvalidKey},
		{"double dot in middle", "docs/..hidden/file.pdf", ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateKey(tt.key)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOperationsRejectInvalidKeys(t *testing.T) {
	cfg := &Config{
		Container:        "conveyor",
		ConnectionString: azuriteConnString,
	}

	sys, err := New(cfg, slog.Default())
	require.NoError(t, err)

	ctx := context.Background()

	assert.ErrorIs(t, sys.Upload(ctx, "", bytes.NewReader(nil), "application/pdf"), ErrEmptyKey)

	_, err = sys.Download(ctx, "a/../b")
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.ErrorIs(t, sys.Delete(ctx, ""), ErrEmptyKey)

	_, err = sys.Exists(ctx, "a/../b")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

package pagination

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() Config {
	return Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
}

func TestConfigFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "50")
	t.Setenv("TEST_MAX_PAGE", "200")

	env := &ConfigEnv{
		DefaultPageSize: "TEST_PAGE_SIZE",
		MaxPageSize:     "TEST_MAX_PAGE",
	}

	cfg := Config{}
	require.NoError(t, cfg.Finalize(env))

	assert.Equal(t, 50, cfg.DefaultPageSize)
	assert.Equal(t, 200, cfg.MaxPageSize)
}

func TestConfigFinalizeValidation(t *testing.T) {
	cfg := Config{DefaultPageSize: 200, MaxPageSize: 100}
	err := cfg.Finalize(nil)
	assert.ErrorContains(t, err, "cannot exceed max_page_size")
}

func TestConfigMerge(t *testing.T) {
	cfg := defaultConfig()
	cfg.Merge(&Config{DefaultPageSize: 10})

	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		request      PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values get defaults", PageRequest{}, 1, 20},
		{"negative page clamped", PageRequest{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page size clamped", PageRequest{Page: 2, PageSize: 500}, 2, 100},
		{"valid request untouched", PageRequest{Page: 3, PageSize: 50}, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.request.Normalize(defaultConfig())
			assert.Equal(t, tt.wantPage, tt.request.Page)
			assert.Equal(t, tt.wantPageSize, tt.request.PageSize)
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, PageRequest{Page: 3, PageSize: 20}.Offset())
}

func TestPageRequestFromQuery(t *testing.T) {
	query := url.Values{}
	query.Set("page", "2")
	query.Set("pageSize", "30")

	request := PageRequestFromQuery(query, defaultConfig())

	assert.Equal(t, 2, request.Page)
	assert.Equal(t, 30, request.PageSize)
}

func TestPageRequestFromQueryIgnoresGarbage(t *testing.T) {
	query := url.Values{}
	query.Set("page", "banana")
	query.Set("pageSize", "-1")

	request := PageRequestFromQuery(query, defaultConfig())

	assert.Equal(t, 1, request.Page)
	assert.Equal(t, 20, request.PageSize)
}

func TestNewPageResult(t *testing.T) {
	request := PageRequest{Page: 2, PageSize: 10}
	result := NewPageResult([]string{"a", "b"}, 25, request)

	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.PageSize)
	assert.Equal(t, 25, result.TotalItems)
	assert.Equal(t, 3, result.TotalPages)
	assert.Len(t, result.Items, 2)
}

func TestNewPageResultNilItems(t *testing.T) {
	result := NewPageResult[string](nil, 0, PageRequest{Page: 1, PageSize: 20})

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"items":[]`)
	assert.Equal(t, 0, result.TotalPages)
}

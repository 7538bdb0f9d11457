package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicatalog/backend/internal/domain"
)

func newTestClient(config Config) *Client {
	c := NewClient(config)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{Main: " data/main.json ", Extended: "https://example.com/programs.json"})

	assert.Equal(t, "data/main.json", client.main)
	assert.Equal(t, "https://example.com/programs.json", client.extended)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.Equal(t, 15*time.Second, client.httpClient.Timeout)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestFetchExtended_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/programs.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "code": "07.03.01", "full_name": "07.03.01 Архитектура Профиль «Архитектура»", "education_level": "бакалавриат", "faculty": "ФАГ"},
			{"number": "2", "code": "09.04.01", "name": "09.04.01 Информатика", "category": "магистратура"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(Config{Extended: server.URL + "/data/programs.json"})
	records, err := client.FetchExtended(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].ID)
	assert.Equal(t, "ФАГ", records[0].Faculty)
	assert.Equal(t, 2, records[1].ID)
	assert.Equal(t, "09.04.01 Информатика", records[1].FullName)
	assert.Equal(t, "магистратура", records[1].EducationLevel)
}

func TestFetchMain_Envelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"programs": [{"code": "07.03.01", "title": "Архитектура", "price": "150000", "budgetPlaces": 25}]}`))
	}))
	defer server.Close()

	client := newTestClient(Config{Main: server.URL})
	records, err := client.FetchMain(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 150000.0, records[0].Price)
	assert.Equal(t, 25, records[0].BudgetPlaces)
}

func TestFetchMain_NotConfigured(t *testing.T) {
	client := newTestClient(Config{})

	records, err := client.FetchMain(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, records)

	_, err = client.FetchExtended(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(Config{Extended: server.URL})
	records, err := client.FetchExtended(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(Config{Extended: server.URL})
	_, err := client.FetchExtended(context.Background())

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_AllRetriesFail(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(Config{Main: server.URL})
	_, err := client.FetchMain(context.Background())

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestFetch_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestClient(Config{Main: server.URL})
	_, err := client.FetchMain(context.Background())

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "programs.json")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbf"+`[{"id": 5, "code": "08.03.01", "full_name": "08.03.01 Строительство"}]`), 0o644))

	for _, location := range []string{path, "file://" + path} {
		client := newTestClient(Config{Extended: location})
		records, err := client.FetchExtended(context.Background())
		require.NoError(t, err, location)
		require.Len(t, records, 1)
		assert.Equal(t, 5, records[0].ID)
	}

	client := newTestClient(Config{Extended: filepath.Join(dir, "missing.json")})
	_, err := client.FetchExtended(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		want        int
		wantSkipped int
		wantErr     bool
	}{
		{"bare array", `[{"code":"a"},{"code":"b"}]`, 2, 0, false},
		{"envelope", `{"programs":[{"code":"a"}]}`, 1, 0, false},
		{"envelope without programs", `{"items":[]}`, 0, 0, false},
		{"one bad element", `[{"code":"a"},{"code":"b","faculty":42},{"code":"c"}]`, 2, 1, false},
		{"bad element in envelope", `{"programs":[{"code":"a","title":[]},{"code":"b"}]}`, 1, 1, false},
		{"empty", `  `, 0, 0, true},
		{"garbage", `<html>`, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, skipped, err := decodeRecords[domain.RawMainRecord]([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
			assert.Equal(t, tt.wantSkipped, skipped)
		})
	}
}

func TestFetchExtended_SkipsBadRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 1, "code": "07.03.01", "full_name": "07.03.01 Архитектура", "faculty": "ФАГ"},
			{"id": 2, "code": "08.03.01", "full_name": "08.03.01 Строительство", "faculty": 42}
		]`))
	}))
	defer server.Close()

	client := newTestClient(Config{Extended: server.URL})
	records, err := client.FetchExtended(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "07.03.01", records[0].Code)
}

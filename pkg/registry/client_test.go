package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitaware/procura/pkg/retry"
)

// Mock registry server for testing
type mockRegistryServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []string
	failures int
}

func newMockRegistryServer() *mockRegistryServer {
	mock := &mockRegistryServer{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, r.URL.Path)
		remaining := mock.failures
		if mock.failures > 0 {
			mock.failures--
		}
		mock.mu.Unlock()

		if remaining > 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch r.URL.Path {
		case "/cnpj/11222333000181":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"cnpj": "11222333000181",
				"razao_social": "Acme Servicos Ltda",
				"nome_fantasia": "Acme",
				"municipio": {"codigo_ibge": "3550308"},
				"atividade_principal": {"codigo": "6201-5/01"},
				"atividades_secundarias": [{"codigo": "6202-3/00"}]
			}`))
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

func (m *mockRegistryServer) close() {
	m.server.Close()
}

func (m *mockRegistryServer) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		RatePerMinute: 6000, // no throttling in tests
	})
	require.NoError(t, err)
	// Fast retries to keep the tests snappy.
	client.policy = retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err)
}

func TestNewClientAppliesDefaults(t *testing.T) {
	config := &Config{BaseURL: "http://registry.example.com"}
	_, err := NewClient(config)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, 3, config.RatePerMinute)
	assert.NotEmpty(t, config.UserAgent)
}

func TestLookupSuccess(t *testing.T) {
	mock := newMockRegistryServer()
	defer mock.close()

	client := newTestClient(t, mock.server.URL)

	info, err := client.Lookup(context.Background(), "11222333000181")
	require.NoError(t, err)

	assert.Equal(t, "11222333000181", info.SupplierID)
	assert.Equal(t, "Acme Servicos Ltda", info.Name)
	assert.Equal(t, "Acme", info.TradeName)
	assert.Equal(t, "3550308", info.HeadquartersCode)
	assert.Equal(t, []string{"6201-5/01", "6202-3/00"}, info.SectorCodes)
}

func TestLookupNotFoundIsPermanent(t *testing.T) {
	mock := newMockRegistryServer()
	defer mock.close()

	client := newTestClient(t, mock.server.URL)

	_, err := client.Lookup(context.Background(), "99888777000166")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	// A 404 must not be retried.
	assert.Equal(t, 1, mock.requestCount())
}

func TestLookupRetriesServerErrors(t *testing.T) {
	mock := newMockRegistryServer()
	defer mock.close()
	mock.failures = 2

	client := newTestClient(t, mock.server.URL)

	info, err := client.Lookup(context.Background(), "11222333000181")
	require.NoError(t, err)
	assert.Equal(t, "Acme Servicos Ltda", info.Name)
	assert.Equal(t, 3, mock.requestCount())
}

func TestLookupExhaustsRetries(t *testing.T) {
	mock := newMockRegistryServer()
	defer mock.close()
	mock.failures = 10

	client := newTestClient(t, mock.server.URL)

	_, err := client.Lookup(context.Background(), "11222333000181")
	require.Error(t, err)
	assert.Equal(t, 3, mock.requestCount())
}

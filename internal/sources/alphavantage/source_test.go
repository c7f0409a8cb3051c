package alphavantage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendsentry/service/pkg/models"
)

func testSymbols() map[string]string {
	return map[string]string{"SHA.DE": "Schaeffler AG"}
}

func TestFetchWithoutKeyReturnsEmpty(t *testing.T) {
	s := New("market", "", testSymbols(), time.Second)

	raw, err := s.Fetch(context.Background(), "")
	require.NoError(t, err)

	candidates, err := s.Process(raw)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFetchCollectsQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		json.NewEncoder(w).Encode(map[string]any{
			"Global Quote": map[string]string{
				"01. symbol":         r.URL.Query().Get("symbol"),
				"05. price":          "6.42",
				"10. change percent": "-4.20%",
			},
		})
	}))
	defer srv.Close()

	s := New("market", "test-key", testSymbols(), time.Second)
	s.SetBaseURL(srv.URL)

	raw, err := s.Fetch(context.Background(), "")
	require.NoError(t, err)

	candidates, err := s.Process(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Schaeffler AG Stock Movement", candidates[0].Title)
	assert.Equal(t, "SHA.DE is down 4.20% at $6.42", candidates[0].Description)
	assert.Equal(t, models.CategoryMarket, candidates[0].Category)
}

func TestProcessIgnoresInsignificantMoves(t *testing.T) {
	s := New("market", "key", testSymbols(), time.Second)

	raw := []byte(`{"quotes":[
		{"symbol":"SHA.DE","price":"6.42","change_percent":"1.50%"},
		{"symbol":"SHA.DE","price":"6.42","change_percent":"3.00%"},
		{"symbol":"SHA.DE","price":"6.42","change_percent":"3.01%"}
	]}`)
	candidates, err := s.Process(raw)
	require.NoError(t, err)
	// Only the move strictly above 3% survives.
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].Description, "3.01%")
}

func TestProcessSkipsUnparsableChange(t *testing.T) {
	s := New("market", "key", testSymbols(), time.Second)

	raw := []byte(`{"quotes":[{"symbol":"SHA.DE","price":"6.42","change_percent":"n/a"}]}`)
	candidates, err := s.Process(raw)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestProcessFallsBackToSymbolName(t *testing.T) {
	s := New("market", "key", testSymbols(), time.Second)

	raw := []byte(`{"quotes":[{"symbol":"TSLA","price":"250.00","change_percent":"5.00%"}]}`)
	candidates, err := s.Process(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "TSLA Stock Movement", candidates[0].Title)
}

func TestProcessToleratesMalformedPayload(t *testing.T) {
	s := New("market", "key", testSymbols(), time.Second)

	for _, raw := range [][]byte{nil, []byte("not json"), []byte("{}")} {
		candidates, err := s.Process(raw)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	}
}

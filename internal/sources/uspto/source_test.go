package uspto

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendsentry/service/pkg/models"
)

func testKeywords() []string {
	return []string{"bearing", "drivetrain", "electric motor"}
}

func TestFetchQueriesSearchEndpoint(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"results":[{"inventionTitle":"Bearing assembly for drivetrain","inventionAbstract":"An electric motor bearing"}]}`))
	}))
	defer srv.Close()

	s := New("patents", testKeywords(), time.Second)
	s.SetBaseURL(srv.URL)

	raw, err := s.Fetch(context.Background(), "bearing")
	require.NoError(t, err)
	assert.Equal(t, []string{"bearing"}, gotQuery["searchText"])
	assert.Equal(t, []string{"lastModifiedDate"}, gotQuery["sortField"])

	candidates, err := s.Process(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.CategoryPatent, candidates[0].Category)
}

func TestProcessDropsBelowRelevanceFloor(t *testing.T) {
	s := New("patents", testKeywords(), time.Second)

	// Matches none of the three tracked keywords: fraction 0 < 0.3.
	raw := []byte(`{"results":[{"inventionTitle":"Pharmaceutical compound","inventionAbstract":"Chemistry"}]}`)
	candidates, err := s.Process(raw)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	// One of three keywords: fraction 0.33 >= 0.3, kept.
	raw = []byte(`{"results":[{"inventionTitle":"Bearing housing","inventionAbstract":"Sealed unit"}]}`)
	candidates, err = s.Process(raw)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestProcessRanksAndCaps(t *testing.T) {
	s := New("patents", testKeywords(), time.Second)

	var results []string
	// One strong match (all three keywords), then 12 weak ones.
	results = append(results, `{"inventionTitle":"Bearing drivetrain electric motor","inventionAbstract":""}`)
	for i := 0; i < 12; i++ {
		results = append(results, fmt.Sprintf(`{"inventionTitle":"Bearing variant %d","inventionAbstract":""}`, i))
	}
	raw := []byte(`{"results":[` + strings.Join(results, ",") + `]}`)

	candidates, err := s.Process(raw)
	require.NoError(t, err)
	assert.Len(t, candidates, 10)
	assert.Equal(t, "Bearing drivetrain electric motor", candidates[0].Title)
}

func TestProcessTruncatesLongAbstracts(t *testing.T) {
	s := New("patents", testKeywords(), time.Second)

	long := strings.Repeat("bearing ", 100)
	raw := []byte(fmt.Sprintf(`{"results":[{"inventionTitle":"Bearing","inventionAbstract":"%s"}]}`, long))

	candidates, err := s.Process(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Len(t, candidates[0].Description, 503)
	assert.True(t, strings.HasSuffix(candidates[0].Description, "..."))
}

func TestProcessTruncatesOnRuneBoundary(t *testing.T) {
	s := New("patents", testKeywords(), time.Second)

	// 'ü' is two bytes and starts at byte 499; a byte-offset cut at 500
	// would split it.
	long := strings.Repeat("a", 499) + "ü" + strings.Repeat("b", 50)
	raw := []byte(fmt.Sprintf(`{"results":[{"inventionTitle":"Bearing","inventionAbstract":"%s"}]}`, long))

	candidates, err := s.Process(raw)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	got := candidates[0].Description
	assert.True(t, utf8.ValidString(got), "truncated abstract must stay valid UTF-8")
	assert.Equal(t, strings.Repeat("a", 499)+"...", got)
}

func TestProcessToleratesMalformedPayload(t *testing.T) {
	s := New("patents", testKeywords(), time.Second)

	for _, raw := range [][]byte{nil, []byte("not json"), []byte("{}")} {
		candidates, err := s.Process(raw)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	}
}

func TestFetchUnreachable(t *testing.T) {
	s := New("patents", testKeywords(), 100*time.Millisecond)
	s.SetBaseURL("http://127.0.0.1:1")

	_, err := s.Fetch(context.Background(), "bearing")
	assert.ErrorIs(t, err, ErrUSPTOUnreachable)
}

package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendsentry/service/internal/scoring"
	"github.com/trendsentry/service/internal/sources"
	mocksrc "github.com/trendsentry/service/internal/sources/mock"
	"github.com/trendsentry/service/internal/store/storetest"
	"github.com/trendsentry/service/pkg/models"
)

type recordingNotifier struct {
	mu       sync.Mutex
	alerts   []*models.Alert
	analyses []*models.Analysis
}

func (n *recordingNotifier) AlertCreated(_ context.Context, alert *models.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *recordingNotifier) AnalysisCompleted(_ context.Context, analysis *models.Analysis) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.analyses = append(n.analyses, analysis)
}

func testEngine() *scoring.Engine {
	return scoring.NewEngine(scoring.KeywordTable{
		"e-mobility": {
			{Keyword: "electric vehicle", Weight: 1.0},
			{Keyword: "battery", Weight: 0.9},
			{Keyword: "drivetrain", Weight: 0.8},
			{Keyword: "charging", Weight: 0.8},
		},
		"regulatory": {
			{Keyword: "emissions regulation", Weight: 1.0},
		},
	}, "Schaeffler")
}

func newTestScanner(srcs []sources.Source, st *storetest.Fake, n *recordingNotifier) *Scanner {
	return NewScanner(srcs, testEngine(), st, n, 0.3, time.Second, "electric vehicle", 90*24*time.Hour)
}

func TestScanSourcesFiltersBelowThreshold(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	src := mocksrc.NewStatic("news", models.CategoryNews, []models.Candidate{
		{Title: "Electric vehicle battery breakthrough", Description: "charging improvements", Category: models.CategoryNews, SourceName: "news"},
		{Title: "Celebrity gossip roundup", Description: "nothing relevant", Category: models.CategoryNews, SourceName: "news"},
	})

	alerts, err := newTestScanner([]sources.Source{src}, st, n).ScanSources(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Electric vehicle battery breakthrough", alerts[0].Title)
	assert.Len(t, st.Alerts(), 1)
	assert.Len(t, n.alerts, 1)
}

func TestScanSourcesDeduplicatesByTitle(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	candidate := models.Candidate{
		Title:       "Electric Vehicle Drivetrain Advances",
		Description: "battery and charging news",
		Category:    models.CategoryNews,
		SourceName:  "outlet_a",
	}
	duplicate := candidate
	duplicate.Title = "electric vehicle drivetrain advances" // same after lower-casing
	duplicate.SourceName = "outlet_b"

	src := mocksrc.NewStatic("news", models.CategoryNews, []models.Candidate{candidate, duplicate})

	alerts, err := newTestScanner([]sources.Source{src}, st, n).ScanSources(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 1, "duplicate titles must collapse to one alert")
}

func TestScanSourcesContainsFailingSource(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	good := mocksrc.NewStatic("news", models.CategoryNews, []models.Candidate{
		{Title: "Electric vehicle charging expansion", Description: "battery network", Category: models.CategoryNews, SourceName: "news"},
	})
	bad := mocksrc.NewFailing("patents", models.CategoryPatent, errors.New("upstream 500"))

	alerts, err := newTestScanner([]sources.Source{good, bad}, st, n).ScanSources(context.Background())
	require.NoError(t, err, "one failing source must not abort the scan")
	assert.Len(t, alerts, 1)
}

func TestScanSourcesContainsPanickingSource(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	panicking := &mocksrc.Source{
		Name_:     "broken",
		Category_: models.CategoryNews,
		FetchFunc: func(context.Context, string) ([]byte, error) {
			panic("source bug")
		},
	}

	alerts, err := newTestScanner([]sources.Source{panicking}, st, n).ScanSources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestScanSourcesRanking(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	src := mocksrc.NewStatic("mixed", models.CategoryNews, []models.Candidate{
		{Title: "Minor drivetrain note", Description: "drivetrain battery", Category: models.CategoryNews, SourceName: "mixed"},
		{Title: "Schaeffler electric vehicle battery charging emissions regulation", Description: "electric vehicle battery charging emissions regulation", Category: models.CategoryRegulatory, SourceName: "mixed"},
	})

	alerts, err := newTestScanner([]sources.Source{src}, st, n).ScanSources(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	// Critical regulatory alert sorts before the low-severity one.
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.True(t, models.SeverityRank(alerts[0].Severity) <= models.SeverityRank(alerts[1].Severity))
}

func TestScanSourcesRequiresAction(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	src := mocksrc.NewStatic("news", models.CategoryNews, []models.Candidate{
		{Title: "Schaeffler electric vehicle battery drivetrain charging", Description: "electric vehicle battery drivetrain charging", Category: models.CategoryNews, SourceName: "news"},
	})

	alerts, err := newTestScanner([]sources.Source{src}, st, n).ScanSources(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Confidence > 0.85)
	assert.True(t, alerts[0].RequiresAction)
}

func TestScanSourcesUpsertsOnReIngestion(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	src := mocksrc.NewStatic("news", models.CategoryNews, []models.Candidate{
		{Title: "Electric vehicle battery expansion", Description: "charging", Category: models.CategoryNews, SourceName: "news"},
	})
	scanner := newTestScanner([]sources.Source{src}, st, n)

	_, err := scanner.ScanSources(context.Background())
	require.NoError(t, err)
	_, err = scanner.ScanSources(context.Background())
	require.NoError(t, err)

	assert.Len(t, st.Alerts(), 1, "same title across scans must not duplicate rows")
}

func TestScanSourcesTruncatesOnRuneBoundary(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	// 'é' is two bytes and starts at byte 499, so a byte-offset cut at 500
	// would split it and leave an invalid-UTF-8 description.
	desc := strings.Repeat("a", 499) + "é" + " electric vehicle battery charging"
	src := mocksrc.NewStatic("news", models.CategoryNews, []models.Candidate{
		{Title: "Véhicule électrique battery charging expansion", Description: desc, Category: models.CategoryNews, SourceName: "news"},
	})

	alerts, err := newTestScanner([]sources.Source{src}, st, n).ScanSources(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	got := alerts[0].Description
	assert.True(t, utf8.ValidString(got), "truncated description must stay valid UTF-8")
	assert.LessOrEqual(t, len(got), 500)
	assert.Equal(t, strings.Repeat("a", 499), got)
}

func TestCreateManualAlert(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	scanner := newTestScanner(nil, st, n)

	alert, err := scanner.CreateManualAlert(context.Background(),
		"Competitor acquires bearings startup", "Heard at trade fair", "", "")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryManual, alert.Category)
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, 0.9, alert.Confidence)
	assert.False(t, alert.RequiresAction)
	assert.Equal(t, []string{"manual_entry"}, alert.DataSources)
	assert.Len(t, n.alerts, 1)

	critical, err := scanner.CreateManualAlert(context.Background(),
		"Plant shutdown imminent", "", models.CategoryManual, models.SeverityCritical)
	require.NoError(t, err)
	assert.True(t, critical.RequiresAction)
}

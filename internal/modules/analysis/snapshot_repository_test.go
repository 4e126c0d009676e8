package analysis

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kpetrou/signalfolio/internal/domain"
)

func newTestSnapshotRepo(t *testing.T) *SnapshotRepository {
	t.Helper()

	db, err := sql.Open("sqlite", "file:snapshots_test?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSnapshotRepository(db, zerolog.Nop())
	require.NoError(t, err)

	// Memory databases with shared cache persist between tests in the same
	// binary; start each test from a clean table.
	_, err = db.Exec(`DELETE FROM analysis_snapshots`)
	require.NoError(t, err)

	return repo
}

func testAnalysis(symbol string, signal domain.Signal, confidence float64) *TechnicalAnalysis {
	return &TechnicalAnalysis{
		Symbol:        symbol,
		CurrentPrice:  100,
		OverallSignal: signal,
		Confidence:    confidence,
		Indicators: []TechnicalIndicator{
			{Name: IndicatorRSI, Value: 25, Signal: domain.SignalBuy, Strength: 33},
		},
		BuySignals: 1,
		PositionSizing: PositionSizing{
			RecommendedAllocation: 5,
			MaxPositionSize:       10,
			RiskLevel:             domain.RiskLevelMedium,
		},
	}
}

func TestSnapshotSaveAndGet(t *testing.T) {
	repo := newTestSnapshotRepo(t)

	require.NoError(t, repo.Save(testAnalysis("AAPL", domain.SignalBuy, 72.5)))

	snap, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, string(domain.SignalBuy), snap.OverallSignal)
	assert.Equal(t, 72.5, snap.Confidence)
	assert.Equal(t, "AAPL", snap.Analysis.Symbol)
	require.Len(t, snap.Analysis.Indicators, 1)
	assert.Equal(t, IndicatorRSI, snap.Analysis.Indicators[0].Name)
}

func TestSnapshotGetMissing(t *testing.T) {
	repo := newTestSnapshotRepo(t)

	snap, err := repo.GetBySymbol("NOPE")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotSaveReplacesPerSymbol(t *testing.T) {
	repo := newTestSnapshotRepo(t)

	require.NoError(t, repo.Save(testAnalysis("AAPL", domain.SignalBuy, 60)))
	require.NoError(t, repo.Save(testAnalysis("AAPL", domain.SignalSell, 80)))

	snap, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, string(domain.SignalSell), snap.OverallSignal)
	assert.Equal(t, 80.0, snap.Confidence)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSnapshotGetAll(t *testing.T) {
	repo := newTestSnapshotRepo(t)

	require.NoError(t, repo.Save(testAnalysis("AAPL", domain.SignalBuy, 60)))
	require.NoError(t, repo.Save(testAnalysis("MSFT", domain.SignalNeutral, 40)))
	require.NoError(t, repo.Save(testAnalysis("KO", domain.SignalSell, 55)))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSnapshotDeleteOlderThan(t *testing.T) {
	repo := newTestSnapshotRepo(t)

	require.NoError(t, repo.Save(testAnalysis("AAPL", domain.SignalBuy, 60)))
	require.NoError(t, repo.Save(testAnalysis("MSFT", domain.SignalBuy, 60)))

	// Nothing is older than a cutoff in the past
	removed, err := repo.DeleteOlderThan(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Everything is older than a cutoff in the future
	removed, err = repo.DeleteOlderThan(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

package pipeline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

const assembleHorizon = 3

// assembleFixture covers two piles over three days: pile 101 burns on day 4,
// pile 102 never does. Weather exists for the first two days only, supplies
// for days 1 and 3.
func assembleFixture() Sources {
	day1 := utcDay(2024, time.April, 25)
	day2 := utcDay(2024, time.April, 26)
	day3 := utcDay(2024, time.April, 27)
	yard2 := 2
	yard1 := 1

	return Sources{
		Temperature: []domain.TemperatureRecord{
			{PileID: 101, Date: &day1, TempMax: fp(45), CoalGrade: sp("Д")},
			{PileID: 101, Date: &day2, TempMax: fp(55), CoalGrade: sp("Д")},
			{PileID: 101, Date: &day3, TempMax: fp(65), CoalGrade: sp("Д")},
			{PileID: 102, Date: &day2, TempMax: fp(30), CoalGrade: sp("Г")},
		},
		Supplies: []domain.SupplyRecord{
			{PileID: 101, Stockyard: &yard2, UnloadDate: &day1, ToStockTons: fp(1000)},
			{PileID: 101, Stockyard: &yard2, UnloadDate: &day3, ToStockTons: fp(500), LoadDate: &day3, FromStockTons: fp(200)},
			{PileID: 102, Stockyard: &yard1, UnloadDate: &day2, ToStockTons: fp(800)},
		},
		Weather: []domain.WeatherRecord{
			{Date: &day1, TempAir: fp(10), Humidity: fp(50), Precip: fp(0), WindAvg: fp(3)},
			{Date: &day2, TempAir: fp(12), Humidity: fp(55), Precip: fp(1.2), WindAvg: fp(4)},
		},
		Fires: []domain.FireRecord{
			{PileID: 101, FireStart: tp(time.Date(2024, time.April, 29, 6, 0, 0, 0, time.UTC))},
		},
	}
}

func tp(t time.Time) *time.Time { return &t }

func TestAssemble(t *testing.T) {
	rows := Assemble(assembleFixture(), assembleHorizon)
	require.Len(t, rows, 4)

	t.Run("sorted by pile then day", func(t *testing.T) {
		assert.Equal(t, 101, rows[0].PileID)
		assert.Equal(t, utcDay(2024, time.April, 25), rows[0].Date)
		assert.Equal(t, utcDay(2024, time.April, 27), rows[2].Date)
		assert.Equal(t, 102, rows[3].PileID)
	})

	t.Run("supply join preserves missing days", func(t *testing.T) {
		require.NotNil(t, rows[0].StockTons)
		assert.Equal(t, 1000.0, *rows[0].StockTons)

		assert.Nil(t, rows[1].StockTons, "no movement on day 2")
		assert.Nil(t, rows[1].NetFlow)

		require.NotNil(t, rows[2].StockTons)
		assert.Equal(t, 1300.0, *rows[2].StockTons)
		assert.Equal(t, 300.0, *rows[2].NetFlow)
	})

	t.Run("weather joins by day across piles", func(t *testing.T) {
		require.NotNil(t, rows[0].TempAirMean)
		assert.Equal(t, 10.0, *rows[0].TempAirMean)

		// Pile 102's only row shares day 2's weather with pile 101.
		require.NotNil(t, rows[3].TempAirMean)
		assert.Equal(t, 12.0, *rows[3].TempAirMean)
		assert.Equal(t, *rows[1].TempAirMean, *rows[3].TempAirMean)

		assert.Nil(t, rows[2].TempAirMean, "day 3 is outside the weather record")
		assert.Nil(t, rows[2].PrecipSum)
	})

	t.Run("fire labels", func(t *testing.T) {
		require.NotNil(t, rows[0].DaysToFire)
		assert.Equal(t, 4, *rows[0].DaysToFire)
		assert.Equal(t, 0, rows[0].FireInHorizon, "4 days out exceeds the horizon")
		assert.Equal(t, 1, rows[0].EverFire)

		require.NotNil(t, rows[2].DaysToFire)
		assert.Equal(t, 2, *rows[2].DaysToFire)
		assert.Equal(t, 1, rows[2].FireInHorizon)

		assert.Nil(t, rows[3].DaysToFire)
		assert.Equal(t, 0, rows[3].EverFire)
		assert.Nil(t, rows[3].FireStart)
	})

	t.Run("stockyard backfilled from supplies", func(t *testing.T) {
		// The fire record carries no stockyard, so pile 101 falls back to
		// the supplies annotation; pile 102 never had a fire at all.
		require.NotNil(t, rows[0].Stockyard)
		assert.Equal(t, 2, *rows[0].Stockyard)
		require.NotNil(t, rows[3].Stockyard)
		assert.Equal(t, 1, *rows[3].Stockyard)
	})
}

func TestAssembleStockyardFromFire(t *testing.T) {
	src := assembleFixture()
	yard4 := 4
	src.Fires[0].Stockyard = &yard4

	rows := Assemble(src, assembleHorizon)
	require.NotNil(t, rows[0].Stockyard)
	assert.Equal(t, 4, *rows[0].Stockyard, "fire annotation wins over supplies backfill")
}

func TestAssembleSmallestStockyardWins(t *testing.T) {
	day1 := utcDay(2024, time.April, 25)
	yard3 := 3
	yard1 := 1
	src := Sources{
		Temperature: []domain.TemperatureRecord{
			{PileID: 101, Date: &day1, TempMax: fp(40)},
		},
		Supplies: []domain.SupplyRecord{
			{PileID: 101, Stockyard: &yard3, UnloadDate: &day1, ToStockTons: fp(100)},
			{PileID: 101, Stockyard: &yard1, UnloadDate: &day1, ToStockTons: fp(100)},
		},
	}

	rows := Assemble(src, assembleHorizon)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Stockyard)
	assert.Equal(t, 1, *rows[0].Stockyard)
}

func TestAssembleEarliestFireLabels(t *testing.T) {
	src := assembleFixture()
	src.Fires = append(src.Fires, domain.FireRecord{
		PileID:    101,
		FireStart: tp(time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)),
	})

	rows := Assemble(src, assembleHorizon)
	require.NotNil(t, rows[0].FireStart)
	assert.Equal(t, time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC), *rows[0].FireStart)

	// Observation on 04-27 now sits 12h after the fire: floor gives -1.
	require.NotNil(t, rows[2].DaysToFire)
	assert.Equal(t, -1, *rows[2].DaysToFire)
	assert.Equal(t, 0, rows[2].FireInHorizon)
	assert.Equal(t, 1, rows[2].EverFire)
}

func TestAssembleDeterministic(t *testing.T) {
	src := assembleFixture()
	first := Assemble(src, assembleHorizon)
	second := Assemble(src, assembleHorizon)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestAssembleEmptyAnchor(t *testing.T) {
	src := assembleFixture()
	src.Temperature = nil
	assert.Empty(t, Assemble(src, assembleHorizon))
}

package pipeline

import (
	"sort"
	"time"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

// Sources holds the decoded raw records of all four exports. Fires may be
// empty (prediction does not need them); the other three drive the joins.
type Sources struct {
	Fires       []domain.FireRecord
	Temperature []domain.TemperatureRecord
	Supplies    []domain.SupplyRecord
	Weather     []domain.WeatherRecord
}

// Assemble builds the full per-(pile, day) feature dataset:
//
//  1. aggregate each source to daily granularity
//  2. left-join supplies onto the temperature anchor by (pile, day)
//  3. left-join weather by day, fanning out to every pile active that day
//  4. label each row with the pile's earliest fire, days_to_fire,
//     fire_in_horizon for the given horizon, and ever_fire
//  5. backfill missing stockyard numbers from supplies (smallest stockyard
//     a pile ever appeared on, so the fill is deterministic)
//  6. sort by (pile, day) ascending
//
// Assembling the same sources twice yields identical rows. An empty anchor
// yields an empty dataset, not an error.
func Assemble(src Sources, horizonDays int) []domain.FeatureRow {
	tempDaily := BuildTemperatureDaily(src.Temperature)
	supplyDaily := BuildSuppliesDaily(src.Supplies)
	weatherDaily := BuildWeatherDaily(src.Weather)

	supplyByKey := make(map[pileDay]domain.SupplyDaily, len(supplyDaily))
	for _, s := range supplyDaily {
		supplyByKey[pileDay{s.PileID, s.Date}] = s
	}
	weatherByDay := make(map[time.Time]domain.WeatherDaily, len(weatherDaily))
	for _, w := range weatherDaily {
		weatherByDay[w.Date] = w
	}

	fireByPile := make(map[int]domain.FireEvent)
	for _, ev := range domain.FirstFires(src.Fires) {
		fireByPile[ev.PileID] = ev
	}
	yardByPile := supplyStockyards(src.Supplies)

	rows := make([]domain.FeatureRow, 0, len(tempDaily))
	for _, t := range tempDaily {
		row := domain.FeatureRow{
			PileID:        t.PileID,
			Date:          t.Date,
			TempMaxMean:   t.TempMaxMean,
			TempMaxMin:    t.TempMaxMin,
			TempMaxMax:    t.TempMaxMax,
			TempMaxStd:    t.TempMaxStd,
			NMeasurements: t.NMeasurements,
			CoalGrade:     t.CoalGrade,
		}

		if s, ok := supplyByKey[pileDay{t.PileID, t.Date}]; ok {
			row.ToStockTonsDaily = ptr(s.ToStockTons)
			row.FromStockTonsDaily = ptr(s.FromStockTons)
			row.NetFlow = ptr(s.NetFlow)
			row.StockTons = ptr(s.StockTons)
		}

		if w, ok := weatherByDay[t.Date]; ok {
			row.TempAirMean = w.TempAirMean
			row.TempAirMin = w.TempAirMin
			row.TempAirMax = w.TempAirMax
			row.HumidityMean = w.HumidityMean
			row.PrecipSum = ptr(w.PrecipSum)
			row.WindAvgMean = w.WindAvgMean
			row.WindMaxMax = w.WindMaxMax
			row.CloudCoverMean = w.CloudCoverMean
			row.VisibilityMean = w.VisibilityMean
		}

		if fire, ok := fireByPile[t.PileID]; ok {
			start := fire.FireStart
			row.FireStart = &start
			row.Stockyard = fire.Stockyard
			days := domain.DaysBetween(t.Date, fire.FireStart)
			row.DaysToFire = &days
			if days >= 0 && days <= horizonDays {
				row.FireInHorizon = 1
			}
			row.EverFire = 1
		}

		if row.Stockyard == nil {
			if yard, ok := yardByPile[t.PileID]; ok {
				y := yard
				row.Stockyard = &y
			}
		}

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PileID != rows[j].PileID {
			return rows[i].PileID < rows[j].PileID
		}
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

// supplyStockyards maps each pile to the smallest stockyard number it ever
// appeared on in the supplies export.
func supplyStockyards(records []domain.SupplyRecord) map[int]int {
	yards := make(map[int]int)
	for _, rec := range records {
		if rec.Stockyard == nil {
			continue
		}
		cur, ok := yards[rec.PileID]
		if !ok || *rec.Stockyard < cur {
			yards[rec.PileID] = *rec.Stockyard
		}
	}
	return yards
}

func ptr(v float64) *float64 { return &v }

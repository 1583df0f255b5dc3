package pipeline

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

type pileDay struct {
	pile int
	day  time.Time
}

func lessPileDay(a, b pileDay) bool {
	if a.pile != b.pile {
		return a.pile < b.pile
	}
	return a.day.Before(b.day)
}

// BuildTemperatureDaily aggregates probe readings per (pile, day): mean,
// min, max and sample std of temp_max, the reading count, and the first
// coal grade seen that day (records are sorted by pile and date first, so
// "first" is deterministic). Records without a date are dropped.
func BuildTemperatureDaily(records []domain.TemperatureRecord) []domain.TemperatureDaily {
	sorted := make([]domain.TemperatureRecord, 0, len(records))
	for _, rec := range records {
		if rec.Date != nil {
			sorted = append(sorted, rec)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PileID != sorted[j].PileID {
			return sorted[i].PileID < sorted[j].PileID
		}
		return sorted[i].Date.Before(*sorted[j].Date)
	})

	type group struct {
		readings []float64
		grade    *string
	}
	groups := make(map[pileDay]*group)
	var order []pileDay
	for _, rec := range sorted {
		key := pileDay{rec.PileID, *rec.Date}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		if rec.TempMax != nil {
			g.readings = append(g.readings, *rec.TempMax)
		}
		if g.grade == nil && rec.CoalGrade != nil {
			g.grade = rec.CoalGrade
		}
	}

	daily := make([]domain.TemperatureDaily, 0, len(order))
	for _, key := range order {
		g := groups[key]
		d := domain.TemperatureDaily{
			PileID:        key.pile,
			Date:          key.day,
			NMeasurements: len(g.readings),
			CoalGrade:     g.grade,
		}
		if len(g.readings) > 0 {
			mean := stat.Mean(g.readings, nil)
			min := floats.Min(g.readings)
			max := floats.Max(g.readings)
			d.TempMaxMean = &mean
			d.TempMaxMin = &min
			d.TempMaxMax = &max
		}
		if len(g.readings) > 1 {
			std := stat.StdDev(g.readings, nil)
			d.TempMaxStd = &std
		}
		daily = append(daily, d)
	}
	return daily
}

// BuildSuppliesDaily aggregates coal movements per (pile, day). Incoming
// tonnage groups by unload day and outgoing by load day, independently; the
// two sides outer-join on (pile, day) with the absent side zero-filled.
// net_flow is incoming minus outgoing, and stock_tons the per-pile running
// cumulative of net_flow in ascending day order.
func BuildSuppliesDaily(records []domain.SupplyRecord) []domain.SupplyDaily {
	incoming := make(map[pileDay]float64)
	outgoing := make(map[pileDay]float64)
	for _, rec := range records {
		// A movement day exists even when its tonnage cell failed to
		// parse; the missing value sums as zero.
		if rec.UnloadDate != nil {
			incoming[pileDay{rec.PileID, *rec.UnloadDate}] += floatOrZero(rec.ToStockTons)
		}
		if rec.LoadDate != nil {
			outgoing[pileDay{rec.PileID, *rec.LoadDate}] += floatOrZero(rec.FromStockTons)
		}
	}

	keys := make(map[pileDay]struct{}, len(incoming)+len(outgoing))
	for k := range incoming {
		keys[k] = struct{}{}
	}
	for k := range outgoing {
		keys[k] = struct{}{}
	}
	ordered := make([]pileDay, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool { return lessPileDay(ordered[i], ordered[j]) })

	daily := make([]domain.SupplyDaily, 0, len(ordered))
	running := make(map[int]float64)
	for _, key := range ordered {
		in := incoming[key]
		out := outgoing[key]
		net := in - out
		running[key.pile] += net
		daily = append(daily, domain.SupplyDaily{
			PileID:        key.pile,
			Date:          key.day,
			ToStockTons:   in,
			FromStockTons: out,
			NetFlow:       net,
			StockTons:     running[key.pile],
		})
	}
	return daily
}

// BuildWeatherDaily aggregates station observations per day: mean air
// temperature with min and max, humidity/wind/cloud/visibility means, the
// day's max gust, and summed precipitation. Records without a date are
// dropped.
func BuildWeatherDaily(records []domain.WeatherRecord) []domain.WeatherDaily {
	type group struct {
		tempAir, humidity, windAvg, cloud, visibility []float64
		windMax                                       []float64
		precipSum                                     float64
	}
	groups := make(map[time.Time]*group)
	for _, rec := range records {
		if rec.Date == nil {
			continue
		}
		g, ok := groups[*rec.Date]
		if !ok {
			g = &group{}
			groups[*rec.Date] = g
		}
		appendIf(&g.tempAir, rec.TempAir)
		appendIf(&g.humidity, rec.Humidity)
		appendIf(&g.windAvg, rec.WindAvg)
		appendIf(&g.windMax, rec.WindMax)
		appendIf(&g.cloud, rec.CloudCover)
		appendIf(&g.visibility, rec.Visibility)
		if rec.Precip != nil {
			g.precipSum += *rec.Precip
		}
	}

	days := make([]time.Time, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	daily := make([]domain.WeatherDaily, 0, len(days))
	for _, day := range days {
		g := groups[day]
		d := domain.WeatherDaily{
			Date:           day,
			HumidityMean:   meanOf(g.humidity),
			PrecipSum:      g.precipSum,
			WindAvgMean:    meanOf(g.windAvg),
			CloudCoverMean: meanOf(g.cloud),
			VisibilityMean: meanOf(g.visibility),
		}
		if len(g.tempAir) > 0 {
			mean := stat.Mean(g.tempAir, nil)
			min := floats.Min(g.tempAir)
			max := floats.Max(g.tempAir)
			d.TempAirMean = &mean
			d.TempAirMin = &min
			d.TempAirMax = &max
		}
		if len(g.windMax) > 0 {
			max := floats.Max(g.windMax)
			d.WindMaxMax = &max
		}
		daily = append(daily, d)
	}
	return daily
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func appendIf(dst *[]float64, v *float64) {
	if v != nil {
		*dst = append(*dst, *v)
	}
}

func meanOf(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m := stat.Mean(vals, nil)
	return &m
}

package domain

import (
	"strconv"
	"time"
)

// FeatureRow is one assembled (pile, day) observation: temperature anchor,
// joined supply and weather aggregates, fire labels, and the stockyard
// annotation backfilled from supplies. Optional values stay nil through the
// join so downstream consumers can tell "no data" from zero.
type FeatureRow struct {
	PileID int
	Date   time.Time

	// From the temperature daily aggregate (the join anchor).
	TempMaxMean   *float64
	TempMaxMin    *float64
	TempMaxMax    *float64
	TempMaxStd    *float64
	NMeasurements int
	CoalGrade     *string

	// From the supplies daily aggregate; nil when the pile moved no coal
	// that day.
	ToStockTonsDaily   *float64
	FromStockTonsDaily *float64
	NetFlow            *float64
	StockTons          *float64

	// From the weather daily aggregate; nil when the day is outside the
	// weather record.
	TempAirMean    *float64
	TempAirMin     *float64
	TempAirMax     *float64
	HumidityMean   *float64
	PrecipSum      *float64
	WindAvgMean    *float64
	WindMaxMax     *float64
	CloudCoverMean *float64
	VisibilityMean *float64

	// Fire labels.
	FireStart     *time.Time
	Stockyard     *int
	DaysToFire    *int
	FireInHorizon int
	EverFire      int
}

// Canonical numeric feature column names, in assembly order.
var numericFeatureCols = []string{
	"temp_max_mean", "temp_max_min", "temp_max_max", "temp_max_std",
	"n_measurements",
	"to_stock_tons_daily", "from_stock_tons_daily", "net_flow", "stock_tons",
	"temp_air_mean", "temp_air_min", "temp_air_max",
	"humidity_mean", "precip_sum", "wind_avg_mean", "wind_max_max",
	"cloudcover_mean", "visibility_mean",
}

// Canonical categorical feature column names.
var categoricalFeatureCols = []string{"coal_grade", "stockyard"}

// FeatureColumns returns the full set of feature column names a FeatureRow
// exposes, numeric first. Used to validate model artifacts against the
// assembled schema.
func FeatureColumns() []string {
	cols := make([]string, 0, len(numericFeatureCols)+len(categoricalFeatureCols))
	cols = append(cols, numericFeatureCols...)
	cols = append(cols, categoricalFeatureCols...)
	return cols
}

// NumericFeature returns the named numeric column's value. The second return
// is false when the column is unknown or the value is missing on this row.
func (r *FeatureRow) NumericFeature(name string) (float64, bool) {
	switch name {
	case "temp_max_mean":
		return deref(r.TempMaxMean)
	case "temp_max_min":
		return deref(r.TempMaxMin)
	case "temp_max_max":
		return deref(r.TempMaxMax)
	case "temp_max_std":
		return deref(r.TempMaxStd)
	case "n_measurements":
		return float64(r.NMeasurements), true
	case "to_stock_tons_daily":
		return deref(r.ToStockTonsDaily)
	case "from_stock_tons_daily":
		return deref(r.FromStockTonsDaily)
	case "net_flow":
		return deref(r.NetFlow)
	case "stock_tons":
		return deref(r.StockTons)
	case "temp_air_mean":
		return deref(r.TempAirMean)
	case "temp_air_min":
		return deref(r.TempAirMin)
	case "temp_air_max":
		return deref(r.TempAirMax)
	case "humidity_mean":
		return deref(r.HumidityMean)
	case "precip_sum":
		return deref(r.PrecipSum)
	case "wind_avg_mean":
		return deref(r.WindAvgMean)
	case "wind_max_max":
		return deref(r.WindMaxMax)
	case "cloudcover_mean":
		return deref(r.CloudCoverMean)
	case "visibility_mean":
		return deref(r.VisibilityMean)
	}
	return 0, false
}

// CategoricalFeature returns the named categorical column's value in
// canonical string form (stockyard numbers render as decimal strings).
// The second return is false when the column is unknown or the value is
// missing on this row.
func (r *FeatureRow) CategoricalFeature(name string) (string, bool) {
	switch name {
	case "coal_grade":
		if r.CoalGrade == nil {
			return "", false
		}
		return *r.CoalGrade, true
	case "stockyard":
		if r.Stockyard == nil {
			return "", false
		}
		return strconv.Itoa(*r.Stockyard), true
	}
	return "", false
}

// IsFeatureColumn reports whether name is a known numeric or categorical
// feature column.
func IsFeatureColumn(name string) bool {
	for _, c := range numericFeatureCols {
		if c == name {
			return true
		}
	}
	for _, c := range categoricalFeatureCols {
		if c == name {
			return true
		}
	}
	return false
}

// FeatureSnapshot extracts the fixed reporting snapshot for API responses:
// the handful of headline features operators read alongside a prediction.
// Missing values render as 0.0 so the snapshot shape is stable.
func (r *FeatureRow) FeatureSnapshot() map[string]float64 {
	snapshotCols := []string{
		"stock_tons", "temp_max_mean", "temp_air_mean",
		"humidity_mean", "precip_sum", "wind_avg_mean",
	}
	snap := make(map[string]float64, len(snapshotCols))
	for _, col := range snapshotCols {
		v, ok := r.NumericFeature(col)
		if !ok {
			v = 0.0
		}
		snap[col] = v
	}
	return snap
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

package domain

import "time"

// FireRecord is one registered self-ignition event from the fires export.
type FireRecord struct {
	PileID    int
	CoalGrade *string
	Stockyard *int
	FireStart *time.Time
	FireEnd   *time.Time
	PileStart *time.Time
}

// TemperatureRecord is one manual probe measurement from the temperature export.
type TemperatureRecord struct {
	PileID    int
	CoalGrade *string
	TempMax   *float64
	Location  *string
	Date      *time.Time
	Shift     *string
}

// SupplyRecord is one wagon unload or ship load movement from the supplies export.
// UnloadDate and LoadDate are the day truncations of the corresponding
// timestamps; a record may carry either or both directions.
type SupplyRecord struct {
	PileID        int
	CoalGrade     *string
	Stockyard     *int
	UnloadTime    *time.Time
	LoadTime      *time.Time
	UnloadDate    *time.Time
	LoadDate      *time.Time
	ToStockTons   *float64
	FromStockTons *float64
}

// WeatherRecord is one station observation from a weather export.
type WeatherRecord struct {
	Date        *time.Time
	TempAir     *float64
	Pressure    *float64
	Humidity    *float64
	Precip      *float64
	WindDir     *float64
	WindAvg     *float64
	WindMax     *float64
	CloudCover  *float64
	Visibility  *float64
	WeatherCode *string
}

// TemperatureDaily aggregates a pile's probe readings for one day.
// The stat fields are nil when the day has no parseable temp_max readings;
// TempMaxStd additionally needs at least two readings (sample std).
type TemperatureDaily struct {
	PileID        int
	Date          time.Time
	TempMaxMean   *float64
	TempMaxMin    *float64
	TempMaxMax    *float64
	TempMaxStd    *float64
	NMeasurements int
	CoalGrade     *string
}

// SupplyDaily aggregates a pile's coal movements for one day. Days appear
// when either direction moved tonnage; the other direction is zero-filled.
// StockTons is the running per-pile cumulative sum of NetFlow in day order.
type SupplyDaily struct {
	PileID        int
	Date          time.Time
	ToStockTons   float64
	FromStockTons float64
	NetFlow       float64
	StockTons     float64
}

// WeatherDaily aggregates station observations for one day.
// Mean/min/max fields are nil when no observation that day carries the
// source value; PrecipSum is zero in that case.
type WeatherDaily struct {
	Date           time.Time
	TempAirMean    *float64
	TempAirMin     *float64
	TempAirMax     *float64
	HumidityMean   *float64
	PrecipSum      float64
	WindAvgMean    *float64
	WindMaxMax     *float64
	CloudCoverMean *float64
	VisibilityMean *float64
}

// FireEvent is a pile's earliest registered fire, used for labeling and
// evaluation matching.
type FireEvent struct {
	PileID    int
	FireStart time.Time
	CoalGrade *string
	Stockyard *int
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from `from` to `to`,
// flooring toward negative infinity (so a fire 12h after an observation
// counts as day 0, and 12h before as day -1).
func DaysBetween(from, to time.Time) int {
	diff := to.Sub(from).Hours() / 24
	days := int(diff)
	if diff < 0 && float64(days) != diff {
		days--
	}
	return days
}

// Package pipeline assembles the per-(pile, day) feature dataset from the
// four raw CSV exports: decode and normalize each source, aggregate to daily
// granularity, join onto the temperature anchor, and label with fires.
package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

// Source header → canonical column renames. Canonical names also pass
// through unchanged, so re-exported files keep working.
var (
	fireRenames = map[string]string{
		"Груз":             "coal_grade",
		"Склад":            "stockyard",
		"Дата начала":      "fire_start",
		"Дата оконч.":      "fire_end",
		"Нач.форм.штабеля": "pile_start",
		"Штабель":          "pile_id",
	}

	temperatureRenames = map[string]string{
		"Штабель":                  "pile_id",
		"Марка":                    "coal_grade",
		"Максимальная температура": "temp_max",
		"Пикет":                    "location",
		"Дата акта":                "date",
		"Смена":                    "shift",
	}

	supplyRenames = map[string]string{
		"ВыгрузкаНаСклад": "unload_time",
		"Наим. ЕТСНГ":     "coal_grade",
		"Штабель":         "pile_id",
		"ПогрузкаНаСудно": "load_time",
		"На склад, тн":    "to_stock_tons",
		"На судно, тн":    "from_stock_tons",
		"Склад":           "stockyard",
	}

	weatherRenames = map[string]string{
		"t":             "temp_air",
		"p":             "pressure",
		"precipitation": "precip",
		"v_avg":         "wind_avg",
		"v_max":         "wind_max",
	}
)

// weatherDateCandidates is the discovery priority for the weather date
// column. The station export has shipped under several names.
var weatherDateCandidates = []string{"dt", "date", "datetime", "time"}

// header maps canonical column names to their position in the CSV header.
type header map[string]int

func readHeader(rdr *csv.Reader, renames map[string]string) (header, error) {
	row, err := rdr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	h := make(header, len(row))
	for i, name := range row {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if canonical, ok := renames[name]; ok {
			name = canonical
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h, nil
}

// require returns a SchemaError naming every missing column, or nil.
func (h header) require(source string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &domain.SchemaError{Source: source, Missing: missing}
	}
	return nil
}

// cell returns the named column's trimmed value, or "" when the column is
// absent or the row is short.
func (h header) cell(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newCSVReader(r io.Reader) *csv.Reader {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	return rdr
}

// DecodeFires parses the fires export. Rows without a parseable pile_id are
// dropped; all other cells degrade to missing values on parse failure.
func DecodeFires(r io.Reader) ([]domain.FireRecord, error) {
	rdr := newCSVReader(r)
	h, err := readHeader(rdr, fireRenames)
	if err != nil {
		return nil, err
	}
	if err := h.require("fires", "pile_id", "fire_start"); err != nil {
		return nil, err
	}

	var records []domain.FireRecord
	for {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read fires row: %w", err)
		}

		pileID, ok := parseIntCell(h.cell(row, "pile_id"))
		if !ok {
			continue
		}
		records = append(records, domain.FireRecord{
			PileID:    pileID,
			CoalGrade: parseStringCell(h.cell(row, "coal_grade")),
			Stockyard: parseIntCellPtr(h.cell(row, "stockyard")),
			FireStart: parseDateCell(h.cell(row, "fire_start")),
			FireEnd:   parseDateCell(h.cell(row, "fire_end")),
			PileStart: parseDateCell(h.cell(row, "pile_start")),
		})
	}
	return records, nil
}

// DecodeTemperature parses the temperature export.
func DecodeTemperature(r io.Reader) ([]domain.TemperatureRecord, error) {
	rdr := newCSVReader(r)
	h, err := readHeader(rdr, temperatureRenames)
	if err != nil {
		return nil, err
	}
	if err := h.require("temperature", "pile_id", "date", "temp_max"); err != nil {
		return nil, err
	}

	var records []domain.TemperatureRecord
	for {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read temperature row: %w", err)
		}

		pileID, ok := parseIntCell(h.cell(row, "pile_id"))
		if !ok {
			continue
		}
		var day *time.Time
		if ts := parseDateCell(h.cell(row, "date")); ts != nil {
			d := domain.Day(*ts)
			day = &d
		}
		records = append(records, domain.TemperatureRecord{
			PileID:    pileID,
			CoalGrade: parseStringCell(h.cell(row, "coal_grade")),
			TempMax:   parseFloatCell(h.cell(row, "temp_max")),
			Location:  parseStringCell(h.cell(row, "location")),
			Date:      day,
			Shift:     parseStringCell(h.cell(row, "shift")),
		})
	}
	return records, nil
}

// DecodeSupplies parses the supplies export and derives the day-granularity
// unload_date/load_date join keys from the movement timestamps.
func DecodeSupplies(r io.Reader) ([]domain.SupplyRecord, error) {
	rdr := newCSVReader(r)
	h, err := readHeader(rdr, supplyRenames)
	if err != nil {
		return nil, err
	}
	if err := h.require("supplies", "pile_id"); err != nil {
		return nil, err
	}

	var records []domain.SupplyRecord
	for {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read supplies row: %w", err)
		}

		pileID, ok := parseIntCell(h.cell(row, "pile_id"))
		if !ok {
			continue
		}
		rec := domain.SupplyRecord{
			PileID:        pileID,
			CoalGrade:     parseStringCell(h.cell(row, "coal_grade")),
			Stockyard:     parseIntCellPtr(h.cell(row, "stockyard")),
			UnloadTime:    parseDateCell(h.cell(row, "unload_time")),
			LoadTime:      parseDateCell(h.cell(row, "load_time")),
			ToStockTons:   parseFloatCell(h.cell(row, "to_stock_tons")),
			FromStockTons: parseFloatCell(h.cell(row, "from_stock_tons")),
		}
		if rec.UnloadTime != nil {
			d := domain.Day(*rec.UnloadTime)
			rec.UnloadDate = &d
		}
		if rec.LoadTime != nil {
			d := domain.Day(*rec.LoadTime)
			rec.LoadDate = &d
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeWeather parses one weather export. The date column is discovered by
// priority among {dt, date, datetime, time}; a file without any of them is a
// schema error. Multiple weather files concatenate by decoding each and
// appending the results.
func DecodeWeather(r io.Reader) ([]domain.WeatherRecord, error) {
	rdr := newCSVReader(r)
	h, err := readHeader(rdr, weatherRenames)
	if err != nil {
		return nil, err
	}

	dateCol := ""
	for _, cand := range weatherDateCandidates {
		if _, ok := h[cand]; ok {
			dateCol = cand
			break
		}
	}
	if dateCol == "" {
		return nil, &domain.SchemaError{Source: "weather", Missing: []string{"dt|date|datetime|time"}}
	}

	var records []domain.WeatherRecord
	for {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read weather row: %w", err)
		}

		var day *time.Time
		if ts := parseDateCell(h.cell(row, dateCol)); ts != nil {
			d := domain.Day(*ts)
			day = &d
		}
		records = append(records, domain.WeatherRecord{
			Date:        day,
			TempAir:     parseFloatCell(h.cell(row, "temp_air")),
			Pressure:    parseFloatCell(h.cell(row, "pressure")),
			Humidity:    parseFloatCell(h.cell(row, "humidity")),
			Precip:      parseFloatCell(h.cell(row, "precip")),
			WindDir:     parseFloatCell(h.cell(row, "wind_dir")),
			WindAvg:     parseFloatCell(h.cell(row, "wind_avg")),
			WindMax:     parseFloatCell(h.cell(row, "wind_max")),
			CloudCover:  parseFloatCell(h.cell(row, "cloudcover")),
			Visibility:  parseFloatCell(h.cell(row, "visibility")),
			WeatherCode: parseStringCell(h.cell(row, "weather_code")),
		})
	}
	return records, nil
}

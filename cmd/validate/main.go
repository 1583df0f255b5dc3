// Command validate performs offline integrity checks over a directory of
// raw CSV exports and a model artifact: every source decodes, the assembled
// dataset honors its structural invariants (unique sorted keys, consistent
// stock ledger, coherent fire labels), assembly is deterministic, and the
// artifact scores the dataset without schema errors.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data/mock -model models/fire_prediction_model.json
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
	"github.com/couchcryptid/coalfire-prediction/internal/model"
	"github.com/couchcryptid/coalfire-prediction/internal/pipeline"
)

const horizonDays = 3

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "", "directory containing the four raw CSV exports")
	modelPath := flag.String("model", "", "path to the model artifact JSON")
	flag.Parse()

	if *dataDir == "" || *modelPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir, *modelPath); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, modelPath string) int {
	fmt.Println("=== Coal Fire Dataset Integrity Validation ===")
	fmt.Println()

	src, err := loadSources(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load sources: %v\n", err)
		return 1
	}

	rows := pipeline.Assemble(src, horizonDays)

	phases := []*phase{
		checkSources(src),
		checkStructure(rows),
		checkStockLedger(src, rows),
		checkFireLabels(src, rows),
		checkDeterminism(src),
		checkScoring(modelPath, rows),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("all %d phases passed (%d feature rows)\n", len(phases), len(rows))
	return 0
}

func checkSources(src pipeline.Sources) *phase {
	p := &phase{name: "source decode"}
	if len(src.Temperature) == 0 {
		p.errorf("temperature: no records decoded")
	}
	if len(src.Supplies) == 0 {
		p.errorf("supplies: no records decoded")
	}
	if len(src.Weather) == 0 {
		p.errorf("weather: no records decoded")
	}
	return p
}

// checkStructure verifies (pile, day) keys are unique and sorted ascending.
func checkStructure(rows []domain.FeatureRow) *phase {
	p := &phase{name: "dataset structure"}
	seen := map[string]bool{}
	for i := range rows {
		key := fmt.Sprintf("%d|%s", rows[i].PileID, rows[i].Date.Format("2006-01-02"))
		if seen[key] {
			p.errorf("duplicate key %s", key)
		}
		seen[key] = true
		if i == 0 {
			continue
		}
		prev, cur := &rows[i-1], &rows[i]
		if prev.PileID > cur.PileID ||
			(prev.PileID == cur.PileID && prev.Date.After(cur.Date)) {
			p.errorf("rows out of order at index %d: pile %d %s after pile %d %s",
				i, prev.PileID, prev.Date.Format("2006-01-02"), cur.PileID, cur.Date.Format("2006-01-02"))
		}
	}
	return p
}

// checkStockLedger recomputes each pile's cumulative stock from the raw
// supply movements and compares it with the assembled stock_tons values.
func checkStockLedger(src pipeline.Sources, rows []domain.FeatureRow) *phase {
	p := &phase{name: "stock ledger"}

	daily := pipeline.BuildSuppliesDaily(src.Supplies)
	expect := map[string]float64{}
	for _, d := range daily {
		expect[fmt.Sprintf("%d|%s", d.PileID, d.Date.Format("2006-01-02"))] = d.StockTons
	}

	// Independent recompute, pile by pile.
	byPile := map[int][]domain.SupplyDaily{}
	for _, d := range daily {
		byPile[d.PileID] = append(byPile[d.PileID], d)
	}
	for pile, ds := range byPile {
		sort.Slice(ds, func(i, j int) bool { return ds[i].Date.Before(ds[j].Date) })
		var running float64
		for _, d := range ds {
			running += d.ToStockTons - d.FromStockTons
			if math.Abs(running-d.StockTons) > 1e-6 {
				p.errorf("pile %d %s: stock_tons %.3f, recomputed %.3f",
					pile, d.Date.Format("2006-01-02"), d.StockTons, running)
			}
		}
	}

	for i := range rows {
		if rows[i].StockTons == nil {
			continue
		}
		key := fmt.Sprintf("%d|%s", rows[i].PileID, rows[i].Date.Format("2006-01-02"))
		want, ok := expect[key]
		if !ok {
			p.errorf("row %s has stock_tons but no supply day exists", key)
			continue
		}
		if math.Abs(*rows[i].StockTons-want) > 1e-6 {
			p.errorf("row %s: stock_tons %.3f, supply daily says %.3f", key, *rows[i].StockTons, want)
		}
	}
	return p
}

// checkFireLabels verifies label coherence: ever_fire iff a fire date is
// attached, fire_in_horizon iff days_to_fire lies in [0, horizon], and the
// attached date is the pile's earliest fire.
func checkFireLabels(src pipeline.Sources, rows []domain.FeatureRow) *phase {
	p := &phase{name: "fire labels"}

	earliest := map[int]string{}
	for _, ev := range domain.FirstFires(src.Fires) {
		earliest[ev.PileID] = ev.FireStart.Format("2006-01-02 15:04:05")
	}

	for i := range rows {
		row := &rows[i]
		hasFire := row.FireStart != nil
		if hasFire != (row.EverFire == 1) {
			p.errorf("pile %d %s: ever_fire=%d but fire_start presence=%v",
				row.PileID, row.Date.Format("2006-01-02"), row.EverFire, hasFire)
		}
		if !hasFire {
			if row.FireInHorizon != 0 || row.DaysToFire != nil {
				p.errorf("pile %d %s: fire labels set without a fire", row.PileID, row.Date.Format("2006-01-02"))
			}
			continue
		}
		if got := row.FireStart.Format("2006-01-02 15:04:05"); got != earliest[row.PileID] {
			p.errorf("pile %d: labeled fire %s is not the earliest (%s)", row.PileID, got, earliest[row.PileID])
		}
		inHorizon := row.DaysToFire != nil && *row.DaysToFire >= 0 && *row.DaysToFire <= horizonDays
		if inHorizon != (row.FireInHorizon == 1) {
			p.errorf("pile %d %s: fire_in_horizon=%d, days_to_fire=%v",
				row.PileID, row.Date.Format("2006-01-02"), row.FireInHorizon, row.DaysToFire)
		}
	}
	return p
}

// checkDeterminism asserts assembling the same sources twice yields
// identical output.
func checkDeterminism(src pipeline.Sources) *phase {
	p := &phase{name: "determinism"}
	a := pipeline.Assemble(src, horizonDays)
	b := pipeline.Assemble(src, horizonDays)
	if diff := cmp.Diff(a, b); diff != "" {
		first := strings.SplitN(diff, "\n", 2)[0]
		p.errorf("repeated assembly differs: %s", first)
	}
	return p
}

// checkScoring loads the artifact and scores the dataset, verifying the
// artifact's feature schema and that estimates are finite.
func checkScoring(modelPath string, rows []domain.FeatureRow) *phase {
	p := &phase{name: "model scoring"}
	artifact, err := model.LoadArtifact(modelPath)
	if err != nil {
		p.errorf("load artifact: %v", err)
		return p
	}
	preds, err := model.NewPredictor(artifact).PredictDaysToFire(rows)
	if err != nil {
		p.errorf("scoring: %v", err)
		return p
	}
	for i, v := range preds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.errorf("row %d: non-finite estimate %v", i, v)
		}
	}
	return p
}

func loadSources(dir string) (pipeline.Sources, error) {
	var src pipeline.Sources

	open := func(name string) (*os.File, error) { return os.Open(filepath.Join(dir, name)) }

	if f, err := open("fires.csv"); err == nil {
		defer f.Close()
		if src.Fires, err = pipeline.DecodeFires(f); err != nil {
			return src, fmt.Errorf("fires.csv: %w", err)
		}
	}

	f, err := open("temperature.csv")
	if err != nil {
		return src, err
	}
	defer f.Close()
	if src.Temperature, err = pipeline.DecodeTemperature(f); err != nil {
		return src, fmt.Errorf("temperature.csv: %w", err)
	}

	s, err := open("supplies.csv")
	if err != nil {
		return src, err
	}
	defer s.Close()
	if src.Supplies, err = pipeline.DecodeSupplies(s); err != nil {
		return src, fmt.Errorf("supplies.csv: %w", err)
	}

	weatherFiles, err := filepath.Glob(filepath.Join(dir, "weather_data_*.csv"))
	if err != nil {
		return src, err
	}
	for _, wp := range weatherFiles {
		w, err := os.Open(wp)
		if err != nil {
			return src, err
		}
		records, err := pipeline.DecodeWeather(w)
		w.Close()
		if err != nil {
			return src, fmt.Errorf("%s: %w", filepath.Base(wp), err)
		}
		src.Weather = append(src.Weather, records...)
	}
	return src, nil
}

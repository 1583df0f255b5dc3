// Command genmock generates deterministic mock CSV exports and a model
// artifact for the test suites. It writes the four raw sources with their
// original Russian headers, runs the actual assembly pipeline over them,
// and prints summary stats so fixtures and expectations stay in sync.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock -model-out models/fire_prediction_model.json
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
	"github.com/couchcryptid/coalfire-prediction/internal/model"
	"github.com/couchcryptid/coalfire-prediction/internal/pipeline"
)

var baseDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

const (
	pileCount = 12
	spanDays  = 60
)

var coalGrades = []string{"Д", "Г", "СС", "Т"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "output directory for mock CSV files")
	modelOut := flag.String("model-out", "", "output path for the model artifact JSON")
	flag.Parse()

	if *outDir == "" || *modelOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out-dir, -model-out")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*modelOut), 0o755); err != nil {
		return err
	}

	// Fixed clock and seed for reproducible fixtures.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.AddDate(0, 0, spanDays+1)))
	defer domain.SetClock(nil)
	rng := rand.New(rand.NewSource(42))

	fires := genFires(rng)
	temperature := genTemperature(rng, fires)
	supplies := genSupplies(rng)
	weather := genWeather(rng)

	files := map[string][][]string{
		"fires.csv":             fires,
		"temperature.csv":       temperature,
		"supplies.csv":          supplies,
		"weather_data_2024.csv": weather,
	}
	for name, rows := range files {
		path := filepath.Join(*outDir, name)
		if err := writeCSV(path, rows); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Printf("wrote %s: %d data rows", path, len(rows)-1)
	}

	artifact := buildArtifact()
	if err := model.SaveArtifact(*modelOut, artifact); err != nil {
		return err
	}
	log.Printf("wrote model artifact: %s", *modelOut)

	return printStats(*outDir, artifact)
}

// genFires produces fire events on a third of the piles, starting 20-50
// days into the span.
func genFires(rng *rand.Rand) [][]string {
	rows := [][]string{{"Штабель", "Груз", "Склад", "Дата начала", "Дата оконч.", "Нач.форм.штабеля"}}
	for pile := 1; pile <= pileCount; pile++ {
		if pile%3 != 0 {
			continue
		}
		start := baseDate.AddDate(0, 0, 20+rng.Intn(30))
		end := start.AddDate(0, 0, 1+rng.Intn(3))
		rows = append(rows, []string{
			fmt.Sprint(100 + pile),
			coalGrades[pile%len(coalGrades)],
			fmt.Sprint(1 + pile%4),
			start.Format("2006-01-02 15:04:05"),
			end.Format("2006-01-02 15:04:05"),
			baseDate.Format("2006-01-02"),
		})
	}
	return rows
}

// genTemperature produces 1-3 probe readings per pile-day. Piles that will
// burn trend hotter as their fire date approaches.
func genTemperature(rng *rand.Rand, fires [][]string) [][]string {
	fireDays := map[string]time.Time{}
	for _, row := range fires[1:] {
		t, _ := time.Parse("2006-01-02 15:04:05", row[3])
		fireDays[row[0]] = t
	}

	rows := [][]string{{"Штабель", "Марка", "Максимальная температура", "Пикет", "Дата акта", "Смена"}}
	for pile := 1; pile <= pileCount; pile++ {
		id := fmt.Sprint(100 + pile)
		for day := 0; day < spanDays; day++ {
			date := baseDate.AddDate(0, 0, day)
			base := 25.0 + rng.Float64()*10
			if fireDay, ok := fireDays[id]; ok {
				toFire := fireDay.Sub(date).Hours() / 24
				if toFire >= 0 && toFire < 14 {
					base += (14 - toFire) * 3.5 // heating up
				}
			}
			for shift := 1; shift <= 1+rng.Intn(3); shift++ {
				rows = append(rows, []string{
					id,
					coalGrades[pile%len(coalGrades)],
					fmt.Sprintf("%.1f", base+rng.Float64()*4),
					fmt.Sprintf("П-%d", 1+rng.Intn(9)),
					date.Format("2006-01-02"),
					fmt.Sprint(shift),
				})
			}
		}
	}
	return rows
}

// genSupplies unloads tonnage onto each pile early in the span and loads
// some of it out near the end.
func genSupplies(rng *rand.Rand) [][]string {
	rows := [][]string{{"ВыгрузкаНаСклад", "Наим. ЕТСНГ", "Штабель", "ПогрузкаНаСудно", "На склад, тн", "На судно, тн", "Склад"}}
	for pile := 1; pile <= pileCount; pile++ {
		id := fmt.Sprint(100 + pile)
		yard := fmt.Sprint(1 + pile%4)
		for i := 0; i < 3+rng.Intn(4); i++ {
			unload := baseDate.AddDate(0, 0, rng.Intn(15)).Add(time.Duration(rng.Intn(24)) * time.Hour)
			rows = append(rows, []string{
				unload.Format("2006-01-02 15:04:05"),
				coalGrades[pile%len(coalGrades)],
				id,
				"",
				fmt.Sprintf("%.0f", 800+rng.Float64()*1200),
				"",
				yard,
			})
		}
		for i := 0; i < 1+rng.Intn(2); i++ {
			load := baseDate.AddDate(0, 0, spanDays-10+rng.Intn(8)).Add(time.Duration(rng.Intn(24)) * time.Hour)
			rows = append(rows, []string{
				"",
				coalGrades[pile%len(coalGrades)],
				id,
				load.Format("2006-01-02 15:04:05"),
				"",
				fmt.Sprintf("%.0f", 500+rng.Float64()*800),
				yard,
			})
		}
	}
	return rows
}

func genWeather(rng *rand.Rand) [][]string {
	rows := [][]string{{"dt", "t", "p", "humidity", "precipitation", "wind_dir", "v_avg", "v_max", "cloudcover", "visibility", "weather_code"}}
	for day := 0; day < spanDays+7; day++ {
		date := baseDate.AddDate(0, 0, day)
		rows = append(rows, []string{
			date.Format("2006-01-02"),
			fmt.Sprintf("%.1f", 5+rng.Float64()*20),
			fmt.Sprintf("%.0f", 745+rng.Float64()*20),
			fmt.Sprintf("%.0f", 40+rng.Float64()*50),
			fmt.Sprintf("%.1f", rng.Float64()*6),
			fmt.Sprintf("%.0f", rng.Float64()*360),
			fmt.Sprintf("%.1f", 1+rng.Float64()*7),
			fmt.Sprintf("%.1f", 5+rng.Float64()*12),
			fmt.Sprintf("%.0f", rng.Float64()*100),
			fmt.Sprintf("%.0f", 5000+rng.Float64()*5000),
			fmt.Sprint(rng.Intn(100)),
		})
	}
	return rows
}

// buildArtifact produces a hand-tuned linear artifact: hotter piles and
// bigger stock ignite sooner.
func buildArtifact() *model.Artifact {
	return &model.Artifact{
		Model: model.Regressor{
			Intercept: 42.0,
			Coefficients: map[string]float64{
				"temp_max_mean": -0.55,
				"temp_max_max":  -0.15,
				"stock_tons":    -0.0004,
				"temp_air_mean": -0.08,
				"humidity_mean": 0.02,
			},
			CategoricalWeights: map[string]map[string]float64{
				"coal_grade": {"Д": -1.5, "Г": -0.5, "СС": 0.5, "Т": 1.0},
				"stockyard":  {"1": 0.3, "2": -0.2, "3": 0.1, "4": -0.1},
			},
		},
		FeatureCols: []string{
			"temp_max_mean", "temp_max_max", "stock_tons",
			"temp_air_mean", "humidity_mean", "coal_grade", "stockyard",
		},
		NumCols: []string{
			"temp_max_mean", "temp_max_max", "stock_tons",
			"temp_air_mean", "humidity_mean",
		},
		CatCols:   []string{"coal_grade", "stockyard"},
		Metrics:   map[string]float64{"mae": 2.4, "rmse": 3.1, "r2": 0.68},
		ModelType: "linear",
	}
}

// printStats assembles the generated CSVs with the real pipeline and scores
// them with the generated artifact, printing the numbers tests assert on.
func printStats(dir string, artifact *model.Artifact) error {
	src, err := loadSources(dir)
	if err != nil {
		return err
	}

	rows := pipeline.Assemble(src, 3)
	log.Printf("assembled rows: %d", len(rows))

	predictor := model.NewPredictor(artifact)
	preds, err := predictor.PredictFireDates(rows)
	if err != nil {
		return err
	}

	risk := domain.DefaultRiskThresholds()
	counts := map[domain.RiskLevel]int{}
	for _, p := range preds {
		counts[risk.Level(p.DaysToFireRounded)]++
	}
	log.Printf("risk distribution: critical=%d high=%d medium=%d low=%d",
		counts[domain.RiskCritical], counts[domain.RiskHigh],
		counts[domain.RiskMedium], counts[domain.RiskLow])
	return nil
}

func loadSources(dir string) (pipeline.Sources, error) {
	var src pipeline.Sources

	f, err := os.Open(filepath.Join(dir, "fires.csv"))
	if err != nil {
		return src, err
	}
	defer f.Close()
	if src.Fires, err = pipeline.DecodeFires(f); err != nil {
		return src, err
	}

	t, err := os.Open(filepath.Join(dir, "temperature.csv"))
	if err != nil {
		return src, err
	}
	defer t.Close()
	if src.Temperature, err = pipeline.DecodeTemperature(t); err != nil {
		return src, err
	}

	s, err := os.Open(filepath.Join(dir, "supplies.csv"))
	if err != nil {
		return src, err
	}
	defer s.Close()
	if src.Supplies, err = pipeline.DecodeSupplies(s); err != nil {
		return src, err
	}

	w, err := os.Open(filepath.Join(dir, "weather_data_2024.csv"))
	if err != nil {
		return src, err
	}
	defer w.Close()
	if src.Weather, err = pipeline.DecodeWeather(w); err != nil {
		return src, err
	}
	return src, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

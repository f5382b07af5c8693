package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
	"ministry-dashboard/internal/gridcapacity/infrastructure/memory"
)

type config struct {
	dsn          string
	jsonOut      string
	createSchema bool
	reportDate   string
	stationCount int
	months       int
	basePeakMW   float64
	growthMW     float64
}

func main() {
	cfg := parseConfig()
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if cfg.stationCount <= 0 {
		logger.Fatal("station-count must be > 0")
	}
	if cfg.months <= 0 {
		logger.Fatal("months must be > 0")
	}
	reportDate, err := parseReportDate(cfg.reportDate)
	if err != nil {
		logger.WithError(err).Fatal("invalid report-date")
	}

	seed := buildSeed(cfg, reportDate)

	if cfg.jsonOut != "" {
		if err := writeSeed(cfg.jsonOut, seed); err != nil {
			logger.WithError(err).Fatal("write seed")
		}
		logger.WithField("path", cfg.jsonOut).Info("seed document written")
		return
	}

	if cfg.dsn == "" {
		logger.Fatal("PG_DSN or DATABASE_URL is required unless json-out is set")
	}
	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		logger.WithError(err).Fatal("open db")
	}
	defer db.Close()

	ctx := context.Background()
	if cfg.createSchema {
		if err := createSchema(ctx, db); err != nil {
			logger.WithError(err).Fatal("create schema")
		}
	}
	if err := seedDatabase(ctx, db, reportDate, seed); err != nil {
		logger.WithError(err).Fatal("seed database")
	}
	logger.WithFields(logrus.Fields{
		"stations": len(seed.Stations),
		"months":   len(seed.Trend),
		"report":   reportDate.Format("2006-01-02"),
	}).Info("grid seed completed")
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.jsonOut, "json-out", envOrDefault("SEED_JSON_OUT", ""), "write an in-memory seed document instead of seeding Postgres")
	flag.BoolVar(&cfg.createSchema, "create-schema", envOrBool("SEED_CREATE_SCHEMA", true), "create reading tables when missing")
	flag.StringVar(&cfg.reportDate, "report-date", envOrDefault("SEED_REPORT_DATE", ""), "report date (YYYY-MM-DD), defaults to yesterday")
	flag.IntVar(&cfg.stationCount, "station-count", envOrInt("SEED_STATION_COUNT", 8), "number of generation stations")
	flag.IntVar(&cfg.months, "months", envOrInt("SEED_MONTHS", 18), "months of KPI trend")
	flag.Float64Var(&cfg.basePeakMW, "base-peak-mw", envOrFloat("SEED_BASE_PEAK_MW", 160), "DBIS peak at the start of the trend")
	flag.Float64Var(&cfg.growthMW, "growth-mw", envOrFloat("SEED_GROWTH_MW", 2.5), "DBIS monthly peak growth")
	flag.Parse()
	return cfg
}

func parseReportDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func buildSeed(cfg config, reportDate time.Time) memory.Seed {
	seed := memory.Seed{}
	for i := 1; i <= cfg.stationCount; i++ {
		derated := float64(10 + (i%4)*8)
		available := derated
		// every third station carries a partial outage
		if i%3 == 0 {
			available = gridcapacity.Round1(derated * 0.55)
		}
		seed.Stations = append(seed.Stations, gridcapacity.Station{
			Name:                fmt.Sprintf("Station %02d", i),
			DeratedCapacityMW:   derated,
			AvailableCapacityMW: available,
			UnitCount:           2 + i%4,
		})
	}
	seed.Solar = []gridcapacity.SolarSite{
		{Name: "Hampshire", CapacityMWp: 3},
		{Name: "Prospect", CapacityMWp: 1.5},
		{Name: "Trafalgar", CapacityMWp: 2.2},
	}

	endMonth := time.Date(reportDate.Year(), reportDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	startMonth := endMonth.AddDate(0, -(cfg.months - 1), 0)
	var dbisPeak float64
	for i := 0; i < cfg.months; i++ {
		month := startMonth.AddDate(0, i, 0)
		dbisPeak = gridcapacity.Round1(cfg.basePeakMW + cfg.growthMW*float64(i) + seasonal(month))
		essequibo := gridcapacity.Round1(9 + 0.15*float64(i))
		values := map[string]*float64{
			gridcapacity.MetricPeakDemandDBIS:      ptr(dbisPeak),
			gridcapacity.MetricPeakDemandEssequibo: ptr(essequibo),
			gridcapacity.MetricCollectionRate:      ptr(gridcapacity.Round1(88 + float64(i%5))),
		}
		seed.Trend = append(seed.Trend, gridcapacity.KpiTrendPoint{
			MonthKey: month.Format("2006-01"),
			Values:   values,
		})
	}

	seed.Peak = &gridcapacity.PeakDemandSnapshot{
		Date:                reportDate,
		EveningOnBarsMW:     dbisPeak,
		EveningSuppressedMW: gridcapacity.Round1(dbisPeak * 0.03),
		DayOnBarsMW:         gridcapacity.Round1(dbisPeak * 0.9),
		DaySuppressedMW:     0,
	}
	return seed
}

func seasonal(month time.Time) float64 {
	switch month.Month() {
	case time.September, time.October:
		return 4
	case time.December, time.January:
		return -3
	default:
		return 0
	}
}

func writeSeed(path string, seed memory.Seed) error {
	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func createSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{`
CREATE TABLE IF NOT EXISTS generation_station_readings (
	report_date DATE NOT NULL,
	station TEXT NOT NULL,
	derated_capacity_mw NUMERIC,
	available_capacity_mw NUMERIC,
	unit_count INTEGER,
	PRIMARY KEY (report_date, station)
)`, `
CREATE TABLE IF NOT EXISTS solar_sites (
	name TEXT PRIMARY KEY,
	capacity_mwp NUMERIC
)`, `
CREATE TABLE IF NOT EXISTS peak_demand_daily (
	report_date DATE PRIMARY KEY,
	evening_on_bars_mw NUMERIC,
	evening_suppressed_mw NUMERIC,
	day_on_bars_mw NUMERIC,
	day_suppressed_mw NUMERIC
)`, `
CREATE TABLE IF NOT EXISTS kpi_monthly_values (
	month DATE NOT NULL,
	metric TEXT NOT NULL,
	value NUMERIC,
	PRIMARY KEY (month, metric)
)`, `
CREATE TABLE IF NOT EXISTS dashboard_audit_logs (
	id TEXT PRIMARY KEY,
	actor TEXT,
	role TEXT,
	department TEXT,
	action TEXT NOT NULL,
	resource TEXT,
	metadata JSONB,
	payload_digest TEXT,
	ip TEXT,
	user_agent TEXT,
	created_at TIMESTAMPTZ NOT NULL
)`}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedDatabase(ctx context.Context, db *sql.DB, reportDate time.Time, seed memory.Seed) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, station := range seed.Stations {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO generation_station_readings (report_date, station, derated_capacity_mw, available_capacity_mw, unit_count)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (report_date, station) DO UPDATE SET
	derated_capacity_mw = EXCLUDED.derated_capacity_mw,
	available_capacity_mw = EXCLUDED.available_capacity_mw,
	unit_count = EXCLUDED.unit_count`,
			reportDate, station.Name, station.DeratedCapacityMW, station.AvailableCapacityMW, station.UnitCount); err != nil {
			return err
		}
	}
	for _, site := range seed.Solar {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO solar_sites (name, capacity_mwp) VALUES ($1,$2)
ON CONFLICT (name) DO UPDATE SET capacity_mwp = EXCLUDED.capacity_mwp`,
			site.Name, site.CapacityMWp); err != nil {
			return err
		}
	}
	if peak := seed.Peak; peak != nil {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO peak_demand_daily (report_date, evening_on_bars_mw, evening_suppressed_mw, day_on_bars_mw, day_suppressed_mw)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (report_date) DO UPDATE SET
	evening_on_bars_mw = EXCLUDED.evening_on_bars_mw,
	evening_suppressed_mw = EXCLUDED.evening_suppressed_mw,
	day_on_bars_mw = EXCLUDED.day_on_bars_mw,
	day_suppressed_mw = EXCLUDED.day_suppressed_mw`,
			peak.Date, peak.EveningOnBarsMW, peak.EveningSuppressedMW, peak.DayOnBarsMW, peak.DaySuppressedMW); err != nil {
			return err
		}
	}
	for _, point := range seed.Trend {
		month, err := time.Parse("2006-01", point.MonthKey)
		if err != nil {
			return err
		}
		for metric, value := range point.Values {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO kpi_monthly_values (month, metric, value) VALUES ($1,$2,$3)
ON CONFLICT (month, metric) DO UPDATE SET value = EXCLUDED.value`,
				month, metric, value); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func ptr(value float64) *float64 {
	return &value
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

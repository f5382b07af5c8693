package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

const (
	defaultStationTable = "generation_station_readings"
	defaultSolarTable   = "solar_sites"
	defaultPeakTable    = "peak_demand_daily"
	defaultKpiTable     = "kpi_monthly_values"

	monthKeyLayout = "2006-01"
)

// ReadingRepository reads utility readings from Postgres.
type ReadingRepository struct {
	db           *sql.DB
	stationTable string
	solarTable   string
	peakTable    string
	kpiTable     string
	trendMonths  int
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ReadingRepository)

// WithStationTable overrides the station readings table.
func WithStationTable(table string) RepositoryOption {
	return func(r *ReadingRepository) {
		if table != "" {
			r.stationTable = table
		}
	}
}

// WithSolarTable overrides the solar sites table.
func WithSolarTable(table string) RepositoryOption {
	return func(r *ReadingRepository) {
		if table != "" {
			r.solarTable = table
		}
	}
}

// WithPeakTable overrides the daily peak demand table.
func WithPeakTable(table string) RepositoryOption {
	return func(r *ReadingRepository) {
		if table != "" {
			r.peakTable = table
		}
	}
}

// WithKpiTable overrides the monthly KPI table.
func WithKpiTable(table string) RepositoryOption {
	return func(r *ReadingRepository) {
		if table != "" {
			r.kpiTable = table
		}
	}
}

// WithTrendMonths limits KpiTrend to the most recent months. Zero reads all.
func WithTrendMonths(months int) RepositoryOption {
	return func(r *ReadingRepository) {
		if months >= 0 {
			r.trendMonths = months
		}
	}
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB, opts ...RepositoryOption) (*ReadingRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	repo := &ReadingRepository{
		db:           db,
		stationTable: defaultStationTable,
		solarTable:   defaultSolarTable,
		peakTable:    defaultPeakTable,
		kpiTable:     defaultKpiTable,
		trendMonths:  24,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// LatestStations returns the stations of the most recent report date, or nil
// when the table is empty.
func (r *ReadingRepository) LatestStations(ctx context.Context) ([]gridcapacity.Station, error) {
	query := fmt.Sprintf(`
SELECT
	station,
	derated_capacity_mw::text,
	available_capacity_mw::text,
	unit_count
FROM %[1]s
WHERE report_date = (SELECT MAX(report_date) FROM %[1]s)
ORDER BY station`, r.stationTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []gridcapacity.Station
	for rows.Next() {
		var (
			station            gridcapacity.Station
			derated, available sql.NullString
			units              sql.NullInt64
		)
		if err := rows.Scan(&station.Name, &derated, &available, &units); err != nil {
			return nil, err
		}
		station.DeratedCapacityMW = numeric(derated)
		station.AvailableCapacityMW = numeric(available)
		station.UnitCount = int(units.Int64)
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

// SolarSites lists the registered solar sites.
func (r *ReadingRepository) SolarSites(ctx context.Context) ([]gridcapacity.SolarSite, error) {
	query := fmt.Sprintf(`
SELECT
	name,
	capacity_mwp::text
FROM %s
ORDER BY name`, r.solarTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := make([]gridcapacity.SolarSite, 0)
	for rows.Next() {
		var (
			site     gridcapacity.SolarSite
			capacity sql.NullString
		)
		if err := rows.Scan(&site.Name, &capacity); err != nil {
			return nil, err
		}
		site.CapacityMWp = numeric(capacity)
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sites, nil
}

// LatestPeakDemand returns the most recent daily peak, or nil when none exists.
func (r *ReadingRepository) LatestPeakDemand(ctx context.Context) (*gridcapacity.PeakDemandSnapshot, error) {
	query := fmt.Sprintf(`
SELECT
	report_date,
	evening_on_bars_mw::text,
	evening_suppressed_mw::text,
	day_on_bars_mw::text,
	day_suppressed_mw::text
FROM %s
ORDER BY report_date DESC
LIMIT 1`, r.peakTable)

	var (
		snapshot          gridcapacity.PeakDemandSnapshot
		eveningOn         sql.NullString
		eveningSuppressed sql.NullString
		dayOn             sql.NullString
		daySuppressed     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query).Scan(
		&snapshot.Date,
		&eveningOn,
		&eveningSuppressed,
		&dayOn,
		&daySuppressed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snapshot.Date = snapshot.Date.UTC()
	snapshot.EveningOnBarsMW = numeric(eveningOn)
	snapshot.EveningSuppressedMW = numeric(eveningSuppressed)
	snapshot.DayOnBarsMW = numeric(dayOn)
	snapshot.DaySuppressedMW = numeric(daySuppressed)
	return &snapshot, nil
}

// KpiTrend returns monthly values for the given metrics in chronological
// order. A NULL or unparseable value is reported as absent.
func (r *ReadingRepository) KpiTrend(ctx context.Context, metrics []string) ([]gridcapacity.KpiTrendPoint, error) {
	if len(metrics) == 0 {
		return []gridcapacity.KpiTrendPoint{}, nil
	}

	args := make([]any, 0, len(metrics)+1)
	placeholders := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		args = append(args, metric)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	window := ""
	if r.trendMonths > 0 {
		args = append(args, r.trendMonths)
		window = fmt.Sprintf(`
	AND month > (SELECT MAX(month) FROM %s) - make_interval(months => $%d)`, r.kpiTable, len(args))
	}

	query := fmt.Sprintf(`
SELECT
	month,
	metric,
	value::text
FROM %s
WHERE metric IN (%s)%s
ORDER BY month, metric`, r.kpiTable, strings.Join(placeholders, ", "), window)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]gridcapacity.KpiTrendPoint, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			month  time.Time
			metric string
			value  sql.NullString
		)
		if err := rows.Scan(&month, &metric, &value); err != nil {
			return nil, err
		}
		key := month.UTC().Format(monthKeyLayout)
		pos, ok := index[key]
		if !ok {
			pos = len(points)
			index[key] = pos
			points = append(points, gridcapacity.KpiTrendPoint{MonthKey: key, Values: make(map[string]*float64)})
		}
		if parsed, ok := parseNullable(value); ok {
			points[pos].Values[metric] = &parsed
		} else {
			points[pos].Values[metric] = nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

func numeric(value sql.NullString) float64 {
	parsed, _ := parseNullable(value)
	return parsed
}

func parseNullable(value sql.NullString) (float64, bool) {
	if !value.Valid {
		return 0, false
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(value.String))
	if err != nil {
		return gridcapacity.ParseNumber(value.String)
	}
	f, _ := parsed.Float64()
	return f, true
}

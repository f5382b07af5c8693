package forecastsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

var errNotFound = errors.New("forecastsvc: not found")

// Client reads forecasts, capacity records, scenarios and the latest analysis
// from the forecasting service.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a forecasting service client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("forecastsvc: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type forecastPoint struct {
	MonthIndex     gridcapacity.Number `json:"month_index"`
	ProjectedPeak  gridcapacity.Number `json:"projected_peak"`
	ConfidenceLow  gridcapacity.Number `json:"confidence_low"`
	ConfidenceHigh gridcapacity.Number `json:"confidence_high"`
}

type forecastResponse struct {
	Grid     string          `json:"grid"`
	Forecast []forecastPoint `json:"forecast"`
}

// GridForecast returns the authoritative monthly forecast for a grid. A grid
// the service does not know yields an empty series.
func (c *Client) GridForecast(ctx context.Context, grid string) ([]gridcapacity.AuthoritativeForecastPoint, error) {
	if grid == "" {
		return nil, gridcapacity.ErrEmptyGridID
	}
	var resp forecastResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/forecast/"+url.PathEscape(grid), &resp)
	if errors.Is(err, errNotFound) {
		return []gridcapacity.AuthoritativeForecastPoint{}, nil
	}
	if err != nil {
		return nil, err
	}
	points := make([]gridcapacity.AuthoritativeForecastPoint, 0, len(resp.Forecast))
	for _, point := range resp.Forecast {
		index, ok := monthCount(point.MonthIndex)
		if !ok {
			continue
		}
		points = append(points, gridcapacity.AuthoritativeForecastPoint{
			Grid:             grid,
			MonthIndex:       index,
			ProjectedPeakMW:  point.ProjectedPeak.Float64(),
			ConfidenceLowMW:  point.ConfidenceLow.Float64(),
			ConfidenceHighMW: point.ConfidenceHigh.Float64(),
		})
	}
	return points, nil
}

type capacityRecord struct {
	Grid            string              `json:"grid"`
	CurrentCapacity gridcapacity.Number `json:"current_capacity"`
	ReserveMargin   gridcapacity.Number `json:"reserve_margin"`
	ShortfallDate   string              `json:"shortfall_date"`
	RiskLevel       string              `json:"risk_level"`
}

type capacityResponse struct {
	Grids []capacityRecord `json:"grids"`
}

// CapacityRecords returns the service's capacity and risk view per grid.
func (c *Client) CapacityRecords(ctx context.Context) ([]gridcapacity.CapacityRecord, error) {
	var resp capacityResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/forecast/capacity", &resp)
	if errors.Is(err, errNotFound) {
		return []gridcapacity.CapacityRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	records := make([]gridcapacity.CapacityRecord, 0, len(resp.Grids))
	for _, record := range resp.Grids {
		risk := gridcapacity.RiskLevel(strings.ToLower(strings.TrimSpace(record.RiskLevel)))
		if !risk.Valid() {
			risk = ""
		}
		records = append(records, gridcapacity.CapacityRecord{
			Grid:              record.Grid,
			CurrentCapacityMW: record.CurrentCapacity.Float64(),
			ReserveMarginPct:  record.ReserveMargin.Float64(),
			ShortfallDate:     parseDate(record.ShortfallDate),
			RiskLevel:         risk,
		})
	}
	return records, nil
}

type scenarioPoint struct {
	HorizonMonths gridcapacity.Number  `json:"horizon_months"`
	PeakMW        gridcapacity.Number  `json:"peak_mw"`
	ReserveMargin *gridcapacity.Number `json:"reserve_margin_pct"`
}

type scenario struct {
	Grids                       map[string][]scenarioPoint `json:"grids"`
	Assumptions                 []string                   `json:"assumptions"`
	RiskFactors                 []string                   `json:"risk_factors"`
	SafeThresholdBreachDate     string                     `json:"safe_threshold_breach_date"`
	LoadSheddingUnavoidableDate string                     `json:"load_shedding_unavoidable_date"`
}

type scenarioResponse struct {
	Conservative *scenario `json:"conservative"`
	Aggressive   *scenario `json:"aggressive"`
}

// Scenarios returns the conservative and aggressive scenario projections. The
// result is nil only when the service returns neither scenario; a scenario
// without grid points still carries its assumptions and dates.
func (c *Client) Scenarios(ctx context.Context) (*gridcapacity.ScenarioPayload, error) {
	var resp scenarioResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/forecast/multivariate", &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	payload := &gridcapacity.ScenarioPayload{
		Conservative: toScenario(gridcapacity.ScenarioConservative, resp.Conservative),
		Aggressive:   toScenario(gridcapacity.ScenarioAggressive, resp.Aggressive),
	}
	if payload.Conservative == nil && payload.Aggressive == nil {
		return nil, nil
	}
	return payload, nil
}

func toScenario(name string, in *scenario) *gridcapacity.ScenarioForecast {
	if in == nil {
		return nil
	}
	out := &gridcapacity.ScenarioForecast{
		Name:                        name,
		Grids:                       make(map[string]map[int]gridcapacity.ScenarioPoint, len(in.Grids)),
		Assumptions:                 in.Assumptions,
		RiskFactors:                 in.RiskFactors,
		SafeThresholdBreachDate:     parseDate(in.SafeThresholdBreachDate),
		LoadSheddingUnavoidableDate: parseDate(in.LoadSheddingUnavoidableDate),
	}
	for grid, points := range in.Grids {
		byHorizon := make(map[int]gridcapacity.ScenarioPoint, len(points))
		for _, point := range points {
			horizon, ok := monthCount(point.HorizonMonths)
			if !ok || horizon == 0 {
				continue
			}
			if _, ok := byHorizon[horizon]; ok {
				continue
			}
			converted := gridcapacity.ScenarioPoint{PeakMW: point.PeakMW.Float64()}
			if point.ReserveMargin != nil {
				converted.ReserveMarginPct = point.ReserveMargin.Ptr()
			}
			byHorizon[horizon] = converted
		}
		out.Grids[grid] = byHorizon
	}
	return out
}

// maxMonthCount bounds month indexes and horizons read from the service.
const maxMonthCount = 1200

// monthCount converts a decoded month index or horizon to int. Fractional,
// negative and out of range values are rejected.
func monthCount(n gridcapacity.Number) (int, bool) {
	value, ok := gridcapacity.ParseNumber(n)
	if !ok || value < 0 || value > maxMonthCount || value != math.Trunc(value) {
		return 0, false
	}
	return int(value), true
}

// LatestAnalysis returns the latest narrative analysis, or nil when none has
// been generated.
func (c *Client) LatestAnalysis(ctx context.Context) (*gridcapacity.AIAnalysis, error) {
	var resp gridcapacity.AIAnalysis
	err := c.doJSON(ctx, http.MethodGet, "/api/analysis/latest", &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("forecastsvc: %s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("forecastsvc: decode %s: %w", path, err)
	}
	return nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

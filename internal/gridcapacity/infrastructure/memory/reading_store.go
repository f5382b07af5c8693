package memory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"slices"
	"sync"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

// ReadingStore is an in-memory reading source for demo/testing.
type ReadingStore struct {
	mu       sync.RWMutex
	stations []gridcapacity.Station
	solar    []gridcapacity.SolarSite
	peak     *gridcapacity.PeakDemandSnapshot
	trend    []gridcapacity.KpiTrendPoint
}

// NewReadingStore constructs an empty store. Until stations are set the store
// reports no station data.
func NewReadingStore() *ReadingStore {
	return &ReadingStore{}
}

// Seed is the document accepted by LoadSeed.
type Seed struct {
	Stations []gridcapacity.Station           `json:"stations"`
	Solar    []gridcapacity.SolarSite         `json:"solar_sites"`
	Peak     *gridcapacity.PeakDemandSnapshot `json:"peak_demand"`
	Trend    []gridcapacity.KpiTrendPoint     `json:"kpi_trend"`
}

// LoadSeed replaces the store content with a JSON seed document.
func (s *ReadingStore) LoadSeed(r io.Reader) error {
	if r == nil {
		return errors.New("memory: nil seed reader")
	}
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = seed.Stations
	s.solar = seed.Solar
	s.peak = seed.Peak
	s.trend = seed.Trend
	return nil
}

// LoadSeedFile reads a seed document from path.
func (s *ReadingStore) LoadSeedFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.LoadSeed(file)
}

// SetStations replaces the latest station report.
func (s *ReadingStore) SetStations(stations []gridcapacity.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = slices.Clone(stations)
}

// SetSolarSites replaces the solar site list.
func (s *ReadingStore) SetSolarSites(sites []gridcapacity.SolarSite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solar = slices.Clone(sites)
}

// SetPeakDemand replaces the latest peak snapshot.
func (s *ReadingStore) SetPeakDemand(peak *gridcapacity.PeakDemandSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if peak == nil {
		s.peak = nil
		return
	}
	copied := *peak
	s.peak = &copied
}

// AppendTrend adds monthly KPI points. Points are kept in insertion order, so
// callers append the oldest month first.
func (s *ReadingStore) AppendTrend(points ...gridcapacity.KpiTrendPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trend = append(s.trend, points...)
}

// LatestStations returns the stored report or nil.
func (s *ReadingStore) LatestStations(ctx context.Context) ([]gridcapacity.Station, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stations), nil
}

// SolarSites returns the stored solar sites.
func (s *ReadingStore) SolarSites(ctx context.Context) ([]gridcapacity.SolarSite, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.solar), nil
}

// LatestPeakDemand returns the stored peak snapshot or nil.
func (s *ReadingStore) LatestPeakDemand(ctx context.Context) (*gridcapacity.PeakDemandSnapshot, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.peak == nil {
		return nil, nil
	}
	copied := *s.peak
	return &copied, nil
}

// KpiTrend returns the stored points restricted to the requested metrics.
// Months with none of the metrics are omitted.
func (s *ReadingStore) KpiTrend(ctx context.Context, metrics []string) ([]gridcapacity.KpiTrendPoint, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]gridcapacity.KpiTrendPoint, 0, len(s.trend))
	for _, point := range s.trend {
		values := make(map[string]*float64, len(metrics))
		for _, metric := range metrics {
			if v, ok := point.Values[metric]; ok && v != nil {
				copied := *v
				values[metric] = &copied
			}
		}
		if len(values) == 0 {
			continue
		}
		result = append(result, gridcapacity.KpiTrendPoint{MonthKey: point.MonthKey, Values: values})
	}
	return result, nil
}

package gridcapacity

import "errors"

var (
	// ErrInvalidThreshold is returned when a classification threshold is out of range.
	ErrInvalidThreshold = errors.New("gridcapacity: invalid threshold")
	// ErrInvalidHorizon is returned when a forecast horizon is not positive.
	ErrInvalidHorizon = errors.New("gridcapacity: invalid horizon")
	// ErrEmptyGridID is returned when a grid definition has no id.
	ErrEmptyGridID = errors.New("gridcapacity: empty grid id")
	// ErrDuplicateGrid is returned when a grid id is defined twice.
	ErrDuplicateGrid = errors.New("gridcapacity: duplicate grid")
	// ErrEmptyMetric is returned when a grid has no trend metric.
	ErrEmptyMetric = errors.New("gridcapacity: empty trend metric")
	// ErrNoStationData is returned by collaborators when no station report exists.
	ErrNoStationData = errors.New("gridcapacity: no station data")
)

package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func registerDBMetrics(db *sql.DB, logger logrus.FieldLogger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "station_report_age_seconds",
			Help: "Age of the latest generation station report",
		},
		func() float64 {
			return queryFloat(db, logger, "SELECT COALESCE(EXTRACT(EPOCH FROM now() - MAX(report_date)::timestamptz), 0) FROM generation_station_readings")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "station_report_rows",
			Help: "Stations on the latest generation report",
		},
		func() float64 {
			return queryFloat(db, logger, "SELECT COUNT(*) FROM generation_station_readings WHERE report_date = (SELECT MAX(report_date) FROM generation_station_readings)")
		},
	))
}

func queryFloat(db *sql.DB, logger logrus.FieldLogger, query string) float64 {
	if db == nil {
		return 0
	}
	var value float64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		if logger != nil {
			logger.WithError(err).Warn("metrics query failed")
		}
		return 0
	}
	if value < 0 {
		return 0
	}
	return value
}

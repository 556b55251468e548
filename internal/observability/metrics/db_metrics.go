package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "blastchill_open_batches",
			Help: "START records without a matching END",
		},
		func() float64 {
			return queryCount(db, logger, `
SELECT COUNT(*)
FROM food_temperature_logs s
WHERE s.chill_event = 'START'
  AND NOT EXISTS (
    SELECT 1 FROM food_temperature_logs e
    WHERE e.property_id = s.property_id
      AND e.chill_event = 'END'
      AND e.batch_id = s.batch_id
      AND e.logged_at >= s.logged_at
  )`)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "maintenance_open_tickets",
			Help: "Maintenance tickets not yet completed",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM maintenance_tickets WHERE completed_at IS NULL")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

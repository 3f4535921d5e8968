package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "uniattend_attendance_records_total",
	Help: "Attendance records persisted, by capture source and status.",
}, []string{"source", "status"})

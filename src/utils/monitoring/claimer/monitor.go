package monitor_claimer

import (
	"math"
	"net/http"
	"time"

	"github.com/warp-contracts/claimer/src/utils/build_info"
	"github.com/warp-contracts/claimer/src/utils/config"
	"github.com/warp-contracts/claimer/src/utils/monitoring/report"
	"github.com/warp-contracts/claimer/src/utils/task"

	"github.com/gammazero/deque"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report report.Report

	collector *Collector

	historySize int

	// Claim consumption speed
	ClaimsConsumed *deque.Deque[uint64]
}

func NewMonitor(config *config.Config) (self *Monitor) {
	self = new(Monitor)

	self.Report = report.Report{
		Run:     &report.RunReport{},
		Claimer: &report.ClaimerReport{},
	}

	// Initialization
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())
	self.Report.Run.State.Version.Store(build_info.Version)

	self.collector = NewCollector(config).WithMonitor(self)

	self.Task = task.NewTask(config, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorClaims)

	return self.WithMaxHistorySize(30)
}

func (self *Monitor) WithMaxHistorySize(maxHistorySize int) *Monitor {
	self.historySize = maxHistorySize
	self.ClaimsConsumed = deque.New[uint64](self.historySize)
	return self
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

// Measure claim consumption speed
func (self *Monitor) monitorClaims() (err error) {
	loaded := self.Report.Claimer.State.ClaimsConsumed.Load()

	self.ClaimsConsumed.PushBack(loaded)
	if self.ClaimsConsumed.Len() > self.historySize {
		self.ClaimsConsumed.PopFront()
	}
	value := float64(self.ClaimsConsumed.Back()-self.ClaimsConsumed.Front()) / float64(self.ClaimsConsumed.Len())

	self.Report.Claimer.State.AverageClaimsConsumedPerMinute.Store(round(value))
	return
}

// Claimer is healthy as long as it listens to the stream
func (self *Monitor) IsOK() bool {
	return self.Report.Claimer.State.ListenerRunning.Load()
}

func (self *Monitor) OnGetState(c *gin.Context) {
	self.Report.Run.Fill()
	c.JSON(http.StatusOK, &self.Report)
}

func (self *Monitor) OnGetHealth(c *gin.Context) {
	if self.IsOK() {
		c.Status(http.StatusOK)
	} else {
		c.Status(http.StatusServiceUnavailable)
	}
}

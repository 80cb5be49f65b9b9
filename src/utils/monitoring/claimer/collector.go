package monitor_claimer

import (
	"strconv"

	"github.com/warp-contracts/claimer/src/utils/config"

	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	// Run
	UpForSeconds *prometheus.Desc

	// State
	ListenerRunning                *prometheus.Desc
	ClaimsConsumed                 *prometheus.Desc
	LastEpochIndex                 *prometheus.Desc
	AverageClaimsConsumedPerMinute *prometheus.Desc
	ClaimsDuplicated               *prometheus.Desc
	ClaimsOnChain                  *prometheus.Desc
	CheckedBlockHeight             *prometheus.Desc
	ClaimsSent                     *prometheus.Desc
	Nonce                          *prometheus.Desc

	// Errors
	BrokerErrors          *prometheus.Desc
	DuplicateCheckErrors  *prometheus.Desc
	LogQueryErrors        *prometheus.Desc
	TransactionSendErrors *prometheus.Desc
}

func NewCollector(config *config.Config) *Collector {
	labels := prometheus.Labels{
		"app":          "claimer",
		"chain_id":     strconv.FormatUint(config.Chain.Id, 10),
		"dapp_address": config.Chain.DAppAddress,
	}

	return &Collector{
		// Run
		UpForSeconds: prometheus.NewDesc("up_for_seconds", "", nil, labels),

		// State
		ListenerRunning:                prometheus.NewDesc("listener_running", "", nil, labels),
		ClaimsConsumed:                 prometheus.NewDesc("claims_consumed", "", nil, labels),
		LastEpochIndex:                 prometheus.NewDesc("last_epoch_index", "", nil, labels),
		AverageClaimsConsumedPerMinute: prometheus.NewDesc("average_claims_consumed_per_minute", "", nil, labels),
		ClaimsDuplicated:               prometheus.NewDesc("claims_duplicated", "", nil, labels),
		ClaimsOnChain:                  prometheus.NewDesc("claims_on_chain", "", nil, labels),
		CheckedBlockHeight:             prometheus.NewDesc("checked_block_height", "", nil, labels),
		ClaimsSent:                     prometheus.NewDesc("claims_sent", "", nil, labels),
		Nonce:                          prometheus.NewDesc("nonce", "", nil, labels),

		// Errors
		BrokerErrors:          prometheus.NewDesc("error_broker", "", nil, labels),
		DuplicateCheckErrors:  prometheus.NewDesc("error_duplicate_check", "", nil, labels),
		LogQueryErrors:        prometheus.NewDesc("error_log_query", "", nil, labels),
		TransactionSendErrors: prometheus.NewDesc("error_transaction_send", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	// Run
	ch <- self.UpForSeconds

	// State
	ch <- self.ListenerRunning
	ch <- self.ClaimsConsumed
	ch <- self.LastEpochIndex
	ch <- self.AverageClaimsConsumedPerMinute
	ch <- self.ClaimsDuplicated
	ch <- self.ClaimsOnChain
	ch <- self.CheckedBlockHeight
	ch <- self.ClaimsSent
	ch <- self.Nonce

	// Errors
	ch <- self.BrokerErrors
	ch <- self.DuplicateCheckErrors
	ch <- self.LogQueryErrors
	ch <- self.TransactionSendErrors
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	self.monitor.Report.Run.Fill()
	run := &self.monitor.Report.Run.State
	state := &self.monitor.Report.Claimer.State
	errors := &self.monitor.Report.Claimer.Errors

	// Run
	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(run.UpForSeconds.Load()))

	// State
	ch <- prometheus.MustNewConstMetric(self.ListenerRunning, prometheus.GaugeValue, boolToFloat(state.ListenerRunning.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimsConsumed, prometheus.CounterValue, float64(state.ClaimsConsumed.Load()))
	ch <- prometheus.MustNewConstMetric(self.LastEpochIndex, prometheus.GaugeValue, float64(state.LastEpochIndex.Load()))
	ch <- prometheus.MustNewConstMetric(self.AverageClaimsConsumedPerMinute, prometheus.GaugeValue, state.AverageClaimsConsumedPerMinute.Load())
	ch <- prometheus.MustNewConstMetric(self.ClaimsDuplicated, prometheus.CounterValue, float64(state.ClaimsDuplicated.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimsOnChain, prometheus.GaugeValue, float64(state.ClaimsOnChain.Load()))
	ch <- prometheus.MustNewConstMetric(self.CheckedBlockHeight, prometheus.GaugeValue, float64(state.CheckedBlockHeight.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimsSent, prometheus.CounterValue, float64(state.ClaimsSent.Load()))
	ch <- prometheus.MustNewConstMetric(self.Nonce, prometheus.GaugeValue, float64(state.Nonce.Load()))

	// Errors
	ch <- prometheus.MustNewConstMetric(self.BrokerErrors, prometheus.CounterValue, float64(errors.Broker.Load()))
	ch <- prometheus.MustNewConstMetric(self.DuplicateCheckErrors, prometheus.CounterValue, float64(errors.DuplicateCheck.Load()))
	ch <- prometheus.MustNewConstMetric(self.LogQueryErrors, prometheus.CounterValue, float64(errors.LogQuery.Load()))
	ch <- prometheus.MustNewConstMetric(self.TransactionSendErrors, prometheus.CounterValue, float64(errors.TransactionSend.Load()))
}

package common

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nft_broker_rpc_call_duration_seconds",
		Help:    "Duration of RPC calls to Ethereum nodes",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"chain_id", "node", "method", "status"})

	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_broker_rpc_calls_total",
		Help: "Total RPC calls made to Ethereum nodes",
	}, []string{"chain_id", "node", "method", "status"})

	TransactionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_broker_transactions_submitted_total",
		Help: "Total transactions broadcast to the network",
	}, []string{"network", "status"})

	TransactionsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_broker_transactions_confirmed_total",
		Help: "Total transactions that reached a terminal state",
	}, []string{"network", "status"})

	ConfirmationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nft_broker_confirmation_duration_seconds",
		Help:    "Time from broadcast to observed receipt",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"network"})

	GasPriceGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nft_broker_gas_price_wei",
		Help: "Last observed network gas price in wei",
	}, []string{"network"})

	ContractCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_broker_contract_calls_total",
		Help: "Total contract operations by kind",
	}, []string{"network", "contract", "operation", "status"})

	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_broker_tasks_processed_total",
		Help: "Total number of watcher tasks processed",
	}, []string{"network", "task_type", "status"})

	TaskProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nft_broker_task_processing_duration_seconds",
		Help:    "Time taken to process a watcher task",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"network", "task_type"})

	EventsArchived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nft_broker_events_archived_total",
		Help: "Total contract events written to the archive",
	}, []string{"network", "contract", "event"})

	ArchiveOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nft_broker_archive_operation_duration_seconds",
		Help:    "Duration of archive inserts",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"network", "operation", "status"})

	SubscriptionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nft_broker_subscriptions_active",
		Help: "Currently active contract event subscriptions",
	}, []string{"network"})
)

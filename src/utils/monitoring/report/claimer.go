package report

import (
	"go.uber.org/atomic"
)

type ClaimerErrors struct {
	Broker          atomic.Uint64 `json:"broker"`
	DuplicateCheck  atomic.Uint64 `json:"duplicate_check"`
	LogQuery        atomic.Uint64 `json:"log_query"`
	TransactionSend atomic.Uint64 `json:"transaction_send"`
}

type ClaimerState struct {
	ListenerRunning atomic.Bool `json:"listener_running"`

	// Stream
	ClaimsConsumed atomic.Uint64 `json:"claims_consumed"`
	LastEventId    atomic.String `json:"last_event_id"`
	LastEpochIndex atomic.Uint64 `json:"last_epoch_index"`

	AverageClaimsConsumedPerMinute atomic.Float64 `json:"average_claims_consumed_per_minute"`

	// Chain
	ClaimsDuplicated    atomic.Uint64 `json:"claims_duplicated"`
	ClaimsOnChain       atomic.Uint64 `json:"claims_on_chain"`
	CheckedBlockHeight  atomic.Uint64 `json:"checked_block_height"`
	ClaimsSent          atomic.Uint64 `json:"claims_sent"`
	LastTransactionHash atomic.String `json:"last_transaction_hash"`
	Nonce               atomic.Uint64 `json:"nonce"`
}

type ClaimerReport struct {
	State  ClaimerState  `json:"state"`
	Errors ClaimerErrors `json:"errors"`
}

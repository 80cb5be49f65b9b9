package claim

import "errors"

var (
	// Claimer
	ErrDuplicateCheck  = errors.New("duplicated claim error")
	ErrTransactionSend = errors.New("transaction sender error")

	// Listener
	ErrBroker  = errors.New("broker error")
	ErrClaimer = errors.New("claimer error")

	// History
	ErrWrongDApp       = errors.New("claim belongs to a different dapp")
	ErrClaimMismatch   = errors.New("claim differs from the one already submitted for its epoch")
	ErrClaimOutOfOrder = errors.New("claim skips epochs that aren't submitted yet")

	// Transactions
	ErrChainIdMismatch     = errors.New("chain id reported by the node differs from the configured one")
	ErrTransactionReverted = errors.New("claim transaction reverted")
)

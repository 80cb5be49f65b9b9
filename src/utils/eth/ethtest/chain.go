// Package ethtest provides an in-memory chain with the Authority and History contracts
package ethtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/warp-contracts/claimer/src/utils/eth"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNonceTooLow  = errors.New("nonce too low")
	ErrNonceTooHigh = errors.New("nonce too high")
	ErrUnknownTo    = errors.New("transaction isn't sent to the Authority contract")
)

// Every transaction is mined in its own block.
// Accepted submitClaim calls emit NewClaimToHistory logs.
type Chain struct {
	mtx sync.Mutex

	chainId   *big.Int
	authority common.Address
	history   common.Address
	baseFee   *big.Int
	tipCap    *big.Int
	gas       uint64

	head     uint64
	logs     []types.Log
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt

	// Sent transactions, in order
	Transactions []*types.Transaction

	// Number of FilterLogs calls and the block ranges they asked for
	FilterCalls  int
	FilterRanges [][2]uint64

	// Failure injection
	sendErrors   []error
	filterErrors []error
	revertNext   bool
}

func NewChain(chainId uint64, authority, history common.Address) (self *Chain) {
	self = new(Chain)
	self.chainId = new(big.Int).SetUint64(chainId)
	self.authority = authority
	self.history = history
	self.baseFee = big.NewInt(1_000_000_000)
	self.tipCap = big.NewInt(100_000_000)
	self.gas = 100_000
	self.nonces = make(map[common.Address]uint64)
	self.receipts = make(map[common.Hash]*types.Receipt)
	return
}

// Next SendTransaction calls fail with the given errors, one per call
func (self *Chain) FailSend(errs ...error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.sendErrors = append(self.sendErrors, errs...)
}

// Next FilterLogs calls fail with the given errors, one per call
func (self *Chain) FailFilter(errs ...error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.filterErrors = append(self.filterErrors, errs...)
}

// Next accepted transaction is mined with a failed status
func (self *Chain) RevertNext() {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.revertNext = true
}

// Mines empty blocks
func (self *Chain) Mine(n uint64) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.head += n
}

// Adds a claim to History as if someone else submitted it
func (self *Chain) AddClaim(dapp common.Address, claim eth.HistoryClaim) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.head++
	return self.appendClaimLog(dapp, claim, common.Hash{}, 0)
}

// Claims accepted by History, in order
func (self *Chain) Claims() (out []eth.ClaimLog) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for i := range self.logs {
		decoded, err := eth.UnpackClaimLog(&self.logs[i])
		if err != nil {
			panic(err)
		}
		out = append(out, *decoded)
	}
	return
}

func (self *Chain) appendClaimLog(dapp common.Address, claim eth.HistoryClaim, txHash common.Hash, txIndex uint) (err error) {
	log, err := eth.PackClaimLog(self.history, dapp, claim)
	if err != nil {
		return
	}
	log.BlockNumber = self.head
	log.BlockHash = blockHash(self.head)
	log.TxHash = txHash
	log.TxIndex = txIndex
	log.Index = uint(len(self.logs))
	self.logs = append(self.logs, log)
	return
}

func blockHash(number uint64) common.Hash {
	return crypto.Keccak256Hash(new(big.Int).SetUint64(number).Bytes())
}

func (self *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(self.chainId), nil
}

func (self *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.head, nil
}

func (self *Chain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	n := self.head
	if number != nil {
		n = number.Uint64()
		if n > self.head {
			return nil, ethereum.NotFound
		}
	}

	return &types.Header{
		Number:  new(big.Int).SetUint64(n),
		BaseFee: new(big.Int).Set(self.baseFee),
	}, nil
}

func (self *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) (out []types.Log, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.FilterCalls++
	if len(self.filterErrors) > 0 {
		err = self.filterErrors[0]
		self.filterErrors = self.filterErrors[1:]
		return
	}

	from, to := uint64(0), self.head
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}
	self.FilterRanges = append(self.FilterRanges, [2]uint64{from, to})

	for _, log := range self.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if !matchAddress(q.Addresses, log.Address) || !matchTopics(q.Topics, log.Topics) {
			continue
		}
		out = append(out, log)
	}
	return
}

func matchAddress(addresses []common.Address, address common.Address) bool {
	if len(addresses) == 0 {
		return true
	}
	for _, a := range addresses {
		if a == address {
			return true
		}
	}
	return false
}

func matchTopics(query [][]common.Hash, topics []common.Hash) bool {
	if len(query) > len(topics) {
		return false
	}
	for i, alternatives := range query {
		if len(alternatives) == 0 {
			continue
		}
		found := false
		for _, t := range alternatives {
			if t == topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (self *Chain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.nonces[account], nil
}

func (self *Chain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(self.tipCap), nil
}

func (self *Chain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if msg.To == nil || *msg.To != self.authority {
		return 0, ErrUnknownTo
	}
	_, _, err := eth.UnpackSubmitClaim(msg.Data)
	if err != nil {
		return 0, err
	}
	return self.gas, nil
}

func (self *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) (err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if len(self.sendErrors) > 0 {
		err = self.sendErrors[0]
		self.sendErrors = self.sendErrors[1:]
		return
	}

	from, err := types.Sender(types.LatestSignerForChainID(self.chainId), tx)
	if err != nil {
		return
	}

	switch {
	case tx.Nonce() < self.nonces[from]:
		return ErrNonceTooLow
	case tx.Nonce() > self.nonces[from]:
		return ErrNonceTooHigh
	}

	if tx.To() == nil || *tx.To() != self.authority {
		return ErrUnknownTo
	}

	dapp, claim, err := eth.UnpackSubmitClaim(tx.Data())
	if err != nil {
		return
	}

	// Mine
	self.nonces[from]++
	self.head++
	self.Transactions = append(self.Transactions, tx)

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		TxHash:            tx.Hash(),
		GasUsed:           self.gas,
		CumulativeGasUsed: self.gas,
		BlockHash:         blockHash(self.head),
		BlockNumber:       new(big.Int).SetUint64(self.head),
	}

	if self.revertNext {
		self.revertNext = false
		receipt.Status = types.ReceiptStatusFailed
	} else {
		err = self.appendClaimLog(dapp, claim, tx.Hash(), 0)
		if err != nil {
			return fmt.Errorf("failed to emit log: %w", err)
		}
		receipt.Logs = []*types.Log{&self.logs[len(self.logs)-1]}
	}

	self.receipts[tx.Hash()] = receipt
	return nil
}

func (self *Chain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	receipt, ok := self.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (self *Chain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

var _ eth.Client = (*Chain)(nil)

package claim

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/warp-contracts/claimer/src/utils/config"
	"github.com/warp-contracts/claimer/src/utils/eth"
	"github.com/warp-contracts/claimer/src/utils/logger"
	"github.com/warp-contracts/claimer/src/utils/model"
	"github.com/warp-contracts/claimer/src/utils/monitoring"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Submits claims to the Authority contract.
// Value type, every successful Send returns a copy with the next nonce.
type EthTransactionSender struct {
	log     *logrus.Entry
	config  *config.Config
	client  eth.Client
	monitor monitoring.Monitor

	key       *ecdsa.PrivateKey
	from      common.Address
	authority common.Address
	chainId   *big.Int

	nonce uint64
}

func NewTransactionSender(ctx context.Context, config *config.Config, client eth.Client, monitor monitoring.Monitor) (self EthTransactionSender, err error) {
	self.log = logger.NewSublogger("transaction-sender")
	self.config = config
	self.client = client
	self.monitor = monitor
	self.authority = common.HexToAddress(config.Chain.AuthorityAddress)
	self.chainId = new(big.Int).SetUint64(config.Chain.Id)

	self.key, self.from, err = eth.LoadPrivateKey(config.Sender.PrivateKey)
	if err != nil {
		return
	}

	chainId, err := client.ChainID(ctx)
	if err != nil {
		return
	}
	if chainId.Cmp(self.chainId) != 0 {
		err = fmt.Errorf("%w: node %s, configured %s", ErrChainIdMismatch, chainId, self.chainId)
		return
	}

	// Transactions sent by a previous run are already mined or in the mempool
	self.nonce, err = client.PendingNonceAt(ctx, self.from)
	if err != nil {
		return
	}
	self.monitor.GetReport().Claimer.State.Nonce.Store(self.nonce)

	self.log.WithField("from", self.from.Hex()).WithField("nonce", self.nonce).Info("Transaction sender ready")
	return
}

func (self EthTransactionSender) From() common.Address {
	return self.from
}

func (self EthTransactionSender) Nonce() uint64 {
	return self.nonce
}

func (self EthTransactionSender) Send(ctx context.Context, claim *model.Claim) (TransactionSender, error) {
	receipt, err := self.send(ctx, claim)
	if err != nil {
		self.monitor.GetReport().Claimer.Errors.TransactionSend.Inc()
		return nil, err
	}

	self.log.WithField("epoch", claim.EpochIndex).
		WithField("tx", receipt.TxHash.Hex()).
		WithField("block", receipt.BlockNumber).
		WithField("nonce", self.nonce).
		Info("Claim accepted")

	self.monitor.GetReport().Claimer.State.ClaimsSent.Inc()
	self.monitor.GetReport().Claimer.State.LastTransactionHash.Store(receipt.TxHash.Hex())

	self.nonce++
	self.monitor.GetReport().Claimer.State.Nonce.Store(self.nonce)
	return self, nil
}

func (self *EthTransactionSender) send(ctx context.Context, claim *model.Claim) (receipt *types.Receipt, err error) {
	data, err := eth.PackSubmitClaim(claim.DAppAddress, eth.HistoryClaim{
		EpochHash:  claim.EpochHash,
		FirstIndex: new(big.Int).SetUint64(claim.FirstIndex),
		LastIndex:  new(big.Int).SetUint64(claim.LastIndex),
	})
	if err != nil {
		return
	}

	// Fees
	header, err := self.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return
	}

	tipCap, err := self.client.SuggestGasTipCap(ctx)
	if err != nil {
		return
	}

	feeCap := new(big.Int).Set(tipCap)
	if header.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(header.BaseFee, big.NewInt(2)))
	}

	// Gas
	gas, err := self.client.EstimateGas(ctx, ethereum.CallMsg{
		From:      self.from,
		To:        &self.authority,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Data:      data,
	})
	if err != nil {
		return
	}
	gasLimit := uint64(float64(gas) * self.config.Sender.GasLimitMultiplier)
	if gasLimit < gas {
		gasLimit = gas
	}

	tx, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		ChainID:   self.chainId,
		Nonce:     self.nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &self.authority,
		Value:     big.NewInt(0),
		Data:      data,
	}), types.LatestSignerForChainID(self.chainId), self.key)
	if err != nil {
		return
	}

	err = self.client.SendTransaction(ctx, tx)
	if err != nil {
		return
	}

	self.log.WithField("tx", tx.Hash().Hex()).WithField("nonce", self.nonce).Debug("Claim transaction sent, waiting for receipt")

	waitCtx, cancel := context.WithTimeout(ctx, self.config.Sender.ReceiptTimeout)
	defer cancel()

	receipt, err = bind.WaitMined(waitCtx, self.client, tx)
	if err != nil {
		return
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		err = fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
		return
	}

	err = self.waitForConfirmations(waitCtx, receipt.BlockNumber.Uint64())
	return
}

// Waits until the transaction's block is deep enough
func (self *EthTransactionSender) waitForConfirmations(ctx context.Context, blockNumber uint64) (err error) {
	if self.config.Sender.Confirmations <= 1 {
		return
	}
	required := blockNumber + self.config.Sender.Confirmations - 1

	ticker := time.NewTicker(self.config.Sender.ConfirmationPollInterval)
	defer ticker.Stop()

	for {
		var head uint64
		head, err = self.client.BlockNumber(ctx)
		if err != nil {
			return
		}
		if head >= required {
			return
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

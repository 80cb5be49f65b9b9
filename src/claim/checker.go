package claim

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp-contracts/claimer/src/utils/config"
	"github.com/warp-contracts/claimer/src/utils/eth"
	"github.com/warp-contracts/claimer/src/utils/logger"
	"github.com/warp-contracts/claimer/src/utils/model"
	"github.com/warp-contracts/claimer/src/utils/monitoring"
	"github.com/warp-contracts/claimer/src/utils/task"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gammazero/workerpool"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const confirmedCacheKey = "confirmed"

// Claims read from blocks that won't be reorganized
type confirmedClaims struct {
	claims []model.Claim

	// First block that wasn't read yet
	nextBlock uint64
}

// Duplicate detection based on NewClaimToHistory logs of the History contract.
// The i-th claim logged for the dapp is the claim of epoch i.
type HistoryDuplicateChecker struct {
	log     *logrus.Entry
	config  *config.Config
	client  eth.Client
	monitor monitoring.Monitor

	dapp    common.Address
	history common.Address

	// Parallel log queries
	workers *workerpool.WorkerPool
	limiter *rate.Limiter

	// Claims from confirmed blocks
	mtx   sync.Mutex
	cache *cache.Cache
}

func NewHistoryDuplicateChecker(config *config.Config) (self *HistoryDuplicateChecker) {
	self = new(HistoryDuplicateChecker)
	self.log = logger.NewSublogger("duplicate-checker")
	self.config = config

	self.dapp = common.HexToAddress(config.Chain.DAppAddress)
	self.history = common.HexToAddress(config.Chain.HistoryAddress)

	self.workers = workerpool.New(config.Checker.NumWorkers)
	self.limiter = rate.NewLimiter(rate.Every(config.Checker.RateLimitInterval), config.Checker.RateLimitBurst)
	self.cache = cache.New(config.Checker.CacheExpiration, config.Checker.CacheExpiration)

	return
}

func (self *HistoryDuplicateChecker) WithClient(client eth.Client) *HistoryDuplicateChecker {
	self.client = client
	return self
}

func (self *HistoryDuplicateChecker) WithMonitor(monitor monitoring.Monitor) *HistoryDuplicateChecker {
	self.monitor = monitor
	return self
}

// Waits for running queries and releases workers
func (self *HistoryDuplicateChecker) Close() {
	self.workers.StopWait()
}

func (self *HistoryDuplicateChecker) IsDuplicated(ctx context.Context, claim *model.Claim) (isDuplicated bool, err error) {
	if claim.DAppAddress != self.dapp {
		return false, fmt.Errorf("%w: %s", ErrWrongDApp, claim.DAppAddress.Hex())
	}

	submitted, err := self.Claims(ctx)
	if err != nil {
		self.monitor.GetReport().Claimer.Errors.DuplicateCheck.Inc()
		return
	}

	numSubmitted := uint64(len(submitted))
	switch {
	case claim.EpochIndex < numSubmitted:
		if !submitted[claim.EpochIndex].SameContent(claim) {
			self.monitor.GetReport().Claimer.Errors.DuplicateCheck.Inc()
			return false, fmt.Errorf("%w: epoch %d, submitted %s, got %s",
				ErrClaimMismatch, claim.EpochIndex, submitted[claim.EpochIndex].String(), claim.String())
		}
		self.monitor.GetReport().Claimer.State.ClaimsDuplicated.Inc()
		return true, nil
	case claim.EpochIndex == numSubmitted:
		return false, nil
	default:
		self.monitor.GetReport().Claimer.Errors.DuplicateCheck.Inc()
		return false, fmt.Errorf("%w: epoch %d, only %d submitted", ErrClaimOutOfOrder, claim.EpochIndex, numSubmitted)
	}
}

// All claims of the dapp present on-chain, ordered by epoch
func (self *HistoryDuplicateChecker) Claims(ctx context.Context) (out []model.Claim, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	var head uint64
	err = self.retry(ctx).Run(func() (err error) {
		head, err = self.client.BlockNumber(ctx)
		return
	})
	if err != nil {
		return
	}

	confirmed := self.getConfirmed()

	// Blocks this deep are considered final
	if head >= self.config.Checker.Confirmations {
		confirmedHead := head - self.config.Checker.Confirmations
		if confirmedHead >= confirmed.nextBlock {
			var claims []model.Claim
			claims, err = self.fetch(ctx, confirmed.nextBlock, confirmedHead)
			if err != nil {
				return
			}

			// Cached value is never modified in place
			next := &confirmedClaims{
				claims:    make([]model.Claim, 0, len(confirmed.claims)+len(claims)),
				nextBlock: confirmedHead + 1,
			}
			next.claims = append(next.claims, confirmed.claims...)
			next.claims = append(next.claims, claims...)

			self.cache.SetDefault(confirmedCacheKey, next)
			confirmed = next
		}
	}

	out = make([]model.Claim, 0, len(confirmed.claims))
	out = append(out, confirmed.claims...)

	// Unconfirmed blocks are read every time
	if confirmed.nextBlock <= head {
		var unconfirmed []model.Claim
		unconfirmed, err = self.fetch(ctx, confirmed.nextBlock, head)
		if err != nil {
			return
		}
		out = append(out, unconfirmed...)
	}

	for i := range out {
		out[i].EpochIndex = uint64(i)
	}

	self.monitor.GetReport().Claimer.State.ClaimsOnChain.Store(uint64(len(out)))
	self.monitor.GetReport().Claimer.State.CheckedBlockHeight.Store(head)

	return
}

func (self *HistoryDuplicateChecker) getConfirmed() *confirmedClaims {
	v, found := self.cache.Get(confirmedCacheKey)
	if !found {
		// Expired or never read
		return &confirmedClaims{nextBlock: self.config.Chain.DeployBlock}
	}
	return v.(*confirmedClaims)
}

// Reads claims in the block range, range is split into chunks queried in parallel
func (self *HistoryDuplicateChecker) fetch(ctx context.Context, fromBlock, toBlock uint64) (out []model.Claim, err error) {
	if fromBlock > toBlock {
		return
	}

	type chunk struct {
		from, to uint64
		logs     []types.Log
		err      error
	}

	chunkSize := self.config.Checker.QueryBlockRange
	if chunkSize == 0 {
		chunkSize = toBlock - fromBlock + 1
	}

	var chunks []*chunk
	for from := fromBlock; from <= toBlock; from += chunkSize {
		to := from + chunkSize - 1
		if to > toBlock || to < from {
			to = toBlock
		}
		chunks = append(chunks, &chunk{from: from, to: to})
		if to == toBlock {
			break
		}
	}

	var wg sync.WaitGroup
	wg.Add(len(chunks))
	for _, c := range chunks {
		c := c
		self.workers.Submit(func() {
			defer wg.Done()
			c.logs, c.err = self.filterLogs(ctx, c.from, c.to)
		})
	}
	wg.Wait()

	for _, c := range chunks {
		if c.err != nil {
			return nil, c.err
		}

		for i := range c.logs {
			if c.logs[i].Removed {
				continue
			}

			var decoded *eth.ClaimLog
			decoded, err = eth.UnpackClaimLog(&c.logs[i])
			if err != nil {
				return
			}

			if decoded.DApp != self.dapp {
				continue
			}

			out = append(out, model.Claim{
				DAppAddress: decoded.DApp,
				EpochHash:   decoded.Claim.EpochHash,
				FirstIndex:  decoded.Claim.FirstIndex.Uint64(),
				LastIndex:   decoded.Claim.LastIndex.Uint64(),
			})
		}
	}

	return
}

func (self *HistoryDuplicateChecker) filterLogs(ctx context.Context, fromBlock, toBlock uint64) (logs []types.Log, err error) {
	query := eth.ClaimsQuery(self.history, self.dapp, fromBlock, toBlock)

	err = self.retry(ctx).Run(func() (err error) {
		// Blocks till the request is possible or ctx gets canceled
		err = self.limiter.Wait(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		logs, err = self.client.FilterLogs(ctx, query)
		return
	})
	if err != nil {
		self.log.WithError(err).
			WithField("from", fromBlock).
			WithField("to", toBlock).
			Error("Failed to get claim logs, no more retries")
	}
	return
}

func (self *HistoryDuplicateChecker) retry(ctx context.Context) *task.Retry {
	return task.NewRetry().
		WithContext(ctx).
		WithInitialInterval(self.config.Checker.BackoffInitialInterval).
		WithMaxElapsedTime(self.config.Checker.BackoffMaxElapsedTime).
		WithMaxInterval(self.config.Checker.BackoffMaxInterval).
		WithOnError(func(err error) error {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			self.monitor.GetReport().Claimer.Errors.LogQuery.Inc()
			self.log.WithError(err).Warn("Chain query failed, retrying")
			return err
		})
}

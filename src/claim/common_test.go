package claim

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/warp-contracts/claimer/src/utils/broker"
	"github.com/warp-contracts/claimer/src/utils/config"
	"github.com/warp-contracts/claimer/src/utils/eth/ethtest"
	"github.com/warp-contracts/claimer/src/utils/model"
	monitor_claimer "github.com/warp-contracts/claimer/src/utils/monitoring/claimer"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	// Well known development account
	testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testChainId    = 31337
)

var (
	testDApp      = common.HexToAddress("0x70ac08179605AF2D9e75782b8DEcDD3c22aA4D0C")
	testAuthority = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testHistory   = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")

	errEnd = errors.New("end of mock claims")
)

func testConfig() *config.Config {
	config := config.Default()
	config.StopTimeout = 2 * time.Second

	config.Chain.Id = testChainId
	config.Chain.DAppAddress = testDApp.Hex()
	config.Chain.AuthorityAddress = testAuthority.Hex()
	config.Chain.HistoryAddress = testHistory.Hex()

	config.Broker.ConsumeTimeout = 50 * time.Millisecond
	config.Broker.BackoffInitialInterval = 5 * time.Millisecond
	config.Broker.BackoffMaxInterval = 10 * time.Millisecond
	config.Broker.BackoffMaxElapsedTime = 100 * time.Millisecond

	config.Checker.QueryBlockRange = 3
	config.Checker.NumWorkers = 2
	config.Checker.RateLimitInterval = time.Millisecond
	config.Checker.Confirmations = 2
	config.Checker.BackoffInitialInterval = 5 * time.Millisecond
	config.Checker.BackoffMaxElapsedTime = 200 * time.Millisecond
	config.Checker.BackoffMaxInterval = 10 * time.Millisecond

	config.Sender.PrivateKey = testPrivateKey
	config.Sender.ConfirmationPollInterval = 5 * time.Millisecond
	config.Sender.ReceiptTimeout = 5 * time.Second

	return config
}

// Points the config at a fresh in-memory Redis
func withRedis(t *testing.T, config *config.Config) *miniredis.Miniredis {
	redis := miniredis.RunT(t)
	config.Redis.Host = redis.Host()
	port, err := strconv.Atoi(redis.Port())
	require.Nil(t, err)
	config.Redis.Port = uint16(port)
	return redis
}

func newTestChain() *ethtest.Chain {
	return ethtest.NewChain(testChainId, testAuthority, testHistory)
}

func newTestMonitor(config *config.Config) *monitor_claimer.Monitor {
	return monitor_claimer.NewMonitor(config)
}

func testMetadata() model.DAppMetadata {
	return model.DAppMetadata{ChainId: testChainId, DAppAddress: testDApp}
}

func testClaim(epoch uint64) model.Claim {
	return model.Claim{
		DAppAddress: testDApp,
		EpochIndex:  epoch,
		EpochHash:   common.BigToHash(new(big.Int).SetUint64(1000 + epoch)),
		FirstIndex:  epoch * 10,
		LastIndex:   epoch*10 + 9,
	}
}

func produceClaims(t *testing.T, ctx context.Context, b *broker.Broker, epochs ...uint64) (ids []string) {
	for _, epoch := range epochs {
		id, err := broker.Produce(ctx, b, testMetadata().ClaimsStreamKey(), testClaim(epoch))
		require.Nil(t, err)
		ids = append(ids, id)
	}
	return
}

// Records claims processed by all of its copies
type recorder struct {
	mtx    sync.Mutex
	claims []model.Claim
}

func (self *recorder) add(claim *model.Claim) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.claims = append(self.claims, *claim)
}

func (self *recorder) get() []model.Claim {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	out := make([]model.Claim, len(self.claims))
	copy(out, self.claims)
	return out
}

// Succeeds a fixed number of times, then fails with errEnd
type mockClaimer struct {
	remaining int
	recorder  *recorder
}

func (self mockClaimer) Process(ctx context.Context, claim *model.Claim) (Claimer, error) {
	if self.remaining == 0 {
		return nil, errEnd
	}
	self.recorder.add(claim)
	self.remaining--
	return self, nil
}

// Reports epochs listed in duplicated as already submitted
type mockChecker struct {
	duplicated map[uint64]bool
	err        error
	calls      int
}

func (self *mockChecker) IsDuplicated(ctx context.Context, claim *model.Claim) (bool, error) {
	self.calls++
	if self.err != nil {
		return false, self.err
	}
	return self.duplicated[claim.EpochIndex], nil
}

// Every successful send returns a sender with generation+1
type mockSender struct {
	generation int
	err        error
	recorder   *recorder
}

func (self mockSender) Send(ctx context.Context, claim *model.Claim) (TransactionSender, error) {
	if self.err != nil {
		return nil, self.err
	}
	self.recorder.add(claim)
	self.generation++
	return self, nil
}

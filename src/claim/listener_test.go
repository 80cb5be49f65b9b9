package claim

import (
	"context"
	"testing"
	"time"

	"github.com/warp-contracts/claimer/src/utils/broker"
	"github.com/warp-contracts/claimer/src/utils/config"
	monitor_claimer "github.com/warp-contracts/claimer/src/utils/monitoring/claimer"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestListenerTestSuite(t *testing.T) {
	suite.Run(t, new(ListenerTestSuite))
}

type ListenerTestSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	config   *config.Config
	redis    *miniredis.Miniredis
	broker   *broker.Broker
	monitor  *monitor_claimer.Monitor
	listener *Listener
	recorder *recorder
}

func (s *ListenerTestSuite) SetupTest() {
	var err error
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 20*time.Second)
	s.config = testConfig()
	s.redis = withRedis(s.T(), s.config)

	s.broker, err = broker.NewBroker(s.ctx, s.config)
	require.Nil(s.T(), err)

	s.monitor = newTestMonitor(s.config)
	s.recorder = &recorder{}
	s.listener = NewListener(s.config).
		WithBroker(s.broker).
		WithDApp(testMetadata()).
		WithMonitor(s.monitor)
}

func (s *ListenerTestSuite) TearDownTest() {
	s.broker.Close()
	s.cancel()
}

func (s *ListenerTestSuite) mock(successes int) mockClaimer {
	return mockClaimer{remaining: successes, recorder: s.recorder}
}

func (s *ListenerTestSuite) requireProcessed(epochs ...uint64) {
	processed := s.recorder.get()
	require.Len(s.T(), processed, len(epochs))
	for i, epoch := range epochs {
		require.Equal(s.T(), epoch, processed[i].EpochIndex)
	}
}

func (s *ListenerTestSuite) TestProcessesAllInOrder() {
	ids := produceClaims(s.T(), s.ctx, s.broker, 0, 1, 2, 3, 4, 5)

	// Claimer succeeds for the 5 first claims
	err := s.listener.Listen(s.ctx, s.mock(5))
	require.ErrorIs(s.T(), err, ErrClaimer)
	require.ErrorIs(s.T(), err, errEnd)

	s.requireProcessed(0, 1, 2, 3, 4)

	// Cursor points at the last processed event, the failed one isn't acknowledged
	require.Equal(s.T(), ids[4], s.listener.Cursor())
	require.Equal(s.T(), uint64(5), s.monitor.Report.Claimer.State.ClaimsConsumed.Load())
	require.Equal(s.T(), ids[4], s.monitor.Report.Claimer.State.LastEventId.Load())
	require.Equal(s.T(), uint64(4), s.monitor.Report.Claimer.State.LastEpochIndex.Load())
}

func (s *ListenerTestSuite) TestBlocksForLateClaims() {
	produceClaims(s.T(), s.ctx, s.broker, 0, 1)

	late := make(chan []string, 1)
	go func() {
		time.Sleep(200 * time.Millisecond)
		late <- produceClaims(s.T(), s.ctx, s.broker, 2, 3, 4, 5, 6)
	}()

	// Claimer fails on the 7th claim, which comes in the late batch
	err := s.listener.Listen(s.ctx, s.mock(6))
	require.ErrorIs(s.T(), err, ErrClaimer)

	s.requireProcessed(0, 1, 2, 3, 4, 5)

	ids := <-late
	require.Equal(s.T(), ids[3], s.listener.Cursor())
}

func (s *ListenerTestSuite) TestFailsWithoutConsuming() {
	produceClaims(s.T(), s.ctx, s.broker, 0, 1, 2)

	err := s.listener.Listen(s.ctx, s.mock(0))
	require.ErrorIs(s.T(), err, ErrClaimer)

	s.requireProcessed()
	require.Equal(s.T(), broker.InitialId, s.listener.Cursor())
}

func (s *ListenerTestSuite) TestFailsAfterSome() {
	ids := produceClaims(s.T(), s.ctx, s.broker, 0, 1, 2, 3)

	err := s.listener.Listen(s.ctx, s.mock(2))
	require.ErrorIs(s.T(), err, ErrClaimer)

	s.requireProcessed(0, 1)
	require.Equal(s.T(), ids[1], s.listener.Cursor())
}

func (s *ListenerTestSuite) TestBrokerFailure() {
	produceClaims(s.T(), s.ctx, s.broker, 0)
	s.redis.SetError("LOADING Redis is loading the dataset in memory")

	err := s.listener.Listen(s.ctx, s.mock(10))
	require.ErrorIs(s.T(), err, ErrBroker)
	require.NotErrorIs(s.T(), err, ErrClaimer)

	s.requireProcessed()
	require.Equal(s.T(), broker.InitialId, s.listener.Cursor())
	require.Equal(s.T(), uint64(1), s.monitor.Report.Claimer.Errors.Broker.Load())
}

func (s *ListenerTestSuite) TestStoppingIsNotAFailure() {
	produceClaims(s.T(), s.ctx, s.broker, 0, 1)

	s.listener.WithClaimer(s.mock(10))
	require.Nil(s.T(), s.listener.Start())

	require.Eventually(s.T(), func() bool {
		return len(s.recorder.get()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.True(s.T(), s.monitor.Report.Claimer.State.ListenerRunning.Load())

	s.listener.StopWait()

	require.Nil(s.T(), s.listener.Err())
	require.False(s.T(), s.monitor.Report.Claimer.State.ListenerRunning.Load())
}

func (s *ListenerTestSuite) TestApplicationShutdownIsNotAFailure() {
	produceClaims(s.T(), s.ctx, s.broker, 0, 1)

	appCtx, appCancel := context.WithCancel(s.ctx)
	defer appCancel()

	s.listener.WithContext(appCtx).WithClaimer(s.mock(10))
	require.Nil(s.T(), s.listener.Start())

	require.Eventually(s.T(), func() bool {
		return len(s.recorder.get()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	// Signal cancels the application context before the task is stopped
	appCancel()

	select {
	case <-s.listener.CtxRunning.Done():
	case <-time.After(5 * time.Second):
		s.FailNow("listener didn't notice the shutdown")
	}
	s.listener.StopWait()

	require.Nil(s.T(), s.listener.Err())
	require.False(s.T(), s.monitor.Report.Claimer.State.ListenerRunning.Load())
}

func (s *ListenerTestSuite) TestTaskReportsFailure() {
	produceClaims(s.T(), s.ctx, s.broker, 0, 1)

	s.listener.WithClaimer(s.mock(1))
	require.Nil(s.T(), s.listener.Start())

	select {
	case <-s.listener.CtxRunning.Done():
	case <-time.After(5 * time.Second):
		s.FailNow("listener didn't stop")
	}

	require.ErrorIs(s.T(), s.listener.Err(), ErrClaimer)
	s.requireProcessed(0)
}

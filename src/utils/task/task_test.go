package task

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/warp-contracts/claimer/src/utils/config"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestTaskTestSuite(t *testing.T) {
	suite.Run(t, new(TaskTestSuite))
}

type TaskTestSuite struct {
	suite.Suite
	config *config.Config
}

func (s *TaskTestSuite) SetupTest() {
	s.config = config.Default()
	s.config.StopTimeout = 2 * time.Second
}

func (s *TaskTestSuite) waitFinished(task *Task) {
	select {
	case <-task.CtxRunning.Done():
	case <-time.After(5 * time.Second):
		s.FailNow("task didn't finish")
	}
}

func (s *TaskTestSuite) TestStopWait() {
	var stopped atomic.Bool
	task := NewTask(s.config, "test").
		WithSubtaskFunc(func() error {
			<-time.After(10 * time.Millisecond)
			return nil
		}).
		WithOnStop(func() {
			stopped.Store(true)
		})

	require.Nil(s.T(), task.Start())
	task.StopWait()

	require.True(s.T(), stopped.Load())
	require.True(s.T(), task.IsStopping.Load())
	require.Nil(s.T(), task.Err())
	s.waitFinished(task)
}

func (s *TaskTestSuite) TestOnBeforeStartError() {
	boom := errors.New("boom")
	task := NewTask(s.config, "test").
		WithOnBeforeStart(func() error { return boom })

	err := task.Start()
	require.ErrorIs(s.T(), err, boom)
}

func (s *TaskTestSuite) TestFailFastStopsSiblings() {
	boom := errors.New("boom")
	var siblingStopped atomic.Bool

	sibling := NewTask(s.config, "sibling")
	sibling.WithSubtaskFunc(func() error {
		<-sibling.StopChannel
		siblingStopped.Store(true)
		return nil
	})

	failing := NewTask(s.config, "failing").
		WithSubtaskFunc(func() error {
			return boom
		})

	parent := NewTask(s.config, "parent").
		WithFailFast().
		WithSubtask(sibling).
		WithSubtask(failing)

	require.Nil(s.T(), parent.Start())
	s.waitFinished(parent)

	require.True(s.T(), siblingStopped.Load())
	require.ErrorIs(s.T(), parent.Err(), boom)
	require.ErrorIs(s.T(), failing.Err(), boom)
	require.Nil(s.T(), sibling.Err())
}

func (s *TaskTestSuite) TestFailFastOnCleanFinish() {
	parent := NewTask(s.config, "parent").
		WithFailFast()
	parent.WithSubtaskFunc(func() error { return nil }).
		WithSubtaskFunc(func() error {
			<-parent.Ctx.Done()
			return nil
		})

	require.Nil(s.T(), parent.Start())
	s.waitFinished(parent)

	require.True(s.T(), parent.IsStopping.Load())
	require.Nil(s.T(), parent.Err())
}

func (s *TaskTestSuite) TestNoFailFast() {
	boom := errors.New("boom")
	parent := NewTask(s.config, "parent")
	parent.WithSubtaskFunc(func() error { return boom }).
		WithSubtaskFunc(func() error {
			<-parent.StopChannel
			return nil
		})

	require.Nil(s.T(), parent.Start())

	// Error is remembered, but the task keeps running
	require.Eventually(s.T(), func() bool {
		return parent.Err() != nil
	}, time.Second, 5*time.Millisecond)
	require.False(s.T(), parent.IsStopping.Load())

	parent.StopWait()
	s.waitFinished(parent)
	require.ErrorIs(s.T(), parent.Err(), boom)
}

func (s *TaskTestSuite) TestPeriodic() {
	var counter atomic.Int32
	task := NewTask(s.config, "periodic").
		WithPeriodicSubtaskFunc(5*time.Millisecond, func() error {
			counter.Add(1)
			return nil
		})

	require.Nil(s.T(), task.Start())
	require.Eventually(s.T(), func() bool {
		return counter.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	task.StopWait()
	s.waitFinished(task)
}

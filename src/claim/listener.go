package claim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/warp-contracts/claimer/src/utils/broker"
	"github.com/warp-contracts/claimer/src/utils/config"
	"github.com/warp-contracts/claimer/src/utils/model"
	"github.com/warp-contracts/claimer/src/utils/monitoring"
	"github.com/warp-contracts/claimer/src/utils/task"

	"github.com/teivah/onecontext"
)

// Consumes claims from the dapp's stream, in order, and passes them to the claimer
type Listener struct {
	*task.Task

	broker    *broker.Broker
	streamKey string
	monitor   monitoring.Monitor
	claimer   Claimer

	// Cancelled when the whole application stops
	parentCtx context.Context

	// Id of the last processed event, kept in memory only
	mtx    sync.RWMutex
	cursor string
}

func NewListener(config *config.Config) (self *Listener) {
	self = new(Listener)
	self.cursor = broker.InitialId
	self.parentCtx = context.Background()

	self.Task = task.NewTask(config, "listener").
		WithSubtaskFunc(self.run)

	return
}

func (self *Listener) WithContext(ctx context.Context) *Listener {
	self.parentCtx = ctx
	return self
}

func (self *Listener) WithBroker(v *broker.Broker) *Listener {
	self.broker = v
	return self
}

func (self *Listener) WithDApp(metadata model.DAppMetadata) *Listener {
	self.streamKey = metadata.ClaimsStreamKey()
	return self
}

func (self *Listener) WithMonitor(monitor monitoring.Monitor) *Listener {
	self.monitor = monitor
	return self
}

func (self *Listener) WithClaimer(claimer Claimer) *Listener {
	self.claimer = claimer
	return self
}

// Id of the last event that was successfully processed
func (self *Listener) Cursor() string {
	self.mtx.RLock()
	defer self.mtx.RUnlock()
	return self.cursor
}

func (self *Listener) setCursor(id string) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.cursor = id
}

func (self *Listener) run() (err error) {
	ctx, cancel := onecontext.Merge(self.Ctx, self.parentCtx)
	defer cancel()

	self.monitor.GetReport().Claimer.State.ListenerRunning.Store(true)
	defer self.monitor.GetReport().Claimer.State.ListenerRunning.Store(false)

	err = self.Listen(ctx, self.claimer)
	if errors.Is(err, context.Canceled) && (self.IsStopping.Load() || self.parentCtx.Err() != nil) {
		// Stopping isn't a failure, neither is the application shutting down
		return nil
	}
	return
}

// Runs until the first failure, never returns nil.
// The cursor advances only after the claimer succeeds.
func (self *Listener) Listen(ctx context.Context, claimer Claimer) (err error) {
	self.Log.WithField("stream", self.streamKey).WithField("cursor", self.Cursor()).Info("Listening for claims")

	for {
		var event *broker.Event[model.Claim]
		event, err = broker.Consume[model.Claim](ctx, self.broker, self.streamKey, self.Cursor())
		if err != nil {
			self.monitor.GetReport().Claimer.Errors.Broker.Inc()
			return fmt.Errorf("%w: %w", ErrBroker, err)
		}

		self.Log.WithField("id", event.Id).WithField("epoch", event.Payload.EpochIndex).Debug("Got claim")

		claimer, err = claimer.Process(ctx, &event.Payload)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrClaimer, err)
		}

		self.setCursor(event.Id)

		self.monitor.GetReport().Claimer.State.ClaimsConsumed.Inc()
		self.monitor.GetReport().Claimer.State.LastEventId.Store(event.Id)
		self.monitor.GetReport().Claimer.State.LastEpochIndex.Store(event.Payload.EpochIndex)
	}
}

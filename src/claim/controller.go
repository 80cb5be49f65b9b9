package claim

import (
	"context"

	"github.com/warp-contracts/claimer/src/utils/broker"
	"github.com/warp-contracts/claimer/src/utils/config"
	"github.com/warp-contracts/claimer/src/utils/eth"
	"github.com/warp-contracts/claimer/src/utils/model"
	"github.com/warp-contracts/claimer/src/utils/monitoring"
	monitor_claimer "github.com/warp-contracts/claimer/src/utils/monitoring/claimer"
	"github.com/warp-contracts/claimer/src/utils/task"

	"github.com/ethereum/go-ethereum/common"
)

type Controller struct {
	*task.Task
}

// Main class that orchestrates everything.
// Stops as soon as the listener or the REST server stops, Err() tells why.
func NewController(ctx context.Context, config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "controller").
		WithFailFast()

	// Monitoring
	monitor := monitor_claimer.NewMonitor(config)

	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Stream with claims
	redis, err := broker.NewBroker(ctx, config)
	if err != nil {
		return
	}

	// Chain
	client, err := eth.Dial(ctx, self.Log, config.Chain.RpcUrl)
	if err != nil {
		redis.Close()
		return
	}

	checker := NewHistoryDuplicateChecker(config).
		WithClient(client).
		WithMonitor(monitor)

	sender, err := NewTransactionSender(ctx, config, client, monitor)
	if err != nil {
		checker.Close()
		client.Close()
		redis.Close()
		return
	}

	listener := NewListener(config).
		WithContext(ctx).
		WithBroker(redis).
		WithDApp(model.DAppMetadata{
			ChainId:     config.Chain.Id,
			DAppAddress: common.HexToAddress(config.Chain.DAppAddress),
		}).
		WithMonitor(monitor).
		WithClaimer(NewClaimer(checker, sender))

	// Setup everything, will start upon calling Controller.Start()
	self.Task = self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(server.Task).
		WithSubtask(listener.Task).
		WithOnAfterStop(func() {
			checker.Close()
			client.Close()
			redis.Close()
		})
	return
}

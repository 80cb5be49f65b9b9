package cmd

import (
	"github.com/warp-contracts/claimer/src/claim"
	"github.com/warp-contracts/claimer/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(claimCmd)
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Listens for claims of the configured dapp and submits them on-chain",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := claim.NewController(applicationCtx, conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-applicationCtx.Done():
		}

		controller.StopWait()

		// Anything that stopped the claimer on its own is a failure
		return controller.Err()
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished claim command")
		return
	},
}

package cmd

import (
	"fmt"

	"github.com/warp-contracts/claimer/src/utils/broker"
	"github.com/warp-contracts/claimer/src/utils/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	publishEpoch uint64
	publishHash  string
	publishFirst uint64
	publishLast  uint64
)

func init() {
	publishCmd.Flags().Uint64Var(&publishEpoch, "epoch", 0, "epoch index")
	publishCmd.Flags().StringVar(&publishHash, "hash", "", "epoch hash, 32 bytes hex encoded")
	publishCmd.Flags().Uint64Var(&publishFirst, "first", 0, "index of the first input in the epoch")
	publishCmd.Flags().Uint64Var(&publishLast, "last", 0, "index of the last input in the epoch")
	_ = publishCmd.MarkFlagRequired("hash")

	RootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Appends a claim for the configured dapp to its claims stream",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		hash, err := parseHash(publishHash)
		if err != nil {
			return
		}

		if publishLast < publishFirst {
			return fmt.Errorf("last input index %d is lower than the first %d", publishLast, publishFirst)
		}

		metadata := model.DAppMetadata{
			ChainId:     conf.Chain.Id,
			DAppAddress: common.HexToAddress(conf.Chain.DAppAddress),
		}

		b, err := broker.NewBroker(applicationCtx, conf)
		if err != nil {
			return
		}
		defer b.Close()

		id, err := broker.Produce(applicationCtx, b, metadata.ClaimsStreamKey(), &model.Claim{
			DAppAddress: metadata.DAppAddress,
			EpochIndex:  publishEpoch,
			EpochHash:   hash,
			FirstIndex:  publishFirst,
			LastIndex:   publishLast,
		})
		if err != nil {
			return
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)
		return
	},
}

func parseHash(v string) (hash common.Hash, err error) {
	buf, err := hexutil.Decode(v)
	if err != nil {
		return
	}
	if len(buf) != common.HashLength {
		err = fmt.Errorf("epoch hash has %d bytes, expected %d", len(buf), common.HashLength)
		return
	}
	return common.BytesToHash(buf), nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/warp-contracts/claimer/src/utils/eth"
)

// Prints claims History holds for one DApp, in submission order
func main() {
	url := flag.String("url", "http://localhost:8545", "JSON-RPC endpoint")
	history := flag.String("history", "", "History contract address")
	dapp := flag.String("dapp", "", "DApp address")
	from := flag.Uint64("from", 0, "first block to scan")
	step := flag.Uint64("step", 10000, "blocks per eth_getLogs call")
	flag.Parse()

	if !common.IsHexAddress(*history) || !common.IsHexAddress(*dapp) {
		log.Fatal("history and dapp need to be hex addresses")
	}

	ctx := context.Background()
	client, err := ethclient.DialContext(ctx, *url)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	head, err := client.BlockNumber(ctx)
	if err != nil {
		log.Fatal(err)
	}

	epoch := 0
	for start := *from; start <= head; start += *step {
		end := min(start+*step-1, head)

		logs, err := client.FilterLogs(ctx, eth.ClaimsQuery(common.HexToAddress(*history), common.HexToAddress(*dapp), start, end))
		if err != nil {
			log.Fatalf("blocks %d-%d: %v", start, end, err)
		}

		for i := range logs {
			claimLog, err := eth.UnpackClaimLog(&logs[i])
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%d\t%s\t%s\t%s\tblock=%d tx=%s\n",
				epoch,
				common.Hash(claimLog.Claim.EpochHash).Hex(),
				bigString(claimLog.Claim.FirstIndex),
				bigString(claimLog.Claim.LastIndex),
				claimLog.BlockNumber,
				claimLog.TxHash.Hex(),
			)
			epoch++
		}
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}

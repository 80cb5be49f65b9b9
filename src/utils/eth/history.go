package eth

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const historyABIJson = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "dapp", "type": "address"},
			{
				"components": [
					{"internalType": "bytes32", "name": "epochHash", "type": "bytes32"},
					{"internalType": "uint128", "name": "firstIndex", "type": "uint128"},
					{"internalType": "uint128", "name": "lastIndex", "type": "uint128"}
				],
				"indexed": false,
				"internalType": "struct IHistory.Claim",
				"name": "claim",
				"type": "tuple"
			}
		],
		"name": "NewClaimToHistory",
		"type": "event"
	}
]`

const authorityABIJson = `[
	{
		"inputs": [{"internalType": "bytes", "name": "_claimData", "type": "bytes"}],
		"name": "submitClaim",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const (
	NewClaimToHistoryEvent = "NewClaimToHistory"
	SubmitClaimMethod      = "submitClaim"
)

var (
	HistoryABI   abi.ABI
	AuthorityABI abi.ABI

	// abi.encode(address dapp, Claim claim)
	claimDataArguments abi.Arguments

	ErrInvalidClaimLog  = errors.New("invalid NewClaimToHistory log")
	ErrInvalidClaimData = errors.New("invalid claim data")
)

// On-chain representation of a claim, field names and order follow the ABI tuple
type HistoryClaim struct {
	EpochHash  [32]byte
	FirstIndex *big.Int
	LastIndex  *big.Int
}

// Claim read from a History log
type ClaimLog struct {
	DApp        common.Address
	Claim       HistoryClaim
	BlockNumber uint64
	TxHash      common.Hash
}

func init() {
	var err error
	HistoryABI, err = abi.JSON(strings.NewReader(historyABIJson))
	if err != nil {
		panic(err)
	}

	AuthorityABI, err = abi.JSON(strings.NewReader(authorityABIJson))
	if err != nil {
		panic(err)
	}

	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}

	claimType, err := abi.NewType("tuple", "struct IHistory.Claim", []abi.ArgumentMarshaling{
		{Name: "epochHash", Type: "bytes32"},
		{Name: "firstIndex", Type: "uint128"},
		{Name: "lastIndex", Type: "uint128"},
	})
	if err != nil {
		panic(err)
	}

	claimDataArguments = abi.Arguments{
		{Name: "dapp", Type: addressType},
		{Name: "claim", Type: claimType},
	}
}

// Calldata of Authority.submitClaim
func PackSubmitClaim(dapp common.Address, claim HistoryClaim) (data []byte, err error) {
	claimData, err := claimDataArguments.Pack(dapp, claim)
	if err != nil {
		return
	}
	return AuthorityABI.Pack(SubmitClaimMethod, claimData)
}

// Reverse of PackSubmitClaim
func UnpackSubmitClaim(data []byte) (dapp common.Address, claim HistoryClaim, err error) {
	if len(data) < 4 {
		err = fmt.Errorf("%w: no method selector", ErrInvalidClaimData)
		return
	}

	method, err := AuthorityABI.MethodById(data[:4])
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidClaimData, err)
		return
	}
	if method.Name != SubmitClaimMethod {
		err = fmt.Errorf("%w: unexpected method %s", ErrInvalidClaimData, method.Name)
		return
	}

	inputs, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidClaimData, err)
		return
	}

	claimData, ok := inputs[0].([]byte)
	if !ok {
		err = fmt.Errorf("%w: claim data isn't bytes", ErrInvalidClaimData)
		return
	}

	values, err := claimDataArguments.Unpack(claimData)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidClaimData, err)
		return
	}

	dapp, ok = values[0].(common.Address)
	if !ok {
		err = fmt.Errorf("%w: dapp isn't an address", ErrInvalidClaimData)
		return
	}

	claim = *abi.ConvertType(values[1], new(HistoryClaim)).(*HistoryClaim)
	return
}

// Log emitted by History when a claim is accepted
func PackClaimLog(history, dapp common.Address, claim HistoryClaim) (log types.Log, err error) {
	data, err := HistoryABI.Events[NewClaimToHistoryEvent].Inputs.NonIndexed().Pack(claim)
	if err != nil {
		return
	}

	log = types.Log{
		Address: history,
		Topics: []common.Hash{
			HistoryABI.Events[NewClaimToHistoryEvent].ID,
			common.BytesToHash(dapp.Bytes()),
		},
		Data: data,
	}
	return
}

func UnpackClaimLog(log *types.Log) (out *ClaimLog, err error) {
	if len(log.Topics) != 2 || log.Topics[0] != HistoryABI.Events[NewClaimToHistoryEvent].ID {
		err = fmt.Errorf("%w: unexpected topics", ErrInvalidClaimLog)
		return
	}

	values, err := HistoryABI.Unpack(NewClaimToHistoryEvent, log.Data)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidClaimLog, err)
		return
	}
	if len(values) != 1 {
		err = fmt.Errorf("%w: unexpected number of values", ErrInvalidClaimLog)
		return
	}

	out = &ClaimLog{
		DApp:        common.BytesToAddress(log.Topics[1].Bytes()),
		Claim:       *abi.ConvertType(values[0], new(HistoryClaim)).(*HistoryClaim),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
	}
	return
}

// Selects History logs with claims of one dapp
func ClaimsQuery(history, dapp common.Address, fromBlock, toBlock uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{history},
		Topics: [][]common.Hash{
			{HistoryABI.Events[NewClaimToHistoryEvent].ID},
			{common.BytesToHash(dapp.Bytes())},
		},
	}
}

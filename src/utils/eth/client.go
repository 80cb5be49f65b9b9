package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// Subset of the JSON-RPC API used by the claimer. Implemented by *ethclient.Client.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

var _ Client = (*ethclient.Client)(nil)

func Dial(ctx context.Context, log *logrus.Entry, url string) (client *ethclient.Client, err error) {
	client, err = ethclient.DialContext(ctx, url)
	if err != nil {
		log.WithError(err).WithField("url", url).Error("Cannot get ETH client")
		return
	}
	return
}

// Parses hex encoded secp256k1 key, with or without 0x prefix
func LoadPrivateKey(hexKey string) (key *ecdsa.PrivateKey, address common.Address, err error) {
	key, err = crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		err = errors.Join(ErrInvalidPrivateKey, err)
		return
	}
	address = crypto.PubkeyToAddress(key.PublicKey)
	return
}

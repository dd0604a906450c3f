package publish

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
)

// Client is the JSON-RPC Backend.
type Client struct {
	client *w3.Client
}

var _ Backend = (*Client)(nil)

func Dial(rpcURL string) (*Client, error) {
	client, err := w3.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{client: client}, nil
}

func NewClient(client *w3.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id uint64
	if err := c.client.CallCtx(ctx, eth.ChainID().Returns(&id)); err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	return new(big.Int).SetUint64(id), nil
}

func (c *Client) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	if err := c.client.CallCtx(ctx, eth.Nonce(account, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	var hash common.Hash
	if err := c.client.CallCtx(ctx, eth.SendTx(tx).Returns(&hash)); err != nil {
		return fmt.Errorf("send tx: %w", err)
	}
	return nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := c.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt)); err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("get receipt: %s not found", txHash.Hex())
	}
	return receipt, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number *big.Int
	if err := c.client.CallCtx(ctx, eth.BlockNumber().Returns(&number)); err != nil {
		return 0, fmt.Errorf("get block number: %w", err)
	}
	if number == nil {
		return 0, errors.New("get block number: empty response")
	}
	return number.Uint64(), nil
}

func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	var code []byte
	if err := c.client.CallCtx(ctx, eth.Code(account, nil).Returns(&code)); err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	return code, nil
}

// Package testutil provides an in-process JSON-RPC node for deployment tests.
package testutil

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

const ChainID = 31337

// Node answers the eth_ methods a deployer needs and mines every accepted
// transaction into its own block. Contract creations get code at the
// CREATE address.
type Node struct {
	eth    *ethService
	server *rpc.Server
}

func NewNode(t testing.TB) *Node {
	t.Helper()
	svc := &ethService{
		chainID:  ChainID,
		head:     1,
		nonces:   map[common.Address]uint64{},
		receipts: map[common.Hash]*types.Receipt{},
		code:     map[common.Address][]byte{},
	}
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	t.Cleanup(server.Stop)
	return &Node{eth: svc, server: server}
}

func (n *Node) DialInProc() *rpc.Client {
	return rpc.DialInProc(n.server)
}

// URL serves the node over HTTP for the lifetime of the test.
func (n *Node) URL(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(n.server)
	t.Cleanup(srv.Close)
	return srv.URL
}

func (n *Node) SetNonce(account common.Address, nonce uint64) {
	n.eth.mu.Lock()
	defer n.eth.mu.Unlock()
	n.eth.nonces[account] = nonce
}

// Reject makes every following eth_sendRawTransaction fail with err.
func (n *Node) Reject(err error) {
	n.eth.mu.Lock()
	defer n.eth.mu.Unlock()
	n.eth.reject = err
}

// Sent returns the number of accepted transactions.
func (n *Node) Sent() int {
	n.eth.mu.Lock()
	defer n.eth.mu.Unlock()
	return len(n.eth.receipts)
}

type ethService struct {
	mu       sync.Mutex
	chainID  uint64
	head     uint64
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	code     map[common.Address][]byte
	reject   error
}

func (s *ethService) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(s.chainID)
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hexutil.Uint64(s.head)
}

func (s *ethService) GetTransactionCount(account common.Address, _ *json.RawMessage) hexutil.Uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hexutil.Uint64(s.nonces[account])
}

func (s *ethService) GetCode(account common.Address, _ *json.RawMessage) hexutil.Bytes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code[account]
}

func (s *ethService) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject != nil {
		return common.Hash{}, s.reject
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	from, err := types.Sender(types.LatestSignerForChainID(new(big.Int).SetUint64(s.chainID)), tx)
	if err != nil {
		return common.Hash{}, err
	}
	if tx.Nonce() != s.nonces[from] {
		return common.Hash{}, errors.New("nonce too low")
	}
	s.nonces[from]++
	s.head++

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 90_000,
		Logs:              []*types.Log{},
		TxHash:            tx.Hash(),
		GasUsed:           90_000,
		BlockNumber:       new(big.Int).SetUint64(s.head),
	}
	if tx.To() == nil {
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
		s.code[receipt.ContractAddress] = []byte{0x60, 0x80}
	}
	s.receipts[tx.Hash()] = receipt
	return tx.Hash(), nil
}

func (s *ethService) GetTransactionReceipt(txHash common.Hash) *types.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipts[txHash]
}

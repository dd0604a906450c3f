package publish

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/cosmo-local-credit/market-deploy/publish/artifact"
)

const (
	DefaultGasLimit  uint64 = 3_000_000
	DefaultGasFeeCap int64  = 2_000_000_000
	DefaultGasTipCap int64  = 1_000_000_000
)

type (
	Backend interface {
		ChainID(ctx context.Context) (*big.Int, error)
		NonceAt(ctx context.Context, account common.Address) (uint64, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
		// TransactionReceipt returns an error while the transaction is pending.
		TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
		BlockNumber(ctx context.Context) (uint64, error)
		CodeAt(ctx context.Context, account common.Address) ([]byte, error)
	}

	ArtifactSource interface {
		Artifact(name string) (*artifact.Artifact, error)
	}

	Request struct {
		contract string
		args     []any
	}

	DeployResult struct {
		TxHash          common.Hash
		ContractAddress common.Address
		BlockNumber     uint64
		GasUsed         uint64
	}

	Config struct {
		// ChainID is queried from the backend when nil or zero.
		ChainID   *big.Int
		GasLimit  uint64
		GasFeeCap *big.Int
		GasTipCap *big.Int
		Wait      WaitPolicy
		Logger    log.Logger
	}

	Deployer struct {
		backend   Backend
		artifacts ArtifactSource
		key       *ecdsa.PrivateKey
		address   common.Address
		chainID   *big.Int
		gasLimit  uint64
		gasFeeCap *big.Int
		gasTipCap *big.Int
		wait      WaitPolicy
		log       log.Logger
	}
)

func NewRequest(contract string, args ...any) (Request, error) {
	contract = strings.TrimSpace(contract)
	if contract == "" {
		return Request{}, errors.New("contract name is required")
	}
	return Request{contract: contract, args: slices.Clone(args)}, nil
}

func (r Request) Contract() string { return r.contract }
func (r Request) Args() []any      { return slices.Clone(r.args) }

func NewDeployer(backend Backend, artifacts ArtifactSource, key *ecdsa.PrivateKey, cfg Config) *Deployer {
	d := &Deployer{
		backend:   backend,
		artifacts: artifacts,
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:   cfg.ChainID,
		gasLimit:  cfg.GasLimit,
		gasFeeCap: cfg.GasFeeCap,
		gasTipCap: cfg.GasTipCap,
		wait:      cfg.Wait.withDefaults(),
		log:       cfg.Logger,
	}
	if d.gasLimit == 0 {
		d.gasLimit = DefaultGasLimit
	}
	if d.gasFeeCap == nil {
		d.gasFeeCap = big.NewInt(DefaultGasFeeCap)
	}
	if d.gasTipCap == nil {
		d.gasTipCap = big.NewInt(DefaultGasTipCap)
	}
	if d.log == nil {
		d.log = log.Root()
	}
	return d
}

func (d *Deployer) Address() common.Address {
	return d.address
}

func (d *Deployer) Deploy(ctx context.Context, req Request) (DeployResult, error) {
	if req.contract == "" {
		return DeployResult{}, fmt.Errorf("%w: empty contract name", ErrArtifactNotFound)
	}
	a, err := d.artifacts.Artifact(req.contract)
	if err != nil {
		return DeployResult{}, fmt.Errorf("%w: %w", ErrArtifactNotFound, err)
	}
	data, err := EncodeDeployment(a, req.args)
	if err != nil {
		return DeployResult{}, err
	}

	lg := d.log.New("contract", a.Name)
	lg.Info("Deploying contract", "source", a.SourceName, "args", len(req.args), "deployer", d.address)

	result, err := d.submit(ctx, data)
	if err != nil {
		lg.Error("Deployment failed", "err", err)
		return DeployResult{}, err
	}
	lg.Info("Deployment submitted", "tx", result.TxHash, "address", result.ContractAddress)

	result, err = d.confirm(ctx, result)
	if err != nil {
		lg.Error("Deployment failed", "tx", result.TxHash, "err", err)
		return DeployResult{}, err
	}
	lg.Info("Contract deployed", "address", result.ContractAddress, "tx", result.TxHash, "block", result.BlockNumber, "gas", result.GasUsed)
	return result, nil
}

func (d *Deployer) getChainID(ctx context.Context) (*big.Int, error) {
	if d.chainID != nil && d.chainID.Sign() > 0 {
		return d.chainID, nil
	}
	id, err := d.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	d.chainID = id
	return id, nil
}

func (d *Deployer) sendTx(ctx context.Context, chainID *big.Int, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, types.NewLondonSigner(chainID), d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := d.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, err
	}
	return signedTx.Hash(), nil
}

func (d *Deployer) submit(ctx context.Context, data []byte) (DeployResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.wait.Timeout)
	defer cancel()

	chainID, err := d.getChainID(ctx)
	if err != nil {
		return DeployResult{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	nonce, err := d.backend.NonceAt(ctx, d.address)
	if err != nil {
		return DeployResult{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	//  EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       d.gasLimit,
		Data:      data,
	})

	txHash, err := d.sendTx(ctx, chainID, tx)
	if err != nil {
		return DeployResult{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	return DeployResult{
		TxHash:          txHash,
		ContractAddress: crypto.CreateAddress(d.address, nonce),
	}, nil
}

func (d *Deployer) confirm(ctx context.Context, submitted DeployResult) (DeployResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.wait.Timeout)
	defer cancel()

	receipt, err := d.WaitForReceipt(ctx, submitted.TxHash)
	if err != nil {
		return submitted, waitErr(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return submitted, fmt.Errorf("%w: tx %s", ErrDeploymentReverted, submitted.TxHash.Hex())
	}

	result := submitted
	if receipt.ContractAddress != (common.Address{}) {
		result.ContractAddress = receipt.ContractAddress
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	result.GasUsed = receipt.GasUsed

	if err := d.waitConfirmations(ctx, result.BlockNumber); err != nil {
		return result, waitErr(err)
	}

	code, err := d.backend.CodeAt(ctx, result.ContractAddress)
	if err != nil {
		return result, waitErr(err)
	}
	if len(code) == 0 {
		return result, fmt.Errorf("%w: no code at %s", ErrDeploymentReverted, result.ContractAddress.Hex())
	}
	return result, nil
}

func waitErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrConfirmationTimeout, err)
	}
	return err
}

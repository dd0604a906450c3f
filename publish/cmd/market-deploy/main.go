package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	cli "github.com/urfave/cli/v2"

	"github.com/cosmo-local-credit/market-deploy/publish"
	"github.com/cosmo-local-credit/market-deploy/publish/artifact"
)

const description = `Every flag can be set through its environment variable, so with the
environment populated the tool runs without arguments.`

type report struct {
	Contract    string `json:"contract"`
	Address     string `json:"address"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := &cli.App{
		Name:        "market-deploy",
		Usage:       "Deploys a compiled contract and prints its address",
		Description: description,
		Flags:       flags,
		Writer:      stdout,
		ErrWriter:   stderr,
		Action: func(c *cli.Context) error {
			return deploy(c, stdout, stderr)
		},
		// a string argument may itself contain commas
		DisableSliceFlagSeparator: true,
	}
	if err := app.RunContext(ctx, args); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func deploy(c *cli.Context, stdout, stderr io.Writer) error {
	logger, err := newLogger(stderr, c.String(logLevelFlag.Name), c.String(logFormatFlag.Name))
	if err != nil {
		return err
	}

	if c.String(privateKeyFlag.Name) == "" {
		return errors.New("private-key is required")
	}
	key, deployerAddr, err := parsePrivateKey(c.String(privateKeyFlag.Name))
	if err != nil {
		return err
	}
	if v := c.String(publicAddressFlag.Name); v != "" {
		pub, err := parseAddress(v)
		if err != nil {
			return err
		}
		if pub != deployerAddr {
			return fmt.Errorf("public-address %s does not match private key address %s", pub.Hex(), deployerAddr.Hex())
		}
	}

	values := c.StringSlice(argFlag.Name)
	if len(values) == 0 {
		if values, err = splitArgs(c.String(argsFlag.Name)); err != nil {
			return err
		}
	}
	req, err := publish.NewRequest(c.String(contractFlag.Name), constructorArgs(values)...)
	if err != nil {
		return err
	}

	client, err := publish.Dial(c.String(rpcURLFlag.Name))
	if err != nil {
		return err
	}
	defer client.Close()

	var chainID *big.Int
	if id := c.Uint64(chainIDFlag.Name); id != 0 {
		chainID = new(big.Int).SetUint64(id)
	}
	d := publish.NewDeployer(client, artifact.NewDir(c.String(artifactsFlag.Name)), key, publish.Config{
		ChainID:   chainID,
		GasLimit:  c.Uint64(gasLimitFlag.Name),
		GasFeeCap: big.NewInt(c.Int64(gasFeeCapFlag.Name)),
		GasTipCap: big.NewInt(c.Int64(gasTipCapFlag.Name)),
		Wait: publish.WaitPolicy{
			PollInterval:  c.Duration(pollIntervalFlag.Name),
			Timeout:       time.Duration(c.Int(timeoutSecondsFlag.Name)) * time.Second,
			Confirmations: c.Uint64(confirmationsFlag.Name),
		},
		Logger: logger,
	})

	result, err := d.Deploy(c.Context, req)
	if err != nil {
		return err
	}

	blob, err := json.MarshalIndent(report{
		Contract:    req.Contract(),
		Address:     result.ContractAddress.Hex(),
		TxHash:      result.TxHash.Hex(),
		BlockNumber: result.BlockNumber,
		GasUsed:     result.GasUsed,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(blob))
	return nil
}

// constructorArgs keeps the textual form; the deployer coerces each value
// against the constructor ABI.
func constructorArgs(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

// splitArgs reads the list form of the constructor arguments. A JSON array
// is taken as is, anything else is split on commas.
func splitArgs(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "[") {
		var values []string
		if err := json.Unmarshal([]byte(v), &values); err != nil {
			return nil, fmt.Errorf("args: %w", err)
		}
		return values, nil
	}
	return strings.Split(v, ","), nil
}

func parsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func parseAddress(v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid address: %s", v)
	}
	return common.HexToAddress(v), nil
}

func newLogger(w io.Writer, level, format string) (log.Logger, error) {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	switch strings.ToLower(format) {
	case "", "terminal":
		return log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, false)), nil
	case "logfmt":
		return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl)), nil
	case "json":
		return log.NewLogger(log.JSONHandlerWithLevel(w, lvl)), nil
	default:
		return nil, fmt.Errorf("log-format must be terminal|logfmt|json, got %q", format)
	}
}

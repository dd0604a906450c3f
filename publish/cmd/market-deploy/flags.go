package main

import (
	"time"

	cli "github.com/urfave/cli/v2"

	"github.com/cosmo-local-credit/market-deploy/publish"
)

var (
	contractFlag = &cli.StringFlag{
		Name:    "contract",
		Usage:   "contract name or fully qualified path/File.sol:Name",
		EnvVars: []string{"CONTRACT"},
		Value:   "Market",
	}
	argFlag = &cli.StringSliceFlag{
		Name:  "arg",
		Usage: "constructor argument, repeated in order",
	}
	argsFlag = &cli.StringFlag{
		Name:    "args",
		Usage:   "constructor arguments as a comma-separated list or a JSON array of strings, ignored when --arg is given",
		EnvVars: []string{"CONSTRUCTOR_ARGS"},
	}
	artifactsFlag = &cli.StringFlag{
		Name:    "artifacts",
		Usage:   "Hardhat artifacts or Foundry out directory",
		EnvVars: []string{"ARTIFACTS_DIR"},
		Value:   "artifacts",
	}
	rpcURLFlag = &cli.StringFlag{
		Name:    "rpc-url",
		Usage:   "RPC URL",
		EnvVars: []string{"RPC_URL"},
		Value:   "http://127.0.0.1:8545",
	}
	chainIDFlag = &cli.Uint64Flag{
		Name:    "chain-id",
		Usage:   "chain id (0 asks the node)",
		EnvVars: []string{"CHAIN_ID"},
	}
	privateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "private key hex",
		EnvVars: []string{"PRIVATE_KEY"},
	}
	publicAddressFlag = &cli.StringFlag{
		Name:    "public-address",
		Usage:   "public address for validation",
		EnvVars: []string{"PUBLIC_ADDRESS"},
	}
	gasLimitFlag = &cli.Uint64Flag{
		Name:    "gas-limit",
		Usage:   "deployment gas limit",
		EnvVars: []string{"GAS_LIMIT"},
		Value:   publish.DefaultGasLimit,
	}
	gasFeeCapFlag = &cli.Int64Flag{
		Name:    "gas-fee-cap",
		Usage:   "EIP-1559 fee cap",
		EnvVars: []string{"GAS_FEE_CAP"},
		Value:   publish.DefaultGasFeeCap,
	}
	gasTipCapFlag = &cli.Int64Flag{
		Name:    "gas-tip-cap",
		Usage:   "EIP-1559 tip cap",
		EnvVars: []string{"GAS_TIP_CAP"},
		Value:   publish.DefaultGasTipCap,
	}
	timeoutSecondsFlag = &cli.IntFlag{
		Name:    "timeout-seconds",
		Usage:   "timeout in seconds for submission and for confirmation",
		EnvVars: []string{"TIMEOUT_SECONDS"},
		Value:   int(publish.DefaultWaitTimeout / time.Second),
	}
	pollIntervalFlag = &cli.DurationFlag{
		Name:    "poll-interval",
		Usage:   "receipt polling interval",
		EnvVars: []string{"POLL_INTERVAL"},
		Value:   publish.DefaultPollInterval,
	}
	confirmationsFlag = &cli.Uint64Flag{
		Name:    "confirmations",
		Usage:   "blocks to wait for, counting the inclusion block",
		EnvVars: []string{"CONFIRMATIONS"},
		Value:   1,
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "trace|debug|info|warn|error|crit",
		EnvVars: []string{"LOG_LEVEL"},
		Value:   "info",
	}
	logFormatFlag = &cli.StringFlag{
		Name:    "log-format",
		Usage:   "terminal|logfmt|json",
		EnvVars: []string{"LOG_FORMAT"},
		Value:   "terminal",
	}
)

var flags = []cli.Flag{
	contractFlag,
	argFlag,
	argsFlag,
	artifactsFlag,
	rpcURLFlag,
	chainIDFlag,
	privateKeyFlag,
	publicAddressFlag,
	gasLimitFlag,
	gasFeeCapFlag,
	gasTipCapFlag,
	timeoutSecondsFlag,
	pollIntervalFlag,
	confirmationsFlag,
	logLevelFlag,
	logFormatFlag,
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/cosmo-local-credit/market-deploy/publish/testutil"
)

const (
	testKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testOwner  = "0x1a503f080c8ba51cc517e610f9b9b622a1596917"

	marketArtifact = `{
  "_format": "hh-sol-artifact-1",
  "contractName": "Market",
  "sourceName": "contracts/Market.sol",
  "abi": [
    {"type": "constructor", "stateMutability": "nonpayable", "inputs": [{"name": "owner", "type": "address", "internalType": "address"}]}
  ],
  "bytecode": "0x6080604052348015600f57600080fd5b50"
}`

	greeterArtifact = `{
  "_format": "hh-sol-artifact-1",
  "contractName": "Greeter",
  "sourceName": "contracts/Greeter.sol",
  "abi": [
    {"type": "constructor", "stateMutability": "nonpayable", "inputs": [{"name": "greeting", "type": "string", "internalType": "string"}]}
  ],
  "bytecode": "0x6080604052348015600f57600080fd5b50"
}`
)

func writeArtifacts(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, blob := range map[string]string{"Market": marketArtifact, "Greeter": greeterArtifact} {
		dir := filepath.Join(root, "contracts", name+".sol")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(blob), 0o644))
	}
	return root
}

type env struct {
	node      *testutil.Node
	url       string
	artifacts string
}

func newEnv(t *testing.T) env {
	node := testutil.NewNode(t)
	return env{node: node, url: node.URL(t), artifacts: writeArtifacts(t)}
}

func (e env) args(extra ...string) []string {
	args := []string{
		"market-deploy",
		"--rpc-url", e.url,
		"--artifacts", e.artifacts,
		"--private-key", testKeyHex,
		"--poll-interval", "1ms",
	}
	return append(args, extra...)
}

func runCLI(args []string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func deployerAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex[2:])
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestRunDeploysMarket(t *testing.T) {
	e := newEnv(t)
	code, stdout, stderr := runCLI(e.args("--arg", testOwner))
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stderr, "Deploying contract")
	require.Contains(t, stderr, "Contract deployed")

	var out report
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	deployer := common.HexToAddress(deployerAddress(t))
	require.Equal(t, crypto.CreateAddress(deployer, 0).Hex(), out.Address)
	require.Equal(t, "Market", out.Contract)
	require.NotEmpty(t, out.TxHash)
	require.Equal(t, uint64(2), out.BlockNumber)
}

func TestRunFromEnvironment(t *testing.T) {
	e := newEnv(t)
	t.Setenv("RPC_URL", e.url)
	t.Setenv("ARTIFACTS_DIR", e.artifacts)
	t.Setenv("PRIVATE_KEY", testKeyHex)
	t.Setenv("PUBLIC_ADDRESS", deployerAddress(t))
	t.Setenv("CONSTRUCTOR_ARGS", testOwner)
	t.Setenv("POLL_INTERVAL", "1ms")
	t.Setenv("LOG_FORMAT", "json")

	code, stdout, stderr := runCLI([]string{"market-deploy"})
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, `"contract": "Market"`)
	require.Contains(t, stderr, `"msg":"Contract deployed"`)
}

func TestRunStringArgumentWithComma(t *testing.T) {
	e := newEnv(t)
	code, stdout, stderr := runCLI(e.args("--contract", "Greeter", "--arg", "hello, world"))
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, `"contract": "Greeter"`)
	require.Equal(t, 1, e.node.Sent())
}

func TestRunArgsFromEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		contract string
		env      string
		wantCode int
	}{
		{"json array keeps commas", "Greeter", `["hello, world"]`, 0},
		{"plain value", "Greeter", "hello", 0},
		{"comma list splits", "Greeter", "hello, world", 1},
		{"address", "Market", testOwner, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newEnv(t)
			t.Setenv("CONSTRUCTOR_ARGS", test.env)
			code, _, stderr := runCLI(e.args("--contract", test.contract))
			require.Equal(t, test.wantCode, code, stderr)
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{`["a, b", "c"]`, []string{"a, b", "c"}},
	}
	for _, test := range tests {
		got, err := splitArgs(test.in)
		require.NoError(t, err, test.in)
		require.Equal(t, test.want, got, test.in)
	}

	_, err := splitArgs(`["a",`)
	require.Error(t, err)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name    string
		extra   []string
		reject  error
		wantErr string
	}{
		{"unknown contract", []string{"--contract", "Exchange", "--arg", testOwner}, nil, "artifact not found"},
		{"missing constructor argument", nil, nil, "constructor argument mismatch"},
		{"malformed constructor argument", []string{"--arg", "0x1a50"}, nil, "constructor argument mismatch"},
		{"rejected by node", []string{"--arg", testOwner}, errors.New("insufficient funds"), "submission failed"},
		{"public address mismatch", []string{"--arg", testOwner, "--public-address", testOwner}, nil, "does not match private key"},
		{"bad log format", []string{"--arg", testOwner, "--log-format", "xml"}, nil, "log-format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newEnv(t)
			if test.reject != nil {
				e.node.Reject(test.reject)
			}
			code, stdout, stderr := runCLI(e.args(test.extra...))
			require.Equal(t, 1, code)
			require.Empty(t, stdout)
			require.Contains(t, stderr, "error: ")
			require.Contains(t, stderr, test.wantErr)
			require.Zero(t, e.node.Sent())
		})
	}
}

func TestRunRequiresPrivateKey(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := runCLI([]string{"market-deploy", "--rpc-url", e.url, "--artifacts", e.artifacts})
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "private-key is required")
}

func TestRunUsageError(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := runCLI(e.args("--owner", testOwner))
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "flag provided but not defined")
}

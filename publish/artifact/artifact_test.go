package artifact_test

import (
	"testing"
	"testing/fstest"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/cosmo-local-credit/market-deploy/publish/artifact"
)

func TestDirHardhat(t *testing.T) {
	dir := artifact.NewDir("testdata/artifacts")

	a, err := dir.Artifact("Market")
	require.NoError(t, err)
	require.Equal(t, "Market", a.Name)
	require.Equal(t, "contracts/Market.sol", a.SourceName)
	require.Equal(t, hexutil.MustDecode("0x6080604052348015600f57600080fd5b50"), a.Bytecode)
	require.Len(t, a.ABI.Constructor.Inputs, 1)
	require.Equal(t, "address", a.ABI.Constructor.Inputs[0].Type.String())
	require.Contains(t, a.ABI.Methods, "owner")
}

func TestDirFoundry(t *testing.T) {
	a, err := artifact.NewDir("testdata/out").Artifact("Market")
	require.NoError(t, err)
	require.Equal(t, "Market", a.Name)
	require.Equal(t, "Market.sol", a.SourceName)
	require.NotEmpty(t, a.Bytecode)
	require.Len(t, a.ABI.Constructor.Inputs, 1)
}

func TestDirErrors(t *testing.T) {
	dir := artifact.NewDir("testdata/artifacts")
	tests := []struct {
		name     string
		contract string
		want     error
	}{
		{"unknown contract", "Exchange", artifact.ErrNotFound},
		{"empty name", "  ", artifact.ErrNotFound},
		{"interface has no bytecode", "IMarket", artifact.ErrNoBytecode},
		{"library placeholders", "Linked", artifact.ErrUnlinked},
		{"same name in two sources", "Token", artifact.ErrAmbiguous},
		{"qualified name with wrong source", "contracts/Other.sol:Market", artifact.ErrNotFound},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := dir.Artifact(test.contract)
			require.ErrorIs(t, err, test.want)
		})
	}
}

func TestDirQualifiedName(t *testing.T) {
	a, err := artifact.NewDir("testdata/artifacts").Artifact("contracts/b/Token.sol:Token")
	require.NoError(t, err)
	require.Equal(t, "contracts/b/Token.sol", a.SourceName)
	require.Len(t, a.ABI.Constructor.Inputs, 2)
}

func TestDirMissingRoot(t *testing.T) {
	_, err := artifact.NewDir("testdata/does-not-exist").Artifact("Market")
	require.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestNewFS(t *testing.T) {
	fsys := fstest.MapFS{
		"Vault.sol/Vault.json": &fstest.MapFile{Data: []byte(`{"abi": [], "bytecode": "0x6001"}`)},
	}
	a, err := artifact.NewFS(fsys).Artifact("Vault")
	require.NoError(t, err)
	require.Equal(t, "Vault", a.Name)
	require.Equal(t, []byte{0x60, 0x01}, a.Bytecode)
}

func TestParse(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := artifact.Parse([]byte(`{`))
		require.Error(t, err)
	})
	t.Run("missing abi", func(t *testing.T) {
		_, err := artifact.Parse([]byte(`{"bytecode": "0x6001"}`))
		require.Error(t, err)
	})
	t.Run("odd length bytecode", func(t *testing.T) {
		_, err := artifact.Parse([]byte(`{"abi": [], "bytecode": "0x600"}`))
		require.Error(t, err)
	})
	t.Run("null bytecode", func(t *testing.T) {
		_, err := artifact.Parse([]byte(`{"abi": [], "bytecode": null}`))
		require.ErrorIs(t, err, artifact.ErrNoBytecode)
	})
}

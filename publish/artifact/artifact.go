// Package artifact resolves compiled contracts from Hardhat and Foundry
// build directories.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrNotFound   = errors.New("artifact: not found")
	ErrAmbiguous  = errors.New("artifact: ambiguous name")
	ErrNoBytecode = errors.New("artifact: no creation bytecode")
	ErrUnlinked   = errors.New("artifact: unlinked library references")
)

type Artifact struct {
	Name       string
	SourceName string
	ABI        abi.ABI
	Bytecode   []byte
}

// Dir resolves artifacts below a build output directory.
type Dir struct {
	fsys fs.FS
	root string
}

func NewDir(root string) *Dir {
	return &Dir{fsys: os.DirFS(root), root: root}
}

// NewFS resolves artifacts from fsys, typically an embed.FS shipped with
// the binary.
func NewFS(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys, root: "."}
}

func (d *Dir) Root() string { return d.root }

// Artifact loads the artifact for name. Name is either a bare contract name
// or a fully qualified "path/File.sol:Name".
func (d *Dir) Artifact(name string) (*Artifact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty contract name", ErrNotFound)
	}
	source, contract := splitQualified(name)

	paths, err := d.candidates(source, contract)
	if err != nil {
		return nil, err
	}
	switch len(paths) {
	case 0:
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, d.root)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguous, name, strings.Join(paths, ", "))
	}

	blob, err := fs.ReadFile(d.fsys, paths[0])
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", paths[0], err)
	}
	a, err := Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", paths[0], err)
	}
	if a.Name == "" {
		a.Name = contract
	}
	if a.SourceName == "" {
		a.SourceName = path.Base(path.Dir(paths[0]))
	}
	return a, nil
}

func (d *Dir) candidates(source, contract string) ([]string, error) {
	if _, err := fs.Stat(d.fsys, "."); err != nil {
		return nil, fmt.Errorf("%w: artifacts directory %s: %v", ErrNotFound, d.root, err)
	}

	var exact, loose []string
	want := contract + ".json"
	err := fs.WalkDir(d.fsys, ".", func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == "build-info" {
				return fs.SkipDir
			}
			return nil
		}
		if entry.Name() != want {
			return nil
		}
		dir := path.Dir(p)
		switch {
		case source == "" || dir == source || strings.HasSuffix(dir, "/"+source):
			exact = append(exact, p)
		case path.Base(dir) == path.Base(source):
			// Foundry keeps only the file name of the source.
			loose = append(loose, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", d.root, err)
	}
	if len(exact) == 0 {
		exact = loose
	}
	sort.Strings(exact)
	return exact, nil
}

// splitQualified splits "contracts/Market.sol:Market" into its source path
// and contract name.
func splitQualified(name string) (string, string) {
	i := strings.LastIndex(name, ":")
	if i < 0 {
		return "", name
	}
	return path.Clean(filepath.ToSlash(name[:i])), name[i+1:]
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// Parse decodes a Hardhat or Foundry artifact.
func Parse(blob []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, err
	}
	if len(raw.ABI) == 0 {
		return nil, errors.New("missing abi")
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("abi: %w", err)
	}

	code, err := bytecodeHex(raw.Bytecode)
	if err != nil {
		return nil, err
	}
	code = strings.TrimPrefix(code, "0x")
	if code == "" {
		return nil, ErrNoBytecode
	}
	if strings.Contains(code, "__") {
		return nil, ErrUnlinked
	}
	bytecode, err := hexutil.Decode("0x" + code)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}

	return &Artifact{
		Name:       raw.ContractName,
		SourceName: raw.SourceName,
		ABI:        parsed,
		Bytecode:   bytecode,
	}, nil
}

// Hardhat stores bytecode as a hex string, Foundry as {"object": "0x..."}.
func bytecodeHex(msg json.RawMessage) (string, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(msg, &obj); err != nil {
		return "", fmt.Errorf("bytecode: %w", err)
	}
	return obj.Object, nil
}

package publish

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/cosmo-local-credit/market-deploy/publish/artifact"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// EncodeDeployment returns the creation bytecode of a followed by its ABI
// encoded constructor arguments.
func EncodeDeployment(a *artifact.Artifact, args []any) ([]byte, error) {
	inputs := a.ABI.Constructor.Inputs
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("%w: %s constructor takes %d arguments, got %d", ErrArgumentMismatch, a.Name, len(inputs), len(args))
	}

	values := make([]any, len(args))
	for i, arg := range args {
		v, err := coerceArg(inputs[i].Type, arg)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d (%s %s): %v", ErrArgumentMismatch, i, inputs[i].Type, inputs[i].Name, err)
		}
		values[i] = v
	}

	packed, err := inputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgumentMismatch, err)
	}

	data := bytes.Clone(a.Bytecode)
	return append(data, packed...), nil
}

// coerceArg converts textual input to the Go type the ABI encoder expects
// for t. Values that are not strings are passed through unchanged.
func coerceArg(t abi.Type, arg any) (any, error) {
	s, ok := arg.(string)
	if !ok {
		return arg, nil
	}
	s = strings.TrimSpace(s)

	switch t.T {
	case abi.StringTy:
		return s, nil
	case abi.AddressTy:
		return parseAddress(s)
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.IntTy, abi.UintTy:
		return parseInteger(t, s)
	case abi.BytesTy:
		return hexutil.Decode(s)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("want %d bytes, got %d", t.Size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	default:
		return nil, fmt.Errorf("no text form for %s", t)
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %q", s)
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		mixed, err := common.NewMixedcaseAddressFromString(s)
		if err != nil {
			return common.Address{}, err
		}
		if !mixed.ValidChecksum() {
			return common.Address{}, fmt.Errorf("bad address checksum: %s", s)
		}
	}
	return common.HexToAddress(s), nil
}

func parseInteger(t abi.Type, s string) (any, error) {
	n := new(big.Int)
	var ok bool
	if rest, hex := strings.CutPrefix(strings.ToLower(s), "0x"); hex {
		_, ok = n.SetString(rest, 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid integer: %q", s)
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s out of range for %s", s, t)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s out of range for %s", s, t)
		}
	}

	goType := t.GetType()
	switch {
	case goType == bigIntType:
		return n, nil
	case t.T == abi.UintTy:
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	case t.T == abi.IntTy:
		return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
	}
	return nil, errors.New("unreachable integer type")
}

package publish

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultWaitTimeout  = 600 * time.Second
)

// WaitPolicy bounds how long a Deployer waits on the node. Timeout applies
// separately to submission and to confirmation. Confirmations counts the
// inclusion block, so 1 returns as soon as a receipt is available.
type WaitPolicy struct {
	PollInterval  time.Duration
	Timeout       time.Duration
	Confirmations uint64
}

func (p WaitPolicy) withDefaults() WaitPolicy {
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultWaitTimeout
	}
	if p.Confirmations == 0 {
		p.Confirmations = 1
	}
	return p
}

func (d *Deployer) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(d.wait.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := d.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		d.log.Debug("Waiting for receipt", "tx", txHash, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Deployer) waitConfirmations(ctx context.Context, included uint64) error {
	if d.wait.Confirmations <= 1 {
		return nil
	}
	depth := d.wait.Confirmations - 1

	ticker := time.NewTicker(d.wait.PollInterval)
	defer ticker.Stop()

	for {
		head, err := d.backend.BlockNumber(ctx)
		if err == nil && head >= included && head-included >= depth {
			return nil
		}
		d.log.Debug("Waiting for confirmations", "block", included, "head", head, "confirmations", d.wait.Confirmations, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

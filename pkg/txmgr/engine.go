package txmgr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	brokermetrics "github.com/artchain-labs/nft-broker/pkg/common"
)

// isTransportError reports whether the node never evaluated the payload:
// only those broadcasts are safe to retry. A JSON-RPC level rejection
// (nonce too low, underpriced, insufficient funds) is terminal for the
// payload and must never be retried.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}

// Submit broadcasts the signed transaction. Transport failures are
// retried with capped backoff; any node rejection surfaces as
// ErrSubmissionRejected and the caller must rebuild with a fresh
// nonce/gas before trying again.
func (m *Manager) Submit(ctx context.Context, signed *SignedTx) (common.Hash, error) {
	node, err := m.node()
	if err != nil {
		return common.Hash{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	var hash common.Hash

	operation := func() error {
		h, sendErr := node.SendRawTransaction(ctx, signed.Raw)
		if sendErr != nil {
			if isTransportError(sendErr) {
				m.log.WithError(sendErr).WithFields(logrus.Fields{
					"sender": signed.Sender.Hex(),
					"nonce":  signed.Nonce,
				}).Warn("Transport failure broadcasting transaction, will retry")

				return sendErr
			}

			return backoff.Permanent(sendErr)
		}

		hash = h

		return nil
	}

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, m.config.SubmitRetries), ctx))
	if err != nil {
		brokermetrics.TransactionsSubmitted.WithLabelValues(m.network(), "rejected").Inc()

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return common.Hash{}, err
		}

		return common.Hash{}, fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	brokermetrics.TransactionsSubmitted.WithLabelValues(m.network(), "accepted").Inc()

	m.log.WithFields(logrus.Fields{
		"hash":   hash.Hex(),
		"sender": signed.Sender.Hex(),
		"nonce":  signed.Nonce,
	}).Info("Transaction broadcast")

	return hash, nil
}

// Execute serializes resolve-nonce -> sign -> submit for the key's
// sender, eliminating the same-sender nonce race. The confirmation wait
// is the caller's and happens outside the sender lock. The returned
// SignedTx is the broadcast payload; its Hash() identifies the
// transaction on chain.
func (m *Manager) Execute(ctx context.Context, intent Intent, privateKey string) (*SignedTx, error) {
	sender, err := SenderOf(privateKey)
	if err != nil {
		return nil, err
	}

	unlock := m.senders.lock(sender)
	defer unlock()

	signed, err := m.BuildAndSign(ctx, intent, privateKey)
	if err != nil {
		return nil, err
	}

	if _, err := m.Submit(ctx, signed); err != nil {
		return nil, err
	}

	return signed, nil
}

// Receipt returns the receipt for hash, or nil while pending.
func (m *Manager) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	node, err := m.node()
	if err != nil {
		return nil, err
	}

	return node.TransactionReceipt(ctx, hash)
}

// AwaitConfirmation polls for the receipt until a terminal state or the
// wall-clock timeout. Terminal states are reached only once a receipt is
// observed; polling never gives up on retry count. A timeout is NOT a
// failure: the transaction may still confirm later.
func (m *Manager) AwaitConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	if timeout <= 0 {
		timeout = m.config.ConfirmationTimeout
	}

	start := time.Now()
	deadline := start.Add(timeout)

	for {
		node, err := m.node()
		if err != nil {
			return nil, err
		}

		receipt, err := node.TransactionReceipt(ctx, hash)
		if err != nil {
			// Transient RPC trouble is not a verdict on the transaction;
			// keep polling until the timeout decides.
			m.log.WithError(err).WithField("hash", hash.Hex()).Warn("Receipt poll failed")
		}

		if receipt != nil {
			brokermetrics.ConfirmationDuration.WithLabelValues(m.network()).Observe(time.Since(start).Seconds())

			if receipt.Status == types.ReceiptStatusSuccessful {
				brokermetrics.TransactionsConfirmed.WithLabelValues(m.network(), "confirmed").Inc()

				m.log.WithFields(logrus.Fields{
					"hash":  hash.Hex(),
					"block": receipt.BlockNumber,
				}).Info("Transaction confirmed")

				return receipt, nil
			}

			brokermetrics.TransactionsConfirmed.WithLabelValues(m.network(), "failed").Inc()

			return receipt, &TxFailedError{Hash: hash, Receipt: receipt}
		}

		if time.Now().After(deadline) {
			brokermetrics.TransactionsConfirmed.WithLabelValues(m.network(), "timeout").Inc()

			return nil, ErrConfirmationTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.config.PollInterval):
		}
	}
}

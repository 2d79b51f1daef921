// Package txmgr owns the transaction lifecycle: gas estimation, nonce
// assignment, signing, broadcast and confirmation polling.
package txmgr

import (
	"github.com/sirupsen/logrus"

	"github.com/artchain-labs/nft-broker/pkg/ethereum"
)

type Manager struct {
	log     logrus.FieldLogger
	config  *Config
	nodes   NodeSource
	senders *senderLocks
}

func NewManager(log logrus.FieldLogger, config *Config, nodes NodeSource) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Manager{
		log:     log.WithField("component", "txmgr"),
		config:  config,
		nodes:   nodes,
		senders: newSenderLocks(),
	}, nil
}

// node returns a healthy node or fails fast when not connected.
func (m *Manager) node() (ethereum.Node, error) {
	node := m.nodes.GetHealthyNode()
	if node == nil {
		return nil, ethereum.ErrNotConnected
	}

	return node, nil
}

func (m *Manager) network() string {
	return m.nodes.Network().Name
}

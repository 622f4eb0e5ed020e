package revshare

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/store"
)

var (
	bucketParams  = []byte("revshare_params")
	bucketShares  = []byte("revshare_shares")
	bucketPayouts = []byte("revshare_payouts")
	bucketAgentTo = []byte("revshare_agent_totals")

	keyParams = []byte("params")
)

func loadParams(tx store.Tx) (Params, error) {
	data := tx.Get(bucketParams, keyParams)
	if data == nil {
		return Params{}, ErrNotInitialized
	}
	return DeserializeParams(data)
}

func saveParams(tx store.Tx, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return tx.Put(bucketParams, keyParams, SerializeParams(p))
}

// shareConfigTx returns agent's explicit config, or the defaults with
// IsSet false.
func shareConfigTx(tx store.Tx, agent account.Address, defaults ShareConfig) (ShareConfig, error) {
	data := tx.Get(bucketShares, agent[:])
	if data == nil {
		cfg := defaults
		cfg.IsSet = false
		cfg.BundleID = 0
		return cfg, nil
	}
	return DeserializeShareConfig(data)
}

func putShareConfig(tx store.Tx, agent account.Address, cfg ShareConfig) error {
	cfg.IsSet = true
	return tx.Put(bucketShares, agent[:], SerializeShareConfig(cfg))
}

func payoutKey(deploymentID uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, deploymentID)
	return k
}

func loadPayout(tx store.Tx, deploymentID uint64) (*DeploymentPayout, error) {
	data := tx.Get(bucketPayouts, payoutKey(deploymentID))
	if data == nil {
		return nil, fmt.Errorf("%w: deployment %d", ErrPayoutNotFound, deploymentID)
	}
	return DeserializePayout(data)
}

// recordPayout writes p exactly once per deployment.
func recordPayout(tx store.Tx, p *DeploymentPayout) error {
	k := payoutKey(p.DeploymentID)
	if tx.Get(bucketPayouts, k) != nil {
		return fmt.Errorf("%w: deployment %d", ErrPayoutRecorded, p.DeploymentID)
	}
	return tx.Put(bucketPayouts, k, SerializePayout(p))
}

func agentTotalKey(agent account.Address, cur account.Currency) []byte {
	k := make([]byte, 0, 1+account.AddressSize)
	k = append(k, byte(cur))
	return append(k, agent[:]...)
}

func agentTotal(tx store.Tx, agent account.Address, cur account.Currency) (uint64, error) {
	data := tx.Get(bucketAgentTo, agentTotalKey(agent, cur))
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: agent total", ErrInvalidParams)
	}
	return binary.BigEndian.Uint64(data), nil
}

func addAgentTotal(tx store.Tx, agent account.Address, cur account.Currency, amount uint64) error {
	cur64, err := agentTotal(tx, agent, cur)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(cur64, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: agent total for %s", ErrOverflow, agent)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sum)
	return tx.Put(bucketAgentTo, agentTotalKey(agent, cur), buf)
}

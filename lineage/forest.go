package lineage

import "github.com/bitfsorg/libreceipt-go/account"

// Record is one spawn: the deployment that created Agent.
// Parent is the zero address for root agents.
type Record struct {
	ID       uint64
	Agent    account.Address
	Parent   account.Address
	Creator  account.Address
	BundleID uint64
}

// HasParent reports whether the record names a parent.
func (r Record) HasParent() bool { return !r.Parent.IsZero() }

func checkNew(agent, parent account.Address) error {
	if agent.IsZero() {
		return ErrZeroAddress
	}
	if agent == parent {
		return ErrSelfParent
	}
	return nil
}

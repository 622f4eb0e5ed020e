// Package lineage resolves an agent's receipt chain: the ordered list of
// ancestors that spawned it, nearest first.
package lineage

import (
	"context"

	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
)

// ParentSource looks up the agent that spawned a given agent.
// ok is false when the agent has no parent (a root agent or unknown agent).
type ParentSource interface {
	ParentOf(ctx context.Context, agent account.Address) (parent account.Address, ok bool, err error)
}

// ParentFunc adapts a function to ParentSource.
type ParentFunc func(ctx context.Context, agent account.Address) (account.Address, bool, error)

// ParentOf calls f.
func (f ParentFunc) ParentOf(ctx context.Context, agent account.Address) (account.Address, bool, error) {
	return f(ctx, agent)
}

// Resolver walks parent pointers with a hard hop limit.
type Resolver struct {
	source ParentSource
	logger *zap.Logger
}

// NewResolver creates a Resolver over source. A nil logger is replaced with a no-op.
func NewResolver(source ParentSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{source: source, logger: logger}
}

// ReceiptChain returns at most maxDepth ancestors of agent, nearest first.
//
// The walk stops at the first agent with no parent, at maxDepth hops, or if
// the source ever yields an address already in the chain. A lookup error ends
// the walk early with whatever was collected; the chain is never an error.
func (r *Resolver) ReceiptChain(ctx context.Context, agent account.Address, maxDepth int) []account.Address {
	if r == nil || r.source == nil || maxDepth <= 0 {
		return nil
	}
	chain := make([]account.Address, 0, maxDepth)
	seen := map[account.Address]bool{agent: true}
	cur := agent
	for len(chain) < maxDepth {
		parent, ok, err := r.source.ParentOf(ctx, cur)
		if err != nil {
			r.logger.Warn("parent lookup failed, truncating receipt chain",
				zap.String("agent", agent.String()),
				zap.Int("depth", len(chain)),
				zap.Error(err))
			break
		}
		if !ok || parent.IsZero() {
			break
		}
		if seen[parent] {
			r.logger.Error("cycle in spawn lineage",
				zap.String("agent", agent.String()),
				zap.String("repeat", parent.String()))
			break
		}
		seen[parent] = true
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

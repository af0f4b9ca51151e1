package convert

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"reblock/block"
	"reblock/fragment"
)

// Host owns the document tree conversion results are spliced into.
type Host interface {
	Blocks() []*block.Node
	GetBlock(id block.ClientID) (*block.Node, error)
	ReplaceBlocks(targets []block.ClientID, nodes []*block.Node) error
	UpdateAttributes(id block.ClientID, attrs block.Attributes) error
}

// MakeReusable converts blocks ids of the host into a fragment and replaces
// them with reference. When save is requested fragment is persisted right
// away and references are pointed to its permanent id. Persist failure is
// reported, document keeps temporary reference and save could be retried.
func (e *Engine) MakeReusable(ctx context.Context, host Host, ids []block.ClientID, title string, save bool) (*Reusable, error) {
	nodes := make([]*block.Node, 0, len(ids))
	for _, id := range ids {
		n, err := host.GetBlock(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	r, err := e.ToReusable(nodes, title)
	if err != nil {
		return nil, err
	}
	if err := host.ReplaceBlocks(ids, []*block.Node{r.Reference}); err != nil {
		return nil, fmt.Errorf("unable to replace converted blocks: %w", err)
	}
	if !save {
		return r, nil
	}

	if err := e.SaveFragment(ctx, host, r.Fragment.ID); err != nil {
		return r, err
	}
	if f, err := e.cache.Lookup(fragment.ID(r.Reference.Ref())); err == nil {
		r.Fragment = f
	}
	return r, nil
}

// SaveFragment persists fragment and points every host reference still using
// its temporary id to the permanent one.
func (e *Engine) SaveFragment(ctx context.Context, host Host, id fragment.ID) error {
	persisted, err := e.cache.Save(ctx, id)
	if err != nil {
		return err
	}
	if persisted == id {
		return nil
	}

	refs := block.References(host.Blocks(), string(id))
	for _, ref := range refs {
		if err := host.UpdateAttributes(ref, block.Attributes{block.RefAttribute: string(persisted)}); err != nil {
			return fmt.Errorf("fragment saved as %q, unable to update reference: %w", persisted, err)
		}
	}
	e.log.Debug("References updated", zap.Stringer("temporary", id), zap.Stringer("fragment", persisted), zap.Int("count", len(refs)))
	return nil
}

// MakeStatic replaces reference block of the host with static copy of the
// fragment content. Fragment is fetched when necessary, failure is reported
// and not retried.
func (e *Engine) MakeStatic(ctx context.Context, host Host, refID block.ClientID) ([]*block.Node, error) {
	ref, err := host.GetBlock(refID)
	if err != nil {
		return nil, err
	}
	if !ref.IsReference() {
		return nil, fmt.Errorf("%w: %q (%s)", ErrNotReference, refID, ref.Name)
	}
	f, err := e.cache.Fetch(ctx, fragment.ID(ref.Ref()))
	if err != nil {
		return nil, err
	}
	nodes, err := e.ToStatic(ref, f)
	if err != nil {
		return nil, err
	}
	if err := host.ReplaceBlocks([]block.ClientID{refID}, nodes); err != nil {
		return nil, fmt.Errorf("unable to replace reference: %w", err)
	}
	return nodes, nil
}

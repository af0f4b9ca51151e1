// Package convert turns static content into reusable fragments and back.
package convert

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"reblock/block"
	"reblock/fragment"
)

var (
	ErrNothingToConvert = errors.New("convert: nothing to convert")
	ErrFragmentMismatch = errors.New("convert: reference points at different fragment")
	ErrNotReference     = block.ErrNotReference
)

// Reusable is result of converting static content: the new fragment and the
// reference block which should replace converted content.
type Reusable struct {
	Fragment  *fragment.Fragment
	Reference *block.Node
}

// Engine converts content. It registers new fragments with the cache, the
// only state it touches.
type Engine struct {
	cache  *fragment.Cache
	titles *fragment.TitleFormatter
	log    *zap.Logger
}

type Option func(*Engine)

// WithTitleFormatter sets formatter used for fragments created without title.
func WithTitleFormatter(tf *fragment.TitleFormatter) Option {
	return func(e *Engine) {
		if tf != nil {
			e.titles = tf
		}
	}
}

func NewEngine(cache *fragment.Cache, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		cache: cache,
		log:   log.Named("convert"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.titles == nil {
		// default template always parses
		e.titles, _ = fragment.NewTitleFormatter("")
	}
	return e
}

// ToReusable makes fragment out of nodes. Single block becomes fragment root
// as is, several blocks are wrapped into a group. Fragment takes ownership of
// the blocks, nothing is copied, and gets a fresh temporary id. Caller is
// responsible for replacing nodes with returned reference in its tree.
func (e *Engine) ToReusable(nodes []*block.Node, title string) (*Reusable, error) {
	if len(nodes) == 0 {
		return nil, ErrNothingToConvert
	}
	if err := block.Validate(nodes); err != nil {
		return nil, fmt.Errorf("unable to convert to reusable: %w", err)
	}

	root := nodes[0]
	if len(nodes) > 1 {
		root = block.New(block.TypeGroup, nil, slices.Clone(nodes)...)
	}

	id := e.cache.NewTemporaryID()
	if title == "" {
		var err error
		if title, err = e.titles.Format(id, root); err != nil {
			e.log.Warn("Unable to produce fragment title", zap.Stringer("fragment", id), zap.Error(err))
		}
	}
	f := &fragment.Fragment{ID: id, Title: title, Content: root}

	ref := block.NewReference(string(id))
	if _, taken := block.CollectIDs([]*block.Node{root})[ref.ClientID]; taken {
		return nil, fmt.Errorf("%w: reference %q", block.ErrIdentifierCollision, ref.ClientID)
	}
	if err := e.cache.Receive(f); err != nil {
		return nil, fmt.Errorf("unable to register fragment: %w", err)
	}
	e.log.Debug("Converted to reusable",
		zap.Stringer("fragment", id), zap.String("title", title),
		zap.Int("blocks", len(nodes)), zap.Stringer("reference", ref.ClientID))
	return &Reusable{Fragment: f, Reference: ref}, nil
}

// ToStatic expands resolved fragment referenced by ref into static content.
// Group root yields clones of its children, any other root yields its clone.
// Every resulting block gets a fresh client id, fragment and reference stay
// intact.
func (e *Engine) ToStatic(ref *block.Node, f *fragment.Fragment) ([]*block.Node, error) {
	if !ref.IsReference() {
		return nil, ErrNotReference
	}
	if f == nil || f.Content == nil {
		return nil, fmt.Errorf("%w: %q", fragment.ErrNotFound, ref.Ref())
	}
	if ref.Ref() != string(f.ID) {
		return nil, fmt.Errorf("%w: %q is not %q", ErrFragmentMismatch, ref.Ref(), f.ID)
	}

	var result []*block.Node
	if f.Content.IsGroup() {
		result = block.CloneAll(f.Content.Children)
	} else {
		result = []*block.Node{f.Content.Clone()}
	}

	if err := block.Validate(result); err != nil {
		return nil, fmt.Errorf("unable to convert to static: %w", err)
	}
	if overlap := block.Overlap([]*block.Node{f.Content, ref}, result); len(overlap) > 0 {
		return nil, fmt.Errorf("%w: %q", block.ErrIdentifierCollision, overlap[0])
	}
	e.log.Debug("Converted to static", zap.Stringer("fragment", f.ID), zap.Int("blocks", len(result)))
	return result, nil
}

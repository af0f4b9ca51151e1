package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reblock/common"
	"reblock/fragment"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

// OpenFragments prepares fragment store selected by configuration, client
// side fragment cache and title formatter. Calling it again is no-op.
func (e *LocalEnv) OpenFragments(ctx context.Context) error {
	if e.Store != nil {
		return nil
	}
	if e.Cfg == nil || e.Log == nil {
		return errors.New("environment is not initialized")
	}

	titles, err := fragment.NewTitleFormatter(e.Cfg.Editor.TitleTemplate)
	if err != nil {
		return fmt.Errorf("bad configuration: %w", err)
	}

	var store fragment.Store
	switch e.Cfg.Storage.Kind {
	case common.StorageKindMemory:
		store = fragment.NewMemoryStore()
	case common.StorageKindSqlite:
		if store, err = fragment.OpenSQLite(ctx, e.Cfg.Storage.Path, e.Log); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported storage kind %s", e.Cfg.Storage.Kind)
	}
	e.Log.Debug("Fragment storage ready", zap.Stringer("kind", e.Cfg.Storage.Kind), zap.String("path", e.Cfg.Storage.Path))

	e.Store = store
	e.Titles = titles
	e.Fragments = fragment.NewCache(store, e.Log, fragment.WithTemporaryPrefix(e.Cfg.Editor.TemporaryPrefix))
	return nil
}

// CloseFragments releases fragment store.
func (e *LocalEnv) CloseFragments() error {
	if e.Store == nil {
		return nil
	}
	err := e.Store.Close()
	e.Store, e.Fragments, e.Titles = nil, nil, nil
	if err != nil {
		return fmt.Errorf("unable to close fragment storage: %w", err)
	}
	return nil
}

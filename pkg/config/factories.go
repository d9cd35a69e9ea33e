package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/exemee/Laba8-server/pkg/store"
	badgerStore "github.com/exemee/Laba8-server/pkg/store/badger"
	memoryStore "github.com/exemee/Laba8-server/pkg/store/memory"
	postgresStore "github.com/exemee/Laba8-server/pkg/store/postgres"
)

// CreateStore builds the persistence store selected by cfg.Type,
// decoding the matching option map into the implementation's own
// config struct.
func CreateStore(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "postgres":
		return createPostgresStore(ctx, cfg.Postgres)
	case "badger":
		return createBadgerStore(cfg.Badger)
	case "memory":
		return memoryStore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

func createPostgresStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg postgresStore.Config
	if err := decodeStoreOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("decode postgres store config: %w", err)
	}

	if storeCfg.Host == "" {
		return nil, fmt.Errorf("postgres store: host is required")
	}
	if storeCfg.Database == "" {
		return nil, fmt.Errorf("postgres store: database is required")
	}
	if storeCfg.Port == 0 {
		storeCfg.Port = 5432
	}

	return postgresStore.NewPostgresStore(ctx, storeCfg)
}

func createBadgerStore(options map[string]any) (store.Store, error) {
	var storeCfg badgerStore.Config
	if err := decodeStoreOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("decode badger store config: %w", err)
	}

	if storeCfg.Path == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger store: path is required")
	}

	return badgerStore.NewBadgerStore(storeCfg)
}

// decodeStoreOptions decodes a free-form option map into a typed store
// config, converting duration strings along the way.
func decodeStoreOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

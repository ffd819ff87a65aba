package cmd

import (
	"fmt"
	"strings"

	"github.com/botweaver/botweaver/pkg/persistence"
	"github.com/botweaver/botweaver/pkg/persistence/file"
	"github.com/botweaver/botweaver/pkg/persistence/memory"
	redisstore "github.com/botweaver/botweaver/pkg/persistence/redis"
)

// NewPersistence builds a store from a database URL. The scheme selects the
// backend: redis:// and memory:// are recognized, anything else is treated
// as a file store root.
func NewPersistence(databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "redis":
		store, err := redisstore.NewPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to connect to redis persistence: %w", err))
		}

		return store
	case "memory":
		return memory.NewPersistence()
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}

package core

import (
	"fmt"

	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol/packets"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
)

// Listen registers cb for neighbor key/value packets carrying key.
// Re-registering a key replaces its callback.
func (c *Core) Listen(key string, cb platform.Callback) error {
	if err := validateListenKey(key); err != nil {
		return err
	}
	c.store.InsertOrUpdateCallback(ListenPrefix+key, cb)
	return nil
}

func (c *Core) Unlisten(key string) {
	c.store.DeleteCallback(ListenPrefix + key)
}

// BroadcastKV sends (key, value) to every neighbor. Delivery is best effort.
func (c *Core) BroadcastKV(key, value string) error {
	if err := validateListenKey(key); err != nil {
		return err
	}
	c.broadcast(schema.TagNeighborKV, packets.EncodeNeighborKV(packets.NeighborKV{Key: key, Value: value}))
	return nil
}

func validateListenKey(key string) error {
	if !isValidKey(key) || schema.IsBuiltinTag(key) {
		return fmt.Errorf("%w: %q", ErrInvalidListenKey, key)
	}
	return nil
}

// isValidKey accepts lower-case alphanumerics separated by single '.', '-', or '_'.
func isValidKey(key string) bool {
	if key == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(key); i++ {
		ch := key[i]
		isLower := ch >= 'a' && ch <= 'z'
		isDigit := ch >= '0' && ch <= '9'
		isSep := ch == '.' || ch == '-' || ch == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(key)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}

// Package cache defines the key/value cache used for tool lookups.
package cache

import "time"

type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
}

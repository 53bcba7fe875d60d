// README: Redis client initialization for the route cache and session snapshots.
package infra

import "github.com/redis/go-redis/v9"

func NewRedis(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

package redisx

import (
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

const (
	// Cache for the public order lookup: order_public:{order_id} -> JSON view
	KeyPublicOrder = "order_public:%s"
)

var TTLPublicOrder = 5 * time.Minute

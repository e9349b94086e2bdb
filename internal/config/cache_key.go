package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RevokedTokenKey marks a logged-out JWT (by jti) until it would have expired.
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// AIResponseKey caches a text-generation response by prompt digest.
func (r *CacheKeyStruct) AIResponseKey(kind, digest string) string {
	return fmt.Sprintf("ai:%s:%s", kind, digest)
}

// RateLimitKey is the fixed-window counter for a limiter scope and caller.
func (r *CacheKeyStruct) RateLimitKey(scope, caller string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, caller, window)
}

var CacheKey = NewCacheKeyStruct()

package redisx

import "time"

const (
	// Persisted bearer token: session:token:{profile} -> jwt
	KeySessionToken = "session:token:%s"

	// Global catalog page cache: catalog:global:{page}:{limit}:{search}
	KeyGlobalPage = "catalog:global:%d:%d:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSessionToken = 30 * time.Minute
	TTLGlobalPage   = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)

// Package redis persists cache entries in Redis so balances survive restarts
// and can be shared between processes serving the same wallet.
package redis

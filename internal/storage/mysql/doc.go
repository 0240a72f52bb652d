// Package mysql persists cache entries in a MySQL table keyed by cache key
// with an explicit expiry column.
package mysql

// Package cache provides an LRU block cache for remote snapshot blobs.
//
// Blocks are keyed by blob name and block index. Memory is accounted against
// an optional resource.Controller so cached blocks and snapshot decoding
// share one budget.
package cache

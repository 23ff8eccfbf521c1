// Package wal implements the mutation log that makes index changes durable
// between snapshots.
//
// The log is a 12-byte header followed by checksummed records. Appends in
// DurabilitySync mode share fsyncs through a background syncer (group
// commit). Recover replays intact records and cuts off a torn tail left by
// a crash.
package wal

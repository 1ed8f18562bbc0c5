// Package metadata provides durable cache.MetadataStore implementations.
//
// SQLiteStore keeps records in a local database file and survives process
// restarts on a single host. It also stores the supported topics list.
// RedisStore keeps records in Redis so several processes can share them.
//
// Both stores make Upsert and DeleteByParent atomic per call: SQLite runs
// each as one statement, Redis as one MULTI/EXEC transaction or Lua script.
// Redis keys share one hash tag, which keeps those multi-key operations in a
// single cluster slot.
package metadata

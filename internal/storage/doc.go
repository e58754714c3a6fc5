// Package storage provides the durable state files of announcarr.
//
// ProcessedStore holds the record of every announced-or-suppressed item and
// BufferFile holds pending show groups awaiting their buffer window. Both are
// human-inspectable JSON files written with temp-then-rename semantics, and
// both fail soft on missing or corrupt data so startup is never blocked.
package storage

// Package core provides the business logic for spreadsheet record editing.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the sheetctl CLI and tests alike.
//
// # Architecture
//
//   - [Table]: ordered columns and ordered records. Enforces nothing beyond
//     one value per declared column.
//   - [RecordStore]: wraps a Table with a unique key column (CODE LOCAL by
//     default) and exposes Filter, Where, Get, Add, Update and Delete.
//   - [Persister]: writes a table to its backing file and reads it back.
//   - [Sessions]: session id to live state, one operation at a time per
//     session.
//   - [Service]: the entry point tying the above together.
//
// # Mutation protocol
//
// Every mutation follows the same steps:
//
//  1. The session's table is cloned and the RecordStore operation runs on
//     the clone.
//  2. The clone is committed to the backing file (temp file + rename, under
//     an advisory file lock).
//  3. The file is decoded again and the result becomes the session's table.
//
// If any step fails the session keeps its previous table, so what the user
// sees is always what is stored on disk.
//
// # Key rules
//
// Add rejects empty and existing keys. Update may change the key but the
// new key must be non-empty and unused. Delete of a missing key succeeds
// and removes nothing.
//
// # Error Handling
//
// Failures are typed ([DecodeError], [DuplicateKeyError],
// [KeyNotFoundError], [PersistError], ...) and mapped to user-friendly
// messages with support codes by [MapError].
package core

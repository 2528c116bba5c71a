// Package store persists normalized conversations and messages in a single
// SQLite file and keeps a full-text index over message content.
//
// Open a handle, then use its repositories:
//
//	db, err := store.Open(ctx, "unify.db")
//	defer db.Close()
//	err = db.Conversations().Create(ctx, &store.Conversation{Title: "t", Provider: "Claude"})
//	hits, err := db.Messages().Search(ctx, "hello", 10)
//
// The messages_fts index is maintained only by triggers on the messages
// table, so every insert, update and delete of a message (including cascaded
// deletes from conversations) updates the index in the same statement.
package store

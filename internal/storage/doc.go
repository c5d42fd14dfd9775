package storage

// Package storage provides the bot's optional durable state.
//
// It currently supports:
//   - Audit log appends (who changed which catalog record)
//   - Reminder markers (which event windows were already announced)

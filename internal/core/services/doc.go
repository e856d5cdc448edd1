// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexService owns the vector and lexical indexes and the embedding calls
// that feed them. IngestService, RetrieverService, ChatService and
// AdminService are built on top of it; SettingsService assembles the
// Config they are constructed from.
package services

// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel, etc.)
// - identity.go: Identity context models (User, Tenant, PlanFeature)
// - knowledge.go: Knowledge context models (Document, Chunk)
// - conversation.go: Conversation context models (Conversation, Message)
// - channel.go: Channel context models (ChannelAccount)
// - integration.go: Integration context models (CommerceAccount, CRMAccount)
// - review.go: Review context models (Review)
// - featureflag.go: Feature flag models (FeatureFlag, overrides, audit log)
// - outbox.go: Outbox pattern model for event delivery
package models

// Package integration contains the Integration bounded context.
// This context connects bots to external commerce and CRM systems.
//
// Key concepts:
//   - CommercePlatform: Port interface for commerce lookups (Shopify, WooCommerce)
//   - CRMPlatform: Port interface for lead capture (HubSpot)
//   - CommerceAccount / CRMAccount: Per-tenant credentials for a platform
//   - Intent detection: Lightweight text matching that decides when the
//     engine enriches a reply with live commerce data
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration

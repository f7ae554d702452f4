// Package channels contains the vendor connectors behind the
// channel.ChannelConnector port. Connectors are stateless: account
// credentials arrive per call, already opened by the persistence layer.
package channels

// maxResponseSize is the maximum allowed response size from a vendor API (10MB)
const maxResponseSize = 10 * 1024 * 1024

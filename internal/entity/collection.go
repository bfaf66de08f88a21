package entity

// CollectionKey names a tenant-scoped collection in the persistent store.
type CollectionKey string

const (
	CollectionLeads     CollectionKey = "adminLeads"
	CollectionUsers     CollectionKey = "adminUsers"
	CollectionSequences CollectionKey = "adminSequences"
	CollectionFollowUps CollectionKey = "adminActiveFollowUps"
	CollectionQRCodes   CollectionKey = "adminQRCodes"
)

// Resource is the remote API path segment for the collection.
func (k CollectionKey) Resource() string {
	switch k {
	case CollectionLeads:
		return "leads"
	case CollectionUsers:
		return "users"
	case CollectionSequences:
		return "sequences"
	case CollectionFollowUps:
		return "active-followups"
	case CollectionQRCodes:
		return "qr-codes"
	}
	return string(k)
}

package extractor

import "time"

// Event types published to the configured topic.
const (
	EventExtracted = "brand.extracted"
	EventConfirmed = "brand.confirmed"
)

// Event is the payload published when a brand profile is extracted or confirmed.
type Event struct {
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	Logo        string    `json:"logo"`
	BrandColor  string    `json:"brand_color"`
	Industry    string    `json:"industry,omitempty"`
	SnapshotURI string    `json:"snapshot_uri,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventType reports the event type for transport attributes.
func (e Event) EventType() string { return e.Type }

package realtime

// EventActionSummaryStatus is published whenever a document's status is written.
const EventActionSummaryStatus = "action_summary.status"

// Event is the envelope published on the realtime bus. Channel scopes the
// audience (an organization id) and Data carries the event payload.
type Event struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
}

package model

// ListEventType names a list mutation.
type ListEventType string

const (
	ListCreated     ListEventType = "list.created"
	ListRenamed     ListEventType = "list.renamed"
	ListDeleted     ListEventType = "list.deleted"
	ListItemAdded   ListEventType = "list.item_added"
	ListItemRemoved ListEventType = "list.item_removed"
)

// ListEvent is emitted after a list mutation has been persisted.
type ListEvent struct {
	Type       ListEventType `json:"type"`
	UserKey    string        `json:"user_key"`
	ListID     string        `json:"list_id"`
	AttorneyID string        `json:"attorney_id,omitempty"`
	Timestamp  string        `json:"timestamp"`
}

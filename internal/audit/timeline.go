package audit

import "time"

// TimelineFilters holds the basic filters for the activity timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one entry of the activity timeline.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Query is the repository-level filter. Limit 0 means unbounded.
type Query struct {
	OwnerID string
	From    time.Time
	To      time.Time
	Entity  string
	Action  string
	Limit   int
	Offset  int
}

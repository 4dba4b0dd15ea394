package domain

// NodeMetadata is derived display information for a node
type NodeMetadata struct {
	Connector           string `json:"connector,omitempty" yaml:"connector,omitempty"`
	Incremental         bool   `json:"incremental,omitempty" yaml:"incremental,omitempty"`
	Partitioned         bool   `json:"partitioned,omitempty" yaml:"partitioned,omitempty"`
	HasSchedule         bool   `json:"has_schedule,omitempty" yaml:"has_schedule,omitempty"`
	ScheduleDescription string `json:"schedule_description,omitempty" yaml:"schedule_description,omitempty"`
	RetryAttempts       int    `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
	IsSQLModel          bool   `json:"is_sql_model,omitempty" yaml:"is_sql_model,omitempty"`
	Theme               string `json:"theme,omitempty" yaml:"theme,omitempty"`
	AlertCount          int    `json:"alert_count,omitempty" yaml:"alert_count,omitempty"`
	APICount            int    `json:"api_count,omitempty" yaml:"api_count,omitempty"`
}

// Node is one visible resource in the graph
type Node struct {
	ID       string       `json:"id" yaml:"id"`
	Kind     ResourceKind `json:"kind" yaml:"kind"` // display kind, after coercion
	Label    string       `json:"label" yaml:"label"`
	Width    float64      `json:"width" yaml:"width"`
	Height   float64      `json:"height" yaml:"height"`
	Position Position     `json:"position" yaml:"position"`
	Metadata NodeMetadata `json:"metadata" yaml:"metadata"`
	Resource *Resource    `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// pkg/registry/schema.go
package registry

type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity is one unit of work reachable over HTTP, as a Zeebe job, or both.
type Activity struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	TaskType    string   `json:"taskType,omitempty"`
	Endpoint    string   `json:"endpoint,omitempty"`
	Method      string   `json:"method,omitempty"`
	ErrorCodes  []string `json:"errorCodes"`
	Timeout     string   `json:"timeout,omitempty"`
	Retries     int      `json:"retries"`
	Tags        []string `json:"tags,omitempty"`
}

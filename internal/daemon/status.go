package daemon

import (
	"time"

	"mashup/internal/mashup"
)

// DependencyStatus is the JSON form of a binary check.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is the JSON form of a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// StatusPayload is served by GET /api/status.
type StatusPayload struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	Address       string             `json:"address,omitempty"`
	LockFilePath  string             `json:"lock_file_path"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	ActiveJobs    int                `json:"active_jobs"`
	MaxJobs       int                `json:"max_jobs"`
	Completed     int64              `json:"completed"`
	Failed        int64              `json:"failed"`
	Workspaces    int                `json:"workspaces"`
	Notifications bool               `json:"notifications"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Preflight     []CheckResult      `json:"preflight"`
}

// NewStatusPayload converts a Status for JSON output.
func NewStatusPayload(status Status) StatusPayload {
	payload := StatusPayload{
		Running:       status.Running,
		PID:           status.PID,
		Address:       status.Address,
		LockFilePath:  status.LockFilePath,
		ActiveJobs:    status.ActiveJobs,
		MaxJobs:       status.MaxJobs,
		Completed:     status.Completed,
		Failed:        status.Failed,
		Workspaces:    status.Workspaces,
		Notifications: status.Notifications,
		Dependencies:  make([]DependencyStatus, len(status.Dependencies)),
		Preflight:     make([]CheckResult, len(status.Preflight)),
	}
	if !status.StartedAt.IsZero() {
		started := status.StartedAt
		payload.StartedAt = &started
	}
	for i, dep := range status.Dependencies {
		payload.Dependencies[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Version:     dep.Version,
			Detail:      dep.Detail,
		}
	}
	for i, check := range status.Preflight {
		payload.Preflight[i] = CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail}
	}
	return payload
}

// FormField describes one input of the generate form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Min      int    `json:"min,omitempty"`
	Max      int    `json:"max,omitempty"`
	Default  int    `json:"default,omitempty"`
}

// FormDescription is served by GET /.
type FormDescription struct {
	Service  string      `json:"service"`
	Endpoint string      `json:"endpoint"`
	Method   string      `json:"method"`
	Fields   []FormField `json:"fields"`
}

func formDescription() FormDescription {
	return FormDescription{
		Service:  "mashup",
		Endpoint: "/generate_mashup",
		Method:   "POST",
		Fields: []FormField{
			{Name: mashup.FieldSinger, Type: "text", Required: true},
			{Name: mashup.FieldCount, Type: "integer", Required: true, Min: mashup.MinCount, Max: mashup.MaxCount},
			{Name: mashup.FieldDuration, Type: "integer", Min: mashup.MinDuration, Max: mashup.MaxDuration, Default: mashup.DefaultSeconds},
			{Name: mashup.FieldEmail, Type: "email", Required: true},
		},
	}
}

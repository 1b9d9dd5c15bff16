package domain

import "time"

// Report is a persisted maintenance report.
//
// Payload is the raw structured text produced by summarization and is kept
// verbatim. Data holds the decoded payload, or nil when it could not be
// decoded, in which case Err explains why.
type Report struct {
	ID        int64       `json:"id"`
	Payload   string      `json:"report_data"`
	CreatedAt time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Err       error       `json:"-"`
}

// Site returns the site name recorded in the payload, if any.
func (r *Report) Site() string {
	m, ok := r.Data.(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range []string{"site_name", "site", "Site"} {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

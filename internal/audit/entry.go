package audit

// AuditEntry is one line in the hash-chained JSONL audit log.
// All fields are scalars so json.Marshal output is deterministic and the
// chain hash reproducible.
type AuditEntry struct {
	Timestamp     string `json:"ts"`
	DecisionID    string `json:"decision_id"`
	Dependency    string `json:"dependency"`
	Source        string `json:"source,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ForkPath      string `json:"fork_path"`
	ForkValid     bool   `json:"fork_valid"`
	OverrideVar   string `json:"override_var"`
	OverrideValue string `json:"override_value,omitempty"`
	OverrideSet   bool   `json:"override_set"`
	Strict        bool   `json:"strict,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	Error         string `json:"error,omitempty"`
	ConfigHash    string `json:"config_hash"`
	PrevHash      string `json:"prev_hash"`
}

// Failed reports whether the entry records a refused resolution.
func (e AuditEntry) Failed() bool {
	return e.ErrorCode != "" || e.Error != ""
}

// Outcome is the source on success, otherwise the error code.
func (e AuditEntry) Outcome() string {
	if e.Failed() {
		if e.ErrorCode != "" {
			return e.ErrorCode
		}
		return "error"
	}
	return e.Source
}

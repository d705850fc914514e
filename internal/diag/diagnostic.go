package diag

import "fmt"

// Ref points at the event a diagnostic is about.
type Ref struct {
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"ts"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key,omitempty"`
}

func (r Ref) String() string {
	if r.Key != "" {
		return fmt.Sprintf("#%d@%d %s", r.Seq, r.Timestamp, r.Key)
	}
	return fmt.Sprintf("#%d@%d %s", r.Seq, r.Timestamp, r.Name)
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Ref
	Notes    []string
}

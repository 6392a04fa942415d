package fcbatch

import (
	"encoding/json"
	"fmt"
	"time"
)

// NewIssue returns a new *Issue populated with the passed parameters. The row
// context fields are filled in later by the runner before the issue is
// tracked.
func NewIssue(err error, note string, issueType IssueType, payload string) *Issue {
	return &Issue{
		Type:    issueType,
		Payload: payload,
		Note:    note,
		Created: time.Now(),
		Err:     err,
	}
}

// Issue represents an error that happened while loading one row. It is used
// by the tracker to record rows which failed at one of the steps.
type Issue struct {
	Row     int       `json:"row"`
	Label   string    `json:"label,omitempty"`
	Step    Step      `json:"step"`
	Type    IssueType `json:"type"`
	Payload string    `json:"payload,omitempty"`
	Note    string    `json:"note,omitempty"`
	Created time.Time `json:"created"`
	Err     error     `json:"-"`
}

// Error makes the Issue type implement the error interface.
func (i *Issue) Error() string {
	if d, err := json.Marshal(i); err == nil {
		return string(d)
	}
	return fmt.Sprintf("%+v", *i)
}

// Unwrap exposes the underlying error.
func (i *Issue) Unwrap() error {
	return i.Err
}

// MarshalJSON overrides the default MarshalJSON method in order to represent
// the wrapped error as its message.
func (i *Issue) MarshalJSON() ([]byte, error) {
	var errMsg string
	if i.Err != nil {
		errMsg = i.Err.Error()
	}
	type Alias Issue
	return json.Marshal(&struct {
		ErrMsg string `json:"err,omitempty"`
		*Alias
	}{
		ErrMsg: errMsg,
		Alias:  (*Alias)(i),
	})
}

// complete finishes the issue definition by setting the row context fields.
func (i *Issue) complete(row int, label string, step Step) {
	i.Row = row
	i.Label = label
	i.Step = step
}

// IssueType defines the kind of an issue within the load process. It can be
// used to logically group issues.
type IssueType string

const (
	// IssueTypeInfrastructure issues that have been caused by infrastructure malfunction.
	IssueTypeInfrastructure IssueType = "infrastructure"
	// IssueTypeDataIntegrity describes issues that have been caused by broken data.
	IssueTypeDataIntegrity IssueType = "data_integrity"
	// IssueTypePersistance describes issues that have been caused by data not being saved.
	IssueTypePersistance IssueType = "data_persistance"
	// IssueTypeParsing describes issues that have been caused by data not being parsed.
	IssueTypeParsing IssueType = "data_parsing"
)

// String converts a IssueType to string.
func (i IssueType) String() string {
	return string(i)
}

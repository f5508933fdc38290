package gdsync

import "fmt"

// Action is the outcome of reconciling one file or folder.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionUpdate
	ActionFetch
	ActionExists
	ActionFailed
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionFetch:
		return "fetch"
	case ActionExists:
		return "exists"
	case ActionFailed:
		return "failed"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Direction identifies a reconciliation pass.
type Direction string

const (
	DirectionPush Direction = "push" // local to remote
	DirectionPull Direction = "pull" // remote to local
)

// Result is the outcome for a single file or folder in a pass.
type Result struct {
	Direction Direction
	Path      string // relative to the sync root
	Kind      NodeKind
	Action    Action
	RemoteID  string
	Err       error // set only when Action is ActionFailed
}

func (r Result) String() string {
	path := r.Path
	if r.Kind == KindFolder {
		path += "/"
	}
	if r.Action == ActionFailed {
		return fmt.Sprintf("%-6s %s: %v", r.Action, path, r.Err)
	}
	return fmt.Sprintf("%-6s %s", r.Action, path)
}

// Counts tallies file results by action. Folder results are not counted.
type Counts struct {
	Created int
	Updated int
	Fetched int
	Skipped int
	Failed  int
}

// Transferred returns the number of files actually moved in either direction.
func (c Counts) Transferred() int {
	return c.Created + c.Updated + c.Fetched
}

// Reporter is notified of every result as it is produced.
type Reporter interface {
	Report(r Result)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(r Result)

func (f ReporterFunc) Report(r Result) { f(r) }

// Summary aggregates the results of one or both passes.
type Summary struct {
	Results []Result
	Counts  Counts
}

// Add records a result and updates the counts.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
	if r.Kind == KindFolder && r.Action != ActionFailed {
		return
	}
	switch r.Action {
	case ActionCreate:
		s.Counts.Created++
	case ActionUpdate:
		s.Counts.Updated++
	case ActionFetch:
		s.Counts.Fetched++
	case ActionSkip:
		s.Counts.Skipped++
	case ActionFailed:
		s.Counts.Failed++
	}
}

// Merge appends all results from other.
func (s *Summary) Merge(other *Summary) {
	for _, r := range other.Results {
		s.Add(r)
	}
}

// Failures returns the failed results.
func (s *Summary) Failures() []Result {
	var failed []Result
	for _, r := range s.Results {
		if r.Action == ActionFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

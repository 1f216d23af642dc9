package assessments

import "github.com/compliai/compliai/internal/domain/compliance"

// ReportView decorates the parsed report with display helpers.
type ReportView struct {
	*compliance.Report
	Counts  compliance.SeverityCounts `json:"counts"`
	Passing bool                      `json:"passing"`
}

// Snapshot is the externally visible session state. It is a copy; mutating
// it has no effect on the session.
type Snapshot struct {
	ID          string                  `json:"id"`
	Mode        Mode                    `json:"mode"`
	State       State                   `json:"state"`
	Regulations []compliance.Regulation `json:"regulations"`
	DocumentLen int                     `json:"document_length"`
	Report      *ReportView             `json:"report,omitempty"`
	Message     string                  `json:"message,omitempty"`
}

// snapshotOf builds a Snapshot. Caller holds sess.mu (or exclusively owns
// the session, as in Create).
func snapshotOf(sess *session) *Snapshot {
	snap := &Snapshot{
		ID:          sess.id,
		Mode:        sess.mode,
		State:       sess.state,
		Regulations: sess.selection.Regulations(),
		DocumentLen: len(sess.document),
		Message:     sess.message,
	}
	if sess.report != nil {
		snap.Report = &ReportView{
			Report:  sess.report,
			Counts:  sess.report.Counts(),
			Passing: sess.report.Passing(),
		}
	}
	return snap
}

package assessments

import (
	"context"
	"fmt"
	"strings"

	"github.com/compliai/compliai/internal/domain/compliance"
	"github.com/compliai/compliai/internal/domain/identity"
)

// Questionnaire holds the answers of the guided multi-step assessment. The
// answers are composed into one labelled document and analyzed through the
// same pipeline as a pasted document.
type Questionnaire struct {
	Regulations      []compliance.Regulation `json:"regulations"`
	DataHandling     string                  `json:"data_handling"`
	SecurityMeasures string                  `json:"security_measures"`
	VendorManagement string                  `json:"vendor_management"`
}

// Document renders the answers as the analysis subject. Empty sections are
// kept with an explicit marker so the assessment reflects missing answers.
func (q Questionnaire) Document() string {
	section := func(title, body string) string {
		body = strings.TrimSpace(body)
		if body == "" {
			body = "No information provided."
		}
		return fmt.Sprintf("## %s\n%s\n", title, body)
	}
	var b strings.Builder
	b.WriteString("# Compliance Self-Assessment\n\n")
	b.WriteString(section("Data Handling Procedures", q.DataHandling))
	b.WriteString("\n")
	b.WriteString(section("Security Measures", q.SecurityMeasures))
	b.WriteString("\n")
	b.WriteString(section("Vendor Management", q.VendorManagement))
	return b.String()
}

// SubmitQuestionnaire replaces the session's selection and document with the
// questionnaire's content and triggers an analysis.
func (s *Service) SubmitQuestionnaire(ctx context.Context, userID identity.UserID, id string, q Questionnaire) (*Snapshot, error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionClosed
	}

	sess.selection = compliance.Selection{}
	for _, reg := range q.Regulations {
		if _, err := compliance.ParseRegulation(string(reg)); err != nil {
			return nil, err
		}
		sess.selection.Toggle(reg)
	}
	sess.document = q.Document()

	if err := s.begin(ctx, sess); err != nil {
		return nil, err
	}
	return snapshotOf(sess), nil
}

package assessments

import (
	"context"
	"fmt"
	"strings"

	"github.com/compliai/compliai/internal/domain/compliance"
	"github.com/compliai/compliai/internal/domain/identity"
)

// Export serializes the current report as a plain-text document. It fails
// with ErrNoReport unless the session is in Succeeded state.
func (s *Service) Export(userID identity.UserID, id string) (filename string, body []byte, err error) {
	sess, err := s.lookup(userID, id)
	if err != nil {
		return "", nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateSucceeded || sess.report == nil {
		return "", nil, ErrNoReport
	}
	text := serializeReport(sess.report, sess.selection.Regulations())
	name := fmt.Sprintf("compliance-report-%s.txt", s.Clock.Now().UTC().Format("2006-01-02"))
	return name, []byte(text), nil
}

// Archive uploads the exported report to the artifact store and returns a
// URL for it. Available only when an object store is configured.
func (s *Service) Archive(ctx context.Context, userID identity.UserID, id string) (string, error) {
	if s.Artifacts == nil {
		return "", ErrArchiveDisabled
	}
	name, body, err := s.Export(userID, id)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s", userID, id, name)
	return s.Artifacts.Upload(ctx, key, body, "text/plain")
}

func serializeReport(report *compliance.Report, regs []compliance.Regulation) string {
	var b strings.Builder
	b.WriteString("CompliAI Compliance Report\n")
	fmt.Fprintf(&b, "Generated: %s\n", report.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Compliance Score: %d%%\n\n", report.Score)

	b.WriteString("Summary:\n")
	b.WriteString(report.Summary)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Issues Found (%d):\n", len(report.Issues))
	for _, issue := range report.Issues {
		fmt.Fprintf(&b, "\nSeverity: %s\n", strings.ToUpper(string(issue.Severity)))
		fmt.Fprintf(&b, "Description: %s\n", issue.Description)
		fmt.Fprintf(&b, "Recommendation: %s\n", issue.Recommendation)
	}

	b.WriteString("\nRegulations Checked:\n")
	codes := make([]string, 0, len(regs))
	for _, r := range regs {
		codes = append(codes, strings.ToUpper(string(r)))
	}
	b.WriteString(strings.Join(codes, ", "))
	b.WriteString("\n")
	return b.String()
}

package application

import (
	"context"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/audit"
	"github.com/autoci/autoci/internal/domain/rules"
)

// AuditService scans a repository and reports missing pipeline practices.
type AuditService struct {
	scan  *ScanService
	rules *rules.Table
}

func NewAuditService(scan *ScanService, ruleTable *rules.Table) *AuditService {
	return &AuditService{scan: scan, rules: ruleTable}
}

func (s *AuditService) Audit(ctx context.Context, projectPath string) (domain.AuditReport, error) {
	a, err := s.scan.Scan(ctx, projectPath)
	if err != nil {
		return domain.AuditReport{}, err
	}
	return audit.Audit(a, s.rules), nil
}

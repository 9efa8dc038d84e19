package audit

import (
	"fmt"
	"time"

	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// Requirement ties a compliance requirement tag to the audit actions that
// evidence it.
type Requirement struct {
	Code        string
	Description string
	Actions     []string
}

// frameworkRequirements is the per-framework requirement catalog. The
// action names match the ones the engine writes through the recorder.
var frameworkRequirements = map[Framework][]Requirement{ //nolint:gochecknoglobals
	FrameworkPCIDSS: {
		{
			Code:        "10.2.1",
			Description: "All individual user accesses to cardholder data are logged",
			Actions:     []string{"permission.check"},
		},
		{
			Code:        "10.2.2",
			Description: "All actions taken by individuals with administrative privileges are logged",
			Actions:     []string{"permission.grant", "permission.revoke", "permission.approve"},
		},
		{
			Code:        "10.2.5",
			Description: "Use of and changes to identification and authentication mechanisms are logged",
			Actions:     []string{"context.switch"},
		},
	},
	FrameworkSOC2: {
		{
			Code:        "CC6.1",
			Description: "Logical access security measures restrict access to authorized users",
			Actions:     []string{"permission.check", "context.switch"},
		},
		{
			Code:        "CC6.3",
			Description: "Access is granted, modified, and removed based on role and responsibility",
			Actions:     []string{"permission.grant", "permission.revoke", "permission.approve"},
		},
	},
	FrameworkGDPR: {
		{
			Code:        "Art.32",
			Description: "Access to personal data is controlled and verifiable",
			Actions:     []string{"permission.check"},
		},
		{
			Code:        "Art.5(2)",
			Description: "Accountability: permission changes are demonstrable",
			Actions:     []string{"permission.grant", "permission.revoke", "permission.approve"},
		},
	},
}

// passThreshold is the minimal non-failure percentage for a requirement
// to pass.
const passThreshold = 95.0

// RequirementScore is the evaluation of one requirement.
type RequirementScore struct {
	Code        string
	Description string
	// Entries is the number of audit entries evidencing the requirement.
	Entries int64
	// Failures is the number of those entries recorded as FAILURE.
	Failures int64
	// Score is the percentage of non-failure entries.
	Score float64
	// Pass is true when evidence exists and the score meets the threshold.
	Pass bool
}

// ComplianceReport aggregates audit evidence per framework requirement.
type ComplianceReport struct {
	Framework    Framework
	GeneratedAt  time.Time
	From         *time.Time
	To           *time.Time
	Requirements []RequirementScore
	OverallScore float64
	Pass         bool
}

// GenerateComplianceReport verifies the audit chains in scope and scores
// each framework requirement from the recorded evidence. A chain
// integrity violation halts the report with ErrChainIntegrityViolation;
// a report over a tampered trail would be worthless.
func (r *Recorder) GenerateComplianceReport(framework Framework, f Filter) (*ComplianceReport, error) {
	requirements, ok := frameworkRequirements[framework]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFramework, framework)
	}

	userIDs, err := r.auditedUsers()
	if err != nil {
		return nil, err
	}

	for _, userID := range userIDs {
		report, err := r.VerifyChain(userID)
		if err != nil {
			return nil, err
		}

		if !report.Valid {
			return nil, fmt.Errorf("%w: user %d diverges at sequence %d",
				ErrChainIntegrityViolation, userID, report.DivergedAtSequence)
		}
	}

	out := &ComplianceReport{
		Framework:   framework,
		GeneratedAt: r.now().UTC(),
		From:        f.From,
		To:          f.To,
	}

	var scoreSum float64

	out.Pass = true

	for _, req := range requirements {
		score, err := r.scoreRequirement(req, f)
		if err != nil {
			return nil, err
		}

		out.Requirements = append(out.Requirements, score)
		scoreSum += score.Score

		if !score.Pass {
			out.Pass = false
		}
	}

	if len(out.Requirements) > 0 {
		out.OverallScore = scoreSum / float64(len(out.Requirements))
	}

	return out, nil
}

func (r *Recorder) scoreRequirement(req Requirement, f Filter) (RequirementScore, error) {
	score := RequirementScore{Code: req.Code, Description: req.Description}

	query := r.db.Model(&models.AuditEntry{}).Where("action IN ?", req.Actions)
	query = applyFilter(query, Filter{From: f.From, To: f.To})

	if err := query.Count(&score.Entries).Error; err != nil {
		return score, fmt.Errorf("%w: count requirement evidence: %v", ErrRecordFailed, err)
	}

	failQuery := r.db.Model(&models.AuditEntry{}).
		Where("action IN ? AND result = ?", req.Actions, models.AuditResultFailure)
	failQuery = applyFilter(failQuery, Filter{From: f.From, To: f.To})

	if err := failQuery.Count(&score.Failures).Error; err != nil {
		return score, fmt.Errorf("%w: count requirement failures: %v", ErrRecordFailed, err)
	}

	// a requirement with no evidence at all cannot pass
	if score.Entries > 0 {
		score.Score = 100 * float64(score.Entries-score.Failures) / float64(score.Entries)
		score.Pass = score.Score >= passThreshold
	}

	return score, nil
}

func (r *Recorder) auditedUsers() ([]uint64, error) {
	var userIDs []uint64

	err := r.db.Model(&models.AuditEntry{}).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list audited users: %v", ErrRecordFailed, err)
	}

	return userIDs, nil
}

package projections

import (
	"context"

	"github.com/shopspring/decimal"

	"feeminton/internal/domain/member"
)

// MemberDetailsQuery carries query parameters.
type MemberDetailsQuery struct {
	MemberID  int
	GroupName string // from the page URL; the API only knows the group ID
}

// MemberDetailsResult carries the query result.
type MemberDetailsResult struct {
	Member    member.Member
	Title     string
	Gender    string
	GroupName string
	Refund    string
	Bill      string
}

// MemberDetailsDeps holds dependencies for QueryMemberDetails.
type MemberDetailsDeps struct {
	Members MemberSource
}

// QueryMemberDetails fetches one member and formats the figures for display.
// PRE: query.MemberID > 0
// POST: Missing text fields render as the placeholder
func QueryMemberDetails(ctx context.Context, query MemberDetailsQuery, deps MemberDetailsDeps) (MemberDetailsResult, error) {
	m, err := deps.Members.GetMember(ctx, query.MemberID)
	if err != nil {
		return MemberDetailsResult{}, err
	}

	groupName := query.GroupName
	if groupName == "" {
		groupName = member.Placeholder
	}
	return MemberDetailsResult{
		Member:    m,
		Title:     m.Title(),
		Gender:    m.GenderLabel(),
		GroupName: groupName,
		Refund:    formatAmount(m.CurrentMonthRefund),
		Bill:      formatAmount(m.EstimatedBillNextMonth),
	}, nil
}

// formatAmount drops trailing zeros so whole amounts read "120".
func formatAmount(d decimal.Decimal) string {
	return d.String()
}

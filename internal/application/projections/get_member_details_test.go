package projections

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"feeminton/internal/domain/group"
	"feeminton/internal/domain/member"
)

type mockMemberSource struct {
	member member.Member
	err    error
}

// GetMember returns the seeded member.
// PRE: id > 0
// POST: Returns the seeded member or error
func (m *mockMemberSource) GetMember(_ context.Context, _ int) (member.Member, error) {
	return m.member, m.err
}

type mockGroupSource struct {
	groups []group.Group
}

// GetGroups returns the seeded groups.
// PRE: none
// POST: Returns the seeded slice, possibly nil
func (m *mockGroupSource) GetGroups(_ context.Context) ([]group.Group, error) {
	return m.groups, nil
}

func TestQueryMemberDetails(t *testing.T) {
	src := &mockMemberSource{member: member.Member{
		ID:                     4,
		Nickname:               "Kim",
		GroupID:                2,
		MemberFee:              decimal.NewFromInt(120),
		CurrentMonthRefund:     decimal.NewFromInt(40),
		EstimatedBillNextMonth: decimal.RequireFromString("440.50"),
	}}

	res, err := QueryMemberDetails(context.Background(), MemberDetailsQuery{MemberID: 4}, MemberDetailsDeps{Members: src})
	if err != nil {
		t.Fatalf("QueryMemberDetails: %v", err)
	}
	if res.Title != "Member • Kim (#4)" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.Gender != member.Placeholder || res.GroupName != member.Placeholder {
		t.Errorf("missing gender/group should show placeholder, got %q / %q", res.Gender, res.GroupName)
	}
	if res.Refund != "40" || res.Bill != "440.5" {
		t.Errorf("Refund/Bill = %q / %q", res.Refund, res.Bill)
	}
}

func TestQueryMemberDetails_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := QueryMemberDetails(context.Background(), MemberDetailsQuery{MemberID: 1}, MemberDetailsDeps{Members: &mockMemberSource{err: boom}})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestQueryGroups_NilBecomesEmpty(t *testing.T) {
	res, err := QueryGroups(context.Background(), GroupsDeps{Groups: &mockGroupSource{}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Groups == nil {
		t.Error("Groups should be non-nil")
	}
}

package member_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"feeminton/internal/domain/member"
)

// TestMemberValidation tests validation of Member.
func TestMemberValidation(t *testing.T) {
	tests := []struct {
		name    string
		member  member.Member
		wantErr error
	}{
		{
			name:   "valid member",
			member: member.Member{ID: 1, Nickname: "Anna", GroupID: 2, MemberFee: decimal.NewFromInt(120), Gender: "female"},
		},
		{
			name:   "gender may be blank",
			member: member.Member{ID: 1, Nickname: "Anna", GroupID: 2},
		},
		{
			name:    "empty nickname",
			member:  member.Member{ID: 1, Nickname: "  ", GroupID: 2},
			wantErr: member.ErrEmptyNickname,
		},
		{
			name:    "no group",
			member:  member.Member{ID: 1, Nickname: "Anna"},
			wantErr: member.ErrInvalidGroupID,
		},
		{
			name:    "negative fee",
			member:  member.Member{ID: 1, Nickname: "Anna", GroupID: 2, MemberFee: decimal.NewFromInt(-1)},
			wantErr: member.ErrNegativeFee,
		},
		{
			name:    "unknown gender",
			member:  member.Member{ID: 1, Nickname: "Anna", GroupID: 2, Gender: "robot"},
			wantErr: member.ErrInvalidGender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.member.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMember_DisplayHelpers(t *testing.T) {
	m := member.Member{ID: 4, Nickname: "Anna"}
	if got := m.Title(); got != "Member • Anna (#4)" {
		t.Errorf("Title() = %q", got)
	}
	if got := m.GenderLabel(); got != member.Placeholder {
		t.Errorf("GenderLabel() = %q, want placeholder", got)
	}
	m.Gender = "female"
	if got := m.GenderLabel(); got != "female" {
		t.Errorf("GenderLabel() = %q", got)
	}
}

// TestEstimateNextMonthBill tests the fee × sessions − refund rule and its zero floor.
func TestEstimateNextMonthBill(t *testing.T) {
	tests := []struct {
		name     string
		fee      string
		sessions int
		refund   string
		want     string
	}{
		{"plain", "30", 4, "20", "100"},
		{"fractional fee", "12.5", 3, "0", "37.5"},
		{"refund exceeds bill", "30", 1, "60", "0"},
		{"no sessions", "30", 0, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := member.EstimateNextMonthBill(decimal.RequireFromString(tt.fee), tt.sessions, decimal.RequireFromString(tt.refund))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

package schedule_test

import (
	"testing"

	"feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// TestSchedule_Validate tests validation of Schedule.
func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sched   schedule.Schedule
		wantErr error
	}{
		{
			name:  "valid schedule",
			sched: schedule.Schedule{GroupID: 1, ScheduleDate: calendar.NewTimestamp(2025, 12, 20, 14, 48)},
		},
		{
			name:    "missing group",
			sched:   schedule.Schedule{ScheduleDate: calendar.NewTimestamp(2025, 12, 20, 14, 48)},
			wantErr: schedule.ErrInvalidGroupID,
		},
		{
			name:    "missing date",
			sched:   schedule.Schedule{GroupID: 1},
			wantErr: schedule.ErrMissingDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.sched.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestSchedule_SortedAttendances tests case-insensitive ordering without mutating the source.
func TestSchedule_SortedAttendances(t *testing.T) {
	s := schedule.Schedule{Attendances: []attendance.Attendance{
		{ID: 1, MemberName: "zoe"},
		{ID: 2, MemberName: "Ánh"},
		{ID: 3, MemberName: "bob"},
		{ID: 4, MemberName: "Alice"},
		{ID: 5, MemberName: "alice"},
	}}

	sorted := s.SortedAttendances()
	var got []int
	for _, a := range sorted {
		got = append(got, a.ID)
	}
	want := []int{4, 5, 2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if s.Attendances[0].ID != 1 {
		t.Error("SortedAttendances reordered the receiver")
	}
}

func TestSchedule_JoinedCountAndSetJoined(t *testing.T) {
	s := schedule.Schedule{Attendances: []attendance.Attendance{
		{ID: 1, Joined: true},
		{ID: 2, Joined: false},
		{ID: 3, Joined: true},
	}}
	if s.JoinedCount() != 2 {
		t.Errorf("JoinedCount = %d, want 2", s.JoinedCount())
	}
	if !s.SetJoined(2, true) {
		t.Fatal("SetJoined(2) should find the attendance")
	}
	if s.JoinedCount() != 3 {
		t.Errorf("JoinedCount after SetJoined = %d, want 3", s.JoinedCount())
	}
	if s.SetJoined(99, true) {
		t.Error("SetJoined(99) should report missing attendance")
	}

	clone := s.Clone()
	clone.SetJoined(1, false)
	if a, _ := s.Attendance(1); !a.Joined {
		t.Error("Clone shares attendance storage with the original")
	}
}

// TestFilterMonthAndSort tests the month filter and ascending date order.
func TestFilterMonthAndSort(t *testing.T) {
	list := []schedule.Schedule{
		{ID: 3, ScheduleDate: calendar.NewTimestamp(2025, 12, 20, 18, 0)},
		{ID: 1, ScheduleDate: calendar.NewTimestamp(2026, 1, 3, 18, 0)},
		{ID: 2, ScheduleDate: calendar.NewTimestamp(2025, 12, 6, 18, 0)},
		{ID: 4, ScheduleDate: calendar.NewTimestamp(2025, 11, 29, 18, 0)},
		{ID: 5, ScheduleDate: calendar.NewTimestamp(2025, 12, 6, 9, 0)},
	}
	got := schedule.FilterMonth(list, calendar.YearMonth{Year: 2025, Month: 12})
	schedule.SortByDate(got)

	var ids []int
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	want := []int{5, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/group"
	"feeminton/internal/domain/member"
	"feeminton/internal/domain/schedule"
)

// maxResponseBody caps how much of a response is read.
const maxResponseBody = 4 << 20

// Client issues one HTTP call per fetcher against a configured base.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client for cfg. A nil httpClient uses http.DefaultClient.
// PRE: cfg was built with NewConfig or ResolveBase
// POST: Returns a ready client
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Config returns the base this client talks to.
func (c *Client) Config() Config {
	return c.cfg
}

// do performs one call and returns the unwrapped payload, or nil for an
// empty body.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	target := c.cfg.Join(path)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &NetworkError{Op: op, URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRequestError(op, resp, raw)
	}
	return unwrapEnvelope(raw)
}

// unwrapEnvelope returns the data field of a {"data": ...} body when present
// and non-null, otherwise the whole body.
func unwrapEnvelope(raw []byte) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if data, ok := env["data"]; ok && !isNull(data) {
			return data, nil
		}
	}
	return raw, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decode[T any](op string, raw json.RawMessage) (T, error) {
	var out T
	if isNull(raw) {
		return out, fmt.Errorf("%s: empty response", op)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return out, nil
}

// GetGroups lists all groups.
// PRE: none
// POST: Returns the groups in server order
func (c *Client) GetGroups(ctx context.Context) ([]group.Group, error) {
	raw, err := c.do(ctx, "get groups", http.MethodGet, "groups", nil)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return []group.Group{}, nil
	}
	return decode[[]group.Group]("get groups", raw)
}

// GetMember fetches one member with refund and bill figures.
// PRE: id > 0
// POST: Returns the member or a RequestError/NetworkError
func (c *Client) GetMember(ctx context.Context, id int) (member.Member, error) {
	op := "get member " + strconv.Itoa(id)
	raw, err := c.do(ctx, op, http.MethodGet, "members/"+strconv.Itoa(id), nil)
	if err != nil {
		return member.Member{}, err
	}
	return decode[member.Member](op, raw)
}

// GetSchedulesForMonth lists the schedules of a month, optionally for one
// group (groupID 0 means all groups). The server may ignore the filter; the
// caller filters again.
// PRE: ym is a valid month
// POST: A body that is not a JSON array yields an empty list
func (c *Client) GetSchedulesForMonth(ctx context.Context, ym calendar.YearMonth, groupID int) ([]schedule.Schedule, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(ym.Year))
	q.Set("month", strconv.Itoa(ym.Month))
	if groupID > 0 {
		q.Set("groupId", strconv.Itoa(groupID))
	}
	op := "get schedules " + ym.Key()
	raw, err := c.do(ctx, op, http.MethodGet, "schedules?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || raw[0] != '[' {
		slog.Warn("schedules_not_a_list", "month", ym.Key(), "group_id", groupID)
		return []schedule.Schedule{}, nil
	}
	return decode[[]schedule.Schedule](op, raw)
}

// GetScheduleByID fetches one schedule with its attendances.
// PRE: id > 0
// POST: Returns the schedule or a RequestError/NetworkError
func (c *Client) GetScheduleByID(ctx context.Context, id int) (schedule.Schedule, error) {
	op := "get schedule " + strconv.Itoa(id)
	raw, err := c.do(ctx, op, http.MethodGet, "schedules/"+strconv.Itoa(id), nil)
	if err != nil {
		return schedule.Schedule{}, err
	}
	return decode[schedule.Schedule](op, raw)
}

type createScheduleBody struct {
	ScheduleDate calendar.Timestamp `json:"scheduleDate"`
	GroupID      int                `json:"groupId"`
}

// CreateSchedule posts a new schedule. The timestamp goes out naive
// ("YYYY-MM-DDTHH:MM:SS"). The server may answer with the created object
// or just its ID; both are accepted.
// PRE: groupID > 0, at is non-zero
// POST: Returned schedule has ID, GroupID and ScheduleDate set
func (c *Client) CreateSchedule(ctx context.Context, at calendar.Timestamp, groupID int) (schedule.Schedule, error) {
	const op = "create schedule"
	raw, err := c.do(ctx, op, http.MethodPost, "schedules", createScheduleBody{ScheduleDate: at, GroupID: groupID})
	if err != nil {
		return schedule.Schedule{}, err
	}

	created := schedule.Schedule{GroupID: groupID, ScheduleDate: at}
	if isNull(raw) {
		return created, nil
	}
	var id int
	if err := json.Unmarshal(raw, &id); err == nil {
		created.ID = id
		return created, nil
	}
	got, err := decode[schedule.Schedule](op, raw)
	if err != nil {
		return schedule.Schedule{}, err
	}
	if got.GroupID == 0 {
		got.GroupID = groupID
	}
	if got.ScheduleDate.IsZero() {
		got.ScheduleDate = at
	}
	return got, nil
}

type patchAttendanceBody struct {
	Joined bool `json:"joined"`
}

// PatchAttendance sets the joined flag and returns the recomputed record.
// PRE: id > 0
// POST: Result has ID == id; Joined falls back to the requested value when
// the server omits it
func (c *Client) PatchAttendance(ctx context.Context, id int, joined bool) (attendance.Attendance, error) {
	op := "update attendance " + strconv.Itoa(id)
	raw, err := c.do(ctx, op, http.MethodPatch, "attendances/"+strconv.Itoa(id), patchAttendanceBody{Joined: joined})
	if err != nil {
		return attendance.Attendance{}, err
	}

	fallback := attendance.Attendance{ID: id, Joined: joined}
	if isNull(raw) || raw[0] != '{' {
		return fallback, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return attendance.Attendance{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	got, err := decode[attendance.Attendance](op, raw)
	if err != nil {
		return attendance.Attendance{}, err
	}
	if got.ID == 0 {
		got.ID = id
	}
	if _, ok := fields["joined"]; !ok {
		got.Joined = joined
	}
	return got, nil
}

// DeleteSchedule removes a schedule and its attendances.
// PRE: id > 0
// POST: Returns nil once the server confirmed the delete
func (c *Client) DeleteSchedule(ctx context.Context, id int) error {
	op := "delete schedule " + strconv.Itoa(id)
	_, err := c.do(ctx, op, http.MethodDelete, "schedules/"+strconv.Itoa(id), nil)
	return err
}

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gridcal/internal/config"
	"gridcal/internal/ics"
	"gridcal/internal/model"
	"gridcal/internal/session"
	"gridcal/internal/store"
)

func testServer(t *testing.T, mutate func(*config.Config)) (*Server, *session.Session) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	sess := session.New(ics.NewParser(nil, time.UTC), nil, store.NewMemory())
	return NewServer(cfg, sess, time.UTC), sess
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const importBody = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//gridcal//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:holiday-1\r\nSUMMARY:假期\r\nDTSTART;VALUE=DATE:20250101\r\nDTEND;VALUE=DATE:20250103\r\nEND:VEVENT\r\n" +
	"BEGIN:VEVENT\r\nUID:meeting-1\r\nSUMMARY:Team meeting\r\nDTSTART:20250101T100000Z\r\nDTEND:20250101T110000Z\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestHealth(t *testing.T) {
	s, _ := testServer(t, nil)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestImportAndGrid(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/import", importBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var res session.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 2, res.Parsed)
	require.Equal(t, 2, res.Saved)

	rec = doJSON(t, h, http.MethodGet, "/api/grid?view=month&date=2025-01-15", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var grid struct {
		View  string `json:"view"`
		Cells []struct {
			Date           string `json:"date"`
			IsCurrentMonth bool   `json:"isCurrentMonth"`
			Events         []struct {
				UID      string `json:"uid"`
				IsAllDay bool   `json:"isAllDay"`
			} `json:"events"`
			Overflow int `json:"overflow"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	require.Equal(t, "month", grid.View)
	require.Len(t, grid.Cells, 42)

	inMonth := 0
	var jan1Events []string
	for _, c := range grid.Cells {
		if c.IsCurrentMonth {
			inMonth++
		}
		if c.Date == "2025-01-01" {
			for _, ev := range c.Events {
				jan1Events = append(jan1Events, ev.UID)
			}
		}
	}
	require.Equal(t, 31, inMonth)
	require.Equal(t, []string{"holiday-1", "meeting-1"}, jan1Events, "all-day first on Jan 1")
}

func TestImportMalformed(t *testing.T) {
	s, sess := testServer(t, nil)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/import", "not a calendar")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, sess.Events())
}

func TestGridViews(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.Handler()

	tests := []struct {
		view  string
		cells int
	}{
		{"day", 1},
		{"week", 7},
		{"month", 42},
	}
	for _, tt := range tests {
		rec := doJSON(t, h, http.MethodGet, "/api/grid?view="+tt.view+"&date=2025-01-15", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Cells []json.RawMessage `json:"cells"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Cells, tt.cells, "view %s", tt.view)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/grid?view=year&date=2025-01-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var yearResp struct {
		Months [][]json.RawMessage `json:"months"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &yearResp))
	require.Len(t, yearResp.Months, 12)
	for _, m := range yearResp.Months {
		require.Len(t, m, 42)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/grid?view=decade", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGridOverflow(t *testing.T) {
	s, sess := testServer(t, func(c *config.Config) {
		c.MaxEvents.Month = 1
	})

	for _, summary := range []string{"one", "two", "three"} {
		_, err := sess.Add(context.Background(), model.EventDraft{
			Summary: summary,
			Start:   time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC),
			End:     time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/grid?view=month&date=2025-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Cells []struct {
			Date     string            `json:"date"`
			Events   []json.RawMessage `json:"events"`
			Overflow int               `json:"overflow"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	for _, c := range resp.Cells {
		if c.Date == "2025-06-10" {
			require.Len(t, c.Events, 1, "cell truncated to the per-view maximum")
			require.Equal(t, 2, c.Overflow)
			return
		}
	}
	t.Fatal("June 10 cell not found")
}

func TestManualEntryAndDelete(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.Handler()

	body := `{
		"summary": "dentist",
		"category": "personal",
		"startDate": "2025-04-01T15:00:00Z",
		"endDate": "2025-04-01T16:00:00Z",
		"isAllDay": false,
		"location": "downtown",
		"description": ""
	}`
	rec := doJSON(t, h, http.MethodPost, "/api/events", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Event struct {
			UID string `json:"uid"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, strings.HasPrefix(created.Event.UID, "event-"))

	rec = doJSON(t, h, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Events []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Events, 1)

	rec = doJSON(t, h, http.MethodDelete, "/api/events/"+created.Event.UID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/events/no-such-uid", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualEntryValidation(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/events", `{"summary":"no dates"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/events", `{
		"summary": "backwards",
		"startDate": "2025-04-02T10:00:00Z",
		"endDate": "2025-04-01T10:00:00Z"
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectionGestures(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.Handler()

	// A plain click commits nothing.
	doJSON(t, h, http.MethodPost, "/api/selection", `{"action":"press","view":"month","date":"2025-01-05"}`)
	rec := doJSON(t, h, http.MethodPost, "/api/selection", `{"action":"release"}`)
	var resp struct {
		Committed bool   `json:"committed"`
		Start     string `json:"start"`
		End       string `json:"end"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Committed)

	// A backward drag commits the normalized range.
	doJSON(t, h, http.MethodPost, "/api/selection", `{"action":"press","view":"month","date":"2025-01-05"}`)
	doJSON(t, h, http.MethodPost, "/api/selection", `{"action":"enter","date":"2025-01-02"}`)
	rec = doJSON(t, h, http.MethodPost, "/api/selection", `{"action":"release"}`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Committed)
	require.Equal(t, "2025-01-02", resp.Start)
	require.Equal(t, "2025-01-05", resp.End)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/import", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/api/events", "{}")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := testServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "cal", Password: "secret"}
	})
	h := s.Handler()

	// /health stays open.
	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("cal", "secret")
	authed := httptest.NewRecorder()
	h.ServeHTTP(authed, req)
	require.Equal(t, http.StatusOK, authed.Code)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/team-presence/internal/service"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec), rec
}

func TestRespondErrorMapsKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&service.Error{Kind: service.ErrValidation, Message: "bad"}, http.StatusBadRequest, "validation"},
		{&service.Error{Kind: service.ErrDuplicateCheckin, Message: "dup"}, http.StatusConflict, "duplicate_checkin"},
		{&service.Error{Kind: service.ErrSelfValidation, Message: "self"}, http.StatusForbidden, "self_validation"},
		{&service.Error{Kind: service.ErrInvalidState, Message: "state"}, http.StatusConflict, "invalid_state"},
		{&service.Error{Kind: service.ErrAuthorization, Message: "no"}, http.StatusForbidden, "forbidden"},
		{&service.Error{Kind: service.ErrPersistence, Message: "db", Err: errors.New("boom")}, http.StatusInternalServerError, "persistence"},
		{errors.New("unexpected"), http.StatusInternalServerError, "persistence"},
		{echo.NewHTTPError(http.StatusUnauthorized, "unauthorized"), http.StatusUnauthorized, "unauthorized"},
		{echo.NewHTTPError(http.StatusNotFound, "user not found"), http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		c, rec := newContext("/")
		if err := respondError(c, tc.err); err != nil {
			t.Fatalf("respondError: %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["error"] != tc.code {
			t.Fatalf("%v: code = %v, want %s", tc.err, body["error"], tc.code)
		}
		if tc.status == http.StatusInternalServerError && body["message"] != "internal error" {
			t.Fatalf("internal message leaked: %v", body["message"])
		}
	}
}

func TestGetUserID(t *testing.T) {
	t.Parallel()

	for _, v := range []any{float64(5), "5", uint64(5), 5, int64(5)} {
		c, _ := newContext("/")
		c.Set("user_id", v)
		got, err := getUserID(c)
		if err != nil || got != 5 {
			t.Fatalf("getUserID(%T) = %d, %v", v, got, err)
		}
	}
	c, _ := newContext("/")
	if _, err := getUserID(c); err == nil {
		t.Fatal("expected error without user_id")
	}
}

func TestQueryInt(t *testing.T) {
	t.Parallel()

	c, _ := newContext("/?offset=-2&bad=x")
	if n, err := queryInt(c, "offset", 0); err != nil || n != -2 {
		t.Fatalf("offset = %d, %v", n, err)
	}
	if n, err := queryInt(c, "missing", 3); err != nil || n != 3 {
		t.Fatalf("missing = %d, %v", n, err)
	}
	if _, err := queryInt(c, "bad", 0); err == nil {
		t.Fatal("expected parse error")
	}
}

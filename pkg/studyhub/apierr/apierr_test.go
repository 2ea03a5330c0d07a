package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func render(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request = httptest.NewRequest("GET", "/", nil)
	Respond(c, err)
	return resp
}

func TestRespondStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{Unauthenticated(AuthenticationFailed, errors.New("expired")), http.StatusUnauthorized, AuthenticationFailed},
		{NotFound("Group not found."), http.StatusNotFound, "Group not found."},
		{Forbidden("nope"), http.StatusForbidden, "nope"},
		{Conflict("dup"), http.StatusConflict, "dup"},
		{Duplicate("dup"), http.StatusBadRequest, "dup"},
		{Validation("bad"), http.StatusUnprocessableEntity, "bad"},
		{fmt.Errorf("wrapped: %w", Forbidden("deep")), http.StatusForbidden, "deep"},
		{errors.New("database exploded"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		resp := render(tc.err)
		if resp.Code != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, resp.Code)
		}
		var body map[string]string
		json.Unmarshal(resp.Body.Bytes(), &body)
		if body["error"] != tc.msg {
			t.Errorf("%v: expected message %q, got %q", tc.err, tc.msg, body["error"])
		}
	}
}

func TestAuthenticationCauseNotRendered(t *testing.T) {
	resp := render(Unauthenticated(AuthenticationFailed, errors.New("signature is invalid")))
	if got := resp.Body.String(); got != `{"error":"Authentication failed!"}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("context: %w", NotFound("x"))
	if !Is(err, KindNotFound) {
		t.Error("Expected wrapped not-found to match")
	}
	if Is(err, KindForbidden) {
		t.Error("Did not expect forbidden to match")
	}
	if Is(errors.New("plain"), KindInternal) {
		t.Error("Plain errors are not *Error")
	}
}

func TestFromBindingSyntaxError(t *testing.T) {
	var v map[string]string
	err := json.Unmarshal([]byte("{"), &v)
	if got := FromBinding(err); got.Status != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", got.Status)
	}
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]bool{"12": true, "0": false, "-1": false, "abc": false, "99999999999": false}
	for raw, ok := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Params = gin.Params{{Key: "id", Value: raw}}
		id, err := ParamID(c, "id", "group ID")
		if ok && (err != nil || id != 12) {
			t.Errorf("%q: expected 12, got %d, %v", raw, id, err)
		}
		if !ok && !Is(err, KindValidation) {
			t.Errorf("%q: expected validation error, got %v", raw, err)
		}
	}
}

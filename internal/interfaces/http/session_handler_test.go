package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coursebay/player-session/internal/infrastructure/auth"
	"github.com/coursebay/player-session/internal/infrastructure/uuid"
	"github.com/coursebay/player-session/internal/infrastructure/validate"
	"github.com/coursebay/player-session/internal/session"
	"github.com/coursebay/player-session/internal/upstream"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type handlerFixture struct {
	app     *echo.Echo
	handler *SessionHandler
	manager *session.Manager
	jwtUtil *auth.JWTUtil
	lms     *httptest.Server
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	lms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sections"):
			fmt.Fprint(w, `[]`)
		case strings.HasSuffix(r.URL.Path, "/completed-lessons"):
			fmt.Fprint(w, `{"lesson_ids":[]}`)
		case strings.HasSuffix(r.URL.Path, "/progress"):
			fmt.Fprint(w, `{"total_lessons":0,"completed_lessons":0,"percentage":0}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(lms.Close)

	api := upstream.NewClient(lms.URL, 2*time.Second)
	manager := session.NewManager(api, nil, uuid.NewNanoIDGenerator(16), session.ManagerConfig{
		CountdownSeconds: 5,
	}, zap.NewNop())
	t.Cleanup(manager.Shutdown)

	jwtUtil := auth.NewJWTUtil("HS256", "secret", "viewer_token", time.Hour)
	return &handlerFixture{
		app:     echo.New(),
		handler: NewSessionHandler(manager, jwtUtil, validate.NewValidator()),
		manager: manager,
		jwtUtil: jwtUtil,
		lms:     lms,
	}
}

func (fx *handlerFixture) newContext(method, target, body, viewerID string) (echo.Context, *httptest.ResponseRecorder) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.AddCookie(&http.Cookie{Name: "viewer_token", Value: "raw-token"})
	rec := httptest.NewRecorder()
	c := fx.app.NewContext(req, rec)
	fx.jwtUtil.SetContextToken(c, &auth.ViewerTokenClaims{
		UID:   viewerID,
		Email: viewerID + "@example.com",
	})
	return c, rec
}

func TestHandleCreateSession(t *testing.T) {
	fx := newHandlerFixture(t)

	c, rec := fx.newContext(http.MethodPost, "/api/v1/session",
		`{"course_id":"c1","capabilities":{"media_source":true}}`, "v1")
	if err := fx.handler.HandleCreateSession(c); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var view session.ViewState
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("response does not decode: %s", err)
	}
	if view.SessionID == "" || view.CourseID != "c1" {
		t.Fatalf("unexpected view state: %+v", view)
	}
	if fx.manager.Len() != 1 {
		t.Fatalf("expected a registered session, got %d", fx.manager.Len())
	}
}

func TestHandleCreateSession_RequiresCourseID(t *testing.T) {
	fx := newHandlerFixture(t)

	c, rec := fx.newContext(http.MethodPost, "/api/v1/session", `{"capabilities":{}}`, "v1")
	if err := fx.handler.HandleCreateSession(c); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if fx.manager.Len() != 0 {
		t.Fatalf("no session must be created on a rejected request")
	}
}

func TestHandleGetState_EnforcesOwnership(t *testing.T) {
	fx := newHandlerFixture(t)

	c, rec := fx.newContext(http.MethodPost, "/api/v1/session", `{"course_id":"c1"}`, "v1")
	if err := fx.handler.HandleCreateSession(c); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	var created session.ViewState
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("response does not decode: %s", err)
	}

	owner, ownerRec := fx.newContext(http.MethodGet, "/api/v1/session/"+created.SessionID+"/state", "", "v1")
	owner.SetParamNames("id")
	owner.SetParamValues(created.SessionID)
	if err := fx.handler.HandleGetState(owner); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ownerRec.Code != http.StatusOK {
		t.Fatalf("expected 200 for the owner, got %d", ownerRec.Code)
	}

	intruder, intruderRec := fx.newContext(http.MethodGet, "/api/v1/session/"+created.SessionID+"/state", "", "v2")
	intruder.SetParamNames("id")
	intruder.SetParamValues(created.SessionID)
	if err := fx.handler.HandleGetState(intruder); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if intruderRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign viewer, got %d", intruderRec.Code)
	}
}

func TestHandleOpenLesson_RequiresLessonID(t *testing.T) {
	fx := newHandlerFixture(t)

	c, rec := fx.newContext(http.MethodPost, "/api/v1/session", `{"course_id":"c1"}`, "v1")
	if err := fx.handler.HandleCreateSession(c); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	var created session.ViewState
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("response does not decode: %s", err)
	}

	open, openRec := fx.newContext(http.MethodPost, "/api/v1/session/"+created.SessionID+"/lesson/", "", "v1")
	open.SetParamNames("id", "lessonID")
	open.SetParamValues(created.SessionID, "")
	if err := fx.handler.HandleOpenLesson(open); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if openRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing lesson id, got %d: %s", openRec.Code, openRec.Body.String())
	}
}

func TestHandleCloseSession(t *testing.T) {
	fx := newHandlerFixture(t)

	c, rec := fx.newContext(http.MethodPost, "/api/v1/session", `{"course_id":"c1"}`, "v1")
	if err := fx.handler.HandleCreateSession(c); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	var created session.ViewState
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("response does not decode: %s", err)
	}

	closeCtx, closeRec := fx.newContext(http.MethodDelete, "/api/v1/session/"+created.SessionID, "", "v1")
	closeCtx.SetParamNames("id")
	closeCtx.SetParamValues(created.SessionID)
	if err := fx.handler.HandleCloseSession(closeCtx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if closeRec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", closeRec.Code)
	}
	if fx.manager.Len() != 0 {
		t.Fatalf("expected the session removed, got %d live", fx.manager.Len())
	}
}

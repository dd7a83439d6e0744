package http

import (
	"net/http"

	"github.com/coursebay/player-session/internal/domain"
	infra "github.com/coursebay/player-session/internal/infrastructure"
	"github.com/coursebay/player-session/internal/infrastructure/auth"
	"github.com/coursebay/player-session/internal/infrastructure/validate"
	"github.com/coursebay/player-session/internal/session"
	"github.com/labstack/echo/v4"
)

// SessionHandler playback session operations
type SessionHandler struct {
	manager   *session.Manager
	jwtUtil   *auth.JWTUtil
	validator validate.Validator
}

// NewSessionHandler create a playback session controller instance
func NewSessionHandler(
	Manager *session.Manager,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *SessionHandler {
	handler := &SessionHandler{Manager, JWTUtil, Validator}
	return handler
}

// CreateSessionRequest payload to open a playback session
type CreateSessionRequest struct {
	CourseID     string                    `json:"course_id" validate:"required"`
	LessonID     string                    `json:"lesson_id"` // optional initial lesson
	Capabilities domain.PlayerCapabilities `json:"capabilities"`
}

// HandleCreateSession open a playback session for a course
func (sh *SessionHandler) HandleCreateSession(c echo.Context) (err error) {
	ju := sh.jwtUtil

	post := new(CreateSessionRequest)
	if err = c.Bind(post); err != nil {
		internal := err.(*echo.HTTPError).Internal
		return c.JSON(http.StatusUnprocessableEntity,
			infra.NewRESTStandardError(http.StatusUnprocessableEntity, "Failed to bind session request").SetDetail(internal.Error()))
	}
	if err := sh.validator.Struct(post); err != nil {
		return c.JSON(http.StatusBadRequest,
			infra.NewRESTValidationError(http.StatusBadRequest, "Failed to validate fields", err))
	}

	claims := ju.GetContextToken(c)
	tokenStr, err := ju.ExtractToken(c)
	if err != nil {
		return c.NoContent(http.StatusUnauthorized)
	}

	sess, err := sh.manager.Create(claims.Viewer(), tokenStr, post.CourseID, post.Capabilities)
	if err != nil {
		return c.JSON(http.StatusInternalServerError,
			infra.NewRESTStandardError(http.StatusInternalServerError, "Failed to create playback session").SetDetail(err.Error()))
	}

	ctx := c.Request().Context()
	if post.LessonID != "" {
		sess.OpenLesson(ctx, post.LessonID)
	}
	return c.JSON(http.StatusCreated, sess.State(ctx))
}

// HandleCloseSession tear the playback session down
func (sh *SessionHandler) HandleCloseSession(c echo.Context) error {
	claims := sh.jwtUtil.GetContextToken(c)
	if err := sh.manager.Close(c.Param("id"), claims.UID); err != nil {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetState report the session view state
func (sh *SessionHandler) HandleGetState(c echo.Context) error {
	sess, err := sh.getSession(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, err.Error()))
	}
	sess.Touch()
	return c.JSON(http.StatusOK, sess.State(c.Request().Context()))
}

// HandleOpenLesson switch the session to another lesson
func (sh *SessionHandler) HandleOpenLesson(c echo.Context) error {
	if fieldErrors := sh.validator.Empty("lesson_id", c.Param("lessonID")); fieldErrors != nil {
		return c.JSON(http.StatusBadRequest,
			infra.NewRESTValidationError(http.StatusBadRequest, "Failed to validate fields", fieldErrors))
	}
	sess, err := sh.getSession(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, err.Error()))
	}
	sess.Touch()

	ctx := c.Request().Context()
	if err := sess.OpenLesson(ctx, c.Param("lessonID")); err != nil {
		return c.JSON(http.StatusInternalServerError,
			infra.NewRESTStandardError(http.StatusInternalServerError, "Failed to open lesson").SetDetail(err.Error()))
	}
	return c.JSON(http.StatusOK, sess.State(ctx))
}

// HandleMarkComplete record completion for the active lesson
func (sh *SessionHandler) HandleMarkComplete(c echo.Context) error {
	sess, err := sh.getSession(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, err.Error()))
	}
	sess.Touch()

	ctx := c.Request().Context()
	if err := sess.MarkComplete(ctx); err != nil {
		switch err {
		case domain.ErrNotEnrolled:
			return c.JSON(http.StatusForbidden, infra.NewRESTStandardError(http.StatusForbidden, err.Error()))
		case domain.ErrLessonNotFound:
			return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, err.Error()))
		}
		return c.JSON(http.StatusBadGateway,
			infra.NewRESTStandardError(http.StatusBadGateway, "Failed to record completion").SetDetail(err.Error()))
	}
	return c.JSON(http.StatusOK, sess.State(ctx))
}

// HandleCancelAutoNext dismiss a pending auto-advance countdown
func (sh *SessionHandler) HandleCancelAutoNext(c echo.Context) error {
	sess, err := sh.getSession(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, err.Error()))
	}
	sess.Touch()
	sess.CancelAutoNext()
	return c.JSON(http.StatusOK, sess.AutoNext())
}

// HandleGoNext skip the countdown and advance immediately
func (sh *SessionHandler) HandleGoNext(c echo.Context) error {
	sess, err := sh.getSession(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, err.Error()))
	}
	sess.Touch()
	sess.GoNext()
	return c.JSON(http.StatusOK, sess.State(c.Request().Context()))
}

func (sh *SessionHandler) getSession(c echo.Context) (*session.Session, error) {
	claims := sh.jwtUtil.GetContextToken(c)
	return sh.manager.Get(c.Param("id"), claims.UID)
}

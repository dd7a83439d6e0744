package http

import (
	infra "github.com/coursebay/player-session/internal/infrastructure"
	"github.com/labstack/echo/v4"
)

func v1Endpoint(
	websocket *infra.Websocket,
	SessionHandler *SessionHandler,
	PlayerSocketHandler *PlayerSocketHandler,
	jwtMiddleware echo.MiddlewareFunc,
	refreshMiddleware echo.MiddlewareFunc,
	requestIDMiddleware echo.MiddlewareFunc,
	traceLoggerMiddleware echo.MiddlewareFunc,
) *endpoint {
	return &endpoint{
		apiVersion:  "api/v1",
		middlewares: []echo.MiddlewareFunc{requestIDMiddleware, traceLoggerMiddleware},
		groups: []*apiGroup{
			{
				prefix:      "/session",
				middlewares: []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware},
				routes: []*route{
					{"POST", "", SessionHandler.HandleCreateSession, nil},
					{"DELETE", "/:id", SessionHandler.HandleCloseSession, nil},
					{"GET", "/:id/state", SessionHandler.HandleGetState, nil},
					{"POST", "/:id/lesson/:lessonID", SessionHandler.HandleOpenLesson, nil},
					{"POST", "/:id/complete", SessionHandler.HandleMarkComplete, nil},
					{"POST", "/:id/autonext/cancel", SessionHandler.HandleCancelAutoNext, nil},
					{"POST", "/:id/autonext/go", SessionHandler.HandleGoNext, nil},
				},
			},
			{
				prefix:      "/ws",
				middlewares: []echo.MiddlewareFunc{jwtMiddleware},
				routes: []*route{
					{"GET", "/session/:id", websocket.WithHeartbeat(PlayerSocketHandler.HandlePlayerSocket), nil},
				},
			},
		},
	}
}

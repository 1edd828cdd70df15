package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/OmGuptaIND/clipcam/media"
	"github.com/OmGuptaIND/clipcam/recorder"
	"github.com/OmGuptaIND/clipcam/session"
	"github.com/OmGuptaIND/clipcam/store"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ApiServerOptions defines the configuration options for the ApiServer.
type ApiServerOptions struct {
	Port  int
	Wg    *sync.WaitGroup
	Store *store.AppStore

	// NewSession builds a session that publishes into Store.
	NewSession func() *session.Session

	// OpTimeout bounds device negotiation for a single request.
	OpTimeout time.Duration
	Logger    *zap.Logger
}

// ApiServer exposes capture sessions and their artifacts over HTTP.
type ApiServer struct {
	ctx    context.Context
	app    *fiber.App
	opts   ApiServerOptions
	done   chan bool
	logger *zap.Logger
}

// NewApiServer initializes a new API server with the specified options.
func NewApiServer(ctx context.Context, opts ApiServerOptions) *ApiServer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 30 * time.Second
	}

	apiServer := &ApiServer{
		ctx:    ctx,
		opts:   opts,
		done:   make(chan bool, 1),
		logger: opts.Logger.Named("api"),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: apiServer.errorHandler,
	})
	apiServer.app = app

	app.Get("/ping", apiServer.pingHandler)

	app.Get("/sessions", apiServer.listSessions)
	app.Post("/sessions", apiServer.createSession)
	app.Get("/sessions/:id", apiServer.getSession)
	app.Post("/sessions/:id/open", apiServer.openSession)
	app.Post("/sessions/:id/start", apiServer.startRecording)
	app.Patch("/sessions/:id/stop", apiServer.stopRecording)
	app.Post("/sessions/:id/switch", apiServer.switchCamera)
	app.Delete("/sessions/:id", apiServer.closeSession)

	app.Get("/artifacts/:id", apiServer.getArtifact)
	app.Delete("/artifacts/:id", apiServer.deleteArtifact)

	app.Use(apiServer.notFoundHandler)

	return apiServer
}

// App returns the underlying fiber application.
func (a *ApiServer) App() *fiber.App {
	return a.app
}

// Done returns a channel that will be closed when the server is done.
func (a *ApiServer) Done() <-chan bool {
	return a.done
}

func (a *ApiServer) pingHandler(c fiber.Ctx) error {
	return c.SendString("pong")
}

func (a *ApiServer) listSessions(c fiber.Ctx) error {
	sessions := a.opts.Store.ListSessions()

	resp := ListSessionsResponse{Sessions: make([]session.Snapshot, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, s.Snapshot())
	}
	sort.Slice(resp.Sessions, func(i, j int) bool { return resp.Sessions[i].ID < resp.Sessions[j].ID })

	return c.JSON(resp)
}

func (a *ApiServer) createSession(c fiber.Ctx) error {
	s := a.opts.NewSession()
	a.opts.Store.AddSession(s)

	a.logger.Info("session created", zap.String("session", s.ID))

	ctx, cancel := context.WithTimeout(a.ctx, a.opts.OpTimeout)
	defer cancel()

	if err := s.Open(ctx); err != nil {
		return a.sessionError(c, s, err)
	}

	return c.Status(fiber.StatusCreated).JSON(SessionResponse{Session: s.Snapshot()})
}

func (a *ApiServer) getSession(c fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}

	return c.JSON(SessionResponse{Session: s.Snapshot()})
}

func (a *ApiServer) openSession(c fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(a.ctx, a.opts.OpTimeout)
	defer cancel()

	if err := s.Open(ctx); err != nil {
		return a.sessionError(c, s, err)
	}

	return c.JSON(SessionResponse{Session: s.Snapshot()})
}

func (a *ApiServer) startRecording(c fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}

	if err := s.StartRecording(); err != nil {
		return a.sessionError(c, s, err)
	}

	return c.JSON(SessionResponse{Session: s.Snapshot()})
}

func (a *ApiServer) stopRecording(c fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}

	snap := s.Snapshot()
	if snap.Recording != recorder.Inactive && !snap.Finalizable {
		return fiber.NewError(fiber.StatusConflict, "Recording cannot be stopped yet")
	}

	handle, err := s.StopRecording()
	if err != nil {
		return a.sessionError(c, s, err)
	}

	return c.JSON(StopRecordingResponse{
		Status: "Recording stopped",
		Handle: handle,
	})
}

func (a *ApiServer) switchCamera(c fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(a.ctx, a.opts.OpTimeout)
	defer cancel()

	if err := s.SwitchCamera(ctx); err != nil {
		return a.sessionError(c, s, err)
	}

	return c.JSON(SessionResponse{Session: s.Snapshot()})
}

func (a *ApiServer) closeSession(c fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}

	if err := s.Close(); err != nil {
		a.logger.Error("failed to close session", zap.String("session", s.ID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to close session")
	}

	a.opts.Store.RemoveSession(s.ID)

	return c.SendStatus(fiber.StatusNoContent)
}

func (a *ApiServer) getArtifact(c fiber.Ctx) error {
	artifact, ok := a.opts.Store.GetArtifact(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Artifact not found")
	}

	c.Set(fiber.HeaderContentType, artifact.MediaType)
	return c.Send(artifact.Data)
}

func (a *ApiServer) deleteArtifact(c fiber.Ctx) error {
	if !a.opts.Store.RemoveArtifact(c.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "Artifact not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (a *ApiServer) session(c fiber.Ctx) (*session.Session, error) {
	s, ok := a.opts.Store.GetSession(c.Params("id"))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return s, nil
}

// sessionError replies with the session's snapshot and the status err maps to.
func (a *ApiServer) sessionError(c fiber.Ctx, s *session.Session, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		a.logger.Error("session operation failed", zap.String("session", s.ID), zap.Error(err))
	}

	return c.Status(code).JSON(SessionResponse{
		Session: s.Snapshot(),
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, media.ErrSessionClosed):
		return fiber.StatusGone
	// before ErrPermissionDenied, which a failed camera open may also wrap
	case errors.Is(err, media.ErrAcquisition):
		return fiber.StatusBadGateway
	case errors.Is(err, media.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, media.ErrUnsupportedEnvironment):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, media.ErrNotRecording),
		errors.Is(err, media.ErrNoActiveStream),
		errors.Is(err, media.ErrBusy),
		errors.Is(err, recorder.ErrAlreadyRecording):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler handles all internal server errors.
func (a *ApiServer) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	a.logger.Debug("request failed", zap.Int("code", code), zap.String("message", msg), zap.Error(err))
	return c.Status(code).SendString(msg)
}

// `notFoundHandler` handles unmatched routes.
func (a *ApiServer) notFoundHandler(c fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, "Resource not found")
}

// Start begins listening on the configured port.
func (a *ApiServer) Start() <-chan struct{} {
	addr := fmt.Sprintf(":%d", a.opts.Port)
	startedChan := make(chan struct{})

	var once sync.Once
	started := func() { once.Do(func() { close(startedChan) }) }

	if a.opts.Wg != nil {
		a.opts.Wg.Add(1)
	}

	go func() {
		if a.opts.Wg != nil {
			defer a.opts.Wg.Done()
		}

		err := a.app.Listen(addr, fiber.ListenConfig{
			ListenerNetwork:       "tcp",
			DisableStartupMessage: true,
			GracefulContext:       a.ctx,
			OnShutdownError: func(err error) {
				a.logger.Error("error shutting down the server", zap.Error(err))
				close(a.done)
			},
			OnShutdownSuccess: func() {
				a.logger.Info("server shutdown successfully")
				close(a.done)
			},
			ListenerAddrFunc: func(net.Addr) {
				a.logger.Info("apiServer listening", zap.Int("port", a.opts.Port))
				started()
			},
		})

		if err != nil {
			a.logger.Error("error starting the server", zap.Error(err))
			started()
		}
	}()

	return startedChan
}

// Close gracefully shuts down the server.
func (a *ApiServer) Close() error {
	a.logger.Info("closing the API server")

	return a.app.Shutdown()
}

package server

import (
	"context"

	"coursepay/internal/handler"
	"coursepay/internal/middleware"
	"coursepay/internal/service"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	echo              *echo.Echo
	jwtSecret         string
	paymentHandler    *handler.PaymentHandler
	enrollmentHandler *handler.EnrollmentHandler
}

func NewServer(
	jwtSecret string,
	paymentService service.PaymentService,
	fulfillmentService service.FulfillmentService,
	progressService service.ProgressService,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:              e,
		jwtSecret:         jwtSecret,
		paymentHandler:    handler.NewPaymentHandler(paymentService),
		enrollmentHandler: handler.NewEnrollmentHandler(fulfillmentService, progressService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	auth := middleware.Auth(s.jwtSecret)

	// -------- payments --------
	payment := api.Group("/payment")
	payment.POST("/initiate", s.paymentHandler.Initiate, auth)
	payment.POST("/capture/:orderId", s.paymentHandler.Capture, auth)
	payment.GET("/purchases", s.paymentHandler.Purchases, auth)
	payment.GET("/earnings", s.paymentHandler.Earnings, auth, middleware.RequireRole("instructor"))

	// Provider callbacks authenticate by signature, not by session.
	payment.POST("/webhook", s.paymentHandler.Webhook)

	// -------- enrollments --------
	enrollment := api.Group("/enrollment", auth)
	enrollment.POST("/free", s.enrollmentHandler.EnrollFree)
	enrollment.PATCH("/:id/lesson-progress", s.enrollmentHandler.UpdateLessonProgress)
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

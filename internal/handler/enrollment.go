package handler

import (
	"errors"
	"net/http"

	"coursepay/internal/client"
	"coursepay/internal/dto"
	"coursepay/internal/middleware"
	"coursepay/internal/model"
	"coursepay/internal/repository"
	"coursepay/internal/service"

	"github.com/labstack/echo/v4"
)

type EnrollmentHandler struct {
	fulfillmentService service.FulfillmentService
	progressService    service.ProgressService
}

func NewEnrollmentHandler(
	fulfillmentService service.FulfillmentService,
	progressService service.ProgressService,
) *EnrollmentHandler {
	return &EnrollmentHandler{
		fulfillmentService: fulfillmentService,
		progressService:    progressService,
	}
}

func (h *EnrollmentHandler) EnrollFree(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.FreeEnrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	enrollment, err := h.fulfillmentService.EnrollFree(ctx, middleware.UserID(c), req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrCourseNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "course not found")
		case errors.Is(err, service.ErrCourseNotFree):
			return echo.NewHTTPError(http.StatusBadRequest, "course is not free")
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			return echo.NewHTTPError(http.StatusBadRequest, "already enrolled")
		}
		return err
	}

	return c.JSON(http.StatusOK, toEnrollmentResponse(enrollment))
}

func (h *EnrollmentHandler) UpdateLessonProgress(c echo.Context) error {
	ctx := c.Request().Context()

	enrollmentID := c.Param("id")
	if enrollmentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing enrollment id")
	}

	var req dto.LessonProgressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	enrollment, err := h.progressService.UpdateLessonProgress(ctx, enrollmentID, middleware.UserID(c), &req)
	if err != nil {
		if errors.Is(err, repository.ErrEnrollmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "enrollment not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, toEnrollmentResponse(enrollment))
}

func toEnrollmentResponse(e *model.Enrollment) *dto.EnrollmentResponse {
	return &dto.EnrollmentResponse{
		EnrollmentID: e.ID,
		CourseID:     e.CourseID,
		Status:       string(e.Status),
		Progress:     e.Progress,
		EnrolledAt:   e.EnrolledAt,
		CompletedAt:  e.CompletedAt,
	}
}

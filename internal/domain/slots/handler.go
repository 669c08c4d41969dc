package slots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/doctor"
	"github.com/clinicore/clinicore/pkg/timex"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/slots", h.ListSlots)
	api.GET("/slots/availability", h.GetAvailability)
	api.POST("/slots/generate", h.Generate)
	api.POST("/slots/generate-batch", h.GenerateBatch)
}

type slotKey struct {
	DoctorID string
	ClinicID int
	Date     timex.Date
}

// keyFromQuery reads doctor_id, clinic_id and an optional date (defaulting to
// today) from the query string.
func keyFromQuery(c echo.Context) (slotKey, error) {
	var k slotKey
	k.DoctorID = c.QueryParam("doctor_id")
	if k.DoctorID == "" {
		return k, errors.New("doctor_id is required")
	}
	clinicID, err := strconv.Atoi(c.QueryParam("clinic_id"))
	if err != nil || clinicID <= 0 {
		return k, errors.New("clinic_id must be a positive integer")
	}
	k.ClinicID = clinicID
	k.Date = timex.Today()
	if raw := c.QueryParam("date"); raw != "" {
		k.Date, err = timex.ParseDate(raw)
		if err != nil {
			return k, errors.New("date must be formatted YYYY-MM-DD")
		}
	}
	return k, nil
}

// GetAvailability is the read-only projection of a doctor's day: day of
// week, the recurring shifts in effect, the absence override (if any) and
// the expanded slots. It never touches the ledger, so it can be polled
// freely before generation has run.
func (h *Handler) GetAvailability(c echo.Context) error {
	k, err := keyFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	proj, err := h.svc.ProjectDay(c.Request().Context(), k.DoctorID, k.ClinicID, k.Date)
	if err != nil {
		return mapGenerationError(err)
	}
	return c.JSON(http.StatusOK, proj)
}

func (h *Handler) ListSlots(c echo.Context) error {
	k, err := keyFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.ListSlots(c.Request().Context(), k.DoctorID, k.ClinicID, k.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":  k.DoctorID,
		"clinic_id":  k.ClinicID,
		"date":       k.Date,
		"slot_count": len(items),
		"slots":      items,
	})
}

type generateRequest struct {
	DoctorID string `json:"doctor_id"`
	ClinicID int    `json:"clinic_id"`
	Date     string `json:"date,omitempty"`
}

// Generate triggers generation for one doctor. 201 with the written slots
// (possibly an empty list) on success; 409 when the day was already
// generated, so the caller can tell "nothing to generate" apart from "no
// shifts today".
func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	if req.ClinicID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "clinic_id must be a positive integer")
	}
	date := timex.Today()
	if req.Date != "" {
		var err error
		date, err = timex.ParseDate(req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		}
	}

	ctx := c.Request().Context()
	items, err := h.svc.GenerateForDate(ctx, req.DoctorID, req.ClinicID, date)
	if errors.Is(err, ErrAlreadyGenerated) {
		body := map[string]interface{}{
			"error":     "slots already generated",
			"doctor_id": req.DoctorID,
			"clinic_id": req.ClinicID,
			"date":      date,
		}
		if rec, recErr := h.svc.GenerationStatus(ctx, req.DoctorID, req.ClinicID, date); recErr == nil && rec.GeneratedAt != nil {
			body["generated_at"] = rec.GeneratedAt
			body["slot_count"] = rec.SlotCount
		}
		return c.JSON(http.StatusConflict, body)
	}
	if err != nil {
		return mapGenerationError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"doctor_id":  req.DoctorID,
		"clinic_id":  req.ClinicID,
		"date":       date,
		"slot_count": len(items),
		"slots":      items,
	})
}

type batchRequest struct {
	Date string `json:"date,omitempty"`
}

func (h *Handler) GenerateBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date := timex.Today()
	if req.Date != "" {
		var err error
		date, err = timex.ParseDate(req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		}
	}
	res, err := h.svc.RunBatch(c.Request().Context(), date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func mapGenerationError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAvailability), errors.Is(err, doctor.ErrMalformedAvailability):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/fieldwise/internal/domain"
)

// ReportView is a filed report as returned by the API. Malformed payloads
// are still listed, with Error set and Data empty.
type ReportView struct {
	ID         int64       `json:"id"`
	ReportData string      `json:"report_data"`
	Timestamp  time.Time   `json:"timestamp"`
	Site       string      `json:"site,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func newReportView(r *domain.Report) ReportView {
	v := ReportView{
		ID:         r.ID,
		ReportData: r.Payload,
		Timestamp:  r.CreatedAt,
		Site:       r.Site(),
		Data:       r.Data,
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

// ListReports returns every filed report, newest first.
// GET /v1/reports
func (h *Handler) ListReports(c echo.Context) error {
	ctx := c.Request().Context()

	reports, err := h.service.ListReports(ctx)
	if err != nil {
		return errorJSON(c, err)
	}

	views := make([]ReportView, 0, len(reports))
	for i := range reports {
		views = append(views, newReportView(&reports[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reports": views,
	})
}

// GetReport returns one filed report.
// GET /v1/reports/:id
func (h *Handler) GetReport(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid report id"})
	}

	ctx := c.Request().Context()

	report, err := h.service.GetReport(ctx, id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, newReportView(report))
}

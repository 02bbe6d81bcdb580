package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/batch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type BatchHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
}

type batchHandlerImpl struct {
	batchService batch.Service
	loc          *time.Location
	now          func() time.Time
}

func NewBatchHandler(batchService batch.Service, loc *time.Location) BatchHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &batchHandlerImpl{
		batchService: batchService,
		loc:          loc,
		now:          time.Now,
	}
}

// Run implements BatchHandler. The job runs on ?date= or, when absent, on
// the date it would process if triggered by the scheduler now.
func (h *batchHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	job, err := batch.ParseJob(chi.URLParam(r, "job"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	date := job.DefaultDate(h.now().In(h.loc))
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			response.HandleError(w, batch.ErrInvalidDate)
			return
		}
		date = d
	}

	slog.Info("Batch job triggered manually", "job", job, "date", date.Format(dateLayout), "member_id", id.MemberID)

	result, err := h.batchService.Run(r.Context(), job, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

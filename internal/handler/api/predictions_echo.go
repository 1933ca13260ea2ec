package api

import (
	"time"

	models "CravePulse/internal/domain/models"
	domrepo "CravePulse/internal/domain/repository"
	"CravePulse/internal/middleware"
	"CravePulse/internal/realtime"
	model "CravePulse/internal/services/model"
	"CravePulse/internal/usecase"
	xhttp "CravePulse/pkg/http"
	xlogger "CravePulse/pkg/logger"
	"CravePulse/pkg/queue"

	"github.com/labstack/echo/v4"
)

// PredictionsEchoHandler exposes the pipeline over HTTP: reading ingestion,
// on-demand prediction cycles, analysis history, subject activation, model
// management, and the realtime WebSocket endpoint.
type PredictionsEchoHandler struct {
	logger     *xlogger.Logger
	queue      queue.QueueService
	ingest     *middleware.IngestPipeline
	readings   domrepo.ReadingStore
	analyses   domrepo.AnalysisSink
	registry   domrepo.SubjectRegistry
	classifier *model.Classifier
	hub        *realtime.Hub
}

func NewPredictionsEchoHandler(
	logger *xlogger.Logger,
	q queue.QueueService,
	ingest *middleware.IngestPipeline,
	readings domrepo.ReadingStore,
	analyses domrepo.AnalysisSink,
	registry domrepo.SubjectRegistry,
	classifier *model.Classifier,
	hub *realtime.Hub,
) *PredictionsEchoHandler {
	return &PredictionsEchoHandler{
		logger:     logger,
		queue:      q,
		ingest:     ingest,
		readings:   readings,
		analyses:   analyses,
		registry:   registry,
		classifier: classifier,
		hub:        hub,
	}
}

func (h *PredictionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/subjects/:id/readings", h.Ingest)
	g.POST("/subjects/:id/predict", h.Predict)
	g.GET("/subjects/:id/analyses", h.Analyses)
	g.GET("/subjects/:id/analyses/latest", h.LatestAnalysis)
	g.POST("/subjects/:id/activate", h.Activate)
	g.POST("/subjects/:id/deactivate", h.Deactivate)
	g.GET("/subjects/active", h.ActiveSubjects)
	g.GET("/model", h.ModelInfo)
	g.POST("/model/reload", h.ModelReload)

	e.GET("/ws/:id", h.Realtime)
	e.GET("/health", h.Health)
}

// Health reports storage reachability.
func (h *PredictionsEchoHandler) Health(c echo.Context) error {
	if err := h.readings.Health(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Ingest accepts a batch of readings for one subject and pushes them
// through the validation/throttle pipeline.
func (h *PredictionsEchoHandler) Ingest(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return xhttp.BadRequestResponse(c, "subject id is required")
	}

	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	accepted := 0
	for _, in := range req.Readings {
		r := &models.Reading{
			SubjectID: subjectID,
			Timestamp: time.Unix(in.Timestamp, 0).UTC(),
			HeartRate: in.HeartRate,
			AccelX:    in.AccelX,
			AccelY:    in.AccelY,
			AccelZ:    in.AccelZ,
			GyroX:     in.GyroX,
			GyroY:     in.GyroY,
			GyroZ:     in.GyroZ,
		}
		if err := h.ingest.Process(ctx, r); err != nil {
			h.logger.Error("ingest reading", xlogger.String("subject", subjectID), xlogger.Error(err))
			continue
		}
		accepted++
	}

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"received": len(req.Readings),
		"accepted": accepted,
	})
}

// Predict enqueues a prediction cycle for the subject. The cycle itself runs
// on the queue workers with the standard retry semantics.
func (h *PredictionsEchoHandler) Predict(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return xhttp.BadRequestResponse(c, "subject id is required")
	}

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	payload := usecase.CyclePayload{SubjectID: subjectID, WindowStart: req.WindowStart}
	if err := h.queue.PublishMessage(c.Request().Context(), usecase.CycleJobType, payload); err != nil {
		h.logger.Error("enqueue predict", xlogger.String("subject", subjectID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("could not enqueue prediction"))
	}

	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"subject_id":   subjectID,
		"window_start": req.WindowStart,
	})
}

// Analyses returns analysis history for a subject.
func (h *PredictionsEchoHandler) Analyses(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return xhttp.BadRequestResponse(c, "subject id is required")
	}

	req := &models.AnalysesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(req.To, now)

	rows, err := h.analyses.Query(c.Request().Context(), subjectID, from, to, req.N)
	if err != nil {
		h.logger.Error("query analyses", xlogger.String("subject", subjectID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// LatestAnalysis returns the most recent analysis for a subject.
func (h *PredictionsEchoHandler) LatestAnalysis(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return xhttp.BadRequestResponse(c, "subject id is required")
	}

	a, err := h.analyses.Latest(c.Request().Context(), subjectID)
	if err != nil {
		h.logger.Error("latest analysis", xlogger.String("subject", subjectID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if a == nil {
		return xhttp.NotFoundResponse(c, "no analyses for subject")
	}
	return xhttp.SuccessResponse(c, a)
}

// Activate registers the subject for periodic prediction cycles.
func (h *PredictionsEchoHandler) Activate(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return xhttp.BadRequestResponse(c, "subject id is required")
	}
	if err := h.registry.Activate(c.Request().Context(), subjectID); err != nil {
		h.logger.Error("activate subject", xlogger.String("subject", subjectID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"subject_id": subjectID, "status": "active"})
}

// Deactivate removes the subject from the periodic schedule.
func (h *PredictionsEchoHandler) Deactivate(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return xhttp.BadRequestResponse(c, "subject id is required")
	}
	if err := h.registry.Deactivate(c.Request().Context(), subjectID); err != nil {
		h.logger.Error("deactivate subject", xlogger.String("subject", subjectID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"subject_id": subjectID, "status": "inactive"})
}

// ActiveSubjects lists subjects currently scheduled.
func (h *PredictionsEchoHandler) ActiveSubjects(c echo.Context) error {
	subjects, err := h.registry.Active(c.Request().Context())
	if err != nil {
		h.logger.Error("list active subjects", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, subjects, int64(len(subjects)))
}

// ModelInfo reports the loaded artifact's version and training metrics.
func (h *PredictionsEchoHandler) ModelInfo(c echo.Context) error {
	version, trainedAt, metrics, loaded := h.classifier.Info()
	if !loaded {
		return xhttp.SuccessResponse(c, map[string]interface{}{"loaded": false})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"loaded":     true,
		"version":    version,
		"trained_at": trainedAt,
		"metrics":    metrics,
	})
}

// ModelReload swaps in the artifact currently on disk.
func (h *PredictionsEchoHandler) ModelReload(c echo.Context) error {
	if err := h.classifier.Reload(); err != nil {
		h.logger.Error("model reload", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]string{"version": h.classifier.Version()})
}

// Realtime upgrades to WebSocket and streams the subject's prediction results.
func (h *PredictionsEchoHandler) Realtime(c echo.Context) error {
	subjectID := c.Param("id")
	if subjectID == "" {
		return xhttp.BadRequestResponse(c, "subject id is required")
	}
	return h.hub.Subscribe(c.Response(), c.Request(), subjectID)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coop-training-api/internal/models"
	"github.com/noah-isme/coop-training-api/internal/repository"
	appErrors "github.com/noah-isme/coop-training-api/pkg/errors"
	"github.com/noah-isme/coop-training-api/pkg/export"
	"github.com/noah-isme/coop-training-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type downloadSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string) (jobID, relPath string, expiresAt time.Time, err error)
}

type complianceOverviewProvider interface {
	Overview(ctx context.Context) (*models.ComplianceOverview, error)
}

type attendanceRosterProvider interface {
	Roster(ctx context.Context, trainingID string) ([]models.RosterEntry, error)
}

// CreateReportRequest describes the asynchronous report payload.
type CreateReportRequest struct {
	Type       models.ReportType   `json:"type" validate:"required"`
	Format     models.ReportFormat `json:"format" validate:"required"`
	TrainingID *string             `json:"training_id,omitempty"`
}

// ReportJobStatus is the client-facing view of a job.
type ReportJobStatus struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates asynchronous report generation: persist the
// job, push it through the queue, render to CSV or PDF and hand back a
// signed download URL.
type ReportService struct {
	repo       reportJobStore
	queue      jobDispatcher
	storage    reportStorage
	signer     downloadSigner
	compliance complianceOverviewProvider
	rosters    attendanceRosterProvider
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewReportService constructs the report service. Metrics may be nil.
func NewReportService(repo reportJobStore, queue jobDispatcher, storage reportStorage, signer downloadSigner, compliance complianceOverviewProvider, rosters attendanceRosterProvider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:       repo,
		queue:      queue,
		storage:    storage,
		signer:     signer,
		compliance: compliance,
		rosters:    rosters,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// CreateJob validates the request, persists the job and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, req CreateReportRequest, actorID string) (*ReportJobStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	switch req.Type {
	case models.ReportTypeCompliance:
	case models.ReportTypeAttendance:
		if req.TrainingID == nil || *req.TrainingID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "training_id is required for attendance reports")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    models.ReportJobParams{TrainingID: req.TrainingID, Format: req.Format},
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		s.metrics.RecordReportJob(models.ReportStatusFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return &ReportJobStatus{ID: job.ID, Status: job.Status}, nil
}

// GetStatus exposes job metadata, enforcing ownership for non-admin callers.
func (s *ReportService) GetStatus(ctx context.Context, id, actorID string, role models.OfficerRole) (*ReportJobStatus, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if role != models.RoleAdministrator && job.CreatedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your report job")
	}
	status := &ReportJobStatus{ID: job.ID, Status: job.Status, ResultURL: job.ResultURL}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		status.Error = job.ErrorMessage
	}
	return status, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// HandleJob is the queue handler: it renders the export and finalises the
// job row. Retries are driven by the queue on returned errors.
func (s *ReportService) HandleJob(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}
	if job.Status == models.ReportStatusFinished {
		return nil
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	data, title, err := s.buildDataset(ctx, job)
	if err != nil {
		s.failJob(ctx, job.ID, err)
		return err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(data, title)
	default:
		payload, err = s.csv.Render(data)
	}
	if err != nil {
		s.failJob(ctx, job.ID, err)
		return err
	}

	relPath := fmt.Sprintf("%s/%s.%s", job.Type, job.ID, job.Params.Format)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		s.failJob(ctx, job.ID, err)
		return err
	}
	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.failJob(ctx, job.ID, err)
		return err
	}

	finished := models.ReportStatusFinished
	resultURL := "/api/v1/reports/download/" + token
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:     &finished,
		ResultURL:  &resultURL,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("finalise report job: %w", err)
	}
	s.metrics.RecordReportJob(models.ReportStatusFinished)
	s.logger.Info("report generated",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("format", string(job.Params.Format)))
	return nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

func (s *ReportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeCompliance:
		overview, err := s.compliance.Overview(ctx)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("load compliance overview: %w", err)
		}
		data := export.Dataset{
			Headers: []string{"Officer", "Cooperative", "Completed", "Required", "Rate", "Status"},
			Rows:    make([]map[string]string, 0, len(overview.Officers)),
		}
		for _, row := range overview.Officers {
			cooperative := ""
			if row.Officer.Cooperative != nil {
				cooperative = *row.Officer.Cooperative
			}
			data.Rows = append(data.Rows, map[string]string{
				"Officer":     row.Officer.FullName,
				"Cooperative": cooperative,
				"Completed":   strconv.Itoa(row.Assessment.Completed),
				"Required":    strconv.Itoa(row.Assessment.Required),
				"Rate":        strconv.Itoa(row.Assessment.Rate) + "%",
				"Status":      string(row.Assessment.Status),
			})
		}
		return data, "Compliance Overview", nil
	case models.ReportTypeAttendance:
		trainingID := ""
		if job.Params.TrainingID != nil {
			trainingID = *job.Params.TrainingID
		}
		roster, err := s.rosters.Roster(ctx, trainingID)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("load roster: %w", err)
		}
		data := export.Dataset{
			Headers: []string{"Officer", "Cooperative", "Registered At", "Checked In", "Recorded At"},
			Rows:    make([]map[string]string, 0, len(roster)),
		}
		for _, entry := range roster {
			cooperative := ""
			if entry.Cooperative != nil {
				cooperative = *entry.Cooperative
			}
			recordedAt := ""
			if entry.RecordedAt != nil {
				recordedAt = entry.RecordedAt.Format(time.RFC3339)
			}
			checkedIn := "no"
			if entry.CheckedIn {
				checkedIn = "yes"
			}
			data.Rows = append(data.Rows, map[string]string{
				"Officer":       entry.OfficerName,
				"Cooperative":   cooperative,
				"Registered At": entry.RegisteredAt.Format(time.RFC3339),
				"Checked In":    checkedIn,
				"Recorded At":   recordedAt,
			})
		}
		return data, "Attendance Roster", nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ReportService) failJob(ctx context.Context, jobID string, cause error) {
	status := models.ReportStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, jobID, repository.UpdateReportJobParams{
		Status:       &status,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Sugar().Warnw("failed to mark job failed", "job_id", jobID, "error", err)
	}
	s.metrics.RecordReportJob(models.ReportStatusFailed)
}

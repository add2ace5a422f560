package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/helpers/utils"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/importer"
	"github.com/shipping-mapper/internal/store"
)

// JobStatus trạng thái job import
type JobStatus string

const (
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// ImportJob một lần chạy import taxonomy cho một hãng
type ImportJob struct {
	ID         string               `json:"id"`
	ProviderID uint                 `json:"provider_id"`
	Carrier    string               `json:"carrier"`
	Status     JobStatus            `json:"status"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Error      string               `json:"error,omitempty"`
	Report     *models.ImportReport `json:"report,omitempty"`

	cancel context.CancelFunc
}

// ImportService quản lý các job import chạy nền. Mỗi hãng chỉ một job
// đang chạy tại một thời điểm — import là vòng quét dài, chạy chồng hai
// vòng trên cùng một hãng chỉ tốn quota API vô ích.
type ImportService struct {
	locations store.LocationStore
	registry  *carriers.Registry
	imp       *importer.Importer
	logger    *zap.Logger

	mu   sync.Mutex
	jobs map[string]*ImportJob
	// providerID -> job ID đang chạy
	running map[uint]string
}

// NewImportService tạo mới ImportService
func NewImportService(
	locations store.LocationStore,
	registry *carriers.Registry,
	imp *importer.Importer,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		locations: locations,
		registry:  registry,
		imp:       imp,
		logger:    logger,
		jobs:      make(map[string]*ImportJob),
		running:   make(map[uint]string),
	}
}

// StartImport khởi chạy một job import nền cho một hãng. Trả về job đã
// vào trạng thái running; tiến độ theo dõi qua GetJob.
func (is *ImportService) StartImport(ctx context.Context, providerID uint) (*ImportJob, error) {
	provider, err := is.locations.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider == nil || !provider.IsActive {
		return nil, fmt.Errorf("%w: hãng %d", models.ErrProviderUnavailable, providerID)
	}

	drv, err := is.registry.Driver(provider.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}

	is.mu.Lock()
	if jobID, busy := is.running[providerID]; busy {
		is.mu.Unlock()
		return nil, fmt.Errorf("hãng %s đang có job import %s chạy dở", provider.Code, jobID)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	job := &ImportJob{
		ID:         utils.GenerateUUID(),
		ProviderID: providerID,
		Carrier:    provider.Code,
		Status:     JobRunning,
		StartedAt:  time.Now(),
		cancel:     cancel,
	}
	is.jobs[job.ID] = job
	is.running[providerID] = job.ID
	is.mu.Unlock()

	go is.run(jobCtx, job, drv)
	return job, nil
}

func (is *ImportService) run(ctx context.Context, job *ImportJob, drv carriers.Driver) {
	is.logger.Info("Job import bắt đầu",
		zap.String("jobId", job.ID),
		zap.String("carrier", job.Carrier))

	report, err := is.imp.ImportProvider(ctx, job.ProviderID, drv)

	is.mu.Lock()
	defer is.mu.Unlock()

	now := time.Now()
	job.FinishedAt = &now
	job.Report = report
	delete(is.running, job.ProviderID)

	switch {
	case err == nil:
		job.Status = JobDone
	case ctx.Err() != nil:
		job.Status = JobCanceled
		job.Error = ctx.Err().Error()
	default:
		job.Status = JobFailed
		job.Error = err.Error()
		is.logger.Error("Job import thất bại",
			zap.String("jobId", job.ID),
			zap.Error(err))
	}
}

// GetJob tra job theo ID, nil nếu không tồn tại
func (is *ImportService) GetJob(jobID string) *ImportJob {
	is.mu.Lock()
	defer is.mu.Unlock()

	job, ok := is.jobs[jobID]
	if !ok {
		return nil
	}
	out := *job
	return &out
}

// ListJobs toàn bộ job đã biết (mới chạy trước)
func (is *ImportService) ListJobs() []*ImportJob {
	is.mu.Lock()
	defer is.mu.Unlock()

	out := make([]*ImportJob, 0, len(is.jobs))
	for _, job := range is.jobs {
		j := *job
		out = append(out, &j)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// CancelJob hủy job đang chạy. Import ghi mapping từng đơn vị nên phần
// đã ghi trước khi hủy vẫn giữ nguyên.
func (is *ImportService) CancelJob(jobID string) error {
	is.mu.Lock()
	defer is.mu.Unlock()

	job, ok := is.jobs[jobID]
	if !ok {
		return fmt.Errorf("không tìm thấy job %s", jobID)
	}
	if job.Status != JobRunning {
		return fmt.Errorf("job %s đã kết thúc (%s)", jobID, job.Status)
	}
	job.cancel()
	return nil
}

package usecase

import (
	"fmt"
	"time"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

type fakeAI struct {
	chatOut  string
	chatErr  error
	complete string
	compErr  error

	lastSystem string
	lastUser   string
	chatCalls  int
}

func (f *fakeAI) ChatJSON(_ domain.Context, system, user string, _ int) (string, error) {
	f.chatCalls++
	f.lastSystem, f.lastUser = system, user
	return f.chatOut, f.chatErr
}

func (f *fakeAI) Complete(_ domain.Context, system, user string, _ int) (string, error) {
	f.lastSystem, f.lastUser = system, user
	return f.complete, f.compErr
}

type fakeDecisionRepo struct {
	created []domain.Decision
	recent  []domain.Decision
	err     error
}

func (f *fakeDecisionRepo) Create(_ domain.Context, d domain.Decision) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, d)
	return fmt.Sprintf("dec-%d", len(f.created)), nil
}

func (f *fakeDecisionRepo) ListRecent(_ domain.Context, _ int) ([]domain.Decision, error) {
	return f.recent, f.err
}

type fakeJobRepo struct {
	jobs    map[string]domain.AuditJob
	byIdem  map[string]domain.AuditJob
	nextID  int
	updates []string
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[string]domain.AuditJob{}, byIdem: map[string]domain.AuditJob{}}
}

func (f *fakeJobRepo) Create(_ domain.Context, j domain.AuditJob) (string, error) {
	f.nextID++
	j.ID = fmt.Sprintf("job-%d", f.nextID)
	f.jobs[j.ID] = j
	if j.IdemKey != nil {
		f.byIdem[*j.IdemKey] = j
	}
	return j.ID, nil
}

func (f *fakeJobRepo) UpdateStatus(_ domain.Context, id string, status domain.AuditJobStatus, errMsg *string) error {
	j, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	if errMsg != nil {
		j.Error = *errMsg
	}
	j.UpdatedAt = time.Now().UTC()
	f.jobs[id] = j
	f.updates = append(f.updates, id+":"+string(status))
	return nil
}

func (f *fakeJobRepo) Get(_ domain.Context, id string) (domain.AuditJob, error) {
	j, ok := f.jobs[id]
	if !ok {
		return domain.AuditJob{}, domain.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobRepo) FindByIdempotencyKey(_ domain.Context, key string) (domain.AuditJob, error) {
	j, ok := f.byIdem[key]
	if !ok {
		return domain.AuditJob{}, domain.ErrNotFound
	}
	return j, nil
}

type fakeResultRepo struct {
	reports map[string]domain.AuditReport
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{reports: map[string]domain.AuditReport{}}
}

func (f *fakeResultRepo) Upsert(_ domain.Context, r domain.AuditReport) error {
	f.reports[r.JobID] = r
	return nil
}

func (f *fakeResultRepo) GetByJobID(_ domain.Context, jobID string) (domain.AuditReport, error) {
	r, ok := f.reports[jobID]
	if !ok {
		return domain.AuditReport{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeQueue struct {
	payloads []domain.AuditTaskPayload
	err      error
}

func (f *fakeQueue) EnqueueAudit(_ domain.Context, p domain.AuditTaskPayload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, p)
	return "msg-1", nil
}

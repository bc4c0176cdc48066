package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/email"
	"github.com/jaume768/splashmy/internal/moderation"
	"github.com/jaume768/splashmy/internal/openai"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeJobRepo keeps jobs in memory and mimics the claim queue semantics.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.Job)}
}

func (f *fakeJobRepo) Create(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobRepo) GetForUser(ctx context.Context, id, userID string) (*domain.Job, error) {
	job, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobRepo) List(_ context.Context, userID string, status domain.JobStatus, kind domain.JobKind, _ int) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Job
	for _, job := range f.jobs {
		if job.UserID != userID {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		if kind != "" && job.Kind != kind {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

func (f *fakeJobRepo) ClaimPending(_ context.Context) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *domain.Job
	for _, job := range f.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	if oldest.SourceImageID == nil {
		oldest.Status = domain.JobStatusProcessing
	} else {
		oldest.Status = domain.JobStatusModerating
	}
	now := time.Now()
	oldest.StartedAt = &now
	cp := *oldest
	return &cp, nil
}

func (f *fakeJobRepo) SetStatus(_ context.Context, id string, status domain.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	return nil
}

func (f *fakeJobRepo) Status(_ context.Context, id string) (domain.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return job.Status, nil
}

func (f *fakeJobRepo) RecordModeration(_ context.Context, id string, passed bool, details []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	job.ModerationPassed = passed
	job.ModerationDetails = details
	job.ModerationCheckedAt = &now
	return nil
}

func (f *fakeJobRepo) MarkCompleted(_ context.Context, id string, completedAt time.Time, processingTime float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusCompleted
	job.CompletedAt = &completedAt
	job.ProcessingTime = &processingTime
	return nil
}

func (f *fakeJobRepo) MarkFailed(_ context.Context, id, message string, details []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = message
	job.ErrorDetails = details
	return nil
}

func (f *fakeJobRepo) IncrementRetry(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	job.RetryCount++
	return job.RetryCount, nil
}

func (f *fakeJobRepo) Cancel(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.UserID != userID {
		return domain.ErrNotFound
	}
	switch job.Status {
	case domain.JobStatusPending, domain.JobStatusModerating, domain.JobStatusProcessing:
		job.Status = domain.JobStatusCancelled
		return nil
	}
	return domain.ErrInvalidTransition
}

func (f *fakeJobRepo) ListExpired(_ context.Context, cutoff time.Time, _ int) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Job
	for _, job := range f.jobs {
		if !job.Status.Terminal() {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	return nil
}

func (f *fakeJobRepo) StatsForUser(context.Context, string) (*domain.ProcessingStats, error) {
	return &domain.ProcessingStats{}, nil
}

// fakeResultRepo stores results in memory.
type fakeResultRepo struct {
	mu      sync.Mutex
	results map[string]*domain.Result
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[string]*domain.Result)}
}

func (f *fakeResultRepo) Create(_ context.Context, res *domain.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *res
	f.results[res.ID] = &cp
	return nil
}

func (f *fakeResultRepo) GetForUser(_ context.Context, id, _ string) (*domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.results[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (f *fakeResultRepo) ListByJob(_ context.Context, jobID string) ([]domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Result
	for _, res := range f.results {
		if res.JobID == jobID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (f *fakeResultRepo) ListByUser(context.Context, string, bool, int) ([]domain.Result, error) {
	return nil, nil
}

func (f *fakeResultRepo) SetFavorite(_ context.Context, id string, favorite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.results[id]; ok {
		res.IsFavorite = favorite
	}
	return nil
}

func (f *fakeResultRepo) SetRating(_ context.Context, id string, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.results[id]; ok {
		res.UserRating = &rating
	}
	return nil
}

func (f *fakeResultRepo) IncrementDownloads(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.results[id]; ok {
		res.DownloadCount++
	}
	return nil
}

func (f *fakeResultRepo) Delete(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.results, id)
	return nil
}

// fakeQuotaRepo applies the ledger rules in memory.
type fakeQuotaRepo struct {
	mu      sync.Mutex
	ledgers map[string]*domain.QuotaLedger
}

func newFakeQuotaRepo() *fakeQuotaRepo {
	return &fakeQuotaRepo{ledgers: make(map[string]*domain.QuotaLedger)}
}

func (f *fakeQuotaRepo) ledger(userID string) *domain.QuotaLedger {
	q, ok := f.ledgers[userID]
	if !ok {
		q = &domain.QuotaLedger{UserID: userID, LastResetDate: time.Now()}
		f.ledgers[userID] = q
	}
	q.ResetIfStale(time.Now())
	return q
}

func (f *fakeQuotaRepo) Get(_ context.Context, userID string) (*domain.QuotaLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.ledger(userID)
	return &cp, nil
}

func (f *fakeQuotaRepo) CanSubmit(_ context.Context, userID string, kind domain.JobKind, premium bool, dailyLimit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger(userID).CanSubmit(kind, premium, dailyLimit), nil
}

func (f *fakeQuotaRepo) RecordUsage(_ context.Context, userID string, kind domain.JobKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger(userID).Record(kind)
	return nil
}

// fakeStyleRepo serves a fixed style set.
type fakeStyleRepo struct {
	styles map[string]*domain.Style
}

func (f *fakeStyleRepo) ListCategories(context.Context) ([]domain.StyleCategory, error) {
	return nil, nil
}

func (f *fakeStyleRepo) ListActive(context.Context, string) ([]domain.Style, error) {
	var out []domain.Style
	for _, s := range f.styles {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStyleRepo) ListPopular(ctx context.Context, limit int) ([]domain.Style, error) {
	out, err := f.ListActive(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStyleRepo) GetByID(_ context.Context, id string) (*domain.Style, error) {
	s, ok := f.styles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// fakeImageRepo serves uploaded images.
type fakeImageRepo struct {
	mu     sync.Mutex
	images map[string]*domain.Image
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: make(map[string]*domain.Image)}
}

func (f *fakeImageRepo) Create(_ context.Context, img *domain.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *img
	f.images[img.ID] = &cp
	return nil
}

func (f *fakeImageRepo) GetForUser(_ context.Context, id, userID string) (*domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok || img.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (f *fakeImageRepo) ListByUser(_ context.Context, userID string) ([]domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Image
	for _, img := range f.images {
		if img.UserID == userID {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (f *fakeImageRepo) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok || img.UserID != userID {
		return domain.ErrNotFound
	}
	delete(f.images, id)
	return nil
}

// fakeUserRepo stores users in memory.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) MarkEmailVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeUserRepo) SetPremium(_ context.Context, id string, premium bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsPremium = premium
	}
	return nil
}

// fakeVerificationRepo keeps one verification and one reset per user.
type fakeVerificationRepo struct {
	mu            sync.Mutex
	verifications map[string]*domain.EmailVerification
	resets        map[string]*domain.PasswordReset
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{
		verifications: make(map[string]*domain.EmailVerification),
		resets:        make(map[string]*domain.PasswordReset),
	}
}

func (f *fakeVerificationRepo) ReplaceVerification(_ context.Context, v *domain.EmailVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	f.verifications[v.UserID] = &cp
	return nil
}

func (f *fakeVerificationRepo) LatestVerification(_ context.Context, userID string) (*domain.EmailVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.verifications[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVerificationRepo) IncrementVerificationAttempts(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.verifications {
		if v.ID == id {
			v.Attempts++
		}
	}
	return nil
}

func (f *fakeVerificationRepo) DeleteVerifications(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.verifications, userID)
	return nil
}

func (f *fakeVerificationRepo) ReplaceReset(_ context.Context, r *domain.PasswordReset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.resets[r.UserID] = &cp
	return nil
}

func (f *fakeVerificationRepo) LatestReset(_ context.Context, userID string) (*domain.PasswordReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resets[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeVerificationRepo) IncrementResetAttempts(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.resets {
		if r.ID == id {
			r.Attempts++
		}
	}
	return nil
}

func (f *fakeVerificationRepo) MarkResetUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, r := range f.resets {
		if r.ID == id {
			r.UsedAt = &now
		}
	}
	return nil
}

// fakeEventRepo records streaming events in order.
type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.StreamingEvent
}

func (f *fakeEventRepo) Append(_ context.Context, ev *domain.StreamingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *ev)
	return nil
}

func (f *fakeEventRepo) ListByJob(_ context.Context, jobID string) ([]domain.StreamingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StreamingEvent
	for _, ev := range f.events {
		if ev.JobID == jobID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) DeleteByJob(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.events[:0]
	for _, ev := range f.events {
		if ev.JobID != jobID {
			kept = append(kept, ev)
		}
	}
	f.events = kept
	return nil
}

// fakeStore is an in-memory object store.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Write(_ context.Context, key string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (f *fakeStore) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) URL(key string, _ int) string {
	return "http://files.test/" + key
}

// fakeClient scripts provider responses per call.
type fakeClient struct {
	mu            sync.Mutex
	generateCalls int
	editCalls     int
	streamCalls   int
	generateFn    func(int) (*openai.Outcome, error)
	editFn        func(int) (*openai.Outcome, error)
	streamFn      func(int, func(openai.StreamEvent) error) (*openai.Outcome, error)
}

func (f *fakeClient) Generate(_ context.Context, _ openai.GenerateRequest) (*openai.Outcome, error) {
	f.mu.Lock()
	f.generateCalls++
	n := f.generateCalls
	f.mu.Unlock()
	if f.generateFn == nil {
		return okOutcome(), nil
	}
	return f.generateFn(n)
}

func (f *fakeClient) Edit(_ context.Context, _ openai.EditRequest) (*openai.Outcome, error) {
	f.mu.Lock()
	f.editCalls++
	n := f.editCalls
	f.mu.Unlock()
	if f.editFn == nil {
		return okOutcome(), nil
	}
	return f.editFn(n)
}

func (f *fakeClient) GenerateStream(_ context.Context, _ openai.GenerateRequest, fn func(openai.StreamEvent) error) (*openai.Outcome, error) {
	f.mu.Lock()
	f.streamCalls++
	n := f.streamCalls
	f.mu.Unlock()
	if f.streamFn == nil {
		return okOutcome(), nil
	}
	return f.streamFn(n, fn)
}

func okOutcome() *openai.Outcome {
	return &openai.Outcome{
		Images:       []openai.ImagePayload{{Data: []byte("image-bytes")}},
		Size:         "1024x1024",
		Quality:      "high",
		OutputFormat: "png",
	}
}

// fakeModerator returns a scripted decision and counts calls.
type fakeModerator struct {
	mu       sync.Mutex
	calls    int
	decision moderation.Decision
	err      error
}

func (f *fakeModerator) Moderate(context.Context, []byte, string) (moderation.Decision, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return moderation.Decision{}, f.err
	}
	return f.decision, nil
}

// fakeSender records outgoing codes.
type fakeSender struct {
	mu         sync.Mutex
	codes      []string
	resetCodes []string
}

func (f *fakeSender) SendVerificationCode(_ context.Context, _, _, code, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeSender) SendPasswordReset(_ context.Context, _, _, code, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCodes = append(f.resetCodes, code)
	return nil
}

func (f *fakeSender) SendContactMessage(context.Context, email.ContactMessage) error {
	return nil
}

func (f *fakeSender) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) == 0 {
		return ""
	}
	return f.codes[len(f.codes)-1]
}

func (f *fakeSender) lastResetCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resetCodes) == 0 {
		return ""
	}
	return f.resetCodes[len(f.resetCodes)-1]
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jaume768/splashmy/internal/domain"
)

type jobsEnv struct {
	jobs   *fakeJobRepo
	quotas *fakeQuotaRepo
	styles *fakeStyleRepo
	images *fakeImageRepo
	users  *fakeUserRepo
	svc    *JobService
}

func newJobsEnv(t *testing.T) *jobsEnv {
	t.Helper()
	env := &jobsEnv{
		jobs:   newFakeJobRepo(),
		quotas: newFakeQuotaRepo(),
		styles: &fakeStyleRepo{styles: map[string]*domain.Style{}},
		images: newFakeImageRepo(),
		users:  newFakeUserRepo(),
	}
	env.svc = NewJobService(env.jobs, env.quotas, env.styles, env.images, env.users, domain.FreeDailyLimit, testLogger())
	return env
}

func (env *jobsEnv) addUser(t *testing.T, premium bool) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:            uuid.NewString(),
		Email:         "ana@example.com",
		Username:      "ana",
		EmailVerified: true,
		IsPremium:     premium,
	}
	if err := env.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func fieldNames(verr *domain.ValidationError) map[string]bool {
	out := make(map[string]bool, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = true
	}
	return out
}

func TestSubmitGeneration(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)

	job, err := env.svc.Submit(context.Background(), user.ID, SubmitInput{
		Kind:   domain.JobKindGeneration,
		Prompt: "a red fox",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.Params.Size != "auto" || job.Params.N != 1 {
		t.Fatalf("params not normalized: %+v", job.Params)
	}

	stored, err := env.jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if stored.UserID != user.ID {
		t.Fatalf("stored user = %s", stored.UserID)
	}
}

func TestSubmitValidationAggregates(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)

	// Missing prompt, missing source image, bad size: all reported at once.
	_, err := env.svc.Submit(context.Background(), user.ID, SubmitInput{
		Kind:   domain.JobKindEdit,
		Params: domain.GenerationParams{Size: "513x513"},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("submit: %v, want ValidationError", err)
	}
	fields := fieldNames(verr)
	for _, want := range []string{"prompt", "original_image_id", "size"} {
		if !fields[want] {
			t.Fatalf("missing field error %q in %+v", want, verr.Fields)
		}
	}
	if len(env.jobs.jobs) != 0 {
		t.Fatalf("invalid submission persisted a job")
	}
}

func TestSubmitTransparentJPEGRejected(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)

	_, err := env.svc.Submit(context.Background(), user.ID, SubmitInput{
		Kind:   domain.JobKindGeneration,
		Prompt: "logo",
		Params: domain.GenerationParams{Background: "transparent", OutputFormat: "jpeg"},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("submit: %v, want ValidationError", err)
	}
	if !fieldNames(verr)["background"] {
		t.Fatalf("expected background error, got %+v", verr.Fields)
	}
}

func TestSubmitQuotaExceeded(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)
	ctx := context.Background()

	for i := 0; i < domain.FreeDailyLimit; i++ {
		if err := env.quotas.RecordUsage(ctx, user.ID, domain.JobKindGeneration); err != nil {
			t.Fatalf("record usage: %v", err)
		}
	}

	_, err := env.svc.Submit(ctx, user.ID, SubmitInput{Kind: domain.JobKindGeneration, Prompt: "a red fox"})
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("submit over quota: %v, want ErrQuotaExceeded", err)
	}
	if len(env.jobs.jobs) != 0 {
		t.Fatalf("over-quota submission persisted a job")
	}

	// Another kind still has headroom.
	img := &domain.Image{ID: uuid.NewString(), UserID: user.ID, StorageKey: "k", Format: "png"}
	if err := env.images.Create(ctx, img); err != nil {
		t.Fatalf("create image: %v", err)
	}
	if _, err := env.svc.Submit(ctx, user.ID, SubmitInput{
		Kind:          domain.JobKindEdit,
		Prompt:        "remove background",
		SourceImageID: &img.ID,
	}); err != nil {
		t.Fatalf("submit other kind: %v", err)
	}
}

func TestSubmitPremiumBypassesQuota(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, true)
	ctx := context.Background()

	for i := 0; i < domain.FreeDailyLimit*2; i++ {
		if err := env.quotas.RecordUsage(ctx, user.ID, domain.JobKindGeneration); err != nil {
			t.Fatalf("record usage: %v", err)
		}
	}
	if _, err := env.svc.Submit(ctx, user.ID, SubmitInput{Kind: domain.JobKindGeneration, Prompt: "a red fox"}); err != nil {
		t.Fatalf("premium submit: %v", err)
	}
}

func TestSubmitStyleChecks(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)
	ctx := context.Background()

	img := &domain.Image{ID: uuid.NewString(), UserID: user.ID, StorageKey: "k", Format: "png"}
	if err := env.images.Create(ctx, img); err != nil {
		t.Fatalf("create image: %v", err)
	}

	inactive := uuid.NewString()
	premiumOnly := uuid.NewString()
	noStream := uuid.NewString()
	env.styles.styles[inactive] = &domain.Style{ID: inactive, Name: "Retired", IsActive: false}
	env.styles.styles[premiumOnly] = &domain.Style{ID: premiumOnly, Name: "Gold", IsActive: true, IsPremium: true}
	env.styles.styles[noStream] = &domain.Style{ID: noStream, Name: "Plain", IsActive: true}
	unknown := uuid.NewString()

	tests := []struct {
		name      string
		styleID   string
		params    domain.GenerationParams
		wantField string
	}{
		{"unknown style", unknown, domain.GenerationParams{}, "style_id"},
		{"inactive style", inactive, domain.GenerationParams{}, "style_id"},
		{"premium style for free user", premiumOnly, domain.GenerationParams{}, "style_id"},
		{"streaming unsupported", noStream, domain.GenerationParams{Stream: true, PartialImages: 1}, "stream"},
		{"transparency unsupported", noStream, domain.GenerationParams{Background: "transparent"}, "background"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Submit(ctx, user.ID, SubmitInput{
				Kind:          domain.JobKindStyleTransfer,
				SourceImageID: &img.ID,
				StyleID:       &tc.styleID,
				Params:        tc.params,
			})
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("submit: %v, want ValidationError", err)
			}
			if !fieldNames(verr)[tc.wantField] {
				t.Fatalf("expected %q error, got %+v", tc.wantField, verr.Fields)
			}
		})
	}
}

func TestSubmitStyleDefaultOutputFormat(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)
	ctx := context.Background()

	img := &domain.Image{ID: uuid.NewString(), UserID: user.ID, StorageKey: "k", Format: "png"}
	if err := env.images.Create(ctx, img); err != nil {
		t.Fatalf("create image: %v", err)
	}
	styleID := uuid.NewString()
	env.styles.styles[styleID] = &domain.Style{
		ID:                  styleID,
		Name:                "Sticker",
		IsActive:            true,
		DefaultOutputFormat: "webp",
	}

	tests := []struct {
		name       string
		format     string
		wantFormat string
	}{
		{"blank format inherits style default", "", "webp"},
		{"explicit format wins", "png", "png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job, err := env.svc.Submit(ctx, user.ID, SubmitInput{
				Kind:          domain.JobKindStyleTransfer,
				SourceImageID: &img.ID,
				StyleID:       &styleID,
				Params:        domain.GenerationParams{OutputFormat: tc.format},
			})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if job.Params.OutputFormat != tc.wantFormat {
				t.Fatalf("output format = %q, want %q", job.Params.OutputFormat, tc.wantFormat)
			}
		})
	}
}

func TestSubmitForeignSourceImage(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)
	ctx := context.Background()

	other := &domain.Image{ID: uuid.NewString(), UserID: "someone-else", StorageKey: "k", Format: "png"}
	if err := env.images.Create(ctx, other); err != nil {
		t.Fatalf("create image: %v", err)
	}

	_, err := env.svc.Submit(ctx, user.ID, SubmitInput{
		Kind:          domain.JobKindEdit,
		Prompt:        "remove background",
		SourceImageID: &other.ID,
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("submit: %v, want ValidationError", err)
	}
	if !fieldNames(verr)["original_image_id"] {
		t.Fatalf("expected original_image_id error, got %+v", verr.Fields)
	}
}

func TestCancelLifecycle(t *testing.T) {
	env := newJobsEnv(t)
	user := env.addUser(t, false)
	ctx := context.Background()

	job, err := env.svc.Submit(ctx, user.ID, SubmitInput{Kind: domain.JobKindGeneration, Prompt: "a red fox"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := env.svc.Cancel(ctx, job.ID, user.ID); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if status, _ := env.jobs.Status(ctx, job.ID); status != domain.JobStatusCancelled {
		t.Fatalf("status = %s, want cancelled", status)
	}

	// Terminal jobs cannot be cancelled again.
	if err := env.svc.Cancel(ctx, job.ID, user.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancel terminal: %v, want ErrInvalidTransition", err)
	}

	// Other users cannot see the job at all.
	if err := env.svc.Cancel(ctx, job.ID, "someone-else"); !domain.IsNotFound(err) {
		t.Fatalf("cancel by stranger: %v, want ErrNotFound", err)
	}
}

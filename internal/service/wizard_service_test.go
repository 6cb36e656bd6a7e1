package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/repository"
	"github.com/reelforge/reelforge/internal/wizard"
)

func ambientProject(id string) *domain.Project {
	return &domain.Project{
		ID:          id,
		Title:       "morning rain loop",
		Mode:        domain.ModeAmbient,
		CurrentStep: "concept",
	}
}

func newTestWizard(t *testing.T, projects *fakeProjectRepo) *WizardService {
	t.Helper()

	svc, err := NewWizardService(projects, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWizardService() error = %v", err)
	}
	return svc
}

func TestWizardServiceCreateProjectStartsAtFirstStep(t *testing.T) {
	t.Parallel()

	var created *domain.Project
	projects := &fakeProjectRepo{
		createFn: func(ctx context.Context, p *domain.Project) error {
			created = p
			return nil
		},
	}

	svc := newTestWizard(t, projects)

	project, err := svc.CreateProject(context.Background(), CreateProjectParams{
		Title: "morning rain loop",
		Mode:  domain.ModeAmbient,
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if project.CurrentStep != "concept" {
		t.Fatalf("current step = %s, want concept", project.CurrentStep)
	}
	if len(project.CompletedSteps) != 0 {
		t.Fatalf("completed steps = %v, want empty", project.CompletedSteps)
	}
	if created == nil || created.ID == "" {
		t.Fatal("project should be persisted with a generated id")
	}
}

func TestWizardServiceCreateProjectValidation(t *testing.T) {
	t.Parallel()

	svc := newTestWizard(t, &fakeProjectRepo{})

	_, err := svc.CreateProject(context.Background(), CreateProjectParams{
		Title: "   ",
		Mode:  domain.ModeAmbient,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("CreateProject() error = %v, want ErrValidation", err)
	}

	_, err = svc.CreateProject(context.Background(), CreateProjectParams{
		Title: "ok",
		Mode:  "PODCAST",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("CreateProject() error = %v, want ErrValidation", err)
	}
}

func TestWizardServiceNextPersistsProgression(t *testing.T) {
	t.Parallel()

	project := ambientProject("p1")
	project.CompletedSteps = []string{"concept"}

	var savedFields *repository.ProgressionFields
	saveCalls := 0
	projects := &fakeProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return project, nil
		},
		saveProgressionFn: func(ctx context.Context, id string, fields repository.ProgressionFields) error {
			saveCalls++
			savedFields = &fields
			return nil
		},
	}

	svc := newTestWizard(t, projects)

	updated, err := svc.Next(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	if updated.CurrentStep != "visuals" {
		t.Fatalf("current step = %s, want visuals", updated.CurrentStep)
	}
	if saveCalls != 1 {
		t.Fatalf("save calls = %d, want 1", saveCalls)
	}
	if savedFields.CurrentStep != "visuals" {
		t.Fatalf("saved current step = %s, want visuals", savedFields.CurrentStep)
	}
	if len(savedFields.CompletedSteps) != 1 || savedFields.CompletedSteps[0] != "concept" {
		t.Fatalf("saved completed = %v, want [concept]", savedFields.CompletedSteps)
	}
}

func TestWizardServiceNextRejectedWhenCurrentIncomplete(t *testing.T) {
	t.Parallel()

	saveCalled := false
	projects := &fakeProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return ambientProject(id), nil
		},
		saveProgressionFn: func(ctx context.Context, id string, fields repository.ProgressionFields) error {
			saveCalled = true
			return nil
		},
	}

	svc := newTestWizard(t, projects)

	_, err := svc.Next(context.Background(), "p1")

	var notReachable *wizard.StepNotReachableError
	if !errors.As(err, &notReachable) {
		t.Fatalf("Next() error = %v, want StepNotReachableError", err)
	}
	if saveCalled {
		t.Fatal("rejected transition should not be persisted")
	}
}

func TestWizardServiceJumpToHiddenStep(t *testing.T) {
	t.Parallel()

	project := &domain.Project{
		ID:          "p-vlog",
		Title:       "daily vlog",
		Mode:        domain.ModeVlog,
		CurrentStep: "character",
		// captions toggle off, so the captions step is hidden
	}

	projects := &fakeProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return project, nil
		},
	}

	svc := newTestWizard(t, projects)

	_, err := svc.Jump(context.Background(), "p-vlog", "captions")

	var hidden *wizard.StepHiddenError
	if !errors.As(err, &hidden) {
		t.Fatalf("Jump() error = %v, want StepHiddenError", err)
	}
}

func TestWizardServiceSavePayloadMarksDirty(t *testing.T) {
	t.Parallel()

	project := ambientProject("p2")
	project.CompletedSteps = []string{"concept"}
	project.CurrentStep = "visuals"

	var savedFields *repository.ProgressionFields
	projects := &fakeProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return project, nil
		},
		saveProgressionFn: func(ctx context.Context, id string, fields repository.ProgressionFields) error {
			savedFields = &fields
			return nil
		},
	}

	svc := newTestWizard(t, projects)

	payload := json.RawMessage(`{"prompt":"storm clouds"}`)
	updated, err := svc.SavePayload(context.Background(), "p2", "concept", payload)
	if err != nil {
		t.Fatalf("SavePayload() error = %v", err)
	}

	if len(savedFields.DirtySteps) != 1 || savedFields.DirtySteps[0] != "concept" {
		t.Fatalf("saved dirty = %v, want [concept]", savedFields.DirtySteps)
	}
	if string(updated.StepPayloads["concept"]) != `{"prompt":"storm clouds"}` {
		t.Fatalf("payload = %s", updated.StepPayloads["concept"])
	}
}

func TestWizardServiceSavePayloadUnknownStep(t *testing.T) {
	t.Parallel()

	projects := &fakeProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return ambientProject(id), nil
		},
	}

	svc := newTestWizard(t, projects)

	_, err := svc.SavePayload(context.Background(), "p3", "bogus", json.RawMessage(`{}`))

	var notFound *wizard.StepNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("SavePayload() error = %v, want StepNotFoundError", err)
	}
}

func TestWizardServicePersistFailurePropagates(t *testing.T) {
	t.Parallel()

	persistErr := errors.New("db down")
	project := ambientProject("p4")
	project.CompletedSteps = []string{"concept"}

	projects := &fakeProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return project, nil
		},
		saveProgressionFn: func(ctx context.Context, id string, fields repository.ProgressionFields) error {
			return persistErr
		},
	}

	svc := newTestWizard(t, projects)

	_, err := svc.Next(context.Background(), "p4")
	if !errors.Is(err, persistErr) {
		t.Fatalf("Next() error = %v, want wrapped %v", err, persistErr)
	}
}

func TestWizardServiceStepsView(t *testing.T) {
	t.Parallel()

	project := ambientProject("p5")
	project.CompletedSteps = []string{"concept"}
	project.DirtySteps = []string{"concept"}
	project.CurrentStep = "visuals"

	projects := &fakeProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return project, nil
		},
	}

	svc := newTestWizard(t, projects)

	views, err := svc.Steps(context.Background(), "p5")
	if err != nil {
		t.Fatalf("Steps() error = %v", err)
	}

	wantIDs := []string{"concept", "visuals", "audio", "export"}
	if len(views) != len(wantIDs) {
		t.Fatalf("views = %d, want %d", len(views), len(wantIDs))
	}
	for i, view := range views {
		if view.ID != wantIDs[i] {
			t.Fatalf("view %d id = %s, want %s", i, view.ID, wantIDs[i])
		}
	}

	if !views[0].Completed || !views[0].Dirty {
		t.Fatalf("concept view = %+v, want completed and dirty", views[0])
	}
	if !views[1].Current {
		t.Fatalf("visuals view = %+v, want current", views[1])
	}
	if views[3].Completed {
		t.Fatalf("export view = %+v, want not completed", views[3])
	}
}

type fakeProjectRepo struct {
	createFn          func(ctx context.Context, p *domain.Project) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Project, error)
	saveProgressionFn func(ctx context.Context, id string, fields repository.ProgressionFields) error
	setAssetURLFn     func(ctx context.Context, id string, assetURL string) error
	listFn            func(ctx context.Context, params repository.ListProjectsParams) ([]domain.Project, int64, error)
	deleteFn          func(ctx context.Context, id string) error
}

func (f *fakeProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	return nil
}

func (f *fakeProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProjectRepo) SaveProgression(ctx context.Context, id string, fields repository.ProgressionFields) error {
	if f.saveProgressionFn != nil {
		return f.saveProgressionFn(ctx, id, fields)
	}
	return nil
}

func (f *fakeProjectRepo) SetAssetURL(ctx context.Context, id string, assetURL string) error {
	if f.setAssetURLFn != nil {
		return f.setAssetURLFn(ctx, id, assetURL)
	}
	return nil
}

func (f *fakeProjectRepo) List(ctx context.Context, params repository.ListProjectsParams) ([]domain.Project, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeProjectRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

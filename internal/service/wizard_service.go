package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/observability"
	"github.com/reelforge/reelforge/internal/repository"
	"github.com/reelforge/reelforge/internal/wizard"
)

// WizardService runs wizard transitions against persisted projects.
// Every transition loads the project, applies the step rules in memory,
// and persists the full progression in one statement. Transitions for a
// given project are serialized with an in-process lock.
type WizardService struct {
	projects repository.ProjectRepository
	metrics  *observability.Metrics
	logger   *zap.Logger
	locks    *projectLocks
}

type CreateProjectParams struct {
	Title            string
	Mode             domain.Mode
	VoiceoverEnabled bool
	CaptionsEnabled  bool
}

// StepView is one wizard step as shown to the client, with progression
// flags resolved for the project's current toggle context.
type StepView struct {
	ID        string
	Current   bool
	Completed bool
	Dirty     bool
}

func NewWizardService(
	projects repository.ProjectRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*WizardService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WizardService{
		projects: projects,
		metrics:  metrics,
		logger:   logger,
		locks:    newProjectLocks(),
	}, nil
}

func (s *WizardService) CreateProject(ctx context.Context, params CreateProjectParams) (*domain.Project, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	project := &domain.Project{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(params.Title),
		Mode:             params.Mode,
		VoiceoverEnabled: params.VoiceoverEnabled,
		CaptionsEnabled:  params.CaptionsEnabled,
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}

	prog, err := wizard.NewProgression(project.Mode, wizardContext(project))
	if err != nil {
		return nil, err
	}

	project.CurrentStep = prog.CurrentStep
	project.CompletedSteps = prog.CompletedSteps()
	project.DirtySteps = prog.DirtySteps()
	project.StepPayloads = prog.Payloads()

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("projectId", project.ID),
		zap.String("mode", project.Mode.String()),
		zap.String("currentStep", project.CurrentStep),
	)

	return project, nil
}

func (s *WizardService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrValidation)
	}
	return s.projects.GetByID(ctx, strings.TrimSpace(id))
}

func (s *WizardService) ListProjects(
	ctx context.Context,
	params repository.ListProjectsParams,
) ([]domain.Project, int64, error) {
	return s.projects.List(ctx, params)
}

func (s *WizardService) DeleteProject(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: project id is required", domain.ErrValidation)
	}
	return s.projects.Delete(ctx, strings.TrimSpace(id))
}

// Steps returns the visible step list for a project with progression flags.
func (s *WizardService) Steps(ctx context.Context, projectID string) ([]StepView, error) {
	project, prog, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	visible, err := wizard.VisibleSteps(project.Mode, wizardContext(project))
	if err != nil {
		return nil, err
	}

	views := make([]StepView, 0, len(visible))
	for _, step := range visible {
		views = append(views, StepView{
			ID:        step.ID,
			Current:   step.ID == prog.CurrentStep,
			Completed: prog.IsCompleted(step.ID),
			Dirty:     prog.IsDirty(step.ID),
		})
	}
	return views, nil
}

func (s *WizardService) Next(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.transition(ctx, projectID, "next", func(prog *wizard.Progression, wctx wizard.Context) error {
		return prog.Next(wctx)
	})
}

func (s *WizardService) Back(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.transition(ctx, projectID, "back", func(prog *wizard.Progression, wctx wizard.Context) error {
		return prog.Back(wctx)
	})
}

func (s *WizardService) Jump(ctx context.Context, projectID string, stepID string) (*domain.Project, error) {
	stepID = strings.TrimSpace(stepID)
	if stepID == "" {
		return nil, fmt.Errorf("%w: step id is required", domain.ErrValidation)
	}
	return s.transition(ctx, projectID, "jump", func(prog *wizard.Progression, wctx wizard.Context) error {
		return prog.Jump(stepID, wctx)
	})
}

// CompleteCurrent marks the current step done and persists the progression.
func (s *WizardService) CompleteCurrent(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.transition(ctx, projectID, "complete", func(prog *wizard.Progression, wctx wizard.Context) error {
		prog.MarkCurrentComplete()
		return nil
	})
}

// SavePayload stores a step's opaque payload and marks the step dirty.
// Downstream invalidation is left to the client.
func (s *WizardService) SavePayload(
	ctx context.Context,
	projectID string,
	stepID string,
	payload json.RawMessage,
) (*domain.Project, error) {
	stepID = strings.TrimSpace(stepID)
	if stepID == "" {
		return nil, fmt.Errorf("%w: step id is required", domain.ErrValidation)
	}
	return s.transition(ctx, projectID, "save_payload", func(prog *wizard.Progression, wctx wizard.Context) error {
		return prog.SetPayload(stepID, payload)
	})
}

func (s *WizardService) ClearDirty(ctx context.Context, projectID string, stepID string) (*domain.Project, error) {
	stepID = strings.TrimSpace(stepID)
	if stepID == "" {
		return nil, fmt.Errorf("%w: step id is required", domain.ErrValidation)
	}
	return s.transition(ctx, projectID, "clear_dirty", func(prog *wizard.Progression, wctx wizard.Context) error {
		return prog.ClearDirty(stepID)
	})
}

func (s *WizardService) transition(
	ctx context.Context,
	projectID string,
	kind string,
	apply func(prog *wizard.Progression, wctx wizard.Context) error,
) (*domain.Project, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrValidation)
	}

	s.locks.lock(projectID)
	defer s.locks.unlock(projectID)

	project, prog, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	wctx := wizardContext(project)
	if err := apply(prog, wctx); err != nil {
		s.metrics.IncWizardTransition(project.Mode.String(), kind, rejectionOutcome(err))
		return nil, err
	}

	fields := repository.ProgressionFields{
		CurrentStep:    prog.CurrentStep,
		CompletedSteps: prog.CompletedSteps(),
		DirtySteps:     prog.DirtySteps(),
		StepPayloads:   prog.Payloads(),
	}
	if err := s.projects.SaveProgression(ctx, projectID, fields); err != nil {
		s.metrics.IncWizardTransition(project.Mode.String(), kind, "persist_failed")
		return nil, fmt.Errorf("failed to save progression: %w", err)
	}

	project.CurrentStep = fields.CurrentStep
	project.CompletedSteps = fields.CompletedSteps
	project.DirtySteps = fields.DirtySteps
	project.StepPayloads = fields.StepPayloads

	s.metrics.IncWizardTransition(project.Mode.String(), kind, "accepted")
	s.logger.Debug("wizard transition applied",
		zap.String("projectId", projectID),
		zap.String("kind", kind),
		zap.String("currentStep", project.CurrentStep),
	)

	return project, nil
}

func (s *WizardService) load(ctx context.Context, projectID string) (*domain.Project, *wizard.Progression, error) {
	project, err := s.projects.GetByID(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, nil, err
	}

	prog, err := wizard.Restore(
		project.Mode,
		project.CurrentStep,
		project.CompletedSteps,
		project.DirtySteps,
		project.StepPayloads,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to restore progression for project %s: %w", project.ID, err)
	}

	return project, prog, nil
}

func wizardContext(p *domain.Project) wizard.Context {
	return wizard.Context{
		VoiceoverEnabled: p.VoiceoverEnabled,
		CaptionsEnabled:  p.CaptionsEnabled,
	}
}

func rejectionOutcome(err error) string {
	var (
		notFound     *wizard.StepNotFoundError
		hidden       *wizard.StepHiddenError
		notReachable *wizard.StepNotReachableError
		terminal     *wizard.TerminalStepLockedError
	)

	switch {
	case errors.As(err, &notFound):
		return "rejected_not_found"
	case errors.As(err, &hidden):
		return "rejected_hidden"
	case errors.As(err, &notReachable):
		return "rejected_not_reachable"
	case errors.As(err, &terminal):
		return "rejected_terminal_locked"
	case errors.Is(err, domain.ErrValidation):
		return "rejected_invalid"
	}
	return "rejected"
}

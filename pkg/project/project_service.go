package project

import (
	"context"
	"fmt"

	"github.com/obratrack/obratrack/pkg/category"
	log "github.com/sirupsen/logrus"
)

type ProjectService interface {
	GetAll(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id int64) (Project, error)
	Create(ctx context.Context, project Project) (Project, error)
	Update(ctx context.Context, project Project) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type ProjectServiceImpl struct {
	repo ProjectRepo
}

func NewProjectService(repo ProjectRepo) *ProjectServiceImpl {
	return &ProjectServiceImpl{repo: repo}
}

func (s *ProjectServiceImpl) GetAll(ctx context.Context) ([]Project, error) {
	return s.repo.GetAll(ctx)
}

func (s *ProjectServiceImpl) Get(ctx context.Context, id int64) (Project, error) {
	return s.repo.Get(ctx, id)
}

func (s *ProjectServiceImpl) Create(ctx context.Context, project Project) (Project, error) {
	if err := validateCategoryBudgets(project); err != nil {
		return Project{}, err
	}
	id, err := s.repo.Store(ctx, project)
	if err != nil {
		return Project{}, err
	}
	project.ID = id
	return project, nil
}

func (s *ProjectServiceImpl) Update(ctx context.Context, project Project) (bool, error) {
	if err := validateCategoryBudgets(project); err != nil {
		return false, err
	}
	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		return false, err
	}
	if !updated {
		log.Warnf("project not updated, probably because it does not exist (%d)", project.ID)
		return false, nil
	}
	return true, nil
}

// Delete removes a project. A project that still owns allocation rows cannot
// be deleted; the caller must reassign or unassign its transactions first.
func (s *ProjectServiceImpl) Delete(ctx context.Context, id int64) (bool, error) {
	count, err := s.repo.AllocationCount(ctx, id)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, fmt.Errorf("%w: %d allocation(s)", ErrProjectHasAllocations, count)
	}
	return s.repo.Delete(ctx, id)
}

func validateCategoryBudgets(project Project) error {
	for cat := range project.CategoryBudgets {
		if _, err := category.Parse(string(cat)); err != nil {
			return fmt.Errorf("invalid category budget: %w", err)
		}
	}
	return nil
}

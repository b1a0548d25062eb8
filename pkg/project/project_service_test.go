package project

import (
	"context"
	"testing"

	"github.com/obratrack/obratrack/pkg/category"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var projectRepoStub = NewStubProjectRepo()

var service ProjectService

func setup(t *testing.T) func() {
	service = NewProjectService(projectRepoStub)
	return func() {
		t.Log("Teardown after test")
		projectRepoStub.Cleanup()
	}
}

func TestProjectService_Create(t *testing.T) {
	t.Run("should create a project with category budgets", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		created, err := service.Create(ctx, Project{
			Name:        "Reforma cocina",
			TotalBudget: 25000,
			CategoryBudgets: map[category.ExpenseCategory]float64{
				category.MaterialYManoDeObra: 18000,
				category.Suministros:         2000,
			},
		})

		// then
		assert.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Reforma cocina", created.Name)
		assert.Equal(t, 18000.0, created.CategoryBudgets[category.MaterialYManoDeObra])
	})

	t.Run("should reject a budget for an unknown category", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Create(ctx, Project{
			Name: "Bad",
			CategoryBudgets: map[category.ExpenseCategory]float64{
				category.ExpenseCategory("VIAJES"): 100,
			},
		})

		// then
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown expense category")
	})
}

func TestProjectService_Delete(t *testing.T) {
	t.Run("should delete a project without allocations", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, Project{Name: "Empty"})
		require.NoError(t, err)

		// when
		deleted, err := service.Delete(ctx, created.ID)

		// then
		assert.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("should refuse to delete a project owning allocations", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, Project{Name: "Busy"})
		require.NoError(t, err)
		projectRepoStub.SetAllocationCount(created.ID, 3)

		// when
		deleted, err := service.Delete(ctx, created.ID)

		// then
		assert.ErrorIs(t, err, ErrProjectHasAllocations)
		assert.False(t, deleted)
	})
}

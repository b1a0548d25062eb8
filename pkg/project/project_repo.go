package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/obratrack/obratrack/pkg/category"
	log "github.com/sirupsen/logrus"
)

type ProjectRepo interface {
	Store(ctx context.Context, project Project) (int64, error)
	GetAll(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id int64) (Project, error)
	Update(ctx context.Context, project Project) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// Exists reports whether every given project id is present.
	Exists(ctx context.Context, ids []int64) (bool, error)
	// AllocationCount returns the number of allocation rows owned by the project.
	AllocationCount(ctx context.Context, id int64) (int, error)
}

type ProjectRepoImpl struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepoImpl {
	return &ProjectRepoImpl{db: db}
}

func (r *ProjectRepoImpl) Store(ctx context.Context, project Project) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("could not begin transaction: %w", err)
		log.Error(err)
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO project (name, total_budget) VALUES (?, ?)",
		project.Name, project.TotalBudget,
	)
	if err != nil {
		err := fmt.Errorf("could not insert project: %w", err)
		log.Error(err)
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("could not retrieve last insert id: %w", err)
		log.Error(err)
		return 0, err
	}

	if err := replaceCategoryBudgets(ctx, tx, id, project.CategoryBudgets); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("could not commit transaction: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *ProjectRepoImpl) GetAll(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, total_budget FROM project ORDER BY id")
	if err != nil {
		err := fmt.Errorf("could not query projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.TotalBudget); err != nil {
			err := fmt.Errorf("could not scan project: %w", err)
			log.Error(err)
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}

	for i := range projects {
		budgets, err := r.categoryBudgets(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].CategoryBudgets = budgets
	}
	return projects, nil
}

func (r *ProjectRepoImpl) Get(ctx context.Context, id int64) (Project, error) {
	var p Project
	row := r.db.QueryRowContext(ctx, "SELECT id, name, total_budget FROM project WHERE id = ?", id)
	if err := row.Scan(&p.ID, &p.Name, &p.TotalBudget); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrProjectNotFound
		}
		err := fmt.Errorf("could not scan project: %w", err)
		log.Error(err)
		return Project{}, err
	}
	budgets, err := r.categoryBudgets(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p.CategoryBudgets = budgets
	return p, nil
}

func (r *ProjectRepoImpl) Update(ctx context.Context, project Project) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("could not begin transaction: %w", err)
		log.Error(err)
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE project SET name = ?, total_budget = ? WHERE id = ?",
		project.Name, project.TotalBudget, project.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not update project: %w", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if err := replaceCategoryBudgets(ctx, tx, project.ID, project.CategoryBudgets); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("could not commit transaction: %w", err)
		log.Error(err)
		return false, err
	}
	return true, nil
}

func (r *ProjectRepoImpl) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM project WHERE id = ?", id)
	if err != nil {
		err := fmt.Errorf("could not delete project: %w", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *ProjectRepoImpl) Exists(ctx context.Context, ids []int64) (bool, error) {
	for _, id := range ids {
		var one int
		row := r.db.QueryRowContext(ctx, "SELECT 1 FROM project WHERE id = ?", id)
		if err := row.Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			err := fmt.Errorf("could not check project existence: %w", err)
			log.Error(err)
			return false, err
		}
	}
	return true, nil
}

func (r *ProjectRepoImpl) AllocationCount(ctx context.Context, id int64) (int, error) {
	var count int
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM allocation WHERE project_id = ?", id)
	if err := row.Scan(&count); err != nil {
		err := fmt.Errorf("could not count allocations: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func (r *ProjectRepoImpl) categoryBudgets(ctx context.Context, id int64) (map[category.ExpenseCategory]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, amount FROM project_category_budget WHERE project_id = ?", id)
	if err != nil {
		err := fmt.Errorf("could not query category budgets: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	budgets := map[category.ExpenseCategory]float64{}
	for rows.Next() {
		var cat string
		var amount float64
		if err := rows.Scan(&cat, &amount); err != nil {
			err := fmt.Errorf("could not scan category budget: %w", err)
			log.Error(err)
			return nil, err
		}
		budgets[category.ExpenseCategory(cat)] = amount
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return budgets, nil
}

func replaceCategoryBudgets(ctx context.Context, tx *sql.Tx, id int64, budgets map[category.ExpenseCategory]float64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM project_category_budget WHERE project_id = ?", id); err != nil {
		err := fmt.Errorf("could not clear category budgets: %w", err)
		log.Error(err)
		return err
	}
	for cat, amount := range budgets {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO project_category_budget (project_id, category, amount) VALUES (?, ?, ?)",
			id, string(cat), amount,
		)
		if err != nil {
			err := fmt.Errorf("could not insert category budget: %w", err)
			log.Error(err)
			return err
		}
	}
	return nil
}

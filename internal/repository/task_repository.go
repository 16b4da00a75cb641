package repository

import (
	"strings"

	"github.com/taskflow/project-management-api/internal/database"
	"github.com/taskflow/project-management-api/internal/models"
	"gorm.io/gorm"
)

// priorityRankExpr maps the priority enum onto its total order for sorting.
const priorityRankExpr = "CASE tasks.priority" +
	" WHEN 'low' THEN 0" +
	" WHEN 'medium' THEN 1" +
	" WHEN 'high' THEN 2" +
	" WHEN 'critical' THEN 3" +
	" END"

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks matching the filter. Each provided clause is added as
// an independent parameterized condition; all clauses combine with AND. The
// total is counted against the identical predicate before the page window is
// applied, so pagination metadata stays correct for any clause combination.
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Where("tasks.project_id = ?", filter.ProjectID)

	if len(filter.Statuses) > 0 {
		query = query.Where("tasks.status IN ?", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("tasks.priority IN ?", filter.Priorities)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			r.db.Where("LOWER(tasks.title) LIKE ?", pattern).
				Or("LOWER(tasks.description) LIKE ?", pattern),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order(orderClause(filter.SortBy, filter.SortOrder))

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(filter.Page, filter.PageSize))
	}

	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// orderClause translates sort parameters into an ORDER BY expression. The
// direction is resolved against a fixed whitelist, never interpolated from
// caller input. Unrecognized sort keys fall back to newest-first.
func orderClause(sortBy, sortOrder string) string {
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}

	switch sortBy {
	case "priority":
		return priorityRankExpr + " " + direction
	case "dueDate":
		return "tasks.due_date " + direction
	case "createdAt":
		return "tasks.created_at " + direction
	default:
		return "tasks.created_at DESC"
	}
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete soft deletes a task and its comments
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

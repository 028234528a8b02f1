package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
)

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// projectRow maps 1:1 to the projects table. Technologies are stored as a
// JSON array in technologies_json.
type projectRow struct {
	ID               string     `db:"id"`
	Title            string     `db:"title"`
	Description      string     `db:"description"`
	Category         string     `db:"category"`
	ImageURL         string     `db:"image_url"`
	VideoURL         string     `db:"video_url"`
	TechnologiesJSON string     `db:"technologies_json"`
	GithubURL        string     `db:"github_url"`
	DemoURL          string     `db:"demo_url"`
	DateCompleted    *time.Time `db:"date_completed"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func projectRowFromModel(p *model.Project) (projectRow, error) {
	techs := p.Technologies
	if techs == nil {
		techs = []string{}
	}
	techJSON, err := json.Marshal(techs)
	if err != nil {
		return projectRow{}, fmt.Errorf("marshal technologies: %w", err)
	}
	return projectRow{
		ID:               p.ID,
		Title:            p.Title,
		Description:      p.Description,
		Category:         p.Category,
		ImageURL:         p.ImageURL,
		VideoURL:         p.VideoURL,
		TechnologiesJSON: string(techJSON),
		GithubURL:        p.GithubURL,
		DemoURL:          p.DemoURL,
		DateCompleted:    utcPtr(p.DateCompleted),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}, nil
}

func (r projectRow) toModel() (model.Project, error) {
	var techs []string
	if err := json.Unmarshal([]byte(r.TechnologiesJSON), &techs); err != nil {
		return model.Project{}, fmt.Errorf("unmarshal technologies for project %s: %w", r.ID, err)
	}
	return model.Project{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		ImageURL:      r.ImageURL,
		VideoURL:      r.VideoURL,
		Technologies:  techs,
		GithubURL:     r.GithubURL,
		DemoURL:       r.DemoURL,
		DateCompleted: r.DateCompleted,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

// CreateProject inserts a project. ID, CreatedAt and UpdatedAt are populated
// on success and an empty category becomes model.DefaultCategory.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	now := time.Now().UTC()
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Category == "" {
		p.Category = model.DefaultCategory
	}

	row, err := projectRowFromModel(p)
	if err != nil {
		return err
	}

	const q = `INSERT INTO projects
		(id, title, description, category, image_url, video_url, technologies_json,
		 github_url, demo_url, date_completed, created_at, updated_at)
		VALUES
		(:id, :title, :description, :category, :image_url, :video_url, :technologies_json,
		 :github_url, :demo_url, :date_completed, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject returns a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var row projectRow
	q := s.db.Rebind("SELECT * FROM projects WHERE id = ?")
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM projects ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]model.Project, len(rows))
	for i, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		projects[i] = p
	}
	return projects, nil
}

// UpdateProject replaces every mutable column of an existing project. The
// UpdatedAt field is refreshed automatically.
func (s *Store) UpdateProject(ctx context.Context, p *model.Project) error {
	p.UpdatedAt = time.Now().UTC()
	row, err := projectRowFromModel(p)
	if err != nil {
		return err
	}

	const q = `UPDATE projects SET
		title = :title, description = :description, category = :category,
		image_url = :image_url, video_url = :video_url, technologies_json = :technologies_json,
		github_url = :github_url, demo_url = :demo_url, date_completed = :date_completed,
		updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes a project by ID.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM projects WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// CreateContact stores a contact form submission.
func (s *Store) CreateContact(ctx context.Context, c *model.Contact) error {
	c.ID = newID()
	c.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO contacts (id, name, email, subject, message, created_at)
		VALUES (:id, :name, :email, :subject, :message, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, c); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// ListContacts returns all submissions, newest first.
func (s *Store) ListContacts(ctx context.Context) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.db.SelectContext(ctx, &contacts, "SELECT * FROM contacts ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

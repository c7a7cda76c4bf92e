package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/database"
	apperr "citypulse/internal/errors"
	"citypulse/internal/filter"
	"citypulse/internal/models"
)

// ComplaintsTable maps complaint document paths onto the complaints table
var ComplaintsTable = filter.Table{
	Name: "complaints",
	Key:  "id",
	Columns: map[string]string{
		"_id":        "id",
		"event":      "event_id",
		"author":     "author_id",
		"text":       "text",
		"status":     "status",
		"created_at": "created_at",
	},
}

const complaintColumns = `id, event_id, author_id, text, status, answer, executor_id, date_answered, created_at`

// ComplaintRepository keeps the append-only complaint log in PostgreSQL
type ComplaintRepository struct {
	db *database.DB
}

func NewComplaintRepository(db *database.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	query := `
		INSERT INTO complaints (event_id, author_id, text, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		c.EventID.Hex(),
		c.Author.Hex(),
		c.Text,
		c.Status,
		c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert complaint: %w", err)
	}
	return nil
}

func (r *ComplaintRepository) Get(ctx context.Context, id int64) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`

	c, err := scanComplaint(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("complaint")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	return c, nil
}

// Reply closes the complaint only while it is still OPEN
func (r *ComplaintRepository) Reply(ctx context.Context, id int64, answer string, executor bson.ObjectID, now time.Time) (*models.Complaint, error) {
	query := `
		UPDATE complaints
		SET status = 'CLOSED', answer = $2, executor_id = $3, date_answered = $4
		WHERE id = $1 AND status = 'OPEN'
		RETURNING ` + complaintColumns

	c, err := scanComplaint(r.db.QueryRowContext(ctx, query, id, answer, executor.Hex(), now))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to reply to complaint: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check complaint: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound("complaint")
	}
	return nil, apperr.ErrComplaintClosed
}

func (r *ComplaintRepository) List(ctx context.Context, q filter.Query) ([]*models.Complaint, error) {
	where, err := filter.ToSQL(ComplaintsTable, q.Where, 0)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + complaintColumns + ` FROM complaints WHERE ` + where.Where)
	args := where.Args

	if len(q.Sort) > 0 {
		order, err := filter.ToOrderBy(ComplaintsTable, q.Sort)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" ORDER BY " + order)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Skip > 0 {
		args = append(args, q.Skip)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.ExecuteWithRetry(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	complaints := []*models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}

func (r *ComplaintRepository) Count(ctx context.Context, c filter.Cond) (int64, error) {
	where, err := filter.ToSQL(ComplaintsTable, c, 0)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints WHERE `+where.Where, where.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count complaints: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var (
		c                 models.Complaint
		eventID, authorID string
		executorID        sql.NullString
		answer            sql.NullString
		answered          sql.NullTime
	)
	err := row.Scan(&c.ID, &eventID, &authorID, &c.Text, &c.Status, &answer, &executorID, &answered, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if c.EventID, err = bson.ObjectIDFromHex(eventID); err != nil {
		return nil, fmt.Errorf("bad event id %q: %w", eventID, err)
	}
	if c.Author, err = bson.ObjectIDFromHex(authorID); err != nil {
		return nil, fmt.Errorf("bad author id %q: %w", authorID, err)
	}
	if answer.Valid {
		c.Answer = &answer.String
	}
	if executorID.Valid {
		executor, err := bson.ObjectIDFromHex(executorID.String)
		if err != nil {
			return nil, fmt.Errorf("bad executor id %q: %w", executorID.String, err)
		}
		c.Executor = &executor
	}
	if answered.Valid {
		c.DateAnswered = &answered.Time
	}
	return &c, nil
}

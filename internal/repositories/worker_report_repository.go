package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"qurylysBack/internal/models"
)

type WorkerReportRepository struct {
	DB *sql.DB
}

func (r *WorkerReportRepository) CreateReport(ctx context.Context, rep models.WorkerReport) (models.WorkerReport, error) {
	now := time.Now()
	res, err := r.DB.ExecContext(ctx, `
               INSERT INTO worker_reports (milestone_id, worker_id, description, photo_url, status, customer_status, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.MilestoneID, rep.WorkerID, rep.Description, rep.PhotoURL, models.ReportPending, models.ReportPending, now,
	)
	if err != nil {
		return models.WorkerReport{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.WorkerReport{}, err
	}
	rep.ID = int(id)
	rep.Status = models.ReportPending
	rep.CustomerStatus = models.ReportPending
	rep.CreatedAt = now
	return rep, nil
}

func (r *WorkerReportRepository) GetReportByID(ctx context.Context, id int) (models.WorkerReport, error) {
	var rep models.WorkerReport
	err := r.DB.QueryRowContext(ctx, `
               SELECT id, milestone_id, worker_id, description, photo_url, status, customer_status, created_at, updated_at
               FROM worker_reports WHERE id = ?`, id).
		Scan(&rep.ID, &rep.MilestoneID, &rep.WorkerID, &rep.Description, &rep.PhotoURL, &rep.Status, &rep.CustomerStatus, &rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WorkerReport{}, models.ErrReportNotFound
	}
	return rep, err
}

func (r *WorkerReportRepository) SetCustomerStatus(ctx context.Context, id int, status string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE worker_reports SET customer_status = ?, updated_at = NOW() WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrReportNotFound
	}
	return nil
}

func (r *WorkerReportRepository) ListByMilestone(ctx context.Context, milestoneID int) ([]models.WorkerReport, error) {
	rows, err := r.DB.QueryContext(ctx, `
               SELECT id, milestone_id, worker_id, description, photo_url, status, customer_status, created_at, updated_at
               FROM worker_reports WHERE milestone_id = ? ORDER BY created_at DESC`, milestoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []models.WorkerReport{}
	for rows.Next() {
		var rep models.WorkerReport
		if err := rows.Scan(&rep.ID, &rep.MilestoneID, &rep.WorkerID, &rep.Description, &rep.PhotoURL, &rep.Status, &rep.CustomerStatus, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

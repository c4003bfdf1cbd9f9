package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	var count int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE phone = ?`, user.Phone).Scan(&count); err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, models.ErrDuplicatePhone
	}

	user.CreatedAt = time.Now()
	user.TrustScore = models.DefaultTrustScore
	result, err := r.DB.ExecContext(ctx, `
               INSERT INTO users (name, surname, phone, email, password, role, verified, trust_score, total_projects_completed, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		user.Name, user.Surname, user.Phone, user.Email, user.Password, user.Role, user.Verified, user.TrustScore, user.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	user.ID = int(id)
	return user, nil
}

const userColumns = `id, name, surname, phone, email, password, role, verified, trust_score, total_projects_completed, avatar_path, created_at, updated_at`

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Surname, &user.Phone, &user.Email, &user.Password, &user.Role,
		&user.Verified, &user.TrustScore, &user.TotalProjectsCompleted, &user.AvatarPath,
		&user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (models.User, error) {
	user, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	user, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return user, err
}

// GetContractorByID returns the contractor profile, failing when the id does
// not belong to a verified contractor.
func (r *UserRepository) GetContractorByID(ctx context.Context, id int) (models.User, error) {
	user, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND role = ?`, id, models.RoleContractor))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrContractorNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	if !user.Verified {
		return models.User{}, models.ErrContractorNotFound
	}
	return user, nil
}

// ApplyReleaseReward bumps the contractor trust score by 2 capped at 100 and
// increments the completed project counter. A single UPDATE keeps the
// increment atomic under concurrent releases for the same contractor. It runs
// on the caller's execer so the milestone repository can commit the reward in
// the same transaction as the release itself.
func (r *UserRepository) ApplyReleaseReward(ctx context.Context, ex fsm.Execer, contractorID int) error {
	res, err := ex.ExecContext(ctx, `
               UPDATE users
               SET trust_score = LEAST(100, trust_score + 2),
                   total_projects_completed = total_projects_completed + 1,
                   updated_at = NOW()
               WHERE id = ? AND role = ?`,
		contractorID, models.RoleContractor,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrContractorNotFound
	}
	return nil
}

func (r *UserRepository) CreateSession(ctx context.Context, s models.Session) error {
	_, err := r.DB.ExecContext(ctx, `
               INSERT INTO sessions (user_id, role, refresh_token, expires_at)
               VALUES (?, ?, ?, ?)`,
		s.UserID, s.Role, s.RefreshToken, s.ExpiresAt,
	)
	return err
}

func (r *UserRepository) GetSessionByToken(ctx context.Context, token string) (models.Session, error) {
	var s models.Session
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, role, refresh_token, expires_at FROM sessions WHERE refresh_token = ?`, token).
		Scan(&s.UserID, &s.Role, &s.RefreshToken, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	return s, err
}

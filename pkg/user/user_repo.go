package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNoUser indicates that no user identity is attached to the request context.
	ErrNoUser = errors.New("no user in context")
	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	UpdateUser(ctx context.Context, userId int, user User) (User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name, email, timezone, week_first_day, currency)
				VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query,
		user.Uid,
		user.Username,
		user.DisplayName,
		user.Email,
		user.Settings.Timezone,
		user.Settings.WeekFirstDay,
		user.Settings.Currency,
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT id, uid, username, display_name, email, timezone, week_first_day, currency
				FROM users WHERE id = $1`
	return u.scanOne(u.db.QueryRow(ctx, query, id))
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT id, uid, username, display_name, email, timezone, week_first_day, currency
				FROM users WHERE uid = $1`
	return u.scanOne(u.db.QueryRow(ctx, query, uid))
}

func (u *UserRepoImpl) scanOne(row pgx.Row) (User, error) {
	var user User
	var email sql.NullString
	err := row.Scan(
		&user.Id,
		&user.Uid,
		&user.Username,
		&user.DisplayName,
		&email,
		&user.Settings.Timezone,
		&user.Settings.WeekFirstDay,
		&user.Settings.Currency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	if email.Valid {
		user.Email = email.String
	}
	return user, nil
}

func (u *UserRepoImpl) UpdateUser(ctx context.Context, userId int, user User) (User, error) {
	query := `UPDATE users SET display_name = $1, email = $2, timezone = $3, week_first_day = $4, currency = $5
				WHERE id = $6`
	result, err := u.db.Exec(ctx, query,
		user.DisplayName,
		user.Email,
		user.Settings.Timezone,
		user.Settings.WeekFirstDay,
		user.Settings.Currency,
		userId,
	)
	if err != nil {
		return User{}, err
	}
	if result.RowsAffected() == 0 {
		log.Infof("no rows affected when updating user %d", userId)
		return User{}, ErrUserNotFound
	}
	user.Id = userId
	return user, nil
}

func (u *UserRepoImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	if err := u.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		log.Errorf("failed to check username availability: %v", err)
		return false, err
	}
	return !exists, nil
}

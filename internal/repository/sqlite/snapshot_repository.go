package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feather-planner/internal/domain"
	"feather-planner/internal/repository"
)

const createSnapshotTables = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	taken_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	fullname TEXT NOT NULL,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	next_session INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS user_sessions (
	user_id INTEGER NOT NULL,
	session_id INTEGER NOT NULL,
	PRIMARY KEY (user_id, session_id),
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS calendars (
	user_id INTEGER PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS plans (
	user_id INTEGER NOT NULL,
	plan_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	PRIMARY KEY (user_id, plan_id),
	FOREIGN KEY(user_id) REFERENCES calendars(user_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS calendar_dates (
	user_id INTEGER NOT NULL,
	date TEXT NOT NULL,
	position INTEGER NOT NULL,
	plan_id INTEGER NOT NULL,
	PRIMARY KEY (user_id, date, position),
	FOREIGN KEY(user_id) REFERENCES calendars(user_id) ON DELETE CASCADE
);
`

// SnapshotRepository stores the latest snapshot of every account and calendar.
// Each Save replaces the previous snapshot in one transaction.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) repository.SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSnapshotTables); err != nil {
		return fmt.Errorf("create snapshot tables: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	for _, table := range []string{"calendar_dates", "plans", "calendars", "user_sessions", "users", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	takenAt := snapshot.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshot_meta (id, taken_at) VALUES (1, ?)`, takenAt); err != nil {
		return fmt.Errorf("insert snapshot meta: %w", err)
	}

	for _, user := range snapshot.Users {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, email, fullname, username, password, next_session, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			int64(user.ID),
			user.Email,
			user.FullName,
			user.Username,
			user.Password,
			int64(user.NextSession),
			user.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert user %d: %w", user.ID, err)
		}
		for sid := range user.Sessions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO user_sessions (user_id, session_id) VALUES (?, ?)`, int64(user.ID), int64(sid)); err != nil {
				return fmt.Errorf("insert session %d/%d: %w", user.ID, sid, err)
			}
		}
	}

	for _, cal := range snapshot.Calendars {
		if _, err := tx.ExecContext(ctx, `INSERT INTO calendars (user_id) VALUES (?)`, int64(cal.UserID)); err != nil {
			return fmt.Errorf("insert calendar %d: %w", cal.UserID, err)
		}
		for _, plan := range cal.Plans {
			if _, err := tx.ExecContext(ctx, `INSERT INTO plans (user_id, plan_id, content) VALUES (?, ?, ?)`, int64(cal.UserID), int64(plan.ID), plan.Content); err != nil {
				return fmt.Errorf("insert plan %d/%d: %w", cal.UserID, plan.ID, err)
			}
		}
		for date, ids := range cal.Dates {
			for position, id := range ids {
				if _, err := tx.ExecContext(ctx, `
INSERT INTO calendar_dates (user_id, date, position, plan_id)
VALUES (?, ?, ?, ?)`, int64(cal.UserID), date, position, int64(id)); err != nil {
					return fmt.Errorf("insert date %d/%s: %w", cal.UserID, date, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := r.db.QueryRowContext(ctx, `SELECT taken_at FROM snapshot_meta WHERE id = 1`).Scan(&snapshot.TakenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot meta: %w", err)
	}

	users, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Users = users

	calendars, err := r.loadCalendars(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Calendars = calendars

	return &snapshot, nil
}

func (r *SnapshotRepository) loadUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, email, fullname, username, password, next_session, created_at
FROM users
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var (
		users []domain.User
		index = map[uint32]int{}
	)
	for rows.Next() {
		var (
			user        domain.User
			id          int64
			nextSession int64
		)
		if err := rows.Scan(&id, &user.Email, &user.FullName, &user.Username, &user.Password, &nextSession, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.ID = uint32(id)
		user.NextSession = uint64(nextSession)
		user.Sessions = make(map[uint64]struct{})
		index[user.ID] = len(users)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	sessions, err := r.db.QueryContext(ctx, `SELECT user_id, session_id FROM user_sessions`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer sessions.Close()

	for sessions.Next() {
		var userID, sid int64
		if err := sessions.Scan(&userID, &sid); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if i, ok := index[uint32(userID)]; ok {
			users[i].Sessions[uint64(sid)] = struct{}{}
		}
	}
	return users, sessions.Err()
}

func (r *SnapshotRepository) loadCalendars(ctx context.Context) ([]domain.CalendarSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM calendars ORDER BY user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	var (
		calendars []domain.CalendarSnapshot
		index     = map[uint32]int{}
	)
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		index[uint32(userID)] = len(calendars)
		calendars = append(calendars, domain.CalendarSnapshot{
			UserID: uint32(userID),
			Plans:  []domain.Plan{},
			Dates:  map[string][]uint32{},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendars: %w", err)
	}

	plans, err := r.db.QueryContext(ctx, `SELECT user_id, plan_id, content FROM plans ORDER BY user_id ASC, plan_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer plans.Close()

	for plans.Next() {
		var (
			userID, planID int64
			content        string
		)
		if err := plans.Scan(&userID, &planID, &content); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if i, ok := index[uint32(userID)]; ok {
			calendars[i].Plans = append(calendars[i].Plans, domain.Plan{ID: uint32(planID), Content: content})
		}
	}
	if err := plans.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	dates, err := r.db.QueryContext(ctx, `
SELECT user_id, date, plan_id
FROM calendar_dates
ORDER BY user_id ASC, date ASC, position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer dates.Close()

	for dates.Next() {
		var (
			userID, planID int64
			date           string
		)
		if err := dates.Scan(&userID, &date, &planID); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		if i, ok := index[uint32(userID)]; ok {
			calendars[i].Dates[date] = append(calendars[i].Dates[date], uint32(planID))
		}
	}
	return calendars, dates.Err()
}

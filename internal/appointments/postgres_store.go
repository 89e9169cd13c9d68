package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in Postgres.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store over a pgx pool or connection.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

const pgUniqueViolation = "23505"

const entryColumns = `id, name, email, phone, category, reason, designated_attendee,
	appointment_date, to_char(appointment_time, 'HH24:MI'), document_ref, status,
	original_date, to_char(original_time, 'HH24:MI'),
	rescheduled_date, to_char(rescheduled_time, 'HH24:MI'),
	reschedule_reason, reschedule_token::text, reminder_sent, created_at, updated_at`

const entryOrder = ` ORDER BY appointment_date ASC, appointment_time ASC, created_at ASC`

func (s *PostgresStore) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO entries (id, name, email, phone, category, reason, designated_attendee,
			appointment_date, appointment_time, document_ref, status,
			original_date, original_time, rescheduled_date, rescheduled_time,
			reschedule_reason, reschedule_token, reminder_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9::time, $10, $11, $12::date, $13::time, $14::date, $15::time,
			$16, $17::uuid, $18, $19, $20)`,
		e.ID, e.Name, e.Email, e.Phone, string(e.Category), e.Reason, string(e.DesignatedAttendee),
		FormatDate(e.AppointmentDate), e.AppointmentTime.String(), e.DocumentRef, string(e.Status),
		dateArg(e.OriginalDate), timeArg(e.OriginalTime), dateArg(e.RescheduledDate), timeArg(e.RescheduledTime),
		e.RescheduleReason, e.RescheduleToken, e.ReminderSent, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create entry", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.getOne(ctx, "get entry", `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
}

func (s *PostgresStore) GetByToken(ctx context.Context, token string) (*Entry, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrNotFound
	}
	return s.getOne(ctx, "get entry by token", `SELECT `+entryColumns+` FROM entries WHERE reschedule_token = $1::uuid`, token)
}

func (s *PostgresStore) GetByPhone(ctx context.Context, phone string) (*Entry, error) {
	return s.getOne(ctx, "get entry by phone", `SELECT `+entryColumns+` FROM entries WHERE phone = $1`, phone)
}

func (s *PostgresStore) getOne(ctx context.Context, op, query string, arg any) (*Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: %s: %w", op, err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, "list entries", `SELECT `+entryColumns+` FROM entries`+entryOrder)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...Status) ([]Entry, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	return s.list(ctx, "list entries by status",
		`SELECT `+entryColumns+` FROM entries WHERE status = ANY($1)`+entryOrder, values)
}

func (s *PostgresStore) ListReminderCandidates(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, "list reminder candidates", `SELECT `+entryColumns+` FROM entries
		WHERE reminder_sent = FALSE AND status IN ('approved', 'rescheduled')`+entryOrder)
}

func (s *PostgresStore) list(ctx context.Context, op, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: %s: %w", op, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: %s: scan: %w", op, err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: %s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, e *Entry) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE entries SET name = $2, email = $3, phone = $4, category = $5, reason = $6,
			designated_attendee = $7, appointment_date = $8::date, appointment_time = $9::time,
			document_ref = $10, status = $11, original_date = $12::date, original_time = $13::time,
			rescheduled_date = $14::date, rescheduled_time = $15::time, reschedule_reason = $16,
			updated_at = $17
		WHERE id = $1`,
		e.ID, e.Name, e.Email, e.Phone, string(e.Category), e.Reason, string(e.DesignatedAttendee),
		FormatDate(e.AppointmentDate), e.AppointmentTime.String(), e.DocumentRef, string(e.Status),
		dateArg(e.OriginalDate), timeArg(e.OriginalTime), dateArg(e.RescheduledDate), timeArg(e.RescheduledTime),
		e.RescheduleReason, e.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("update entry", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the entry; check_ins rows cascade.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ClaimReminder(ctx context.Context, id uuid.UUID, date time.Time, t TimeOfDay, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE entries SET reminder_sent = TRUE, updated_at = $2
		WHERE id = $1 AND reminder_sent = FALSE AND status IN ('approved', 'rescheduled')
			AND appointment_date = $3::date AND appointment_time = $4::time`,
		id, at, FormatDate(date), t.String(),
	)
	if err != nil {
		return false, fmt.Errorf("appointments: claim reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ResetReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE entries SET reminder_sent = FALSE, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("appointments: reset reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const checkInColumns = `id, entry_id, in_time, out_time, user_remarks, attendee_remarks, created_at, updated_at`

func (s *PostgresStore) CreateCheckIn(ctx context.Context, c *CheckIn) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO check_ins (`+checkInColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.EntryID, c.InTime, c.OutTime, c.UserRemarks, c.AttendeeRemarks, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: create check-in: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCheckIn(ctx context.Context, id uuid.UUID) (*CheckIn, error) {
	c, err := scanCheckIn(s.db.QueryRow(ctx, `SELECT `+checkInColumns+` FROM check_ins WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCheckInNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get check-in: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) HasCheckInOn(ctx context.Context, entryID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM check_ins WHERE entry_id = $1 AND in_time >= $2 AND in_time < $3)`,
		entryID, start, end,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: check-in exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) LatestCheckIn(ctx context.Context, entryID uuid.UUID) (*CheckIn, error) {
	c, err := scanCheckIn(s.db.QueryRow(ctx, `
		SELECT `+checkInColumns+` FROM check_ins WHERE entry_id = $1 ORDER BY in_time DESC LIMIT 1`, entryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoCheckIn
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: latest check-in: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateCheckIn(ctx context.Context, c *CheckIn) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE check_ins SET in_time = $2, out_time = $3, user_remarks = $4, attendee_remarks = $5, updated_at = $6
		WHERE id = $1`,
		c.ID, c.InTime, c.OutTime, c.UserRemarks, c.AttendeeRemarks, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: update check-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCheckInNotFound
	}
	return nil
}

func (s *PostgresStore) ListCheckIns(ctx context.Context, filter CheckInFilter) ([]CheckInView, error) {
	query := `
		SELECT c.id, c.entry_id, c.in_time, c.out_time, c.user_remarks, c.attendee_remarks, c.created_at, c.updated_at,
			e.name, e.phone, e.email
		FROM check_ins c JOIN entries e ON e.id = c.entry_id`
	var args []any
	if !filter.From.IsZero() || !filter.To.IsZero() {
		query += `
		WHERE (c.created_at >= $1 AND c.created_at < $2)
			OR (c.in_time >= $1 AND c.in_time < $2)
			OR (c.out_time >= $1 AND c.out_time < $2)`
		args = append(args, filter.From, filter.To)
	}
	query += ` ORDER BY c.in_time DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list check-ins: %w", err)
	}
	defer rows.Close()

	out := make([]CheckInView, 0)
	for rows.Next() {
		var v CheckInView
		if err := rows.Scan(&v.ID, &v.EntryID, &v.InTime, &v.OutTime, &v.UserRemarks, &v.AttendeeRemarks,
			&v.CreatedAt, &v.UpdatedAt, &v.Name, &v.Phone, &v.Email); err != nil {
			return nil, fmt.Errorf("appointments: list check-ins: scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list check-ins: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e                                    Entry
		category, attendee, status, apptTime string
		origDate, reschDate                  *time.Time
		origTime, reschTime                  *string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &category, &e.Reason, &attendee,
		&e.AppointmentDate, &apptTime, &e.DocumentRef, &status,
		&origDate, &origTime, &reschDate, &reschTime,
		&e.RescheduleReason, &e.RescheduleToken, &e.ReminderSent, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Category = Category(category)
	e.DesignatedAttendee = Attendee(attendee)
	e.Status = Status(status)
	e.AppointmentDate = DateOf(e.AppointmentDate)

	var err error
	if e.AppointmentTime, err = ParseTimeOfDay(apptTime); err != nil {
		return nil, err
	}
	if origDate != nil {
		d := DateOf(*origDate)
		e.OriginalDate = &d
	}
	if reschDate != nil {
		d := DateOf(*reschDate)
		e.RescheduledDate = &d
	}
	if e.OriginalTime, err = parseOptionalTime(origTime); err != nil {
		return nil, err
	}
	if e.RescheduledTime, err = parseOptionalTime(reschTime); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanCheckIn(row rowScanner) (*CheckIn, error) {
	var c CheckIn
	if err := row.Scan(&c.ID, &c.EntryID, &c.InTime, &c.OutTime, &c.UserRemarks, &c.AttendeeRemarks,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseOptionalTime(s *string) (*TimeOfDay, error) {
	if s == nil {
		return nil, nil
	}
	t, err := ParseTimeOfDay(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func dateArg(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := FormatDate(*d)
	return &s
}

func timeArg(t *TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "entries_phone_key" {
		return ErrDuplicatePhone
	}
	return fmt.Errorf("appointments: %s: %w", op, err)
}

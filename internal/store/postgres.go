package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) InsertUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.IsAdmin)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, is_admin, created_at, updated_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, is_admin, created_at, updated_at
		FROM users
		WHERE LOWER(email)=LOWER($1)
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.is_admin
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (s *PostgresStore) SavePasswordReset(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, used_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) ConsumePasswordReset(ctx context.Context, tokenHash string) (User, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE password_resets
		SET used_at=NOW()
		WHERE token_hash=$1 AND used_at IS NULL AND expires_at > NOW()
		RETURNING user_id
	`, tokenHash).Scan(&userID)
	if err != nil {
		return User{}, err
	}
	return s.GetUserByID(ctx, userID)
}

func (s *PostgresStore) ListItems(ctx context.Context, status, query string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, location, status, COALESCE(photo_key, ''), COALESCE(reported_by, ''),
			claim_status, COALESCE(claimed_by_id, ''), COALESCE(claimed_by_name, ''), COALESCE(claim_note, ''),
			created_at, updated_at
		FROM items
		WHERE ($1='' OR status=$1)
		  AND ($2='' OR title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%' OR location ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
	`, status, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := scanItem(rows.Scan, &item); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, itemID string) (Item, error) {
	var item Item
	err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, location, status, COALESCE(photo_key, ''), COALESCE(reported_by, ''),
			claim_status, COALESCE(claimed_by_id, ''), COALESCE(claimed_by_name, ''), COALESCE(claim_note, ''),
			created_at, updated_at
		FROM items
		WHERE id=$1
	`, itemID).Scan, &item)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func scanItem(scan func(dest ...any) error, item *Item) error {
	return scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.Location,
		&item.Status,
		&item.PhotoKey,
		&item.ReportedBy,
		&item.ClaimStatus,
		&item.ClaimedByID,
		&item.ClaimedByName,
		&item.ClaimNote,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

func (s *PostgresStore) InsertItem(ctx context.Context, item Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, title, description, category, location, status, photo_key, reported_by, claim_status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), 'none')
	`, item.ID, item.Title, item.Description, item.Category, item.Location, item.Status, item.PhotoKey, item.ReportedBy)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetItemPhoto(ctx context.Context, itemID, photoKey string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE items SET photo_key=NULLIF($2, ''), updated_at=NOW() WHERE id=$1
	`, itemID, photoKey)
	if err != nil {
		return fmt.Errorf("set item photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id=$1`, itemID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete item rows: %w", err)
	}
	return affected > 0, nil
}

// RequestClaim attaches a pending claim to the item unless the item is
// already approved. The check and the write are one statement so two racing
// requests cannot both slip past an approval.
func (s *PostgresStore) RequestClaim(ctx context.Context, itemID, claimerID, note string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET claim_status='pending', claimed_by_id=$2, claimed_by_name=NULL, claim_note=NULLIF($3, ''), updated_at=NOW()
		WHERE id=$1 AND claim_status <> 'approved'
	`, itemID, claimerID, note)
	if err != nil {
		return false, fmt.Errorf("request claim: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("request claim rows: %w", err)
	}
	return affected > 0, nil
}

// ResolveClaim settles a pending claim. Resolutions of non-pending items
// match zero rows, so a double approve or a late reject is a no-op here and
// surfaces as a conflict upstream.
func (s *PostgresStore) ResolveClaim(ctx context.Context, itemID, claimStatus string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET claim_status=$2, updated_at=NOW()
		WHERE id=$1 AND claim_status='pending'
	`, itemID, claimStatus)
	if err != nil {
		return false, fmt.Errorf("resolve claim: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve claim rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListItemMessages(ctx context.Context, itemID string) ([]ItemMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.item_id, m.sender_id, COALESCE(u.name, ''), m.body, m.created_at
		FROM item_messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.item_id=$1
		ORDER BY m.created_at ASC, m.id ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item messages: %w", err)
	}
	defer rows.Close()

	items := make([]ItemMessage, 0)
	for rows.Next() {
		var item ItemMessage
		if err := rows.Scan(&item.ID, &item.ItemID, &item.SenderID, &item.SenderName, &item.Body, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item message: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item messages: %w", err)
	}
	return items, nil
}

// InsertItemMessage persists the message with its caller-assigned timestamp
// so the echoed createdAt is the same value later reads order by.
func (s *PostgresStore) InsertItemMessage(ctx context.Context, message ItemMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO item_messages (id, item_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, message.ID, message.ItemID, message.SenderID, message.Body, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert item message: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertDirectMessage(ctx context.Context, message DirectMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dm_messages (id, sender_id, receiver_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, message.ID, message.SenderID, message.ReceiverID, message.Body, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert direct message: %w", err)
	}
	return nil
}

// OpenDirectThread returns the full exchange between two users oldest first
// and, in the same transaction, marks every message the counterparty sent
// as read. Reading the thread is what consumes the unread state.
func (s *PostgresStore) OpenDirectThread(ctx context.Context, userID, otherID string) ([]DirectMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin direct thread tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE dm_messages
		SET read=true
		WHERE sender_id=$2 AND receiver_id=$1 AND read=false
	`, userID, otherID); err != nil {
		return nil, fmt.Errorf("mark direct thread read: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, body, read, created_at
		FROM dm_messages
		WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
		ORDER BY created_at ASC, id ASC
	`, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("list direct thread: %w", err)
	}
	defer rows.Close()

	items := make([]DirectMessage, 0)
	for rows.Next() {
		var item DirectMessage
		if err := rows.Scan(&item.ID, &item.SenderID, &item.ReceiverID, &item.Body, &item.Read, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan direct message: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate direct thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit direct thread tx: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UnreadDirectCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM dm_messages WHERE receiver_id=$1 AND read=false
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread direct messages: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH exchanged AS (
			SELECT CASE WHEN sender_id=$1 THEN receiver_id ELSE sender_id END AS other_id,
				sender_id, body, created_at
			FROM dm_messages
			WHERE sender_id=$1 OR receiver_id=$1
		),
		latest AS (
			SELECT DISTINCT ON (other_id) other_id, sender_id, body, created_at
			FROM exchanged
			ORDER BY other_id, created_at DESC
		),
		unread AS (
			SELECT sender_id AS other_id, COUNT(*)::int AS unread_count
			FROM dm_messages
			WHERE receiver_id=$1 AND read=false
			GROUP BY sender_id
		)
		SELECT l.other_id, COALESCE(u.name, ''), l.body, l.created_at, COALESCE(su.name, ''), COALESCE(un.unread_count, 0)
		FROM latest l
		LEFT JOIN users u ON u.id = l.other_id
		LEFT JOIN users su ON su.id = l.sender_id
		LEFT JOIN unread un ON un.other_id = l.other_id
		ORDER BY l.created_at DESC, l.other_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]Conversation, 0)
	for rows.Next() {
		var item Conversation
		if err := rows.Scan(&item.OtherID, &item.OtherName, &item.LastMessage, &item.LastAt, &item.LastSenderName, &item.UnreadCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return items, nil
}

// IsNotFound reports whether err is the no-rows sentinel from a lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ErrUnavailable marks failures where the database could not be reached at
// all, as opposed to a query that ran and came back empty.
var ErrUnavailable = errors.New("database unavailable")

// IsUnavailable reports whether err is a connectivity failure. pgx surfaces
// dead connections as driver.ErrBadConn or a pgconn connect error; dial
// failures come through as net errors.
func IsUnavailable(err error) bool {
	if errors.Is(err, ErrUnavailable) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

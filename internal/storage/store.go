package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SellerSession is the seller portal session cookie of a Telegram user.
type SellerSession struct {
	TelegramID  int64
	Cookie      string
	LastUpdated time.Time
}

// VisionCacheEntry represents a cached product suggestion.
type VisionCacheEntry struct {
	Name        string
	Brand       string
	Description string
}

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

const (
	SubmissionSucceeded = "succeeded"
	SubmissionFailed    = "failed"
)

// SubmissionRecord is one row of the submission ledger.
type SubmissionRecord struct {
	ID            string
	TelegramID    int64
	ProductName   string
	ProductCode   string
	Status        string
	Stage         string
	UploadedPaths []string
	Error         string
	CreatedAt     time.Time
}

// Store defines the persistence used by the bot.
type Store interface {
	GetSellerSession(telegramID int64) (*SellerSession, error)
	SaveSellerSession(session *SellerSession) error
	DeleteSellerSession(telegramID int64) error
	Close() error

	// Vision cache methods
	GetVisionCache(imageHash string) (*VisionCacheEntry, error)
	SetVisionCache(imageHash string, entry *VisionCacheEntry) error

	// Allowed users methods
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]AllowedUser, error)

	// Submission ledger methods
	SaveSubmission(rec *SubmissionRecord) error
	ListSubmissions(telegramID int64, limit int) ([]SubmissionRecord, error)
}

// SQLiteStore implements Store using SQLite with encrypted session cookies.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-based store.
// The encryptionKey is used to encrypt/decrypt session cookies.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// The file exists once the schema is created
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	tables := []struct {
		name  string
		query string
	}{
		{"seller_sessions", `
		CREATE TABLE IF NOT EXISTS seller_sessions (
			telegram_id INTEGER PRIMARY KEY,
			encrypted_cookie TEXT NOT NULL,
			last_updated DATETIME NOT NULL
		);`},
		{"vision_cache", `
		CREATE TABLE IF NOT EXISTS vision_cache (
			image_hash TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT,
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`},
		{"allowed_users", `
		CREATE TABLE IF NOT EXISTS allowed_users (
			telegram_id INTEGER PRIMARY KEY,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			added_by INTEGER
		);`},
		{"submissions", `
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			telegram_id INTEGER NOT NULL,
			product_name TEXT NOT NULL,
			product_code TEXT,
			status TEXT NOT NULL,
			stage TEXT NOT NULL,
			uploaded_paths TEXT NOT NULL,
			error TEXT,
			created_at DATETIME NOT NULL
		);`},
		{"submissions index", `
		CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions (telegram_id, created_at);`},
	}

	for _, t := range tables {
		if _, err := s.db.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", t.name, err)
		}
	}
	return nil
}

// GetSellerSession retrieves a seller session by Telegram user ID.
// Returns nil, nil if the session doesn't exist.
func (s *SQLiteStore) GetSellerSession(telegramID int64) (*SellerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted string
	var lastUpdated time.Time
	err := s.db.QueryRow(
		"SELECT encrypted_cookie, last_updated FROM seller_sessions WHERE telegram_id = ?",
		telegramID,
	).Scan(&encrypted, &lastUpdated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query seller session: %w", err)
	}

	cookie, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt seller session: %w", err)
	}

	return &SellerSession{
		TelegramID:  telegramID,
		Cookie:      string(cookie),
		LastUpdated: lastUpdated,
	}, nil
}

// SaveSellerSession stores or replaces a seller session.
func (s *SQLiteStore) SaveSellerSession(session *SellerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := Encrypt([]byte(session.Cookie), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt seller session: %w", err)
	}

	session.LastUpdated = time.Now()

	_, err = s.db.Exec(`
		INSERT INTO seller_sessions (telegram_id, encrypted_cookie, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			encrypted_cookie = excluded.encrypted_cookie,
			last_updated = excluded.last_updated
	`, session.TelegramID, encrypted, session.LastUpdated)

	if err != nil {
		return fmt.Errorf("failed to save seller session: %w", err)
	}
	return nil
}

// DeleteSellerSession removes a seller session.
func (s *SQLiteStore) DeleteSellerSession(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM seller_sessions WHERE telegram_id = ?", telegramID); err != nil {
		return fmt.Errorf("failed to delete seller session: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVisionCache retrieves a cached suggestion by image hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetVisionCache(imageHash string) (*VisionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry VisionCacheEntry
	var brand, description sql.NullString
	err := s.db.QueryRow(
		"SELECT name, brand, description FROM vision_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&entry.Name, &brand, &description)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	entry.Brand = brand.String
	entry.Description = description.String
	return &entry, nil
}

// SetVisionCache stores a suggestion in the cache.
func (s *SQLiteStore) SetVisionCache(imageHash string, entry *VisionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO vision_cache (image_hash, name, brand, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			description = excluded.description,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, entry.Name, entry.Brand, entry.Description)

	if err != nil {
		return fmt.Errorf("failed to cache suggestion: %w", err)
	}
	return nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}
	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)
	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID); err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &user.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SaveSubmission appends a record to the submission ledger. ID and CreatedAt
// are filled in when empty.
func (s *SQLiteStore) SaveSubmission(rec *SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	paths := rec.UploadedPaths
	if paths == nil {
		paths = []string{}
	}
	pathsJSON, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("failed to marshal uploaded paths: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO submissions (id, telegram_id, product_name, product_code, status, stage, uploaded_paths, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TelegramID, rec.ProductName, rec.ProductCode, rec.Status, rec.Stage, string(pathsJSON), rec.Error, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// ListSubmissions returns the most recent submissions of a user, newest first.
func (s *SQLiteStore) ListSubmissions(telegramID int64, limit int) ([]SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, telegram_id, product_name, product_code, status, stage, uploaded_paths, error, created_at
		FROM submissions
		WHERE telegram_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		var code, errText sql.NullString
		var pathsJSON string
		if err := rows.Scan(&rec.ID, &rec.TelegramID, &rec.ProductName, &code, &rec.Status, &rec.Stage, &pathsJSON, &errText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if err := json.Unmarshal([]byte(pathsJSON), &rec.UploadedPaths); err != nil {
			return nil, fmt.Errorf("failed to unmarshal uploaded paths of %s: %w", rec.ID, err)
		}
		rec.ProductCode = code.String
		rec.Error = errText.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

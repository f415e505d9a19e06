package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadterm/internal/lead"
)

// LeadsTable is the only table InsertOne accepts.
const LeadsTable = "leads"

// Lead is a submitted wizard record as stored.
type Lead struct {
	ID        string
	CreatedAt time.Time
	lead.Record
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

const leadColumns = `id, first_name, last_name, email, phone, category, property_type, property_address, property_value, nightly_rate, platforms, furnishing, message, created_at`

// InsertOne stores a single record, matching the remote insert contract of
// the submission adapter.
func (s *Store) InsertOne(ctx context.Context, table string, rec lead.Record) error {
	if table != LeadsTable {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	_, err := s.CreateLead(ctx, rec)
	return err
}

// CreateLead persists rec and returns the stored lead.
func (s *Store) CreateLead(ctx context.Context, rec lead.Record) (*Lead, error) {
	if strings.TrimSpace(rec.FirstName) == "" {
		return nil, fmt.Errorf("lead first name required")
	}
	if strings.TrimSpace(rec.Email) == "" {
		return nil, fmt.Errorf("lead email required")
	}
	stored := &Lead{ID: uuid.NewString(), CreatedAt: s.now().UTC(), Record: rec}
	_, err := s.db.ExecContext(ctx, `INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, rec.FirstName, nullString(rec.LastName), rec.Email, rec.Phone, rec.Category,
		nullString(rec.PropertyType), nullString(rec.PropertyAddress), rec.PropertyValue, rec.NightlyRate,
		nullString(rec.Platforms), nullString(rec.Furnishing), nullString(rec.Message), formatTime(stored.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return stored, nil
}

// ListLeads returns the newest leads first.
func (s *Store) ListLeads(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	return collectLeads(rows)
}

// SearchLeads performs a case-insensitive substring search on name, email,
// phone and address.
func (s *Store) SearchLeads(ctx context.Context, term string, limit int) ([]Lead, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListLeads(ctx, limit)
	}
	if limit <= 0 {
		limit = 50
	}
	like := fmt.Sprintf("%%%s%%", strings.ToLower(term))
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads
        WHERE lower(first_name || ' ' || coalesce(last_name, '')) LIKE ?
           OR lower(email) LIKE ?
           OR phone LIKE ?
           OR lower(coalesce(property_address, '')) LIKE ?
        ORDER BY created_at DESC LIMIT ?`, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search leads: %w", err)
	}
	return collectLeads(rows)
}

// LeadByID retrieves one lead.
func (s *Store) LeadByID(ctx context.Context, id string) (*Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, strings.TrimSpace(id))
	l, err := scanLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return &l, nil
}

// CountLeadsByPropertyType groups lead counts for the leads summary.
func (s *Store) CountLeadsByPropertyType(ctx context.Context) (map[lead.PropertyType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT coalesce(property_type, ''), count(*) FROM leads GROUP BY property_type`)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	defer rows.Close()

	counts := map[lead.PropertyType]int{}
	for rows.Next() {
		var pt string
		var n int
		if err := rows.Scan(&pt, &n); err != nil {
			return nil, fmt.Errorf("scan lead count: %w", err)
		}
		counts[lead.PropertyType(pt)] = n
	}
	return counts, rows.Err()
}

func collectLeads(rows *sql.Rows) ([]Lead, error) {
	defer rows.Close()
	var leads []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads rows: %w", err)
	}
	return leads, nil
}

func scanLead(rs rowScanner) (Lead, error) {
	var l Lead
	var last, propertyType, address, platforms, furnishing, message sql.NullString
	var value, rate sql.NullFloat64
	var created string
	if err := rs.Scan(&l.ID, &l.FirstName, &last, &l.Email, &l.Phone, &l.Category, &propertyType, &address,
		&value, &rate, &platforms, &furnishing, &message, &created); err != nil {
		return Lead{}, err
	}
	l.LastName = nullStringToString(last)
	l.PropertyType = nullStringToString(propertyType)
	l.PropertyAddress = nullStringToString(address)
	l.Platforms = nullStringToString(platforms)
	l.Furnishing = nullStringToString(furnishing)
	l.Message = nullStringToString(message)
	l.PropertyValue = value.Float64
	l.NightlyRate = rate.Float64
	l.CreatedAt = parseTime(created)
	return l, nil
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Gesture is a user defined gesture. It becomes a template once trained.
type Gesture struct {
	ID        string
	Name      string
	Type      gesture.Type
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GestureRepository provides CRUD operations for gestures and their trained shapes.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

const gestureColumns = `id, name, type, tolerance, samples, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGesture(row scanner) (*Gesture, error) {
	g := &Gesture{}
	var typ string
	if err := row.Scan(&g.ID, &g.Name, &typ, &g.Tolerance, &g.Samples, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Type = gesture.Type(typ)
	return g, nil
}

// Create inserts a new gesture.
func (r *GestureRepository) Create(g *Gesture) error {
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO gestures (id, name, type, tolerance, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, string(g.Type), g.Tolerance, g.Samples, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

// GetByID retrieves a gesture by its ID.
func (r *GestureRepository) GetByID(id string) (*Gesture, error) {
	g, err := scanGesture(r.db.QueryRow(`SELECT `+gestureColumns+` FROM gestures WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// GetByName retrieves a gesture by its name.
func (r *GestureRepository) GetByName(name string) (*Gesture, error) {
	g, err := scanGesture(r.db.QueryRow(`SELECT `+gestureColumns+` FROM gestures WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// List retrieves all gestures, newest first.
func (r *GestureRepository) List() ([]*Gesture, error) {
	rows, err := r.db.Query(`SELECT ` + gestureColumns + ` FROM gestures ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []*Gesture
	for rows.Next() {
		g, err := scanGesture(rows)
		if err != nil {
			return nil, err
		}
		gestures = append(gestures, g)
	}
	return gestures, rows.Err()
}

// Update updates an existing gesture.
func (r *GestureRepository) Update(g *Gesture) error {
	g.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE gestures SET name = ?, type = ?, tolerance = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		g.Name, string(g.Type), g.Tolerance, g.Samples, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// Delete removes a gesture and, through the foreign keys, its template and samples.
func (r *GestureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// SaveTemplate stores a trained shape for its gesture, replacing any
// previous one, and updates the gesture's tolerance.
func (r *GestureRepository) SaveTemplate(t *gesture.Template) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE gestures SET tolerance = ?, updated_at = ? WHERE id = ?`,
		t.Tolerance, time.Now(), t.ID)
	if err != nil {
		return err
	}
	if err := expectRow(result); err != nil {
		return err
	}

	for _, q := range []string{
		`DELETE FROM gesture_landmarks WHERE gesture_id = ?`,
		`DELETE FROM gesture_paths WHERE gesture_id = ?`,
	} {
		if _, err := tx.Exec(q, t.ID); err != nil {
			return err
		}
	}

	switch t.Type {
	case gesture.TypeStatic:
		stmt, err := tx.Prepare(`INSERT INTO gesture_landmarks (gesture_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, p := range t.Landmarks {
			if _, err := stmt.Exec(t.ID, i, p.X, p.Y, p.Z); err != nil {
				return err
			}
		}
	case gesture.TypeDynamic:
		stmt, err := tx.Prepare(`INSERT INTO gesture_paths (gesture_id, sequence, x, y, timestamp_ms) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, p := range t.Path {
			if _, err := stmt.Exec(t.ID, i, p.X, p.Y, p.Timestamp); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown gesture type %q", t.Type)
	}

	return tx.Commit()
}

// Template returns the trained template of a gesture. A gesture without a
// trained shape yields ErrNotFound.
func (r *GestureRepository) Template(id string) (*gesture.Template, error) {
	g, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	return r.template(g)
}

// Templates returns every trained template. Untrained gestures are skipped.
func (r *GestureRepository) Templates() ([]*gesture.Template, error) {
	gestures, err := r.List()
	if err != nil {
		return nil, err
	}

	var out []*gesture.Template
	for _, g := range gestures {
		t, err := r.template(g)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", g.Name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// LoadInto puts every trained template into set and returns how many were loaded.
func (r *GestureRepository) LoadInto(set *gesture.TemplateSet) (int, error) {
	templates, err := r.Templates()
	if err != nil {
		return 0, err
	}
	for _, t := range templates {
		set.Put(t)
	}
	return len(templates), nil
}

func (r *GestureRepository) template(g *Gesture) (*gesture.Template, error) {
	t := &gesture.Template{ID: g.ID, Name: g.Name, Type: g.Type, Tolerance: g.Tolerance}

	switch g.Type {
	case gesture.TypeStatic:
		rows, err := r.db.Query(`SELECT x, y, z FROM gesture_landmarks WHERE gesture_id = ? ORDER BY landmark_index`, g.ID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var p detector.Point3D
			if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
				return nil, err
			}
			t.Landmarks = append(t.Landmarks, p)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if len(t.Landmarks) == 0 {
			return nil, ErrNotFound
		}
	case gesture.TypeDynamic:
		rows, err := r.db.Query(`SELECT x, y, timestamp_ms FROM gesture_paths WHERE gesture_id = ? ORDER BY sequence`, g.ID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var p gesture.PathPoint
			if err := rows.Scan(&p.X, &p.Y, &p.Timestamp); err != nil {
				return nil, err
			}
			t.Path = append(t.Path, p)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if len(t.Path) == 0 {
			return nil, ErrNotFound
		}
	default:
		return nil, fmt.Errorf("unknown gesture type %q", g.Type)
	}
	return t, nil
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

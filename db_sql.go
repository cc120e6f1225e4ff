package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/example/screenplay/internal/domain"
)

// sqlStore implements the record operations shared by the SQLite and
// PostgreSQL adapters. Only the placeholder format and the unique-violation
// check differ between the two.
type sqlStore struct {
	db              *sql.DB
	sb              sq.StatementBuilderType
	uniqueViolation func(error) bool
}

func newSQLStore(db *sql.DB, ph sq.PlaceholderFormat, uniqueViolation func(error) bool) *sqlStore {
	return &sqlStore{
		db:              db,
		sb:              sq.StatementBuilder.PlaceholderFormat(ph),
		uniqueViolation: uniqueViolation,
	}
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *sqlStore) Close() error                   { return s.db.Close() }

func (s *sqlStore) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlStore) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryContext(ctx, query, args...)
}

// affected turns a zero row count into domain.ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// sqlTime scans timestamps from drivers that return either time.Time
// (lib/pq) or text (SQLite TEXT columns).
type sqlTime struct{ time.Time }

func (t *sqlTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = x.UTC()
	case string:
		return t.parse(x)
	case []byte:
		return t.parse(string(x))
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
	return nil
}

func (t *sqlTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// jsonColumn scans a JSON text/jsonb column into dst.
type jsonColumn struct{ dst any }

func (j jsonColumn) Scan(v any) error {
	var b []byte
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		b = []byte(x)
	case []byte:
		b = x
	default:
		return fmt.Errorf("unsupported json column type %T", v)
	}
	return json.Unmarshal(b, j.dst)
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// users

func (s *sqlStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	_, err := s.exec(ctx, s.sb.Insert("users").
		Columns("id", "email", "password_hash", "created_at").
		Values(u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt)))
	if err != nil {
		if s.uniqueViolation(err) {
			return domain.User{}, domain.ErrAlreadyExists
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	rows, err := s.query(ctx, s.sb.Select("id", "email", "password_hash", "created_at").
		From("users").Where(sq.Eq{"email": email}))
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.User{}, err
		}
		return domain.User{}, domain.ErrNotFound
	}
	var u domain.User
	var created sqlTime
	if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = created.Time
	return u, nil
}

// characters

var characterColumns = []string{"id", "user_id", "name", "age", "gender", "occupation", "photos", "relations", "properties", "created_at", "updated_at"}

func scanCharacter(rows *sql.Rows) (domain.Character, error) {
	var c domain.Character
	var created, updated sqlTime
	err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Age, &c.Gender, &c.Occupation,
		jsonColumn{&c.Photos}, jsonColumn{&c.Relations}, jsonColumn{&c.Properties}, &created, &updated)
	if err != nil {
		return domain.Character{}, fmt.Errorf("scan character: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = created.Time, updated.Time
	if c.Photos == nil {
		c.Photos = []domain.Photo{}
	}
	if c.Relations == nil {
		c.Relations = []string{}
	}
	if c.Properties == nil {
		c.Properties = []string{}
	}
	return c, nil
}

func (s *sqlStore) selectCharacters(ctx context.Context, where sq.Sqlizer) ([]domain.Character, error) {
	b := s.sb.Select(characterColumns...).From("characters").OrderBy("seq")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("select characters: %w", err)
	}
	defer rows.Close()
	out := []domain.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func characterJSON(c domain.Character) (photos, relations, properties string, err error) {
	if photos, err = toJSON(c.Photos); err != nil {
		return
	}
	if relations, err = toJSON(c.Relations); err != nil {
		return
	}
	properties, err = toJSON(c.Properties)
	return
}

func (s *sqlStore) CreateCharacter(ctx context.Context, c domain.Character) (domain.Character, error) {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	photos, relations, properties, err := characterJSON(c)
	if err != nil {
		return domain.Character{}, fmt.Errorf("encode character: %w", err)
	}
	_, err = s.exec(ctx, s.sb.Insert("characters").
		Columns(characterColumns...).
		Values(c.ID, c.UserID, c.Name, c.Age, string(c.Gender), c.Occupation,
			photos, relations, properties, formatTime(now), formatTime(now)))
	if err != nil {
		return domain.Character{}, fmt.Errorf("insert character: %w", err)
	}
	return c, nil
}

func (s *sqlStore) ListCharacters(ctx context.Context) ([]domain.Character, error) {
	return s.selectCharacters(ctx, nil)
}

func (s *sqlStore) GetCharacter(ctx context.Context, id string) (domain.Character, error) {
	cs, err := s.selectCharacters(ctx, sq.Eq{"id": id})
	if err != nil {
		return domain.Character{}, err
	}
	if len(cs) == 0 {
		return domain.Character{}, domain.ErrNotFound
	}
	return cs[0], nil
}

func (s *sqlStore) UpdateCharacter(ctx context.Context, c domain.Character) (domain.Character, error) {
	photos, relations, properties, err := characterJSON(c)
	if err != nil {
		return domain.Character{}, fmt.Errorf("encode character: %w", err)
	}
	err = affected(s.exec(ctx, s.sb.Update("characters").
		Set("name", c.Name).
		Set("age", c.Age).
		Set("gender", string(c.Gender)).
		Set("occupation", c.Occupation).
		Set("photos", photos).
		Set("relations", relations).
		Set("properties", properties).
		Set("updated_at", formatTime(time.Now())).
		Where(sq.Eq{"id": c.ID})))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Character{}, err
		}
		return domain.Character{}, fmt.Errorf("update character: %w", err)
	}
	return s.GetCharacter(ctx, c.ID)
}

func (s *sqlStore) DeleteCharacter(ctx context.Context, id string) (domain.Character, error) {
	c, err := s.GetCharacter(ctx, id)
	if err != nil {
		return domain.Character{}, err
	}
	if err := affected(s.exec(ctx, s.sb.Delete("characters").Where(sq.Eq{"id": id}))); err != nil {
		return domain.Character{}, err
	}
	return c, nil
}

// relations

func (s *sqlStore) selectRelations(ctx context.Context, where sq.Sqlizer) ([]domain.Relation, error) {
	b := s.sb.Select("id", "name", "description").From("relations").OrderBy("seq")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("select relations: %w", err)
	}
	defer rows.Close()
	out := []domain.Relation{}
	for rows.Next() {
		var r domain.Relation
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) CreateRelation(ctx context.Context, r domain.Relation) (domain.Relation, error) {
	r.ID = uuid.NewString()
	_, err := s.exec(ctx, s.sb.Insert("relations").
		Columns("id", "name", "description").
		Values(r.ID, r.Name, r.Description))
	if err != nil {
		return domain.Relation{}, fmt.Errorf("insert relation: %w", err)
	}
	return r, nil
}

func (s *sqlStore) ListRelations(ctx context.Context) ([]domain.Relation, error) {
	return s.selectRelations(ctx, nil)
}

func (s *sqlStore) GetRelation(ctx context.Context, id string) (domain.Relation, error) {
	rs, err := s.selectRelations(ctx, sq.Eq{"id": id})
	if err != nil {
		return domain.Relation{}, err
	}
	if len(rs) == 0 {
		return domain.Relation{}, domain.ErrNotFound
	}
	return rs[0], nil
}

func (s *sqlStore) UpdateRelation(ctx context.Context, r domain.Relation) (domain.Relation, error) {
	err := affected(s.exec(ctx, s.sb.Update("relations").
		Set("name", r.Name).
		Set("description", r.Description).
		Where(sq.Eq{"id": r.ID})))
	if err != nil {
		return domain.Relation{}, err
	}
	return r, nil
}

func (s *sqlStore) DeleteRelation(ctx context.Context, id string) (domain.Relation, error) {
	r, err := s.GetRelation(ctx, id)
	if err != nil {
		return domain.Relation{}, err
	}
	if err := affected(s.exec(ctx, s.sb.Delete("relations").Where(sq.Eq{"id": id}))); err != nil {
		return domain.Relation{}, err
	}
	return r, nil
}

func (s *sqlStore) RelationsByIDs(ctx context.Context, ids []string) ([]domain.Relation, error) {
	if len(ids) == 0 {
		return []domain.Relation{}, nil
	}
	return s.selectRelations(ctx, sq.Eq{"id": ids})
}

// properties

func (s *sqlStore) selectProperties(ctx context.Context, where sq.Sqlizer) ([]domain.Property, error) {
	b := s.sb.Select("id", "name", "value", "description").From("properties").OrderBy("seq")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("select properties: %w", err)
	}
	defer rows.Close()
	out := []domain.Property{}
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Value, &p.Description); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	p.ID = uuid.NewString()
	_, err := s.exec(ctx, s.sb.Insert("properties").
		Columns("id", "name", "value", "description").
		Values(p.ID, p.Name, p.Value, p.Description))
	if err != nil {
		return domain.Property{}, fmt.Errorf("insert property: %w", err)
	}
	return p, nil
}

func (s *sqlStore) ListProperties(ctx context.Context) ([]domain.Property, error) {
	return s.selectProperties(ctx, nil)
}

func (s *sqlStore) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	ps, err := s.selectProperties(ctx, sq.Eq{"id": id})
	if err != nil {
		return domain.Property{}, err
	}
	if len(ps) == 0 {
		return domain.Property{}, domain.ErrNotFound
	}
	return ps[0], nil
}

func (s *sqlStore) UpdateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	err := affected(s.exec(ctx, s.sb.Update("properties").
		Set("name", p.Name).
		Set("value", p.Value).
		Set("description", p.Description).
		Where(sq.Eq{"id": p.ID})))
	if err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

func (s *sqlStore) DeleteProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := s.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	if err := affected(s.exec(ctx, s.sb.Delete("properties").Where(sq.Eq{"id": id}))); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/richard-senior/footstats/internal/logger"
)

// ErrNotFound is returned when a lookup by primary key matches no row
var ErrNotFound = errors.New("store: not found")

// Persistable is implemented by every struct the store can read and write.
// Columns are described with struct tags:
//
//	column:"name"      column name (defaults to the lower-cased field name)
//	dbtype:"TEXT"      column declaration, fields without it are not persisted
//	primary:"true"     part of the (possibly compound) primary key
//	index:"true"       create a secondary index on the column
//	fk:"table.column"  foreign key, with optional fk_delete / fk_update actions
type Persistable interface {
	GetTableName() string
}

// BeforeSaver is called by Save before the row is written
type BeforeSaver interface {
	BeforeSave() error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a handle on the database. Inside WithTx it is bound to the
// transaction and every call goes through it
type Store struct {
	db      *sql.DB
	ex      execer
	dialect Dialect
	inTx    bool
	now     func() time.Time
}

// Open connects to the database and checks the connection
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, ok := ParseDialect(driver)
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		// One connection keeps :memory: databases alive and serialises writers
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	logger.Info("Database initialized successfully", string(dialect))
	return New(db, dialect), nil
}

// New wraps an already open database
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, ex: db, dialect: dialect, now: time.Now}
}

// Close closes the underlying database. It is a no-op on a transaction-bound store
func (s *Store) Close() error {
	if s.inTx || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// SetClock overrides the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// WithTx runs fn inside a transaction. A store that is already inside a
// transaction runs fn directly against it
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &Store{db: s.db, ex: tx, dialect: s.dialect, inTx: true, now: s.now}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("Rollback failed", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = s.dialect.Rebind(query)
	logger.Debug("SQL", query)
	return s.ex.ExecContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = s.dialect.Rebind(query)
	logger.Debug("SQL", query)
	return s.ex.QueryContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	query = s.dialect.Rebind(query)
	logger.Debug("SQL", query)
	return s.ex.QueryRowContext(ctx, query, args...)
}

// column is one persisted struct field
type column struct {
	name    string
	dbType  string
	primary bool
	index   bool
	fk      string
	onDel   string
	onUpd   string
	value   reflect.Value
}

// columns reflects over the persisted fields of obj, which must be a
// pointer to a struct
func columns(obj any) []column {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("persist") == "false" {
			continue
		}
		dbType := field.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}

		name := field.Tag.Get("column")
		if name == "" {
			name = strings.ToLower(field.Name)
		}

		cols = append(cols, column{
			name:    name,
			dbType:  dbType,
			primary: field.Tag.Get("primary") == "true",
			index:   field.Tag.Get("index") == "true",
			fk:      field.Tag.Get("fk"),
			onDel:   field.Tag.Get("fk_delete"),
			onUpd:   field.Tag.Get("fk_update"),
			value:   v.Field(i),
		})
	}
	return cols
}

func columnNames(cols []column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func scanTargets(cols []column) []any {
	dest := make([]any, len(cols))
	for i, c := range cols {
		dest[i] = c.value.Addr().Interface()
	}
	return dest
}

// primaryKey returns the WHERE clause and arguments matching obj's primary key
func primaryKey(tableName string, cols []column) (string, []any, error) {
	var conds []string
	var args []any
	for _, c := range cols {
		if c.primary {
			conds = append(conds, c.name+" = ?")
			args = append(args, c.value.Interface())
		}
	}
	if len(conds) == 0 {
		return "", nil, fmt.Errorf("table %s has no primary key", tableName)
	}
	return strings.Join(conds, " AND "), args, nil
}

// createTableSQL generates CREATE TABLE SQL from struct tags
func (s *Store) createTableSQL(obj Persistable) string {
	var defs, pks, fks []string

	for _, c := range columns(obj) {
		defs = append(defs, fmt.Sprintf("%s %s", c.name, s.dialect.ColumnType(c.dbType)))
		if c.primary {
			pks = append(pks, c.name)
		}

		// Foreign key format: "table.column"
		if parts := strings.Split(c.fk, "."); len(parts) == 2 {
			onDel, onUpd := c.onDel, c.onUpd
			if onDel == "" {
				onDel = "RESTRICT"
			}
			if onUpd == "" {
				onUpd = "RESTRICT"
			}
			fks = append(fks, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE %s ON UPDATE %s",
				c.name, parts[0], parts[1], onDel, onUpd))
		}
	}

	if len(pks) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	defs = append(defs, fks...)

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", obj.GetTableName(), strings.Join(defs, ", "))
}

func indexSQL(obj Persistable) []string {
	table := obj.GetTableName()
	var out []string
	for _, c := range columns(obj) {
		if c.index {
			out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", table, c.name, table, c.name))
		}
	}
	return out
}

// CreateTable creates the table and indexes for obj if they do not exist
func (s *Store) CreateTable(ctx context.Context, obj Persistable) error {
	table := obj.GetTableName()
	if _, err := s.exec(ctx, s.createTableSQL(obj)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	for _, q := range indexSQL(obj) {
		if _, err := s.exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", table, err)
		}
	}
	logger.Debug("Table ready", table)
	return nil
}

// Save inserts obj, or updates every non key column if a row with the same
// primary key already exists
func (s *Store) Save(ctx context.Context, obj Persistable) error {
	if bs, ok := obj.(BeforeSaver); ok {
		if err := bs.BeforeSave(); err != nil {
			return fmt.Errorf("before save hook failed: %w", err)
		}
	}

	table := obj.GetTableName()
	cols := columns(obj)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	var pks, sets []string
	for i, c := range cols {
		placeholders[i] = "?"
		args[i] = c.value.Interface()
		if c.primary {
			pks = append(pks, c.name)
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c.name, c.name))
		}
	}
	if len(pks) == 0 {
		return fmt.Errorf("table %s has no primary key", table)
	}

	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		table, strings.Join(columnNames(cols), ", "), strings.Join(placeholders, ", "),
		strings.Join(pks, ", "), conflict)

	if _, err := s.exec(ctx, q, args...); err != nil {
		return fmt.Errorf("failed to save to %s: %w", table, err)
	}
	return nil
}

// Exists reports whether a row with obj's primary key is present
func (s *Store) Exists(ctx context.Context, obj Persistable) (bool, error) {
	table := obj.GetTableName()
	where, args, err := primaryKey(table, columns(obj))
	if err != nil {
		return false, err
	}

	var count int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)
	if err := s.queryRow(ctx, q, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", table, err)
	}
	return count > 0, nil
}

// FindByPrimaryKey loads the row matching the primary key fields already set
// on obj into obj. Returns ErrNotFound when there is no such row
func (s *Store) FindByPrimaryKey(ctx context.Context, obj Persistable) error {
	return s.findByPrimaryKey(ctx, obj, "")
}

func (s *Store) findByPrimaryKey(ctx context.Context, obj Persistable, suffix string) error {
	table := obj.GetTableName()
	cols := columns(obj)
	where, args, err := primaryKey(table, cols)
	if err != nil {
		return err
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s%s", strings.Join(columnNames(cols), ", "), table, where, suffix)
	err = s.queryRow(ctx, q, args...).Scan(scanTargets(cols)...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", table, args, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load from %s: %w", table, err)
	}
	return nil
}

// Delete removes the row with obj's primary key
func (s *Store) Delete(ctx context.Context, obj Persistable) error {
	table := obj.GetTableName()
	where, args, err := primaryKey(table, columns(obj))
	if err != nil {
		return err
	}
	if _, err := s.exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// BulkSave saves every object in a single transaction
func (s *Store) BulkSave(ctx context.Context, objects ...Persistable) error {
	return s.WithTx(ctx, func(tx *Store) error {
		for _, obj := range objects {
			if err := tx.Save(ctx, obj); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindWhere loads every row of T's table matching the clause, which may
// carry an ORDER BY. An empty clause selects the whole table
func FindWhere[T any, PT interface {
	*T
	Persistable
}](ctx context.Context, s *Store, clause string, args ...any) ([]PT, error) {
	var probe T
	table := PT(&probe).GetTableName()
	names := columnNames(columns(&probe))

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), table)
	if clause != "" {
		q += " WHERE " + clause
	}

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []PT
	for rows.Next() {
		obj := PT(new(T))
		if err := rows.Scan(scanTargets(columns(obj))...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", table, err)
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", table, err)
	}
	return out, nil
}

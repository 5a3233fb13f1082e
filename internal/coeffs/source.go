package coeffs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5"
)

// Source yields the raw coefficient document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// FileSource reads the document from a local JSON file.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: missing %s", ErrConfiguration, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfiguration, s.Path, err)
	}
	return raw, nil
}

func (s FileSource) String() string {
	return "file:" + s.Path
}

// RowQuerier is satisfied by *pgxpool.Pool and *pgx.Conn.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectDocument = `SELECT document FROM model_coefficients WHERE name = $1`

// PostgresSource reads the document from the model_coefficients table.
type PostgresSource struct {
	DB   RowQuerier
	Name string
}

func (s PostgresSource) Fetch(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := s.DB.QueryRow(ctx, selectDocument, s.Name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no model_coefficients row named %q", ErrConfiguration, s.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("query coefficients %q: %w", s.Name, err)
	}
	return raw, nil
}

func (s PostgresSource) String() string {
	return "postgres:" + s.Name
}

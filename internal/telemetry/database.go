package telemetry

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OpenDB opens an instrumented Postgres pool. A non-empty schema is set as
// the search_path connection parameter so every pooled connection uses it.
func OpenDB(dsn, schema string) (*sql.DB, error) {
	dsn, err := WithSearchPath(dsn, schema)
	if err != nil {
		return nil, err
	}
	return otelsql.Open("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSpanOptions(otelsql.SpanOptions{OmitConnResetSession: true}),
	)
}

// WithSearchPath adds search_path to a URL or key=value style DSN.
func WithSearchPath(dsn, schema string) (string, error) {
	if schema == "" {
		return dsn, nil
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	return strings.TrimSpace(dsn + " search_path=" + schema), nil
}

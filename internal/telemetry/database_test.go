package telemetry

import "testing"

func TestWithSearchPath(t *testing.T) {
	tests := []struct {
		name   string
		dsn    string
		schema string
		want   string
	}{
		{
			name:   "url dsn",
			dsn:    "postgres://app:secret@db:5432/marketplace?sslmode=disable",
			schema: "orders",
			want:   "postgres://app:secret@db:5432/marketplace?search_path=orders&sslmode=disable",
		},
		{
			name:   "keyword dsn",
			dsn:    "host=db user=app dbname=marketplace",
			schema: "inventory",
			want:   "host=db user=app dbname=marketplace search_path=inventory",
		},
		{
			name: "no schema",
			dsn:  "postgres://db/marketplace",
			want: "postgres://db/marketplace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithSearchPath(tt.dsn, tt.schema)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

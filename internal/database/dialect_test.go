package database

import (
	"testing"

	"familia/internal/config"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("DSN", func(t *testing.T) {
		result := dialect.DSN(DialectConfig{Path: "/tmp/familia.db"})
		expected := "/tmp/familia.db?_busy_timeout=5000&_txlock=immediate"
		if result != expected {
			t.Errorf("DSN() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("DSN adds parseTime", func(t *testing.T) {
		tests := map[string]string{
			"user:pw@tcp(db:3306)/familia":                "user:pw@tcp(db:3306)/familia?parseTime=true",
			"user:pw@tcp(db:3306)/familia?tls=true":       "user:pw@tcp(db:3306)/familia?tls=true&parseTime=true",
			"user:pw@tcp(db:3306)/familia?parseTime=true": "user:pw@tcp(db:3306)/familia?parseTime=true",
		}
		for in, want := range tests {
			if got := dialect.DSN(DialectConfig{URL: in}); got != want {
				t.Errorf("DSN(%q) = %q, want %q", in, got, want)
			}
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL IN clause",
			dialect:  NewPostgresDialect(),
			query:    "SELECT id FROM users WHERE id IN (" + Placeholders(3) + ")",
			expected: "SELECT id FROM users WHERE id IN ($1, $2, $3)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE users SET username = ?, email = ? WHERE id = ?",
			expected: "UPDATE users SET username = ?, email = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestInsertIgnoreQuery(t *testing.T) {
	tests := []struct {
		dialect  Dialect
		expected string
	}{
		{NewSQLiteDialect(), "INSERT OR IGNORE INTO family_members (family_id, user_id) VALUES (?, ?)"},
		{NewPostgresDialect(), "INSERT INTO family_members (family_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING"},
		{NewMySQLDialect(), "INSERT IGNORE INTO family_members (family_id, user_id) VALUES (?, ?)"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			result := tt.dialect.InsertIgnoreQuery("family_members", "family_id", "user_id")
			if result != tt.expected {
				t.Errorf("InsertIgnoreQuery() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	tests := map[int]string{0: "", 1: "?", 4: "?, ?, ?, ?"}
	for n, want := range tests {
		if got := Placeholders(n); got != want {
			t.Errorf("Placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType  string
		want    string
		wantErr bool
	}{
		{"", "sqlite", false},
		{"sqlite3", "sqlite", false},
		{"PostgreSQL", "postgres", false},
		{"mysql", "mysql", false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			dialect, _, err := DialectFor(&config.Config{DatabaseType: tt.dbType})
			if (err != nil) != tt.wantErr {
				t.Fatalf("DialectFor(%q) error = %v, wantErr %v", tt.dbType, err, tt.wantErr)
			}
			if err == nil && dialect.Name() != tt.want {
				t.Errorf("DialectFor(%q) = %s, want %s", tt.dbType, dialect.Name(), tt.want)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (id TEXT);

CREATE INDEX idx_a ON a (id);
   ;
`
	stmts := SplitStatements(content)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id TEXT)" {
		t.Errorf("first statement = %q", stmts[0])
	}
}

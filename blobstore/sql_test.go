package blobstore

import (
	"context"
	"strings"
	"testing"
)

func TestNewSQLRequiresDSN(t *testing.T) {
	_, err := NewSQL(SQLOptions{Driver: "sqlite"})
	if err == nil {
		t.Fatal("NewSQL() without DSN error = nil, want error")
	}
	if !strings.Contains(err.Error(), "DSN is required") {
		t.Errorf("error = %q, want mention of DSN", err)
	}
}

func TestNewSQLRejectsUnknownDriver(t *testing.T) {
	_, err := NewSQL(SQLOptions{Driver: "oracle", DSN: "whatever"})
	if err == nil {
		t.Fatal("NewSQL() with unknown driver error = nil, want error")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q, want unsupported driver", err)
	}
}

func TestSQLDialectorSelection(t *testing.T) {
	tests := []struct {
		driver string
		wantOK bool
	}{
		{"sqlite", true},
		{"mysql", true},
		{"postgres", true},
		{"mssql", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			_, err := sqlDialector(tt.driver, "dsn")
			if (err == nil) != tt.wantOK {
				t.Errorf("sqlDialector(%q) error = %v, wantOK %v", tt.driver, err, tt.wantOK)
			}
		})
	}
}

func TestSQLPingNilDB(t *testing.T) {
	store := &SQL{}
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping() with nil db error = nil, want error")
	}
}

func TestSQLCloseNilDB(t *testing.T) {
	store := &SQL{}
	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db error = %v, want nil", err)
	}
}

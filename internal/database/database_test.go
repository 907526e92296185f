package database

import "testing"

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"password_hidden", "postgres://app:s3cret@db:5432/voxsum", "postgres://app:xxxxx@db:5432/voxsum"},
		{"no_credentials", "postgres://db:5432/voxsum", "postgres://db:5432/voxsum"},
		{"user_without_password", "postgres://app@db/voxsum", "postgres://app@db/voxsum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactDSN(tt.dsn); got != tt.want {
				t.Errorf("redactDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}

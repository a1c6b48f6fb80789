package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsRetryableAllocation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation from racing team insert", &pgconn.PgError{Code: "23505", ConstraintName: "teams_pkey"}, true},
		{"unique violation from racing group claim", &pgconn.PgError{Code: "23505", ConstraintName: "teams_group_number_idx"}, true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableAllocation(tt.err); got != tt.want {
				t.Errorf("isRetryableAllocation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableAllocationWrapped(t *testing.T) {
	// Errors surface wrapped by the tx helpers; detection must survive
	// the wrapping.
	err := fmt.Errorf("failed to create team: %w", &pgconn.PgError{Code: "23505"})
	if !isRetryableAllocation(err) {
		t.Error("wrapped unique violation not detected as retryable")
	}

	err = fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	if !isRetryableAllocation(err) {
		t.Error("wrapped serialization failure not detected as retryable")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("unique violation not detected")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Error("serialization failure misread as unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("plain error misread as unique violation")
	}
}

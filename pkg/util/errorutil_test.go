package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewConflict("User already exists", nil)

	mapped := ToDomainError(original)
	if mapped.Code != "CONFLICT" || mapped.HTTPStatus != http.StatusConflict {
		t.Fatalf("unexpected mapping: %+v", mapped)
	}
	if mapped.Message != "User already exists" {
		t.Fatalf("message rewritten: %q", mapped.Message)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	if mapped.Code != "NOT_FOUND" || mapped.HTTPStatus != http.StatusNotFound {
		t.Fatalf("pgx.ErrNoRows mapped to %+v", mapped)
	}
}

func TestToDomainErrorMasksUnknown(t *testing.T) {
	mapped := ToDomainError(errors.New("connection reset"))
	if mapped.Code != "INTERNAL_ERROR" || mapped.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected mapping: %+v", mapped)
	}
	if mapped.Message != "internal server error" {
		t.Fatalf("internal detail leaked: %q", mapped.Message)
	}
}

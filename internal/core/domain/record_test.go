package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func sampleRecord() Record {
	return Record{
		ID:                "1001",
		FirstName:         "Juan",
		MiddleName:        "Santos",
		LastName:          "Dela Cruz",
		PresentAddress:    "12 Mabini St",
		ProvincialAddress: "Iloilo",
		LengthStay:        "5",
		Sex:               "Male",
		CivilStatus:       "Single",
		DateOfBirth:       "1990-04-01",
		Age:               "35",
		PlaceOfBirth:      "Iloilo City",
		Education:         "College",
		Religion:          "Catholic",
		ContactNumber:     "09171234567",
		Email:             "juan@example.com",
	}
}

func TestRecordValidate(t *testing.T) {
	if err := sampleRecord().Validate(); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	rec := sampleRecord()
	rec.LastName = " "
	rec.Email = ""
	err := rec.Validate()
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if !strings.Contains(err.Error(), "lastName") || !strings.Contains(err.Error(), "email") {
		t.Fatalf("expected missing fields in message, got %q", err.Error())
	}

	rec = sampleRecord()
	rec.Age = "-3"
	if err := rec.Validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected negative age to fail, got %v", err)
	}

	rec = sampleRecord()
	rec.Email = "not-an-email"
	if err := rec.Validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected bad email to fail, got %v", err)
	}

	rec = sampleRecord()
	rec.ID = "student:1"
	if err := rec.Validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected reserved id characters to fail, got %v", err)
	}
}

func TestRecordFieldsRoundTrip(t *testing.T) {
	rec := sampleRecord()
	fields := rec.Fields()
	if len(fields) != len(recordFields) {
		t.Fatalf("expected %d fields, got %d", len(recordFields), len(fields))
	}
	if fields["cStatus"] != "Single" || fields["hea"] != "College" {
		t.Fatalf("unexpected wire names: %v", fields)
	}

	fields["unknown"] = "ignored"
	if got := RecordFromFields(rec.ID, fields); got != rec {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRecordPatchChanges(t *testing.T) {
	first := " Pedro "
	blank := "   "
	patch := RecordPatch{FirstName: &first, Religion: &blank}

	changes := patch.Changes()
	if len(changes) != 1 || changes["firstName"] != "Pedro" {
		t.Fatalf("unexpected changes: %v", changes)
	}

	if err := ValidateChanges(map[string]string{}); !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
	if err := ValidateChanges(map[string]string{"age": "abc"}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected invalid age to fail, got %v", err)
	}

	updated := sampleRecord().Apply(changes)
	if updated.FirstName != "Pedro" || updated.LastName != "Dela Cruz" {
		t.Fatalf("unexpected apply result: %+v", updated)
	}
}

func TestRecordDecodesNumericValues(t *testing.T) {
	body := `{"id": 1001, "firstName": "Juan", "age": 35, "lengthStay": 5, "cNumber": "09171234567", "extra": true}`

	var rec Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if rec.ID != "1001" || rec.Age != "35" || rec.LengthStay != "5" {
		t.Fatalf("numbers should decode to their literal text: %+v", rec)
	}
	if rec.FirstName != "Juan" || rec.ContactNumber != "09171234567" {
		t.Fatalf("strings should decode unchanged: %+v", rec)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !strings.Contains(string(out), `"age":"35"`) {
		t.Fatalf("records are served with string values, got %s", out)
	}
}

func TestRecordRejectsNonScalarValues(t *testing.T) {
	for _, body := range []string{
		`{"id": "1", "age": true}`,
		`{"id": "1", "firstName": {"nested": "x"}}`,
		`{"id": ["1"]}`,
		`[1, 2]`,
	} {
		var rec Record
		if err := json.Unmarshal([]byte(body), &rec); err == nil {
			t.Fatalf("expected %s to be rejected", body)
		}
	}
}

func TestRecordPatchDecodesNumericValues(t *testing.T) {
	var patch RecordPatch
	if err := json.Unmarshal([]byte(`{"age": 36, "religion": null, "lastName": "Garcia"}`), &patch); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if patch.Religion != nil {
		t.Fatalf("null should leave the field unset")
	}

	changes := patch.Changes()
	if len(changes) != 2 || changes["age"] != "36" || changes["lastName"] != "Garcia" {
		t.Fatalf("unexpected changes: %v", changes)
	}
	if err := ValidateChanges(changes); err != nil {
		t.Fatalf("numeric age should validate: %v", err)
	}
}

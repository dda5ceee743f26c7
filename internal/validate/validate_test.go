package validate

import (
	"errors"
	"testing"
)

type line struct {
	MenuID   string `validate:"required"`
	Quantity int32  `validate:"gt=0"`
}

type body struct {
	TableID string `validate:"required"`
	Items   []line `validate:"required,min=1,dive"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(body{TableID: "T1", Items: []line{{MenuID: "M1", Quantity: 2}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	err := Struct(body{Items: []line{{MenuID: "", Quantity: 0}}})

	var ve Errors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validate.Errors, got %T", err)
	}
	if ve["TableID"] != "required" {
		t.Errorf("TableID: got %q, want required", ve["TableID"])
	}
	if ve["Items[0].MenuID"] != "required" {
		t.Errorf("Items[0].MenuID: got %q, want required", ve["Items[0].MenuID"])
	}
	if ve["Items[0].Quantity"] != "gt" {
		t.Errorf("Items[0].Quantity: got %q, want gt", ve["Items[0].Quantity"])
	}
}

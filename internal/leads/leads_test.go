package leads

import (
	"errors"
	"testing"
)

func TestUpdate_Validate(t *testing.T) {
	ok := Update{CompanyName: "Acme AS", Phone: "91234567", Email: "post@acme.no", OrgNumber: "923609016"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	bad := Update{Phone: "12", OrgNumber: "123"}
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidUpdate) {
		t.Fatalf("expected ErrInvalidUpdate, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", verr)
	}
}

func TestNormalize_TrimsAndCompactsOrgNumber(t *testing.T) {
	u := Update{CompanyName: "  Acme  ", OrgNumber: " 923 609 016 "}.Normalize()
	if u.CompanyName != "Acme" || u.OrgNumber != "923609016" {
		t.Fatalf("unexpected: %+v", u)
	}
}

func TestFormFromAndApply_PreserveLinkage(t *testing.T) {
	l := Lead{ID: "l1", CompanyName: "Old", PipelineItemID: "pi1", StageID: "s1"}
	form := FormFrom(l)
	if form.CompanyName != "Old" {
		t.Fatalf("form not seeded: %+v", form)
	}
	form.CompanyName = "New"
	form.Email = "a@b.no"
	Apply(&l, form)
	if l.CompanyName != "New" || l.Email != "a@b.no" {
		t.Fatalf("not applied: %+v", l)
	}
	if l.ID != "l1" || l.PipelineItemID != "pi1" || l.StageID != "s1" {
		t.Fatalf("identity changed: %+v", l)
	}
}

func TestCompany_Lead(t *testing.T) {
	l := Company{OrgNumber: "923609016", Name: "Acme AS", City: "Oslo"}.Lead()
	if l.ID != "923609016" || l.OrgNumber != "923609016" || l.CompanyName != "Acme AS" || l.City != "Oslo" {
		t.Fatalf("unexpected lead: %+v", l)
	}
	if l.PipelineItemID != "" {
		t.Fatalf("registry lead must be unassigned")
	}
	if l.ContactName() != "Acme AS" {
		t.Fatalf("expected company fallback, got %q", l.ContactName())
	}
}

package schema

import (
	"testing"

	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/google/go-cmp/cmp"
)

func TestStandardize_RegistrationAliases(t *testing.T) {
	tbl := sheet.New(
		"Contact ID (Existing Contact) (Contact)",
		"First Name (Existing Contact) (Contact)",
		"Last Name (Existing Contact) (Contact)",
		"Title (Existing Contact) (Contact)",
		"Local Club (Existing Contact) (Contact)",
		"Gender (Existing Contact) (Contact)",
		"Age (Existing Contact) (Contact)",
		"Event ",
		"Status Reason",
		"Unrelated",
	)
	tbl.AppendStrings("42", "sara", "haddad", "Ms", "SF", "2", "30", "Gala", "Paid", "x")

	missing := Standardize(tbl, Registration)
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
	want := []string{ContactID, FirstName, LastName, Title, LocalClub, Gender, Age, Event, Status, "Unrelated"}
	if diff := cmp.Diff(want, tbl.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if got := tbl.String(0, Event); got != "Gala" {
		t.Errorf("Event = %q, want Gala", got)
	}
}

func TestStandardize_ReportsMissingRequired(t *testing.T) {
	tbl := sheet.New("Contact", "Event")
	missing := Standardize(tbl, Seating)
	if diff := cmp.Diff([]string{Table}, missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if !tbl.Has(ContactID) {
		t.Error("Contact should be renamed to Contact ID")
	}
}

func TestStandardize_Idempotent(t *testing.T) {
	tbl := sheet.New(ContactID, QRCode, CreatedOn)
	tbl.AppendStrings("1", "QR-1", "3/14/2025")
	before := tbl.Clone()

	for i := 0; i < 2; i++ {
		if missing := Standardize(tbl, QRCodes); len(missing) != 0 {
			t.Fatalf("pass %d: missing = %v", i, missing)
		}
	}
	if diff := cmp.Diff(before.Columns(), tbl.Columns()); diff != "" {
		t.Errorf("columns changed (-want +got):\n%s", diff)
	}
	for _, c := range before.Columns() {
		if before.Get(0, c) != tbl.Get(0, c) {
			t.Errorf("column %s changed: %+v -> %+v", c, before.Get(0, c), tbl.Get(0, c))
		}
	}
}

func TestStandardize_FoldsCaseAndWhitespace(t *testing.T) {
	tbl := sheet.New("contact id", "  QR  code value ")
	if missing := Standardize(tbl, QRCodes); len(missing) != 0 {
		t.Fatalf("missing = %v", missing)
	}
	if diff := cmp.Diff([]string{ContactID, QRCode}, tbl.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestStandardize_QRModifiedOnStandsInForCreatedOn(t *testing.T) {
	tbl := sheet.New("Contact ID (Event Guest Contact Id) (Contact)", "QR Code Value", "(Do Not Modify) Modified On")
	Standardize(tbl, QRCodes)
	if !tbl.Has(CreatedOn) {
		t.Errorf("columns = %v, want Created On", tbl.Columns())
	}
}

func TestStandardize_FormsPreferCampaign(t *testing.T) {
	tbl := sheet.New("Contact ID (Contact) (Contact)", "Event", "Campaign", "Form Question", "Guest Response")
	tbl.AppendStrings("1", "Lookup", "Gala", "Meal", "Fish")

	if missing := Standardize(tbl, FormResponses); len(missing) != 0 {
		t.Fatalf("missing = %v", missing)
	}
	if got := tbl.String(0, Event); got != "Gala" {
		t.Errorf("Event = %q, want the campaign value Gala", got)
	}
	if got := tbl.String(0, "Event (original)"); got != "Lookup" {
		t.Errorf("displaced column = %q, want Lookup", got)
	}
}

func TestSpecRequired(t *testing.T) {
	want := []string{ContactID, QRCode}
	if diff := cmp.Diff(want, QRCodes.Required()); diff != "" {
		t.Errorf("Required() mismatch (-want +got):\n%s", diff)
	}
}

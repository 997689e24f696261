package schema

// Header texts produced by the CRM exports.
const (
	crmRegContactID = "Contact ID (Existing Contact) (Contact)"
	crmRegMemberID  = "Member ID (Existing Contact) (Contact)"
	crmRegFirstName = "First Name (Existing Contact) (Contact)"
	crmRegLastName  = "Last Name (Existing Contact) (Contact)"
	crmRegTitle     = "Title (Existing Contact) (Contact)"
	crmRegLocalClub = "Local Club (Existing Contact) (Contact)"
	crmRegGender    = "Gender (Existing Contact) (Contact)"
	crmRegAge       = "Age (Existing Contact) (Contact)"
	crmContact      = "Contact ID (Contact) (Contact)"
	crmGuestContact = "Contact ID (Event Guest Contact Id) (Contact)"
	crmModifiedOn   = "(Do Not Modify) Modified On"
)

var createdOnAliases = []string{"Created On", "Created on", "Createdon", "Date Created"}

// Registration describes the registration list export.
var Registration = Spec{
	Kind: "Registration List",
	Columns: []Column{
		{Name: ContactID, Aliases: []string{crmRegContactID, "Contact"}, Required: true},
		{Name: FirstName, Aliases: []string{crmRegFirstName}, Required: true},
		{Name: LastName, Aliases: []string{crmRegLastName}, Required: true},
		{Name: Title, Aliases: []string{crmRegTitle}, Required: true},
		{Name: LocalClub, Aliases: []string{crmRegLocalClub}, Required: true},
		{Name: Gender, Aliases: []string{crmRegGender}, Required: true},
		{Name: Age, Aliases: []string{crmRegAge}, Required: true},
		{Name: Event, Aliases: []string{"Event "}, Required: true},
		{Name: Status, Aliases: []string{"Status Reason"}, Required: true},
		{Name: MemberID, Aliases: []string{crmRegMemberID, "Member Number"}},
		{Name: CreatedOn, Aliases: createdOnAliases},
	},
}

// Seating describes the seating chart export.
var Seating = Spec{
	Kind: "Seating Chart",
	Columns: []Column{
		{Name: ContactID, Aliases: []string{crmContact, "Contact"}, Required: true},
		{Name: Event, Required: true},
		{Name: Table, Aliases: []string{"Table Number", "Table #"}, Required: true},
		{Name: CreatedOn, Aliases: createdOnAliases},
	},
}

// QRCodes describes the QR code assignment export. The export has no
// creation time, so the modification time stands in for it.
var QRCodes = Spec{
	Kind: "QR Codes",
	Columns: []Column{
		{Name: ContactID, Aliases: []string{crmGuestContact, "Contact", "Event Guest Contact Id"}, Required: true},
		{Name: QRCode, Aliases: []string{"QR Code Value"}, Required: true},
		{Name: CreatedOn, Aliases: append(append([]string{}, createdOnAliases...), crmModifiedOn, "Modified On")},
	},
}

// FormResponses describes the form response export. The event is carried
// in the campaign column.
var FormResponses = Spec{
	Kind: "Form Responses",
	Columns: []Column{
		{Name: ContactID, Aliases: []string{crmContact, "Contact"}, Required: true},
		{Name: Event, Aliases: []string{"Campaign"}, Required: true, AliasesFirst: true},
		{Name: Question, Aliases: []string{"Form Question"}, Required: true},
		{Name: Response, Aliases: []string{"Guest Response", "Answer"}, Required: true},
		{Name: CreatedOn, Aliases: createdOnAliases},
	},
}

// ContactColumns are the identity and demographic columns of the merged
// table, in output order.
var ContactColumns = []string{ContactID, FirstName, LastName, Title, LocalClub, Gender, Age, QRCode}

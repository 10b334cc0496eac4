package models

import "strings"

// Accreditation bodies whose codes prefix document categories.
const (
	BodyNAAC = "NAAC"
	BodyNBA  = "NBA"
	BodyNIRF = "NIRF"
)

// AccreditationBodies lists the bodies a report can be generated for.
var AccreditationBodies = []string{BodyNAAC, BodyNBA, BodyNIRF}

// Category is one evidence slot required by an accreditation body.
type Category struct {
	Body string `json:"body"`
	Name string `json:"name"`
}

// Label renders the category the way it is stored on documents.
func (c Category) Label() string {
	return c.Body + ": " + c.Name
}

// CategoryCatalog is the evidence each role is expected to upload.
var CategoryCatalog = map[UserRole][]Category{
	RoleFaculty: {
		{Body: BodyNAAC, Name: "Faculty CVs"},
		{Body: BodyNAAC, Name: "Certificates of Awards"},
		{Body: BodyNBA, Name: "Final Year Project Reports"},
	},
	RoleHOD: {
		{Body: BodyNAAC, Name: "Student Feedback Reports"},
		{Body: BodyNBA, Name: "Placement Statistics"},
		{Body: BodyNBA, Name: "Lab Manuals & Records"},
		{Body: BodyNBA, Name: "Placement & Higher Studies Proof"},
	},
	RoleCoordinator: {
		{Body: BodyNIRF, Name: "Student to Teacher Ratio"},
		{Body: BodyNIRF, Name: "Quantity of Research"},
		{Body: BodyNIRF, Name: "Median Salary of Graduates"},
		{Body: BodyNIRF, Name: "%age of Women or Students from Other States/Countries"},
		{Body: BodyNAAC, Name: "Student-Teacher Ratio"},
	},
}

// CategoryAllowed reports whether label is in role's catalog.
func CategoryAllowed(role UserRole, label string) bool {
	for _, c := range CategoryCatalog[role] {
		if strings.EqualFold(c.Label(), strings.TrimSpace(label)) {
			return true
		}
	}
	return false
}

// NormalizeBody upper-cases and trims a body code, returning "" for unknown ones.
func NormalizeBody(raw string) string {
	body := strings.ToUpper(strings.TrimSpace(raw))
	for _, known := range AccreditationBodies {
		if body == known {
			return body
		}
	}
	return ""
}

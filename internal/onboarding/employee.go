// Package onboarding reads onboarding resources of the current tenant: employees, their activity
// feed and the basic data lookups the employee forms use.
package onboarding

import (
	"time"

	"github.com/wolfeidau/onboard/internal/paging"
)

// Status is the onboarding state of an employee.
type Status string

const (
	StatusOpen                       Status = "OPEN"
	StatusWaitingForSent             Status = "WAITING_FOR_SENT"
	StatusSentToBPO                  Status = "SENT_TO_BPO"
	StatusReopened                   Status = "REOPENED"
	StatusValidation                 Status = "VALIDATION"
	StatusWaitingForOnboarding       Status = "WAITING_FOR_ONBOARDING"
	StatusOnboardingFailed           Status = "ONBOARDING_FAILED"
	StatusClosed                     Status = "CLOSED"
	StatusWaitingForExtraction       Status = "WAITING_FOR_EXTRACTION"
	StatusWaitingForExtractionAccept Status = "WAITING_FOR_EXTRACTION_ACCEPT"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusOpen,
	StatusWaitingForSent,
	StatusSentToBPO,
	StatusReopened,
	StatusValidation,
	StatusWaitingForOnboarding,
	StatusOnboardingFailed,
	StatusClosed,
	StatusWaitingForExtraction,
	StatusWaitingForExtractionAccept,
}

// Link is a HAL link.
type Link struct {
	Href string `json:"href"`
}

// Person is the personal data of an employee.
type Person struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Contract is the employment contract of an employee.
type Contract struct {
	EntryDate  string `json:"entryDate,omitempty"`
	JobTitle   string `json:"jobTitle,omitempty"`
	Department string `json:"department,omitempty"`
}

// Employee is an onboarding case.
type Employee struct {
	ID               string          `json:"id"`
	OnboardingStatus Status          `json:"onboardingStatus"`
	CreatedBy        string          `json:"createdBy,omitempty"`
	CreatedDate      time.Time       `json:"createdDate,omitzero"`
	LastModifiedDate time.Time       `json:"lastModifiedDate,omitzero"`
	Person           Person          `json:"person"`
	Contract         Contract        `json:"contract"`
	Links            map[string]Link `json:"_links,omitempty"`
}

// Link returns the href of the named relation.
func (e Employee) Link(rel string) (string, bool) {
	l, ok := e.Links[rel]
	if !ok || l.Href == "" {
		return "", false
	}
	return l.Href, true
}

// Offers reports whether the server offers event on this employee.
func (e Employee) Offers(event Event) bool {
	_, ok := e.Link(string(event))
	return ok
}

// DisplayName joins first and last name.
func (e Employee) DisplayName() string {
	switch {
	case e.Person.FirstName == "":
		return e.Person.LastName
	case e.Person.LastName == "":
		return e.Person.FirstName
	default:
		return e.Person.FirstName + " " + e.Person.LastName
	}
}

// Page is one page of a listing.
type Page struct {
	Employees []Employee
	Page      paging.PageState
}

type employeePage struct {
	Embedded struct {
		Employees []Employee `json:"employees"`
	} `json:"_embedded"`
	Page paging.PageState `json:"page"`
}

// Activity is an entry of the activity feed of an employee.
type Activity struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedDate time.Time `json:"createdDate"`
	Roles       []string  `json:"roles,omitempty"`
}

type activityList struct {
	Embedded struct {
		Activities []Activity `json:"activities"`
	} `json:"_embedded"`
}

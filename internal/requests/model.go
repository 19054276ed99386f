// Package requests manages document requests from submission to claim.
package requests

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("request not found")
	ErrForbidden         = errors.New("request belongs to another user")
	ErrNotEditable       = errors.New("only pending requests can be changed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("invalid request")
)

// Status is the lifecycle state of a request or item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusClaimed   Status = "claimed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusCancelled},
	StatusApproved: {StatusClaimed, StatusCancelled},
}

// CanTransition reports whether an admin may move a request from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

const (
	RoleStudent = "student"
	RoleAlumni  = "alumni"
)

// DocumentTypes maps each requestable document to its maximum copies.
var DocumentTypes = map[string]int{
	"Form 137 (SF10)":                     1,
	"Form 138 (Report Card)":              2,
	"Diploma":                             1,
	"Certificate of Enrollment":           5,
	"Certificate of Good Moral Character": 5,
	"Certificate of Completion":           3,
	"Transcript of Records":               2,
}

// TimeSlots are the pickup windows offered for a preferred date.
var TimeSlots = []string{"08:00-10:00", "10:00-12:00", "13:00-15:00", "15:00-17:00"}

// DocumentItem is one requested document. Items are owned by their request.
type DocumentItem struct {
	ID           string `json:"id"`
	DocumentType string `json:"documentType"`
	Purpose      string `json:"purpose"`
	Copies       int    `json:"copies"`
	Status       Status `json:"status"`
	QRCode       string `json:"qrCode,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

// DocumentRequest is a submission for one or more documents.
type DocumentRequest struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"firstName"`
	MiddleName     string         `json:"middleName,omitempty"`
	LastName       string         `json:"lastName"`
	LRN            string         `json:"lrn"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone,omitempty"`
	Role           string         `json:"role"`
	GradeYear      string         `json:"gradeYear,omitempty"`
	UserID         string         `json:"userId"`
	Documents      []DocumentItem `json:"documents"`
	PreferredDate  string         `json:"preferredDate"`
	PreferredTime  string         `json:"preferredTime"`
	Status         Status         `json:"status"`
	DisableDate    *time.Time     `json:"disableDate,omitempty"`
	Attachments    []string       `json:"attachments,omitempty"`
	ItemRequestIDs []string       `json:"itemRequestIds"`
	Remarks        string         `json:"remarks,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Owned reports whether userID submitted the request.
func (r DocumentRequest) Owned(userID string) bool {
	return userID != "" && r.UserID == userID
}

// FullName renders "Last, First Middle".
func (r DocumentRequest) FullName() string {
	name := r.LastName + ", " + r.FirstName
	if r.MiddleName != "" {
		name += " " + r.MiddleName
	}
	return name
}

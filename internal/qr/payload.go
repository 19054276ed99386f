package qr

import (
	"encoding/json"
	"time"
)

// PayloadInput carries the request and item fields embedded in an issued QR code.
type PayloadInput struct {
	RequestID     string
	ItemRequestID string
	FirstName     string
	MiddleName    string
	LastName      string
	LRN           string
	GradeYear     string
	DocumentType  string
	Purpose       string
	Copies        int
	PreferredDate string
	PreferredTime string
	CreatedAt     time.Time
}

type payloadStudent struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName"`
	LRN        string `json:"lrn,omitempty"`
	GradeYear  string `json:"gradeYear,omitempty"`
}

type payloadDocument struct {
	Type      string `json:"type"`
	Purpose   string `json:"purpose,omitempty"`
	Copies    int    `json:"copies"`
	RequestID string `json:"requestId,omitempty"`
}

type payloadRequest struct {
	ID            string `json:"id"`
	PreferredDate string `json:"preferredDate,omitempty"`
	PreferredTime string `json:"preferredTime,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

// Payload is the nested QR shape issued on approval.
type Payload struct {
	RequestID string          `json:"requestId"`
	Student   payloadStudent  `json:"student"`
	Document  payloadDocument `json:"document"`
	Request   payloadRequest  `json:"request"`
	IssuedAt  string          `json:"issuedAt"`
}

// BuildPayload produces the payload for one document item. The top-level
// requestId is the item's correlation key so a scan can find its parent.
func BuildPayload(in PayloadInput, issuedAt time.Time) Payload {
	correlation := in.ItemRequestID
	if correlation == "" {
		correlation = in.RequestID
	}
	p := Payload{
		RequestID: correlation,
		Student: payloadStudent{
			FirstName:  in.FirstName,
			MiddleName: in.MiddleName,
			LastName:   in.LastName,
			LRN:        in.LRN,
			GradeYear:  in.GradeYear,
		},
		Document: payloadDocument{
			Type:      in.DocumentType,
			Purpose:   in.Purpose,
			Copies:    in.Copies,
			RequestID: in.ItemRequestID,
		},
		Request: payloadRequest{
			ID:            in.RequestID,
			PreferredDate: in.PreferredDate,
			PreferredTime: in.PreferredTime,
		},
		IssuedAt: issuedAt.UTC().Format(time.RFC3339),
	}
	if !in.CreatedAt.IsZero() {
		p.Request.CreatedAt = in.CreatedAt.UTC().Format(time.RFC3339)
	}
	return p
}

// MarshalPayload renders the payload as the raw QR text.
func MarshalPayload(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/qr"
)

// ErrUnknownToken is returned for deep-link tokens that were never issued.
var ErrUnknownToken = errors.New("verification token not found")

// qrToken is a pre-resolved verification stored for deep links.
type qrToken struct {
	Token         string            `json:"token"`
	RequestID     string            `json:"requestId"`
	ItemID        string            `json:"itemId"`
	ItemRequestID string            `json:"itemRequestId"`
	Payload       string            `json:"payload"`
	Record        qr.VerifiedRecord `json:"record"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// TokenRecord is the result of resolving a deep-link token.
type TokenRecord struct {
	Token     string            `json:"token"`
	RequestID string            `json:"requestId"`
	ItemID    string            `json:"itemId"`
	Payload   string            `json:"payload"`
	Record    qr.VerifiedRecord `json:"record"`
}

// issueCodes renders a QR code per item and prepares its deep-link token.
func (s *Service) issueCodes(ctx context.Context, req *DocumentRequest, now time.Time) ([]qrToken, error) {
	normalizer := qr.NewNormalizer(nil, s.policy.Location())
	tokens := make([]qrToken, 0, len(req.Documents))
	for i := range req.Documents {
		item := &req.Documents[i]
		payload := qr.BuildPayload(qr.PayloadInput{
			RequestID:     req.ID,
			ItemRequestID: item.RequestID,
			FirstName:     req.FirstName,
			MiddleName:    req.MiddleName,
			LastName:      req.LastName,
			LRN:           req.LRN,
			GradeYear:     req.GradeYear,
			DocumentType:  item.DocumentType,
			Purpose:       item.Purpose,
			Copies:        item.Copies,
			PreferredDate: req.PreferredDate,
			PreferredTime: req.PreferredTime,
			CreatedAt:     req.CreatedAt,
		}, now)
		dataURL, raw, err := qr.Encode(payload)
		if err != nil {
			return nil, fmt.Errorf("render qr for item %s: %w", item.ID, err)
		}
		record, err := normalizer.Normalize(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("normalize issued payload: %w", err)
		}
		item.QRCode = dataURL
		tokens = append(tokens, qrToken{
			Token:         uuid.NewString(),
			RequestID:     req.ID,
			ItemID:        item.ID,
			ItemRequestID: item.RequestID,
			Payload:       raw,
			Record:        record,
			CreatedAt:     now,
		})
	}
	return tokens, nil
}

func (s *Service) saveToken(ctx context.Context, tok qrToken) error {
	doc, err := docstore.Encode(tok)
	if err != nil {
		return err
	}
	_, err = s.store.Create(ctx, docstore.QRTokens, tok.Token, doc)
	return err
}

// Tokens lists the deep-link tokens issued for a request.
func (s *Service) Tokens(ctx context.Context, requestID string) ([]TokenRecord, error) {
	snaps, err := s.store.Query(ctx, docstore.QRTokens, docstore.Query{}.Where("requestId", docstore.Eq, requestID))
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	out := make([]TokenRecord, 0, len(snaps))
	for _, snap := range snaps {
		var t TokenRecord
		if err := snap.DataTo(&t); err != nil {
			return nil, err
		}
		t.Token = snap.ID
		out = append(out, t)
	}
	return out, nil
}

// ResolveToken returns the verification stored for a deep-link token.
func (s *Service) ResolveToken(ctx context.Context, token string) (TokenRecord, error) {
	if token == "" {
		return TokenRecord{}, ErrUnknownToken
	}
	doc, err := s.store.Get(ctx, docstore.QRTokens, token)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return TokenRecord{}, ErrUnknownToken
		}
		return TokenRecord{}, err
	}
	var t TokenRecord
	if err := docstore.Decode(doc, &t); err != nil {
		return TokenRecord{}, err
	}
	t.Token = token
	return t, nil
}

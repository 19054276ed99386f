package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/datepolicy"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/metrics"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/notify"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/realtime"
)

// ActivityLogger is the audit sink. *activity.Logger implements it.
type ActivityLogger interface {
	Log(ctx context.Context, e activity.Entry)
}

// Notifier delivers in-app notifications. *notify.Service implements it.
type Notifier interface {
	Notify(ctx context.Context, userIDs []string, n notify.Notification) error
	NotifyAdmins(ctx context.Context, n notify.Notification) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store              docstore.Store
	Policy             *datepolicy.Policy
	Activity           ActivityLogger
	Notifier           Notifier
	Hub                realtime.Publisher
	Metrics            *metrics.Metrics
	AlumniDisableAfter time.Duration
	Now                func() time.Time
}

// Service implements the request lifecycle.
type Service struct {
	store        docstore.Store
	policy       *datepolicy.Policy
	activity     ActivityLogger
	notifier     Notifier
	hub          realtime.Publisher
	metrics      *metrics.Metrics
	disableAfter time.Duration
	now          func() time.Time
}

type nopActivity struct{}

func (nopActivity) Log(context.Context, activity.Entry) {}

// NewService creates a request service. Store and Policy are required.
func NewService(d Deps) *Service {
	if d.Activity == nil {
		d.Activity = nopActivity{}
	}
	if d.Hub == nil {
		d.Hub = realtime.Discard{}
	}
	if d.Now == nil {
		d.Now = docstore.Now
	}
	if d.AlumniDisableAfter <= 0 {
		d.AlumniDisableAfter = 7 * 24 * time.Hour
	}
	return &Service{
		store:        d.Store,
		policy:       d.Policy,
		activity:     d.Activity,
		notifier:     d.Notifier,
		hub:          d.Hub,
		metrics:      d.Metrics,
		disableAfter: d.AlumniDisableAfter,
		now:          d.Now,
	}
}

func isAdmin(a activity.Actor) bool { return a.Role == "admin" }

// checkDate applies the pickup date policy to a submitted preferred date.
func (s *Service) checkDate(dateISO string) error {
	v, err := s.policy.Evaluate(dateISO, 0)
	if err != nil {
		return fmt.Errorf("%w: preferredDate: %v", ErrValidation, err)
	}
	if !v.OK {
		return fmt.Errorf("%w: preferredDate is %s: %s", ErrValidation, v.Reason, v.Message())
	}
	return nil
}

func buildItems(requestID string, forms []ItemForm) ([]DocumentItem, []string) {
	items := make([]DocumentItem, 0, len(forms))
	keys := make([]string, 0, len(forms))
	for i, f := range forms {
		key := fmt.Sprintf("%s-%02d", requestID, i+1)
		items = append(items, DocumentItem{
			ID:           uuid.NewString(),
			DocumentType: f.DocumentType,
			Purpose:      f.Purpose,
			Copies:       f.Copies,
			Status:       StatusPending,
			RequestID:    key,
		})
		keys = append(keys, key)
	}
	return items, keys
}

// Create validates a submission and stores it as a pending request.
func (s *Service) Create(ctx context.Context, actor activity.Actor, form Form) (DocumentRequest, error) {
	if err := form.Validate(); err != nil {
		return DocumentRequest{}, err
	}
	if err := s.checkDate(form.PreferredDate); err != nil {
		return DocumentRequest{}, err
	}

	now := s.now()
	id := uuid.NewString()
	items, keys := buildItems(id, form.Documents)
	req := DocumentRequest{
		ID:             id,
		FirstName:      form.FirstName,
		MiddleName:     form.MiddleName,
		LastName:       form.LastName,
		LRN:            form.LRN,
		Email:          form.Email,
		Phone:          form.Phone,
		Role:           form.Role,
		GradeYear:      form.GradeYear,
		UserID:         actor.UserID,
		Documents:      items,
		PreferredDate:  form.PreferredDate,
		PreferredTime:  form.PreferredTime,
		Status:         StatusPending,
		ItemRequestIDs: keys,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	doc, err := docstore.Encode(req)
	if err != nil {
		return DocumentRequest{}, err
	}
	if _, err := s.store.Create(ctx, docstore.Requests, id, doc); err != nil {
		return DocumentRequest{}, fmt.Errorf("create request: %w", err)
	}

	s.activity.Log(ctx, activity.Entry{
		Type:        activity.TypeRequestCreated,
		Description: fmt.Sprintf("%s requested %d document(s)", req.FullName(), len(items)),
		Metadata:    map[string]any{"requestId": id, "preferredDate": req.PreferredDate},
	})
	s.notifyAdmins(ctx, notify.Notification{
		Type:      string(activity.TypeRequestCreated),
		Title:     "New document request",
		Message:   fmt.Sprintf("%s submitted a request for %s", req.FullName(), req.PreferredDate),
		RequestID: id,
	})
	s.publish("request_created", req)
	return req, nil
}

// Get returns a request by id.
func (s *Service) Get(ctx context.Context, id string) (DocumentRequest, error) {
	doc, err := s.store.Get(ctx, docstore.Requests, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return DocumentRequest{}, ErrNotFound
		}
		return DocumentRequest{}, err
	}
	var req DocumentRequest
	if err := docstore.Decode(doc, &req); err != nil {
		return DocumentRequest{}, err
	}
	req.ID = id
	return req, nil
}

// GetFor returns a request visible to actor: their own, or any for admins.
func (s *Service) GetFor(ctx context.Context, actor activity.Actor, id string) (DocumentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return DocumentRequest{}, err
	}
	if !isAdmin(actor) && !req.Owned(actor.UserID) {
		return DocumentRequest{}, ErrForbidden
	}
	return req, nil
}

// ListFilter narrows the admin request list.
type ListFilter struct {
	Status Status
	UserID string
	Limit  int
}

// List returns requests newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]DocumentRequest, error) {
	q := docstore.Query{OrderBy: "createdAt", Desc: true, Limit: f.Limit}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	if f.Status != "" {
		q = q.Where("status", docstore.Eq, string(f.Status))
	}
	if f.UserID != "" {
		q = q.Where("userId", docstore.Eq, f.UserID)
	}
	snaps, err := s.store.Query(ctx, docstore.Requests, q)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]DocumentRequest, 0, len(snaps))
	for _, snap := range snaps {
		var req DocumentRequest
		if err := snap.DataTo(&req); err != nil {
			return nil, err
		}
		req.ID = snap.ID
		out = append(out, req)
	}
	return out, nil
}

// Edit replaces the submission of a pending request owned by actor.
func (s *Service) Edit(ctx context.Context, actor activity.Actor, id string, form Form) (DocumentRequest, error) {
	req, err := s.ownedPending(ctx, actor, id)
	if err != nil {
		return DocumentRequest{}, err
	}
	if err := form.Validate(); err != nil {
		return DocumentRequest{}, err
	}
	if form.PreferredDate != req.PreferredDate {
		if err := s.checkDate(form.PreferredDate); err != nil {
			return DocumentRequest{}, err
		}
	}

	req.FirstName, req.MiddleName, req.LastName = form.FirstName, form.MiddleName, form.LastName
	req.LRN, req.Email, req.Phone = form.LRN, form.Email, form.Phone
	req.Role, req.GradeYear = form.Role, form.GradeYear
	req.PreferredDate, req.PreferredTime = form.PreferredDate, form.PreferredTime
	req.Documents, req.ItemRequestIDs = buildItems(req.ID, form.Documents)
	req.UpdatedAt = s.now()
	if err := s.save(ctx, req); err != nil {
		return DocumentRequest{}, err
	}

	s.activity.Log(ctx, activity.Entry{
		Type:        activity.TypeRequestUpdated,
		Description: fmt.Sprintf("%s updated request %s", req.FullName(), req.ID),
		Metadata:    map[string]any{"requestId": req.ID},
	})
	s.publish("request_updated", req)
	return req, nil
}

// Cancel withdraws a pending request owned by actor.
func (s *Service) Cancel(ctx context.Context, actor activity.Actor, id string) (DocumentRequest, error) {
	req, err := s.ownedPending(ctx, actor, id)
	if err != nil {
		return DocumentRequest{}, err
	}
	req.Status = StatusCancelled
	for i := range req.Documents {
		req.Documents[i].Status = StatusCancelled
	}
	req.UpdatedAt = s.now()
	if err := s.save(ctx, req); err != nil {
		return DocumentRequest{}, err
	}
	s.metrics.Transition(string(StatusCancelled))

	s.activity.Log(ctx, activity.Entry{
		Type:        activity.TypeRequestCancelled,
		Description: fmt.Sprintf("%s cancelled request %s", req.FullName(), req.ID),
		Metadata:    map[string]any{"requestId": req.ID},
	})
	s.notifyAdmins(ctx, notify.Notification{
		Type:      string(activity.TypeRequestCancelled),
		Title:     "Request cancelled",
		Message:   fmt.Sprintf("%s cancelled their request", req.FullName()),
		RequestID: req.ID,
	})
	s.publish("request_updated", req)
	return req, nil
}

func (s *Service) ownedPending(ctx context.Context, actor activity.Actor, id string) (DocumentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return DocumentRequest{}, err
	}
	if !req.Owned(actor.UserID) {
		return DocumentRequest{}, ErrForbidden
	}
	if req.Status != StatusPending {
		return DocumentRequest{}, ErrNotEditable
	}
	return req, nil
}

// SetStatus applies an admin status change. Approval issues QR codes;
// claiming an alumni request schedules the account disable date.
func (s *Service) SetStatus(ctx context.Context, actor activity.Actor, id string, to Status, remarks string) (DocumentRequest, error) {
	if !isAdmin(actor) {
		return DocumentRequest{}, ErrForbidden
	}
	req, err := s.Get(ctx, id)
	if err != nil {
		return DocumentRequest{}, err
	}
	from := req.Status
	if !CanTransition(from, to) {
		return DocumentRequest{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	now := s.now()
	var tokens []qrToken
	switch to {
	case StatusApproved:
		tokens, err = s.issueCodes(ctx, &req, now)
		if err != nil {
			return DocumentRequest{}, err
		}
	case StatusClaimed:
		if req.Role == RoleAlumni {
			disable := now.Add(s.disableAfter)
			req.DisableDate = &disable
		}
	}
	for i := range req.Documents {
		req.Documents[i].Status = to
	}
	req.Status = to
	if remarks != "" {
		req.Remarks = remarks
	}
	req.UpdatedAt = now
	if err := s.save(ctx, req); err != nil {
		return DocumentRequest{}, err
	}
	for _, tok := range tokens {
		if err := s.saveToken(ctx, tok); err != nil {
			slog.Warn("qr token not stored", "requestId", req.ID, "itemId", tok.ItemID, "error", err)
		}
	}
	if req.DisableDate != nil && req.UserID != "" {
		s.propagateDisable(ctx, req)
	}
	s.metrics.Transition(string(to))

	s.activity.Log(ctx, activity.Entry{
		Type:        activity.TypeRequestStatusChanged,
		Description: fmt.Sprintf("Request %s of %s changed from %s to %s", req.ID, req.FullName(), from, to),
		Metadata:    map[string]any{"requestId": req.ID, "from": string(from), "to": string(to), "remarks": remarks},
	})
	if s.notifier != nil && req.UserID != "" {
		notify.Best(ctx, "status change", func(ctx context.Context) error {
			return s.notifier.Notify(ctx, []string{req.UserID}, notify.Notification{
				Type:      string(activity.TypeRequestStatusChanged),
				Title:     "Request " + string(to),
				Message:   statusMessage(to, req),
				RequestID: req.ID,
			})
		})
	}
	s.publish("request_status_changed", req)
	return req, nil
}

func statusMessage(to Status, req DocumentRequest) string {
	switch to {
	case StatusApproved:
		return fmt.Sprintf("Your request is approved. Bring your QR code on %s, %s.", req.PreferredDate, req.PreferredTime)
	case StatusClaimed:
		if req.DisableDate != nil {
			return fmt.Sprintf("Your documents were claimed. This account will be disabled on %s.", req.DisableDate.Format("2006-01-02"))
		}
		return "Your documents were claimed."
	case StatusCancelled:
		return "Your request was cancelled by the registrar."
	}
	return "Your request status changed to " + string(to) + "."
}

// propagateDisable copies the disable date onto the owning account.
func (s *Service) propagateDisable(ctx context.Context, req DocumentRequest) {
	err := s.store.Update(ctx, docstore.Users, req.UserID, map[string]any{
		"disableDate": req.DisableDate.UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn("disable date not propagated", "userId", req.UserID, "requestId", req.ID, "error", err)
	}
}

// AddAttachment appends an uploaded file URL to a request.
func (s *Service) AddAttachment(ctx context.Context, actor activity.Actor, id, url string) (DocumentRequest, error) {
	req, err := s.GetFor(ctx, actor, id)
	if err != nil {
		return DocumentRequest{}, err
	}
	req.Attachments = append(req.Attachments, url)
	req.UpdatedAt = s.now()
	if err := s.store.Update(ctx, docstore.Requests, id, map[string]any{
		"attachments": req.Attachments,
		"updatedAt":   req.UpdatedAt,
	}); err != nil {
		return DocumentRequest{}, fmt.Errorf("add attachment: %w", err)
	}
	s.activity.Log(ctx, activity.Entry{
		Type:        activity.TypeAttachmentUploaded,
		Description: fmt.Sprintf("Attachment added to request %s", id),
		Metadata:    map[string]any{"requestId": id, "url": url},
	})
	s.publish("request_updated", req)
	return req, nil
}

func (s *Service) save(ctx context.Context, req DocumentRequest) error {
	doc, err := docstore.Encode(req)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, docstore.Requests, req.ID, doc); err != nil {
		return fmt.Errorf("save request %s: %w", req.ID, err)
	}
	return nil
}

func (s *Service) notifyAdmins(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	notify.Best(ctx, n.Type, func(ctx context.Context) error {
		return s.notifier.NotifyAdmins(ctx, n)
	})
}

func (s *Service) publish(kind string, req DocumentRequest) {
	s.hub.Publish(realtime.Event{Type: kind, Collection: docstore.Requests, ID: req.ID, Data: req})
}

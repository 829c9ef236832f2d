package offers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/notifications"
	"github.com/firewatch/firewatch/internal/shared"
)

var errNotPending = fmt.Errorf("%w: offer is no longer pending", shared.ErrConflict)

// Service applies the offer policy around the repository.
type Service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs an offer service.
func NewService(repo Repository, pageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pageSize: pageSize, logger: logger, now: time.Now}
}

// List returns the page of offer headers visible to p.
func (s *Service) List(ctx context.Context, p access.Principal, params access.ListParams) (shared.Page[Row], error) {
	q := access.Offers.Scope(p, params, s.pageSize)
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return shared.Page[Row]{}, fmt.Errorf("offers: list: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for _, o := range items {
		rows = append(rows, row(p, o))
	}
	return shared.NewPage(rows, q.Page, int(q.Limit), total), nil
}

// Get returns one offer with its items.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (Detail, error) {
	o, err := s.visible(ctx, p, id)
	if err != nil {
		return Detail{}, err
	}
	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("offers: items: %w", err)
	}
	return detail(p, o, items), nil
}

// Create sends a new offer from the caller's side and notifies the recipient.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (Detail, error) {
	if !access.Offers.CanCreate(p.Role) {
		return Detail{}, shared.ErrForbidden
	}
	creator := p.Party()
	if p.IsAdmin() {
		creator = access.Party{PersonID: in.CreatorID, InstitutionID: in.CreatorInstitutionID}
	}
	if creator.InstitutionID == "" {
		return Detail{}, fmt.Errorf("%w: creatorInstitutionId is required", shared.ErrValidation)
	}
	if in.ValidityDate.Before(in.OfferDate) {
		return Detail{}, fmt.Errorf("%w: validityDate precedes offerDate", shared.ErrValidation)
	}

	now := s.now().UTC()
	o := Offer{
		ID:                     uuid.NewString(),
		OfferDate:              in.OfferDate,
		ValidityDate:           in.ValidityDate,
		Status:                 StatusPending,
		Details:                in.Details,
		PaymentTerm:            in.PaymentTerm,
		CreatorID:              creator.PersonID,
		CreatorInstitutionID:   creator.InstitutionID,
		RecipientID:            in.RecipientID,
		RecipientInstitutionID: in.RecipientInstitutionID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if !access.Offers.CanClaim(p, o.Shape()) {
		return Detail{}, shared.ErrForbidden
	}
	if p.IsAdmin() {
		if err := s.checkMember(ctx, o.CreatorID, o.CreatorInstitutionID, "creatorId"); err != nil {
			return Detail{}, err
		}
	}
	if err := s.checkMember(ctx, o.RecipientID, o.RecipientInstitutionID, "recipientId"); err != nil {
		return Detail{}, err
	}
	items := make([]Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, Item{
			ID:          uuid.NewString(),
			OfferID:     o.ID,
			ServiceName: it.ServiceName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Detail:      it.Detail,
		})
	}
	note := s.notice(o, o.RecipientID, o.RecipientInstitutionID, p.ID,
		fmt.Sprintf("New offer received, total %.2f", total(items)))
	if err := s.repo.Create(ctx, o, items, note); err != nil {
		return Detail{}, fmt.Errorf("offers: create: %w", err)
	}
	s.logger.Info("offer created", slog.String("offer_id", o.ID), slog.String("actor_id", p.ID), slog.Int("items", len(items)))
	return detail(p, o, items), nil
}

// Update modifies a pending offer.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (Row, error) {
	o, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Offers.CanUpdate(p, o.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if o.Status != StatusPending {
		return Row{}, errNotPending
	}
	in.apply(&o)
	if o.ValidityDate.Before(o.OfferDate) {
		return Row{}, fmt.Errorf("%w: validityDate precedes offerDate", shared.ErrValidation)
	}
	o.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, o); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Row{}, errNotPending
		}
		return Row{}, fmt.Errorf("offers: update: %w", err)
	}
	return row(p, o), nil
}

// Respond accepts or rejects a pending offer on behalf of its recipient side
// and notifies the creator.
func (s *Service) Respond(ctx context.Context, p access.Principal, id string, in RespondInput) (Row, error) {
	o, err := s.visible(ctx, p, id)
	if err != nil {
		return Row{}, err
	}
	if !access.Offers.Can(p, access.ActionRespond, o.Shape()) {
		return Row{}, shared.ErrForbidden
	}
	if o.Status != StatusPending {
		return Row{}, errNotPending
	}
	o.Status = in.Status
	o.UpdatedAt = s.now().UTC()
	note := s.notice(o, o.CreatorID, o.CreatorInstitutionID, p.ID, "Your offer was "+statusWord(o.Status))
	if err := s.repo.Respond(ctx, o, note); err != nil {
		// A concurrent answer surfaces as a missing pending row or a
		// serialization conflict.
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrConflict) {
			return Row{}, errNotPending
		}
		return Row{}, fmt.Errorf("offers: respond: %w", err)
	}
	s.logger.Info("offer answered", slog.String("offer_id", o.ID), slog.String("status", o.Status), slog.String("actor_id", p.ID))
	return row(p, o), nil
}

// Delete removes an offer.
func (s *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	o, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Offers.CanDelete(p, o.Shape()) {
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("offers: delete: %w", err)
	}
	s.logger.Info("offer deleted", slog.String("offer_id", id), slog.String("actor_id", p.ID))
	return nil
}

// checkMember rejects a named person outside the named institution.
func (s *Service) checkMember(ctx context.Context, personID, institutionID, field string) error {
	if personID == "" {
		return nil
	}
	ok, err := s.repo.MemberOf(ctx, personID, institutionID)
	if err != nil {
		return fmt.Errorf("offers: member lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s does not belong to the institution", shared.ErrValidation, field)
	}
	return nil
}

func (s *Service) visible(ctx context.Context, p access.Principal, id string) (Offer, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Offer{}, fmt.Errorf("offers: get: %w", err)
	}
	if !access.Offers.CanView(p, o.Shape()) {
		return Offer{}, shared.ErrNotFound
	}
	return o, nil
}

func (s *Service) notice(o Offer, personID, institutionID, actorID, content string) notifications.Notification {
	return notifications.Notification{
		ID:                     uuid.NewString(),
		Content:                content,
		Kind:                   notifications.KindOffer,
		Link:                   "/offers/" + o.ID,
		CreatorID:              actorID,
		RecipientID:            personID,
		RecipientInstitutionID: institutionID,
		CreatedAt:              o.UpdatedAt,
	}
}

func statusWord(status string) string {
	if status == StatusAccepted {
		return "accepted"
	}
	return "rejected"
}

func row(p access.Principal, o Offer) Row {
	return Row{
		Offer:      o,
		Flags:      access.Offers.Flags(p, o.Shape()),
		CanRespond: o.Status == StatusPending && access.Offers.Can(p, access.ActionRespond, o.Shape()),
	}
}

func detail(p access.Principal, o Offer, items []Item) Detail {
	if items == nil {
		items = []Item{}
	}
	return Detail{Row: row(p, o), Items: items, Total: total(items)}
}

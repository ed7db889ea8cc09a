package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/metrics"
	"carmarket/internal/infrastructure/ratelimit"
	"carmarket/pkg/errors"
	"carmarket/pkg/logger"
)

const (
	DefaultRequestExpiry = 30 * 24 * time.Hour
	DefaultOfferExpiry   = 7 * 24 * time.Hour
)

type NegotiationConfig struct {
	RequestExpiry time.Duration
	OfferExpiry   time.Duration
}

// NegotiationUseCase drives buyer requests and seller offers through their
// lifecycles.
type NegotiationUseCase struct {
	requestRepo repository.BuyerRequestRepository
	offerRepo   repository.SellerOfferRepository
	userRepo    repository.UserRepository
	carRepo     repository.CarRepository
	chats       *ChatUseCase
	events      *Dispatcher
	rateLimiter *ratelimit.RateLimiter
	cfg         NegotiationConfig
	now         func() time.Time
}

func NewNegotiationUseCase(
	requestRepo repository.BuyerRequestRepository,
	offerRepo repository.SellerOfferRepository,
	userRepo repository.UserRepository,
	carRepo repository.CarRepository,
	chats *ChatUseCase,
	events *Dispatcher,
	rateLimiter *ratelimit.RateLimiter,
	cfg NegotiationConfig,
) *NegotiationUseCase {
	if cfg.RequestExpiry <= 0 {
		cfg.RequestExpiry = DefaultRequestExpiry
	}
	if cfg.OfferExpiry <= 0 {
		cfg.OfferExpiry = DefaultOfferExpiry
	}

	return &NegotiationUseCase{
		requestRepo: requestRepo,
		offerRepo:   offerRepo,
		userRepo:    userRepo,
		carRepo:     carRepo,
		chats:       chats,
		events:      events,
		rateLimiter: rateLimiter,
		cfg:         cfg,
		now:         time.Now,
	}
}

type CreateRequestInput struct {
	Title              string
	Description        string
	Make               string
	Model              string
	Type               string
	BudgetMin          float64
	BudgetMax          float64
	PreferredCondition string
	Location           *entity.GeoPoint
	ExpiryDate         *time.Time
}

// UpdateRequestInput carries the fields to change; nil fields are kept.
type UpdateRequestInput struct {
	Title              *string
	Description        *string
	Make               *string
	Model              *string
	Type               *string
	BudgetMin          *float64
	BudgetMax          *float64
	PreferredCondition *string
	Location           *entity.GeoPoint
	ExpiryDate         *time.Time
}

type CreateOfferInput struct {
	RequestID    string
	CarID        string
	Price        float64
	Title        string
	Description  string
	CustomImages []string
	ExpiryDate   *time.Time
}

type AcceptOfferOutput struct {
	Offer   *entity.SellerOffer  `json:"offer"`
	Request *entity.BuyerRequest `json:"request"`
	Chat    *entity.Chat         `json:"chat,omitempty"`
}

type OfferAcceptedPayload struct {
	Offer   *entity.SellerOffer  `json:"offer"`
	Request *entity.BuyerRequest `json:"request"`
	ChatID  string               `json:"chat_id,omitempty"`
}

type OfferRejectedPayload struct {
	OfferID   string `json:"offer_id"`
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

func (uc *NegotiationUseCase) CreateRequest(ctx context.Context, buyerID string, input CreateRequestInput) (request *entity.BuyerRequest, err error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.CreateRequest")
	defer func() { finishSpan(span, err) }()

	if err := validateRequestFields(input.Title, input.Description, input.BudgetMin, input.BudgetMax); err != nil {
		return nil, err
	}

	buyer, err := uc.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer.Blocked {
		return nil, errors.Validation("Blocked users cannot create buyer requests")
	}

	now := uc.now()
	expiry := now.Add(uc.cfg.RequestExpiry)
	if input.ExpiryDate != nil {
		if !input.ExpiryDate.After(now) {
			return nil, errors.Validation("expiry_date must be in the future")
		}
		expiry = *input.ExpiryDate
	}

	request = &entity.BuyerRequest{
		ID:                 uuid.New().String(),
		BuyerID:            buyerID,
		Title:              strings.TrimSpace(input.Title),
		Description:        strings.TrimSpace(input.Description),
		Make:               input.Make,
		Model:              input.Model,
		Type:               input.Type,
		BudgetMin:          input.BudgetMin,
		BudgetMax:          input.BudgetMax,
		PreferredCondition: input.PreferredCondition,
		Location:           input.Location,
		Status:             entity.RequestStatusActive,
		ExpiryDate:         expiry,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := uc.requestRepo.Create(ctx, request); err != nil {
		log.Printf("CreateRequest Error: Failed to store request for buyer %s: %v", buyerID, err)
		return nil, err
	}

	uc.events.Publish(ctx, RoutingRequestCreated, request)
	return request, nil
}

func (uc *NegotiationUseCase) UpdateRequest(ctx context.Context, buyerID, requestID string, input UpdateRequestInput) (*entity.BuyerRequest, error) {
	if _, err := activeCaller(ctx, uc.userRepo, buyerID); err != nil {
		return nil, err
	}

	request, err := uc.ownedRequest(ctx, buyerID, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != entity.RequestStatusActive {
		return nil, repository.ErrRequestNotOpen()
	}

	if input.Title != nil {
		request.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		request.Description = strings.TrimSpace(*input.Description)
	}
	if input.Make != nil {
		request.Make = *input.Make
	}
	if input.Model != nil {
		request.Model = *input.Model
	}
	if input.Type != nil {
		request.Type = *input.Type
	}
	if input.BudgetMin != nil {
		request.BudgetMin = *input.BudgetMin
	}
	if input.BudgetMax != nil {
		request.BudgetMax = *input.BudgetMax
	}
	if input.PreferredCondition != nil {
		request.PreferredCondition = *input.PreferredCondition
	}
	if input.Location != nil {
		request.Location = input.Location
	}
	if input.ExpiryDate != nil {
		if !input.ExpiryDate.After(uc.now()) {
			return nil, errors.Validation("expiry_date must be in the future")
		}
		request.ExpiryDate = *input.ExpiryDate
	}

	if err := validateRequestFields(request.Title, request.Description, request.BudgetMin, request.BudgetMax); err != nil {
		return nil, err
	}

	request.UpdatedAt = uc.now()
	if err := uc.requestRepo.Update(ctx, request); err != nil {
		if errors.IsConflict(err) {
			metrics.IncNegotiationConflict("update_request")
		}
		return nil, err
	}
	return request, nil
}

// DeleteRequest cancels the request and rejects its pending offers.
func (uc *NegotiationUseCase) DeleteRequest(ctx context.Context, buyerID, requestID string) (cancelled *entity.BuyerRequest, err error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.DeleteRequest")
	span.SetAttributes(attribute.String("request.id", requestID))
	defer func() { finishSpan(span, err) }()

	if _, err := activeCaller(ctx, uc.userRepo, buyerID); err != nil {
		return nil, err
	}

	request, err := uc.ownedRequest(ctx, buyerID, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status == entity.RequestStatusFulfilled {
		return nil, repository.ErrNegotiationFulfilled()
	}

	cancelled, rejected, err := uc.requestRepo.Cancel(ctx, requestID, uc.now())
	if err != nil {
		if errors.IsConflict(err) {
			metrics.IncNegotiationConflict("cancel_request")
		}
		return nil, err
	}

	metrics.AddOfferTransitions(entity.OfferStatusRejected, len(rejected))
	for _, offer := range rejected {
		uc.events.Notify(offer.SellerID, EventOfferRejected, OfferRejectedPayload{
			OfferID:   offer.ID,
			RequestID: requestID,
			Reason:    entity.ReasonRequestCancelled,
		})
	}

	uc.events.Publish(ctx, RoutingRequestCancelled, map[string]interface{}{
		"request_id":         requestID,
		"buyer_id":           buyerID,
		"rejected_offer_ids": offerIDs(rejected),
	})
	return cancelled, nil
}

func (uc *NegotiationUseCase) GetRequest(ctx context.Context, requestID string) (*entity.BuyerRequest, error) {
	return uc.requestRepo.GetByID(ctx, requestID)
}

func (uc *NegotiationUseCase) ListOpenRequests(ctx context.Context, filter repository.BuyerRequestFilter, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	return uc.requestRepo.ListActive(ctx, filter, limit, offset)
}

func (uc *NegotiationUseCase) ListMyRequests(ctx context.Context, buyerID string, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	return uc.requestRepo.ListByBuyer(ctx, buyerID, limit, offset)
}

func (uc *NegotiationUseCase) ListOffersForRequest(ctx context.Context, buyerID, requestID string) ([]*entity.SellerOffer, error) {
	if _, err := uc.ownedRequest(ctx, buyerID, requestID); err != nil {
		return nil, err
	}
	return uc.offerRepo.ListByRequest(ctx, requestID)
}

// CreateOffer submits an offer on an open request. Preconditions are checked
// in order: seller, request, request state, duplicate, car ownership.
func (uc *NegotiationUseCase) CreateOffer(ctx context.Context, sellerID string, input CreateOfferInput) (offer *entity.SellerOffer, err error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.CreateOffer")
	span.SetAttributes(attribute.String("request.id", input.RequestID))
	defer func() { finishSpan(span, err) }()

	if input.Price <= 0 {
		return nil, errors.Validation("price must be greater than zero")
	}

	if err := allow(uc.rateLimiter, sellerID, ratelimit.ActionCreateOffer); err != nil {
		log.Printf("CreateOffer Rate Limited: User %s", sellerID)
		return nil, err
	}

	if _, err := activeCaller(ctx, uc.userRepo, sellerID); err != nil {
		return nil, err
	}

	request, err := uc.requestRepo.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if !request.IsOpen(now) {
		metrics.IncNegotiationConflict("create_offer")
		return nil, repository.ErrRequestNotOpen()
	}

	if _, err := uc.offerRepo.FindLive(ctx, request.ID, sellerID); err == nil {
		metrics.IncNegotiationConflict("create_offer")
		return nil, repository.ErrDuplicateOffer()
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	offer = &entity.SellerOffer{
		ID:          uuid.New().String(),
		RequestID:   request.ID,
		SellerID:    sellerID,
		Price:       input.Price,
		Title:       input.Title,
		Description: input.Description,
		Status:      entity.OfferStatusPending,
		ExpiryDate:  now.Add(uc.cfg.OfferExpiry),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if input.CarID != "" {
		car, err := uc.carRepo.GetByID(ctx, input.CarID)
		if err != nil {
			return nil, err
		}
		if car.OwnerID != sellerID {
			return nil, errors.Forbidden("You can only offer cars you own", nil)
		}
		offer.CarID = car.ID
		offer.Images = append([]string{}, car.Images...)
	} else {
		offer.IsCustomOffer = true
		offer.Images = append([]string{}, input.CustomImages...)
	}

	if input.ExpiryDate != nil {
		if !input.ExpiryDate.After(now) {
			return nil, errors.Validation("expiry_date must be in the future")
		}
		offer.ExpiryDate = *input.ExpiryDate
	}

	// The store re-checks request state and the seller slot atomically.
	if err := uc.offerRepo.Create(ctx, offer); err != nil {
		if errors.IsConflict(err) {
			metrics.IncNegotiationConflict("create_offer")
		}
		log.Printf("CreateOffer Error: seller %s request %s: %v", sellerID, request.ID, err)
		return nil, err
	}

	metrics.IncOfferTransition(entity.OfferStatusPending)
	uc.events.Publish(ctx, RoutingOfferCreated, offer)
	return offer, nil
}

// GetOffer is visible to the seller and to the buyer of the parent request.
func (uc *NegotiationUseCase) GetOffer(ctx context.Context, userID, offerID string) (*entity.SellerOffer, error) {
	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.SellerID == userID {
		return offer, nil
	}

	request, err := uc.requestRepo.GetByID(ctx, offer.RequestID)
	if err != nil {
		return nil, err
	}
	if request.BuyerID != userID {
		return nil, errors.Forbidden("You do not have permission to view this offer", nil)
	}
	return offer, nil
}

func (uc *NegotiationUseCase) ListMyOffers(ctx context.Context, sellerID string, limit, offset int) ([]*entity.SellerOffer, int64, error) {
	return uc.offerRepo.ListBySeller(ctx, sellerID, limit, offset)
}

// AcceptOffer closes the negotiation on offerID. The request, the offer and
// every competing offer change state in one store operation; the chat and the
// notifications follow.
func (uc *NegotiationUseCase) AcceptOffer(ctx context.Context, buyerID, offerID string) (output *AcceptOfferOutput, err error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.AcceptOffer")
	span.SetAttributes(attribute.String("offer.id", offerID))
	defer func() { finishSpan(span, err) }()

	if _, err := activeCaller(ctx, uc.userRepo, buyerID); err != nil {
		return nil, err
	}

	offer, _, err := uc.buyerControlledOffer(ctx, buyerID, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.IsPending() {
		metrics.IncNegotiationConflict("accept")
		return nil, repository.ErrOfferNotPending()
	}

	result, err := uc.offerRepo.Accept(ctx, offerID, uc.now())
	if err != nil {
		if errors.IsConflict(err) {
			metrics.IncNegotiationConflict("accept")
		}
		log.Printf("AcceptOffer Error: offer %s: %v", offerID, err)
		return nil, err
	}

	metrics.IncOfferTransition(entity.OfferStatusAccepted)
	metrics.AddOfferTransitions(entity.OfferStatusRejected, len(result.Outbid))

	output = &AcceptOfferOutput{
		Offer:   result.Offer,
		Request: result.Request,
	}

	if result.Offer.CarID != "" && uc.chats != nil {
		chat, _, err := uc.chats.GetOrCreateChat(ctx, result.Offer.CarID, buyerID, result.Offer.SellerID)
		if err != nil {
			logger.LogNegotiationError(offerID, "chat_bootstrap", err)
		} else {
			output.Chat = chat
		}
	}

	accepted := OfferAcceptedPayload{Offer: result.Offer, Request: result.Request}
	if output.Chat != nil {
		accepted.ChatID = output.Chat.ID
	}
	uc.events.Notify(result.Offer.SellerID, EventOfferAccepted, accepted)

	for _, outbid := range result.Outbid {
		uc.events.Notify(outbid.SellerID, EventOfferRejected, OfferRejectedPayload{
			OfferID:   outbid.ID,
			RequestID: outbid.RequestID,
			Reason:    entity.ReasonOutbid,
		})
	}

	uc.events.Publish(ctx, RoutingOfferAccepted, map[string]interface{}{
		"offer_id":         result.Offer.ID,
		"request_id":       result.Request.ID,
		"buyer_id":         buyerID,
		"seller_id":        result.Offer.SellerID,
		"price":            result.Offer.Price,
		"chat_id":          accepted.ChatID,
		"outbid_offer_ids": offerIDs(result.Outbid),
	})
	return output, nil
}

func (uc *NegotiationUseCase) RejectOffer(ctx context.Context, buyerID, offerID string) (rejected *entity.SellerOffer, err error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.RejectOffer")
	span.SetAttributes(attribute.String("offer.id", offerID))
	defer func() { finishSpan(span, err) }()

	if _, err := activeCaller(ctx, uc.userRepo, buyerID); err != nil {
		return nil, err
	}

	offer, _, err := uc.buyerControlledOffer(ctx, buyerID, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.IsPending() {
		metrics.IncNegotiationConflict("reject")
		return nil, repository.ErrOfferNotPending()
	}

	rejected, err = uc.offerRepo.Reject(ctx, offerID, entity.ReasonRejectedByBuyer, uc.now())
	if err != nil {
		if errors.IsConflict(err) {
			metrics.IncNegotiationConflict("reject")
		}
		return nil, err
	}

	metrics.IncOfferTransition(entity.OfferStatusRejected)
	uc.events.Notify(rejected.SellerID, EventOfferRejected, OfferRejectedPayload{
		OfferID:   rejected.ID,
		RequestID: rejected.RequestID,
		Reason:    entity.ReasonRejectedByBuyer,
	})
	uc.events.Publish(ctx, RoutingOfferRejected, rejected)
	return rejected, nil
}

// DeleteOffer withdraws the seller's own pending offer.
func (uc *NegotiationUseCase) DeleteOffer(ctx context.Context, sellerID, offerID string) (withdrawn *entity.SellerOffer, err error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.DeleteOffer")
	span.SetAttributes(attribute.String("offer.id", offerID))
	defer func() { finishSpan(span, err) }()

	if _, err := activeCaller(ctx, uc.userRepo, sellerID); err != nil {
		return nil, err
	}

	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.SellerID != sellerID {
		return nil, errors.Forbidden("You can only withdraw your own offers", nil)
	}
	if offer.Status == entity.OfferStatusAccepted {
		return nil, errors.Conflict("cannot withdraw an accepted offer")
	}
	if !offer.IsPending() {
		return nil, repository.ErrOfferNotPending()
	}

	withdrawn, err = uc.offerRepo.Reject(ctx, offerID, entity.ReasonWithdrawnBySeller, uc.now())
	if err != nil {
		if errors.IsConflict(err) {
			metrics.IncNegotiationConflict("withdraw")
		}
		return nil, err
	}

	metrics.IncOfferTransition(entity.OfferStatusRejected)
	uc.events.Publish(ctx, RoutingOfferWithdrawn, withdrawn)
	return withdrawn, nil
}

func (uc *NegotiationUseCase) ownedRequest(ctx context.Context, buyerID, requestID string) (*entity.BuyerRequest, error) {
	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.BuyerID != buyerID {
		return nil, errors.Forbidden("You are not the owner of this buyer request", nil)
	}
	return request, nil
}

// buyerControlledOffer loads an offer and its request, checking that the
// caller is the request's buyer.
func (uc *NegotiationUseCase) buyerControlledOffer(ctx context.Context, buyerID, offerID string) (*entity.SellerOffer, *entity.BuyerRequest, error) {
	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, nil, err
	}
	request, err := uc.requestRepo.GetByID(ctx, offer.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if request.BuyerID != buyerID {
		return nil, nil, errors.Forbidden("Only the buyer of the request can decide on its offers", nil)
	}
	return offer, request, nil
}

func validateRequestFields(title, description string, budgetMin, budgetMax float64) error {
	switch {
	case strings.TrimSpace(title) == "":
		return errors.Validation("title is required")
	case strings.TrimSpace(description) == "":
		return errors.Validation("description is required")
	case budgetMax <= 0:
		return errors.Validation("budget_max is required")
	case budgetMin < 0:
		return errors.Validation("budget_min must not be negative")
	case budgetMin > budgetMax:
		return errors.Validation("budget_min must not exceed budget_max")
	}
	return nil
}

func offerIDs(offers []*entity.SellerOffer) []string {
	ids := make([]string, 0, len(offers))
	for _, offer := range offers {
		ids = append(ids, offer.ID)
	}
	return ids
}

package usecase

import (
	"context"
	"log"
	"time"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/metrics"
	"carmarket/pkg/errors"
)

const sweepBatchSize = 100

type ExpiryUseCase struct {
	requestRepo repository.BuyerRequestRepository
	offerRepo   repository.SellerOfferRepository
	events      *Dispatcher
	now         func() time.Time
}

func NewExpiryUseCase(
	requestRepo repository.BuyerRequestRepository,
	offerRepo repository.SellerOfferRepository,
	events *Dispatcher,
) *ExpiryUseCase {
	return &ExpiryUseCase{
		requestRepo: requestRepo,
		offerRepo:   offerRepo,
		events:      events,
		now:         time.Now,
	}
}

type SweepResult struct {
	ExpiredRequests int `json:"expired_requests"`
	ExpiredOffers   int `json:"expired_offers"`
}

// ProcessExpired moves overdue requests and offers to Expired. Requests go
// first so their pending offers expire with them.
func (uc *ExpiryUseCase) ProcessExpired(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := uc.now()

	requests, err := uc.requestRepo.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		return result, err
	}
	for _, request := range requests {
		offers, err := uc.requestRepo.Expire(ctx, request.ID, now)
		if err != nil {
			// Accepted or cancelled since it was listed.
			if errors.IsConflict(err) {
				continue
			}
			log.Printf("ProcessExpired Error: request %s: %v", request.ID, err)
			continue
		}

		result.ExpiredRequests++
		result.ExpiredOffers += len(offers)
		metrics.AddOfferTransitions(entity.OfferStatusExpired, len(offers))
		for _, offer := range offers {
			uc.events.Notify(offer.SellerID, EventOfferRejected, OfferRejectedPayload{
				OfferID:   offer.ID,
				RequestID: offer.RequestID,
				Reason:    entity.ReasonExpired,
			})
		}
		uc.events.Publish(ctx, RoutingExpired, map[string]interface{}{
			"request_id":        request.ID,
			"expired_offer_ids": offerIDs(offers),
		})
	}

	offers, err := uc.offerRepo.ListExpiredPending(ctx, now, sweepBatchSize)
	if err != nil {
		return result, err
	}
	for _, offer := range offers {
		expired, err := uc.offerRepo.Expire(ctx, offer.ID, now)
		if err != nil {
			if !errors.IsConflict(err) {
				log.Printf("ProcessExpired Error: offer %s: %v", offer.ID, err)
			}
			continue
		}

		result.ExpiredOffers++
		metrics.IncOfferTransition(entity.OfferStatusExpired)
		uc.events.Notify(expired.SellerID, EventOfferRejected, OfferRejectedPayload{
			OfferID:   expired.ID,
			RequestID: expired.RequestID,
			Reason:    entity.ReasonExpired,
		})
		uc.events.Publish(ctx, RoutingExpired, map[string]interface{}{
			"offer_id":   expired.ID,
			"request_id": expired.RequestID,
		})
	}

	return result, nil
}

// StartSweepJob runs ProcessExpired every interval until ctx is done.
func (uc *ExpiryUseCase) StartSweepJob(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Printf("Expiry sweep disabled")
		return
	}

	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				result, err := uc.ProcessExpired(ctx)
				if err != nil {
					log.Printf("Expiry sweep job error: %v", err)
				}
				if result.ExpiredRequests > 0 || result.ExpiredOffers > 0 {
					log.Printf("Expiry sweep: %d requests, %d offers expired", result.ExpiredRequests, result.ExpiredOffers)
				}
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// Package memory is a process local entity store. It backs DB_DRIVER=memory
// and the use case tests; every operation holds the store lock, so the
// multi-document units of work are atomic with respect to each other.
package memory

import (
	"sort"
	"sync"
	"time"

	"carmarket/internal/domain/entity"
)

type Store struct {
	mu sync.RWMutex

	users    map[string]*entity.User
	cars     map[string]*entity.Car
	requests map[string]*entity.BuyerRequest
	offers   map[string]*entity.SellerOffer
	slots    map[string]string // SlotKey -> offer id
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message // chat id -> messages
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*entity.User),
		cars:     make(map[string]*entity.Car),
		requests: make(map[string]*entity.BuyerRequest),
		offers:   make(map[string]*entity.SellerOffer),
		slots:    make(map[string]string),
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
	}
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func newestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneGeo(in *entity.GeoPoint) *entity.GeoPoint {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func cloneUser(in *entity.User) *entity.User {
	out := *in
	out.Brands = cloneStrings(in.Brands)
	out.Location = cloneGeo(in.Location)
	return &out
}

func cloneCar(in *entity.Car) *entity.Car {
	out := *in
	out.Images = cloneStrings(in.Images)
	out.Financial.SellOptions = cloneStrings(in.Financial.SellOptions)
	out.Financial.InvoiceOptions = cloneStrings(in.Financial.InvoiceOptions)
	out.Location = cloneGeo(in.Location)
	return &out
}

func cloneRequest(in *entity.BuyerRequest) *entity.BuyerRequest {
	out := *in
	out.Location = cloneGeo(in.Location)
	return &out
}

func cloneOffer(in *entity.SellerOffer) *entity.SellerOffer {
	out := *in
	out.Images = cloneStrings(in.Images)
	return &out
}

func cloneChat(in *entity.Chat) *entity.Chat {
	out := *in
	out.Participants = cloneStrings(in.Participants)
	if in.LastMessage != nil {
		last := *in.LastMessage
		out.LastMessage = &last
	}
	out.UnreadCounts = make(map[string]int, len(in.UnreadCounts))
	for k, v := range in.UnreadCounts {
		out.UnreadCounts[k] = v
	}
	return &out
}

func cloneMessage(in *entity.Message) *entity.Message {
	out := *in
	out.SeenBy = cloneStrings(in.SeenBy)
	return &out
}

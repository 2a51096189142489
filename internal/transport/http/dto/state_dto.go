package dto

type SubscriptionInfo struct {
	Price  int  `json:"price"`
	Active bool `json:"active"`
}

// UserStateResponse is the one-shot payload the mini-app renders from on
// open: month ledger plus the partner list, so the client needs no second
// round trip.
type UserStateResponse struct {
	Purchased    bool              `json:"purchased"`
	Remaining    int               `json:"remaining"`
	Month        string            `json:"month"`
	Subscription SubscriptionInfo  `json:"subscription"`
	Partners     []PartnerResponse `json:"partners"`
}

package dto

import "encoding/json"

// CreateDealRequest is the REST body and the "data" member of the callable
// envelope. Amount stays raw so that only JSON numbers count as an amount.
// ConversationID stays raw because any JSON value is accepted for it.
type CreateDealRequest struct {
	ListingID      string          `json:"listingId"`
	Amount         json.RawMessage `json:"amount,omitempty"`
	ConversationID json.RawMessage `json:"conversationId,omitempty"`
}

type CallableRequest struct {
	Data CreateDealRequest `json:"data"`
}

package events

import "time"

// Topic and event type names published by the transfer service.
const (
	TopicTransferEvents = "transfer.events"

	TransferQuoteRequested = "transfer.quote.requested"
)

// EventSource is the CloudEvents source of every event this service emits.
const EventSource = "service-transfer"

// QuoteRequestedEvent is emitted after every successful quote.
type QuoteRequestedEvent struct {
	RouteID          string    `json:"route_id"`
	OriginID         string    `json:"origin_id"`
	OriginName       string    `json:"origin_name"`
	DestinationID    string    `json:"destination_id"`
	DestinationName  string    `json:"destination_name"`
	Passengers       int       `json:"passengers"`
	VehicleCount     int       `json:"vehicle_count"`
	LowestPriceCents int64     `json:"lowest_price_cents"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurred_at"`
}


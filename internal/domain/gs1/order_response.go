package gs1

import (
	"encoding/xml"
	"time"
)

// Order response status codes
const (
	ResponseAccepted = "ACCEPTED"
	ResponseRejected = "REJECTED"
)

// OrderResponseMessage carries one or more order responses
type OrderResponseMessage struct {
	XMLName        xml.Name        `xml:"orderResponseMessage" json:"-"`
	Header         DocumentHeader  `xml:"StandardBusinessDocumentHeader" json:"header"`
	OrderResponses []OrderResponse `xml:"orderResponse" json:"orderResponses" validate:"required,min=1,dive"`
}

// OrderResponse is a supplier's answer to a purchase order
type OrderResponse struct {
	CreationDateTime   time.Time            `xml:"creationDateTime" json:"creationDateTime"`
	DocumentStatusCode string               `xml:"documentStatusCode" json:"documentStatusCode"`
	ResponseStatusCode string               `xml:"responseStatusCode" json:"responseStatusCode"`
	Identification     EntityIdentification `xml:"orderResponseIdentification" json:"orderResponseIdentification"`
	OriginalOrder      DocumentReference    `xml:"originalOrder" json:"originalOrder"`
	Buyer              *PartyIdentification `xml:"buyer,omitempty" json:"buyer,omitempty"`
	Seller             *PartyIdentification `xml:"seller,omitempty" json:"seller,omitempty"`
}

package gs1

import (
	"encoding/xml"
	"time"
)

// OrderMessage carries one or more purchase orders
type OrderMessage struct {
	XMLName xml.Name       `xml:"orderMessage" json:"-"`
	Header  DocumentHeader `xml:"StandardBusinessDocumentHeader" json:"header"`
	Orders  []Order        `xml:"order" json:"orders" validate:"required,min=1,dive"`
}

// Order is a purchase order issued to a supplier
type Order struct {
	CreationDateTime                            time.Time                   `xml:"creationDateTime" json:"creationDateTime"`
	DocumentStatusCode                          string                      `xml:"documentStatusCode" json:"documentStatusCode"`
	OrderIdentification                         EntityIdentification        `xml:"orderIdentification" json:"orderIdentification"`
	OrderTypeCode                               *Code                       `xml:"orderTypeCode,omitempty" json:"orderTypeCode,omitempty"`
	IsApplicationReceiptAcknowledgementRequired bool                        `xml:"isApplicationReceiptAcknowledgementRequired" json:"ackRequired"`
	Note                                        string                      `xml:"note,omitempty" json:"note,omitempty"`
	Buyer                                       *PartyIdentification        `xml:"buyer,omitempty" json:"buyer,omitempty"`
	Seller                                      *PartyIdentification        `xml:"seller,omitempty" json:"seller,omitempty"`
	LogisticalInformation                       *OrderLogisticalInformation `xml:"orderLogisticalInformation,omitempty" json:"orderLogisticalInformation,omitempty"`
	LineItems                                   []OrderLineItem             `xml:"orderLineItem" json:"lineItems" validate:"dive"`
}

// Code is a coded value qualified by its code list version
type Code struct {
	CodeListVersion string `xml:"codeListVersion,attr,omitempty" json:"codeListVersion,omitempty"`
	Value           string `xml:",chardata" json:"value"`
}

// OrderLogisticalInformation names where goods come from and go to
type OrderLogisticalInformation struct {
	ShipFrom *PartyIdentification `xml:"shipFrom,omitempty" json:"shipFrom,omitempty"`
	ShipTo   *PartyIdentification `xml:"shipTo,omitempty" json:"shipTo,omitempty"`
	Timing   *OrderTiming         `xml:"orderLogisticalDateInformation,omitempty" json:"timing,omitempty"`
}

// OrderTiming carries the requested delivery date
type OrderTiming struct {
	RequestedDeliveryDateTime *time.Time `xml:"requestedDeliveryDateTime,omitempty" json:"requestedDeliveryDateTime,omitempty"`
}

// OrderLineItem is one ordered product
type OrderLineItem struct {
	LineItemNumber         int                    `xml:"lineItemNumber" json:"lineItemNumber" validate:"min=1"`
	RequestedQuantity      Quantity               `xml:"requestedQuantity" json:"requestedQuantity"`
	Note                   string                 `xml:"note,omitempty" json:"note,omitempty"`
	TransactionalTradeItem TransactionalTradeItem `xml:"transactionalTradeItem" json:"transactionalTradeItem"`
}

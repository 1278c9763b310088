package gs1

import (
	"encoding/xml"
	"time"
)

// DespatchAdviceMessage carries one or more despatch advices
type DespatchAdviceMessage struct {
	XMLName         xml.Name         `xml:"despatchAdviceMessage" json:"-"`
	Header          DocumentHeader   `xml:"StandardBusinessDocumentHeader" json:"header"`
	DespatchAdvices []DespatchAdvice `xml:"despatchAdvice" json:"despatchAdvices" validate:"required,min=1,dive"`
}

// DespatchAdvice announces a shipment
type DespatchAdvice struct {
	CreationDateTime    time.Time              `xml:"creationDateTime" json:"creationDateTime"`
	DocumentStatusCode  string                 `xml:"documentStatusCode" json:"documentStatusCode"`
	Identification      EntityIdentification   `xml:"despatchAdviceIdentification" json:"despatchAdviceIdentification"`
	Receiver            *PartyIdentification   `xml:"receiver" json:"receiver" validate:"required"`
	Shipper             *PartyIdentification   `xml:"shipper" json:"shipper" validate:"required"`
	ShipTo              *PartyIdentification   `xml:"shipTo,omitempty" json:"shipTo,omitempty"`
	PurchaseOrder       *DocumentReference     `xml:"purchaseOrder,omitempty" json:"purchaseOrder,omitempty"`
	OrderResponse       *DocumentReference     `xml:"orderResponse,omitempty" json:"orderResponse,omitempty"`
	DespatchInformation DespatchInformation    `xml:"despatchInformation" json:"despatchInformation"`
	LogisticUnits       []DespatchLogisticUnit `xml:"despatchAdviceLogisticUnit" json:"logisticUnits" validate:"dive"`
}

// OrderReference returns the referenced order response, else the purchase order
func (d *DespatchAdvice) OrderReference() *DocumentReference {
	if d.OrderResponse != nil {
		return d.OrderResponse
	}
	return d.PurchaseOrder
}

// DespatchInformation carries the shipment dates
type DespatchInformation struct {
	ActualShipDateTime        *time.Time `xml:"actualShipDateTime,omitempty" json:"actualShipDateTime,omitempty"`
	DespatchDateTime          *time.Time `xml:"despatchDateTime,omitempty" json:"despatchDateTime,omitempty"`
	EstimatedDeliveryDateTime *time.Time `xml:"estimatedDeliveryDateTime,omitempty" json:"estimatedDeliveryDateTime,omitempty"`
}

// DespatchLogisticUnit is a shipped pallet or package
type DespatchLogisticUnit struct {
	LineItems []DespatchLineItem `xml:"despatchAdviceLineItem" json:"lineItems" validate:"dive"`
}

// DespatchLineItem is one shipped product lot
type DespatchLineItem struct {
	LineItemNumber         int                    `xml:"lineItemNumber" json:"lineItemNumber"`
	DespatchedQuantity     Quantity               `xml:"despatchedQuantity" json:"despatchedQuantity"`
	TransactionalTradeItem TransactionalTradeItem `xml:"transactionalTradeItem" json:"transactionalTradeItem"`
}

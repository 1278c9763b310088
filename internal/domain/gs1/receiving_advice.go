package gs1

import (
	"encoding/xml"
	"time"
)

// ReportingCodeFullDetails states that the advice lists every received item
const ReportingCodeFullDetails = "FULL_DETAILS"

// ReceivingAdviceMessage carries one or more receiving advices
type ReceivingAdviceMessage struct {
	XMLName          xml.Name          `xml:"receivingAdviceMessage" json:"-"`
	Header           DocumentHeader    `xml:"StandardBusinessDocumentHeader" json:"header"`
	ReceivingAdvices []ReceivingAdvice `xml:"receivingAdvice" json:"receivingAdvices" validate:"required,min=1,dive"`
}

// ReceivingAdvice confirms goods received against a despatch
type ReceivingAdvice struct {
	CreationDateTime   time.Time               `xml:"creationDateTime" json:"creationDateTime"`
	DocumentStatusCode string                  `xml:"documentStatusCode" json:"documentStatusCode"`
	Identification     EntityIdentification    `xml:"receivingAdviceIdentification" json:"receivingAdviceIdentification"`
	ReportingCode      string                  `xml:"reportingCode" json:"reportingCode"`
	ReceivingDateTime  time.Time               `xml:"receivingDateTime" json:"receivingDateTime"`
	Shipper            *PartyIdentification    `xml:"shipper,omitempty" json:"shipper,omitempty"`
	Receiver           *PartyIdentification    `xml:"receiver,omitempty" json:"receiver,omitempty"`
	ShipTo             *PartyIdentification    `xml:"shipTo,omitempty" json:"shipTo,omitempty"`
	DespatchAdvice     DocumentReference       `xml:"despatchAdvice" json:"despatchAdvice"`
	LogisticUnits      []ReceivingLogisticUnit `xml:"receivingAdviceLogisticUnit" json:"logisticUnits" validate:"dive"`
}

// ReceivingLogisticUnit groups received line items
type ReceivingLogisticUnit struct {
	LineItems []ReceivingLineItem `xml:"receivingAdviceLineItem" json:"lineItems" validate:"dive"`
}

// ReceivingLineItem is one received product lot
type ReceivingLineItem struct {
	LineItemNumber         int                    `xml:"lineItemNumber" json:"lineItemNumber" validate:"min=1"`
	QuantityAccepted       Quantity               `xml:"quantityAccepted" json:"quantityAccepted"`
	QuantityDespatched     *Quantity              `xml:"quantityDespatched,omitempty" json:"quantityDespatched,omitempty"`
	TransactionalTradeItem TransactionalTradeItem `xml:"transactionalTradeItem" json:"transactionalTradeItem"`
	// PurchaseOrderLine is the number of the matching line on the original order
	PurchaseOrderLine *LineItemReference `xml:"purchaseOrder,omitempty" json:"purchaseOrder,omitempty"`
}

// LineItemReference points at a line on another document
type LineItemReference struct {
	EntityIdentification string `xml:"entityIdentification" json:"entityIdentification"`
	LineItemNumber       int    `xml:"lineItemNumber" json:"lineItemNumber"`
}

package gs1

import (
	"time"

	"github.com/shopspring/decimal"
)

// Measurement units accepted on despatched quantities
const (
	UnitDose = "dose"
	UnitUnit = "unit"
)

// IsAcceptedUnit reports whether unit is on the despatch quantity whitelist
func IsAcceptedUnit(unit string) bool {
	return unit == UnitDose || unit == UnitUnit
}

// ---------------------------------------------------------------------------
// Standard business document header
// ---------------------------------------------------------------------------

// DocumentHeader is the standard business document header carried by every message
type DocumentHeader struct {
	HeaderVersion          string                 `xml:"HeaderVersion" json:"headerVersion"`
	Sender                 []HeaderParty          `xml:"Sender" json:"sender,omitempty"`
	Receiver               []HeaderParty          `xml:"Receiver" json:"receiver,omitempty"`
	DocumentIdentification DocumentIdentification `xml:"DocumentIdentification" json:"documentIdentification"`
}

// HeaderParty identifies a sender or receiver in the document header
type HeaderParty struct {
	Identifier HeaderIdentifier `xml:"Identifier" json:"identifier"`
}

// HeaderIdentifier is a party identifier qualified by its authority
type HeaderIdentifier struct {
	Authority string `xml:"Authority,attr" json:"authority"`
	Value     string `xml:",chardata" json:"value"`
}

// DocumentIdentification names the document standard and instance
type DocumentIdentification struct {
	Standard            string    `xml:"Standard" json:"standard"`
	TypeVersion         string    `xml:"TypeVersion" json:"typeVersion"`
	InstanceIdentifier  string    `xml:"InstanceIdentifier" json:"instanceIdentifier"`
	Type                string    `xml:"Type" json:"type"`
	CreationDateAndTime time.Time `xml:"CreationDateAndTime" json:"creationDateAndTime"`
}

// ---------------------------------------------------------------------------
// Parties & references
// ---------------------------------------------------------------------------

// PartyIdentification identifies a trading party or location
type PartyIdentification struct {
	GLN        string                          `xml:"gln,omitempty" json:"gln,omitempty"`
	Additional []AdditionalPartyIdentification `xml:"additionalPartyIdentification,omitempty" json:"additionalPartyIdentification,omitempty"`
}

// IsEmpty reports whether the party carries no identification at all
func (p *PartyIdentification) IsEmpty() bool {
	return p == nil || (p.GLN == "" && len(p.Additional) == 0)
}

// AdditionalPartyIdentification is a non-GLN party identifier
type AdditionalPartyIdentification struct {
	TypeCode string `xml:"additionalPartyIdentificationTypeCode,attr" json:"typeCode"`
	Value    string `xml:",chardata" json:"value"`
}

// EntityIdentification identifies a business document
type EntityIdentification struct {
	EntityIdentification string               `xml:"entityIdentification" json:"entityIdentification" validate:"required"`
	ContentOwner         *PartyIdentification `xml:"contentOwner,omitempty" json:"contentOwner,omitempty"`
}

// OwnerCode returns the GLN of the content owner, if declared
func (e EntityIdentification) OwnerCode() string {
	if e.ContentOwner == nil {
		return ""
	}
	return e.ContentOwner.GLN
}

// DocumentReference points at another business document
type DocumentReference struct {
	CreationDateTime     *time.Time           `xml:"creationDateTime,omitempty" json:"creationDateTime,omitempty"`
	EntityIdentification string               `xml:"entityIdentification" json:"entityIdentification" validate:"required"`
	ContentOwner         *PartyIdentification `xml:"contentOwner,omitempty" json:"contentOwner,omitempty"`
}

// OwnerCode returns the GLN of the content owner, if declared
func (r *DocumentReference) OwnerCode() string {
	if r == nil || r.ContentOwner == nil {
		return ""
	}
	return r.ContentOwner.GLN
}

// ---------------------------------------------------------------------------
// Trade items & quantities
// ---------------------------------------------------------------------------

// Quantity is a decimal amount with its measurement unit
type Quantity struct {
	Value               decimal.Decimal `xml:",chardata" json:"value"`
	MeasurementUnitCode string          `xml:"measurementUnitCode,attr,omitempty" json:"measurementUnitCode,omitempty"`
}

// TransactionalTradeItem identifies the goods on a line item
type TransactionalTradeItem struct {
	GTIN                 string                              `xml:"gtin,omitempty" json:"gtin,omitempty"`
	Additional           []AdditionalTradeItemIdentification `xml:"additionalTradeItemIdentification,omitempty" json:"additionalTradeItemIdentification,omitempty"`
	TradeItemDescription string                              `xml:"tradeItemDescription,omitempty" json:"tradeItemDescription,omitempty"`
	ItemData             *TransactionalItemData              `xml:"transactionalItemData,omitempty" json:"transactionalItemData,omitempty"`
}

// AdditionalTradeItemIdentification is a non-GTIN product identifier
type AdditionalTradeItemIdentification struct {
	TypeCode string `xml:"additionalTradeItemIdentificationTypeCode,attr" json:"typeCode"`
	Value    string `xml:",chardata" json:"value"`
}

// TransactionalItemData carries lot-level attributes
type TransactionalItemData struct {
	BatchNumber        string     `xml:"batchNumber,omitempty" json:"batchNumber,omitempty"`
	ItemExpirationDate *time.Time `xml:"itemExpirationDate,omitempty" json:"itemExpirationDate,omitempty"`
}

// Lot returns the batch number and expiry date, when present
func (t *TransactionalTradeItem) Lot() (string, *time.Time) {
	if t == nil || t.ItemData == nil {
		return "", nil
	}
	return t.ItemData.BatchNumber, t.ItemData.ItemExpirationDate
}

package gs1

import (
	"encoding/xml"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/erp/gs1bridge/internal/domain/shared"
)

// Kind discriminates the message variants
type Kind string

const (
	KindOrder           Kind = "order"
	KindDespatchAdvice  Kind = "despatchAdvice"
	KindOrderResponse   Kind = "orderResponse"
	KindReceivingAdvice Kind = "receivingAdvice"
)

// IsValid returns true if the kind is one of the known variants
func (k Kind) IsValid() bool {
	switch k {
	case KindOrder, KindDespatchAdvice, KindOrderResponse, KindReceivingAdvice:
		return true
	}
	return false
}

// Message is a tagged variant: Kind names the populated body, all other
// bodies are nil.
type Message struct {
	Kind            Kind                    `json:"kind"`
	Order           *OrderMessage           `json:"order,omitempty"`
	DespatchAdvice  *DespatchAdviceMessage  `json:"despatchAdvice,omitempty"`
	OrderResponse   *OrderResponseMessage   `json:"orderResponse,omitempty"`
	ReceivingAdvice *ReceivingAdviceMessage `json:"receivingAdvice,omitempty"`
}

func NewOrder(m *OrderMessage) Message {
	return Message{Kind: KindOrder, Order: m}
}

func NewDespatchAdvice(m *DespatchAdviceMessage) Message {
	return Message{Kind: KindDespatchAdvice, DespatchAdvice: m}
}

func NewOrderResponse(m *OrderResponseMessage) Message {
	return Message{Kind: KindOrderResponse, OrderResponse: m}
}

func NewReceivingAdvice(m *ReceivingAdviceMessage) Message {
	return Message{Kind: KindReceivingAdvice, ReceivingAdvice: m}
}

// Body returns the populated variant. It fails when the discriminator does
// not match exactly one populated body.
func (m Message) Body() (any, error) {
	populated := 0
	for _, set := range []bool{m.Order != nil, m.DespatchAdvice != nil, m.OrderResponse != nil, m.ReceivingAdvice != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return nil, shared.ErrValidation.WithTarget("message").
			WithCause(fmt.Errorf("expected exactly one body, found %d", populated))
	}

	var body any
	switch m.Kind {
	case KindOrder:
		if m.Order != nil {
			body = m.Order
		}
	case KindDespatchAdvice:
		if m.DespatchAdvice != nil {
			body = m.DespatchAdvice
		}
	case KindOrderResponse:
		if m.OrderResponse != nil {
			body = m.OrderResponse
		}
	case KindReceivingAdvice:
		if m.ReceivingAdvice != nil {
			body = m.ReceivingAdvice
		}
	default:
		return nil, shared.ErrValidation.WithTarget("kind").WithCause(fmt.Errorf("unknown message kind %q", m.Kind))
	}
	if body == nil {
		return nil, shared.ErrValidation.WithTarget("kind").WithCause(fmt.Errorf("kind %q does not match body", m.Kind))
	}
	return body, nil
}

// Validate checks the discriminator and the populated body
func (m Message) Validate() error {
	body, err := m.Body()
	if err != nil {
		return err
	}
	return Validate(body)
}

// EncodeXML renders the populated body as a standalone XML document
func (m Message) EncodeXML() ([]byte, error) {
	body, err := m.Body()
	if err != nil {
		return nil, err
	}
	out, err := xml.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Kind, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// InstanceID returns the document header instance identifier
func (m Message) InstanceID() string {
	switch m.Kind {
	case KindOrder:
		if m.Order != nil {
			return m.Order.Header.DocumentIdentification.InstanceIdentifier
		}
	case KindDespatchAdvice:
		if m.DespatchAdvice != nil {
			return m.DespatchAdvice.Header.DocumentIdentification.InstanceIdentifier
		}
	case KindOrderResponse:
		if m.OrderResponse != nil {
			return m.OrderResponse.Header.DocumentIdentification.InstanceIdentifier
		}
	case KindReceivingAdvice:
		if m.ReceivingAdvice != nil {
			return m.ReceivingAdvice.Header.DocumentIdentification.InstanceIdentifier
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate runs struct validation on a message body. A nil body or a failed
// rule yields shared.ErrValidation naming the first offending field.
func Validate(body any) error {
	if body == nil {
		return shared.ErrValidation.WithTarget("message")
	}
	switch b := body.(type) {
	case *OrderMessage:
		if b == nil {
			return shared.ErrValidation.WithTarget("orderMessage")
		}
	case *DespatchAdviceMessage:
		if b == nil {
			return shared.ErrValidation.WithTarget("despatchAdviceMessage")
		}
	case *OrderResponseMessage:
		if b == nil {
			return shared.ErrValidation.WithTarget("orderResponseMessage")
		}
	case *ReceivingAdviceMessage:
		if b == nil {
			return shared.ErrValidation.WithTarget("receivingAdviceMessage")
		}
	}

	if err := getValidator().Struct(body); err != nil {
		var target string
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			target = fieldErrs[0].Namespace()
		}
		return shared.ErrValidation.WithTarget(target).WithCause(err)
	}
	return nil
}

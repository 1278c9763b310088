package gs1

import "time"

// Options configures message translation
type Options struct {
	// QueueName is the outbound queue that composed messages are enqueued on
	QueueName string
	// LocationAuthority is the authority whose identifiers are GLNs
	LocationAuthority string
	// ProductAuthority is the authority whose identifiers are GTINs
	ProductAuthority string
	// DefaultContentOwnerAuthority owns inbound document identifiers when the
	// declared content owner has no authority of its own
	DefaultContentOwnerAuthority string
	// AutoCreateMaterials creates unknown manufactured materials (lots) on
	// inbound despatch instead of failing
	AutoCreateMaterials bool
	// SenderGLN and ReceiverGLN fill the document header of outbound messages
	SenderGLN   string
	ReceiverGLN string
	// OrderTypeCodes maps act type codes to GS1 order type codes
	OrderTypeCodes    map[string]string
	OrderTypeCodeList string
}

// DefaultOptions returns options with the conventional authority names
func DefaultOptions() Options {
	return Options{
		QueueName:                    "gs1",
		LocationAuthority:            "GLN",
		ProductAuthority:             "GTIN",
		DefaultContentOwnerAuthority: "GLN",
		OrderTypeCodes:               map[string]string{"Order": "220"},
		OrderTypeCodeList:            "UN/CEFACT",
	}
}

// clock is replaced in tests
var clock = time.Now

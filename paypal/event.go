package paypal

import (
	"encoding/json"
	"fmt"
	"strings"

	"storefront-backend/models"
)

const EventCheckoutOrderApproved = "CHECKOUT.ORDER.APPROVED"

const (
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
)

// Headers are the transmission headers PayPal signs every webhook delivery with.
type Headers struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
}

// HeadersFromRequest collects the verification headers using the given header getter.
func HeadersFromRequest(get func(key string) string) Headers {
	return Headers{
		AuthAlgo:         strings.TrimSpace(get(HeaderAuthAlgo)),
		CertURL:          strings.TrimSpace(get(HeaderCertURL)),
		TransmissionID:   strings.TrimSpace(get(HeaderTransmissionID)),
		TransmissionSig:  strings.TrimSpace(get(HeaderTransmissionSig)),
		TransmissionTime: strings.TrimSpace(get(HeaderTransmissionTime)),
	}
}

func (h Headers) missing() []string {
	var out []string
	if h.AuthAlgo == "" {
		out = append(out, HeaderAuthAlgo)
	}
	if h.CertURL == "" {
		out = append(out, HeaderCertURL)
	}
	if h.TransmissionID == "" {
		out = append(out, HeaderTransmissionID)
	}
	if h.TransmissionSig == "" {
		out = append(out, HeaderTransmissionSig)
	}
	if h.TransmissionTime == "" {
		out = append(out, HeaderTransmissionTime)
	}
	return out
}

type Event struct {
	ID           string   `json:"id"`
	EventType    string   `json:"event_type"`
	ResourceType string   `json:"resource_type"`
	Resource     Resource `json:"resource"`
}

type Resource struct {
	ID            string         `json:"id"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Payer         models.Payer   `json:"payer"`
}

type PurchaseUnit struct {
	Description string        `json:"description"`
	CustomID    string        `json:"custom_id"`
	Amount      models.Amount `json:"amount"`
}

// ParseEvent decodes a raw webhook body.
func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformedEvent)
	}
	return &ev, nil
}

// FirstUnit returns the purchase unit carrying the download id.
func (e *Event) FirstUnit() (PurchaseUnit, error) {
	if len(e.Resource.PurchaseUnits) == 0 {
		return PurchaseUnit{}, fmt.Errorf("%w: no purchase units", ErrMalformedEvent)
	}
	unit := e.Resource.PurchaseUnits[0]
	if strings.TrimSpace(unit.CustomID) == "" {
		return PurchaseUnit{}, fmt.Errorf("%w: purchase unit has no custom_id", ErrMalformedEvent)
	}
	if strings.TrimSpace(e.Resource.Payer.PayerID) == "" {
		return PurchaseUnit{}, fmt.Errorf("%w: missing payer_id", ErrMalformedEvent)
	}
	return unit, nil
}

package handler

import (
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kpango/glg"
	"github.com/pkg/errors"
	"github.com/soteria-id/stsd/model"
	"github.com/soteria-id/stsd/service"
)

// Handler for handling a set of HTTP requests.
type Handler interface {
	// Issue handles token issue requests.
	Issue(http.ResponseWriter, *http.Request) error
	// Renew handles token renew requests.
	Renew(http.ResponseWriter, *http.Request) error
	// Validate handles token validate requests.
	Validate(http.ResponseWriter, *http.Request) error
	// Challenge handles negotiation continuation requests.
	Challenge(http.ResponseWriter, *http.Request) error
}

// Func is http.HandlerFunc with error return.
type Func func(http.ResponseWriter, *http.Request) error

// handler is internal implementation of Handler interface.
type handler struct {
	dispatcher service.Dispatcher
}

// New creates a handler routing decoded token requests into the given dispatcher.
func New(d service.Dispatcher) Handler {
	return &handler{
		dispatcher: d,
	}
}

// Issue handles token issue requests. Depends on the multi-tenant dispatcher.
func (h *handler) Issue(w http.ResponseWriter, r *http.Request) error {
	defer flushAndClose(r.Body)

	tenant, req, err := decodeRequest(r)
	if err != nil {
		return writeError(w, err)
	}
	res, err := h.dispatcher.Issue(r.Context(), tenant, req)
	if err != nil {
		return writeError(w, err)
	}
	return json.NewEncoder(w).Encode(toTokenResponse(res))
}

// Renew handles token renew requests. Depends on the multi-tenant dispatcher.
func (h *handler) Renew(w http.ResponseWriter, r *http.Request) error {
	defer flushAndClose(r.Body)

	tenant, req, err := decodeRequest(r)
	if err != nil {
		return writeError(w, err)
	}
	res, err := h.dispatcher.Renew(r.Context(), tenant, req)
	if err != nil {
		return writeError(w, err)
	}
	return json.NewEncoder(w).Encode(toTokenResponse(res))
}

// Validate handles token validate requests. Depends on the multi-tenant dispatcher.
func (h *handler) Validate(w http.ResponseWriter, r *http.Request) error {
	defer flushAndClose(r.Body)

	tenant, req, err := decodeRequest(r)
	if err != nil {
		return writeError(w, err)
	}
	res, err := h.dispatcher.Validate(r.Context(), tenant, req)
	if err != nil {
		return writeError(w, err)
	}
	return json.NewEncoder(w).Encode(model.ValidateResponse{
		Status: string(res.Status),
		Reason: res.Reason,
	})
}

// Challenge handles negotiation continuation requests. Depends on the multi-tenant dispatcher.
func (h *handler) Challenge(w http.ResponseWriter, r *http.Request) error {
	defer flushAndClose(r.Body)

	tenant, req, err := decodeRequest(r)
	if err != nil {
		return writeError(w, err)
	}
	res, err := h.dispatcher.Challenge(r.Context(), tenant, req)
	if err != nil {
		return writeError(w, err)
	}
	return json.NewEncoder(w).Encode(toTokenResponse(res))
}

// decodeRequest decodes the JSON body into the engine request representation.
func decodeRequest(r *http.Request) (string, *service.TokenRequest, error) {
	var body model.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", nil, errors.Wrap(service.ErrRequestFailed, err.Error())
	}
	if body.Tenant == "" {
		return "", nil, errors.Wrap(service.ErrRequestFailed, "request carries no tenant")
	}
	req, err := toServiceRequest(&body)
	if err != nil {
		return "", nil, err
	}
	return body.Tenant, req, nil
}

// toServiceRequest maps the wire request onto the engine request, parsing certificates.
func toServiceRequest(body *model.TokenRequest) (*service.TokenRequest, error) {
	signingCert, err := parseCert(body.SigningCert)
	if err != nil {
		return nil, errors.Wrap(service.ErrInvalidSecurityHeader, "malformed signing certificate")
	}
	caller, err := toServiceToken(body.CallerToken)
	if err != nil {
		return nil, err
	}
	actAs, err := toServiceToken(body.ActAs)
	if err != nil {
		return nil, err
	}
	renewTarget, err := toServiceToken(body.RenewTarget)
	if err != nil {
		return nil, err
	}
	validateTarget, err := toServiceToken(body.ValidateTarget)
	if err != nil {
		return nil, err
	}

	req := &service.TokenRequest{
		Header: service.RequestHeader{
			Created: body.Created,
			Expires: body.Expires,
		},
		CallerToken:        caller,
		SigningCert:        signingCert,
		ActAs:              actAs,
		DelegateTo:         body.DelegateTo,
		Delegable:          body.Delegable,
		Context:            body.Context,
		ExchangeData:       body.ExchangeData,
		KeyType:            service.KeyType(body.KeyType),
		UseKeySignatureID:  body.UseKeySignatureID,
		SignatureAlgorithm: body.SignatureAlgorithm,
		Participant:        body.Participant,
		Participants:       body.Participants,
		Renewable:          body.Renewable,
		RenewTarget:        renewTarget,
		ValidateTarget:     validateTarget,
		Advice:             toServiceAdvice(body.Advice),
	}
	if body.Lifetime != nil {
		req.Lifetime = &service.TimePeriod{
			NotBefore: body.Lifetime.NotBefore,
			NotAfter:  body.Lifetime.NotAfter,
		}
	}
	return req, nil
}

// toServiceToken maps one wire token onto the engine token, parsing the confirmation certificate.
func toServiceToken(t *model.Token) (*service.SignedToken, error) {
	if t == nil {
		return nil, nil
	}
	cert, err := parseCert(t.ConfirmationCert)
	if err != nil {
		return nil, errors.Wrap(service.ErrInvalidSecurityHeader, "malformed confirmation certificate")
	}
	conf := service.Confirmation{Type: service.ConfirmationBearer}
	if t.Confirmation == "holder-of-key" {
		conf = service.Confirmation{Type: service.ConfirmationHolderOfKey, Certificate: cert}
	}
	tok := &service.SignedToken{
		Subject:         t.Subject,
		Confirmation:    conf,
		DelegationCount: t.DelegationCount,
		RenewCount:      t.RenewCount,
		Audience:        t.Audience,
		Advice:          toServiceAdvice(t.Advice),
		Expires:         t.Expires,
		External:        t.External,
		Raw:             t.Raw,
	}
	for _, d := range t.Delegates {
		tok.Delegates = append(tok.Delegates, service.DelegateEntry{
			Subject: d.Subject,
			Instant: d.Instant,
		})
	}
	return tok, nil
}

func toServiceAdvice(in []model.Advice) []service.Advice {
	if len(in) == 0 {
		return nil
	}
	out := make([]service.Advice, 0, len(in))
	for _, a := range in {
		out = append(out, service.Advice{Source: a.Source, Values: a.Values})
	}
	return out
}

// toTokenResponse maps the engine response back onto the wire representation.
func toTokenResponse(res *service.Response) model.TokenResponse {
	if !res.Completed {
		return model.TokenResponse{
			Status:    "continue",
			Context:   res.Context,
			ServerLeg: res.ServerLeg,
		}
	}
	return model.TokenResponse{
		Status: "issued",
		Token:  toModelToken(res.Token),
	}
}

func toModelToken(t *service.SignedToken) *model.Token {
	if t == nil {
		return nil
	}
	out := &model.Token{
		Subject:         t.Subject,
		Confirmation:    "bearer",
		DelegationCount: t.DelegationCount,
		RenewCount:      t.RenewCount,
		Audience:        t.Audience,
		Expires:         t.Expires,
		External:        t.External,
		Raw:             t.Raw,
	}
	if t.Confirmation.Type == service.ConfirmationHolderOfKey {
		out.Confirmation = "holder-of-key"
		if t.Confirmation.Certificate != nil {
			out.ConfirmationCert = t.Confirmation.Certificate.Raw
		}
	}
	for _, d := range t.Delegates {
		out.Delegates = append(out.Delegates, model.Delegate{Subject: d.Subject, Instant: d.Instant})
	}
	for _, a := range t.Advice {
		out.Advice = append(out.Advice, model.Advice{Source: a.Source, Values: a.Values})
	}
	return out
}

func parseCert(der []byte) (*x509.Certificate, error) {
	if len(der) == 0 {
		return nil, nil
	}
	return x509.ParseCertificate(der)
}

// writeError maps an engine error onto its HTTP status and JSON error body.
// Internal assertion failures keep their details out of the response body.
func writeError(w http.ResponseWriter, err error) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(err))
	msg := err.Error()
	if errors.Is(err, service.ErrInternal) {
		glg.Errorf("internal assertion failure: %v", err)
		msg = service.ErrInternal.Error()
	}
	return json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}

// statusOf classifies an engine error by taxonomy kind.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrExpired),
		errors.Is(err, service.ErrInvalidSecurityHeader),
		errors.Is(err, service.ErrContradictoryHoKConditions),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrUnsupportedSecurityToken),
		errors.Is(err, service.ErrUnableToRenew),
		errors.Is(err, service.ErrInvalidTimeRange):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNoSuchIdP):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// flushAndClose helps to flush and close a ReadCloser. Used for request body internal.
// Returns if there is any errors.
func flushAndClose(rc io.ReadCloser) error {
	if rc != nil {
		// flush
		_, err := io.Copy(io.Discard, rc)
		if err != nil {
			return err
		}
		// close
		return rc.Close()
	}
	return nil
}

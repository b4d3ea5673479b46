package service

import (
	"context"
	"crypto/x509"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func newTestBuilder(store PrincipalStore, validator TokenValidator) *specBuilder {
	if store == nil {
		store = &stubPrincipals{}
	}
	if validator == nil {
		validator = &stubValidator{}
	}
	return &specBuilder{
		delegation: &delegationEngine{principals: store},
		validator:  validator,
	}
}

func passwordAuth() *AuthResult {
	return &AuthResult{
		Principal: Principal{Name: "user@tenant", Tenant: "tenant"},
		Method:    AuthMethodPassword,
		Instant:   time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC),
		Completed: true,
	}
}

func Test_specBuilder_buildForIssue(t *testing.T) {
	signingCert := &x509.Certificate{Raw: []byte{0x01}}
	delegateCert := &x509.Certificate{Raw: []byte{0x02}}
	solution := &SolutionPrincipal{
		Principal:   Principal{Name: "svcA", Tenant: "tenant"},
		Certificate: delegateCert,
	}
	falseVal := false

	type args struct {
		builder *specBuilder
		req     *TokenRequest
		auth    *AuthResult
	}
	type test struct {
		name      string
		args      args
		checkFunc func(*TokenSpec) error
		wantErr   error
	}
	tests := []test{
		{
			name: "Check ambiguous delegate-to and act-as rejected",
			args: args{
				builder: newTestBuilder(nil, nil),
				req: &TokenRequest{
					DelegateTo: "svcA",
					ActAs:      &SignedToken{Subject: "other@tenant"},
				},
				auth: passwordAuth(),
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "Check unsigned act-as request rejected",
			args: args{
				builder: newTestBuilder(nil, nil),
				req: &TokenRequest{
					ActAs: &SignedToken{Subject: "other@tenant"},
				},
				auth: passwordAuth(),
			},
			wantErr: ErrInvalidSecurityHeader,
		},
		{
			name: "Check act-as requester that is already a delegate rejected",
			args: args{
				builder: newTestBuilder(nil, nil),
				req: &TokenRequest{
					SigningCert: signingCert,
					ActAs:       &SignedToken{Subject: "other@tenant"},
					CallerToken: &SignedToken{
						Subject:   "user@tenant",
						Delegates: []DelegateEntry{{Subject: "svcB"}},
					},
				},
				auth: passwordAuth(),
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "Check act-as token failing validation rejected",
			args: args{
				builder: newTestBuilder(nil, &stubValidator{err: errors.New("tampered")}),
				req: &TokenRequest{
					SigningCert: signingCert,
					ActAs:       &SignedToken{Subject: "other@tenant"},
				},
				auth: passwordAuth(),
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "Check external assertion with delegate rejected",
			args: args{
				builder: newTestBuilder(nil, nil),
				req: &TokenRequest{
					DelegateTo:  "svcA",
					CallerToken: &SignedToken{Subject: "user@tenant", External: true},
				},
				auth: &AuthResult{
					Principal: Principal{Name: "user@tenant"},
					Method:    AuthMethodExternalAssertion,
					Completed: true,
				},
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "Check external assertion caller that is a delegate rejected",
			args: args{
				builder: newTestBuilder(nil, nil),
				req: &TokenRequest{
					CallerToken: &SignedToken{
						Subject:   "user@tenant",
						External:  true,
						Delegates: []DelegateEntry{{Subject: "svcB"}},
					},
				},
				auth: &AuthResult{
					Principal: Principal{Name: "user@tenant"},
					Method:    AuthMethodExternalAssertion,
					Completed: true,
				},
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "Check plain password issue yields bearer with fixed attributes",
			args: args{
				builder: newTestBuilder(nil, nil),
				req:     &TokenRequest{},
				auth:    passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				if spec.Confirmation.Type != ConfirmationBearer {
					return errors.Errorf("confirmation got %v, want bearer", spec.Confirmation.Type)
				}
				want := []string{"upn", "given-name", "surname", "group-identity", "subject-type"}
				if !reflect.DeepEqual(spec.AttributeNames, want) {
					return errors.Errorf("attributes got %v, want %v", spec.AttributeNames, want)
				}
				if !spec.Renew.Renewable || spec.Renew.Renewing || spec.Renew.Depth != 0 {
					return errors.Errorf("renew spec got %+v", spec.Renew)
				}
				return nil
			},
		},
		{
			name: "Check delegate issue carries the delegate and its certificate",
			args: args{
				builder: newTestBuilder(&stubPrincipals{principal: solution}, nil),
				req: &TokenRequest{
					DelegateTo: "svcA",
					Delegable:  true,
				},
				auth: passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				if spec.Delegation.Delegate != solution {
					return errors.Errorf("delegate got %+v", spec.Delegation.Delegate)
				}
				if !spec.Delegation.Delegable {
					return errors.New("delegable flag lost")
				}
				if spec.Confirmation.Certificate != delegateCert {
					return errors.Errorf("confirmation cert got %+v", spec.Confirmation.Certificate)
				}
				return nil
			},
		},
		{
			name: "Check audience keeps the primary participant first",
			args: args{
				builder: newTestBuilder(nil, nil),
				req: &TokenRequest{
					Participant:  "https://primary",
					Participants: []string{"https://second", "https://third"},
				},
				auth: passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				want := []string{"https://primary", "https://second", "https://third"}
				if !reflect.DeepEqual(spec.Audience, want) {
					return errors.Errorf("audience got %v, want %v", spec.Audience, want)
				}
				return nil
			},
		},
		{
			name: "Check explicit non renewable request honored",
			args: args{
				builder: newTestBuilder(nil, nil),
				req:     &TokenRequest{Renewable: &falseVal},
				auth:    passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				if spec.Renew.Renewable {
					return errors.New("renewable should be false")
				}
				return nil
			},
		},
		{
			name: "Check advice and counters carry over from the act-as token",
			args: args{
				builder: newTestBuilder(nil, nil),
				req: &TokenRequest{
					SigningCert: signingCert,
					ActAs: &SignedToken{
						Subject:    "other@tenant",
						RenewCount: 2,
						Advice:     []Advice{{Source: "urn:advice", Values: []string{"a"}}},
					},
					Advice: []Advice{{Source: "urn:requested"}},
				},
				auth: passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				if spec.Renew.Depth != 2 {
					return errors.Errorf("renew depth got %d, want 2", spec.Renew.Depth)
				}
				if len(spec.PresentAdvice) != 1 || spec.PresentAdvice[0].Source != "urn:advice" {
					return errors.Errorf("present advice got %+v", spec.PresentAdvice)
				}
				if len(spec.RequestedAdvice) != 1 || spec.RequestedAdvice[0].Source != "urn:requested" {
					return errors.Errorf("requested advice got %+v", spec.RequestedAdvice)
				}
				if spec.Delegation.History.OriginalSubject != "other@tenant" {
					return errors.Errorf("history got %+v", spec.Delegation.History)
				}
				return nil
			},
		},
		{
			name: "Check unrecognized signature algorithm ignored",
			args: args{
				builder: newTestBuilder(nil, nil),
				req:     &TokenRequest{SignatureAlgorithm: "MD5"},
				auth:    passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				if spec.SignatureAlgorithm != "" {
					return errors.Errorf("signature algorithm got %q, want empty", spec.SignatureAlgorithm)
				}
				return nil
			},
		},
		{
			name: "Check recognized signature algorithm kept",
			args: args{
				builder: newTestBuilder(nil, nil),
				req:     &TokenRequest{SignatureAlgorithm: "RSA-SHA384"},
				auth:    passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				if spec.SignatureAlgorithm != "RSA-SHA384" {
					return errors.Errorf("signature algorithm got %q", spec.SignatureAlgorithm)
				}
				return nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.args.builder.buildForIssue(context.Background(), tt.args.req, tt.args.auth)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("buildForIssue() error: %v  want: %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("buildForIssue() unexpected error: %v", err)
				return
			}
			if tt.checkFunc != nil {
				if err := tt.checkFunc(spec); err != nil {
					t.Errorf("buildForIssue() %v", err)
				}
			}
		})
	}
}

func Test_specBuilder_buildForRenew(t *testing.T) {
	signingCert := &x509.Certificate{Raw: []byte{0x01}}
	confCert := &x509.Certificate{Raw: []byte{0x03}}

	type args struct {
		req  *TokenRequest
		auth *AuthResult
	}
	type test struct {
		name      string
		args      args
		checkFunc func(*TokenSpec) error
		wantErr   error
	}
	tests := []test{
		{
			name: "Check missing renew target rejected",
			args: args{
				req:  &TokenRequest{SigningCert: signingCert},
				auth: passwordAuth(),
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "Check unsigned renew request rejected",
			args: args{
				req: &TokenRequest{
					RenewTarget: &SignedToken{Subject: "user@tenant"},
				},
				auth: passwordAuth(),
			},
			wantErr: ErrInvalidSecurityHeader,
		},
		{
			name: "Check externally issued token must be renewed at its issuer",
			args: args{
				req: &TokenRequest{
					SigningCert: signingCert,
					RenewTarget: &SignedToken{Subject: "user@tenant", External: true},
				},
				auth: passwordAuth(),
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name: "Check renew target without confirmation certificate is an internal failure",
			args: args{
				req: &TokenRequest{
					SigningCert: signingCert,
					RenewTarget: &SignedToken{
						Subject:      "user@tenant",
						Confirmation: Confirmation{Type: ConfirmationBearer},
					},
				},
				auth: passwordAuth(),
			},
			wantErr: ErrInternal,
		},
		{
			name: "Check renewal derives everything from the renewed token",
			args: args{
				req: &TokenRequest{
					SigningCert: signingCert,
					RenewTarget: &SignedToken{
						Subject:      "user@tenant",
						Confirmation: Confirmation{Type: ConfirmationHolderOfKey, Certificate: confCert},
						RenewCount:   4,
						Audience:     []string{"https://audience"},
						Advice:       []Advice{{Source: "urn:advice"}},
					},
					// request advice must not leak into a renewal
					Advice: []Advice{{Source: "urn:new"}},
				},
				auth: passwordAuth(),
			},
			checkFunc: func(spec *TokenSpec) error {
				if spec.Confirmation.Certificate != confCert {
					return errors.Errorf("confirmation cert got %+v", spec.Confirmation.Certificate)
				}
				if !spec.Renew.Renewing || spec.Renew.Depth != 4 {
					return errors.Errorf("renew spec got %+v", spec.Renew)
				}
				if !reflect.DeepEqual(spec.Audience, []string{"https://audience"}) {
					return errors.Errorf("audience got %v", spec.Audience)
				}
				if len(spec.PresentAdvice) != 1 || spec.PresentAdvice[0].Source != "urn:advice" {
					return errors.Errorf("present advice got %+v", spec.PresentAdvice)
				}
				if len(spec.RequestedAdvice) != 1 || spec.RequestedAdvice[0].Source != "urn:advice" {
					return errors.Errorf("requested advice got %+v", spec.RequestedAdvice)
				}
				return nil
			},
		},
	}
	b := newTestBuilder(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := b.buildForRenew(context.Background(), tt.args.req, tt.args.auth)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("buildForRenew() error: %v  want: %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("buildForRenew() unexpected error: %v", err)
				return
			}
			if tt.checkFunc != nil {
				if err := tt.checkFunc(spec); err != nil {
					t.Errorf("buildForRenew() %v", err)
				}
			}
		})
	}
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kpango/fastime"
	"github.com/kpango/glg"
)

// instrumentedDispatcher wraps a Dispatcher and times every operation per
// principal. Timing is logged, not exported, the statistics sink of each
// tenant owns the counters.
type instrumentedDispatcher struct {
	next Dispatcher
}

// NewInstrumentedDispatcher wraps the given dispatcher with per operation timing.
func NewInstrumentedDispatcher(next Dispatcher) Dispatcher {
	return &instrumentedDispatcher{next: next}
}

func (i *instrumentedDispatcher) Issue(ctx context.Context, tenant string, req *TokenRequest) (*Response, error) {
	done := i.begin("issue", tenant)
	res, err := i.next.Issue(ctx, tenant, req)
	done(responsePrincipal(res), err)
	return res, err
}

func (i *instrumentedDispatcher) Renew(ctx context.Context, tenant string, req *TokenRequest) (*Response, error) {
	done := i.begin("renew", tenant)
	res, err := i.next.Renew(ctx, tenant, req)
	done(responsePrincipal(res), err)
	return res, err
}

func (i *instrumentedDispatcher) Validate(ctx context.Context, tenant string, req *TokenRequest) (*ValidateResult, error) {
	done := i.begin("validate", tenant)
	res, err := i.next.Validate(ctx, tenant, req)
	done("", err)
	return res, err
}

func (i *instrumentedDispatcher) Challenge(ctx context.Context, tenant string, req *TokenRequest) (*Response, error) {
	done := i.begin("challenge", tenant)
	res, err := i.next.Challenge(ctx, tenant, req)
	done(responsePrincipal(res), err)
	return res, err
}

// begin returns a completion callback logging the elapsed time of one operation.
func (i *instrumentedDispatcher) begin(op, tenant string) func(principal string, err error) {
	callID := uuid.New().String()
	start := fastime.Now()
	return func(principal string, err error) {
		elapsed := fastime.Now().Sub(start)
		if err != nil {
			glg.Warnf("op=%s tenant=%s principal=%s call=%s elapsed=%s err=%v",
				op, tenant, principal, callID, elapsed.Round(time.Microsecond), err)
			return
		}
		glg.Debugf("op=%s tenant=%s principal=%s call=%s elapsed=%s",
			op, tenant, principal, callID, elapsed.Round(time.Microsecond))
	}
}

func responsePrincipal(res *Response) string {
	if res == nil || res.Token == nil {
		return ""
	}
	return res.Token.Subject
}

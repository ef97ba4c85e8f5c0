package execution

import (
	"context"
	"errors"
	"log"

	"equity-signalbot/internal/model"
)

// Journaled records every submission attempt made through the wrapped
// gateway. It adds no remote calls; a recorder failure is logged and never
// changes the submission result.
type Journaled struct {
	next     Gateway
	recorder model.OrderRecorder
}

// NewJournaled wraps next. A nil recorder returns next unchanged.
func NewJournaled(next Gateway, recorder model.OrderRecorder) Gateway {
	if recorder == nil {
		return next
	}
	return &Journaled{next: next, recorder: recorder}
}

func (j *Journaled) Submit(ctx context.Context, req model.OrderRequest) (model.OrderConfirmation, error) {
	conf, err := j.next.Submit(ctx, req)

	var recErr error
	if err != nil {
		reason := err.Error()
		var re *OrderRejectedError
		if errors.As(err, &re) {
			reason = re.Reason
		}
		recErr = j.recorder.RecordOrder(req, nil, reason)
	} else {
		recErr = j.recorder.RecordOrder(req, &conf, "")
	}
	if recErr != nil {
		log.Printf("[journal] failed to record %s %s: %v", req.Side, req.Symbol, recErr)
	}
	return conf, err
}

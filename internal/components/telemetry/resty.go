package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

type requestIdKey struct{}

type restyHooks struct {
	tel    API
	output MessageOutput
	seq    *atomic.Uint64
}

// InstrumentResty reports the start and end of every request made by `client`
// and hands finished exchanges to `output` when it is not nil. Hooks registered
// on the client earlier run first.
func InstrumentResty(client *resty.Client, tel API, output MessageOutput) {
	h := restyHooks{tel: tel, output: output, seq: &atomic.Uint64{}}
	client.OnBeforeRequest(h.before)
	client.OnAfterResponse(h.after)
	client.OnError(h.failed)
}

// requestId is 0 for requests that failed before they were numbered, ex. a
// rate limiter wait that got cancelled.
func requestId(req *resty.Request) uint64 {
	id, _ := req.Context().Value(requestIdKey{}).(uint64)
	return id
}

func (h restyHooks) before(_ *resty.Client, req *resty.Request) error {
	id := h.seq.Add(1)
	req.SetContext(context.WithValue(req.Context(), requestIdKey{}, id))
	h.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)
	return nil
}

func (h restyHooks) after(_ *resty.Client, res *resty.Response) error {
	id := requestId(res.Request)
	h.tel.ReportDebug(report_resty_response, id, res.Time().String(), res.Status())
	if h.output != nil {
		h.output.Write(fmt.Sprintf("%04d", id), renderExchange(res))
	}
	return nil
}

func (h restyHooks) failed(req *resty.Request, err error) {
	h.tel.ReportBroken(report_resty_response, err, requestId(req), req.Method, req.URL)
}

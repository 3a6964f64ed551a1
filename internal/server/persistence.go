package server

import (
	"github.com/philippkemmeter/mvcfun/internal/request"
	"github.com/philippkemmeter/mvcfun/internal/response"
)

// shouldCloseConnection determines if connection should be closed after this request.
func shouldCloseConnection(req *request.Request, w *response.Writer) bool {
	if w.HadError() {
		return true
	}
	if wantsClose(req) {
		return true
	}
	// Without Content-Length the client cannot tell where the response ends.
	return !w.HasContentLength()
}

// wantsClose applies the HTTP/1.0 and HTTP/1.1 defaults: 1.0 closes unless
// asked to keep alive, 1.1 keeps alive unless asked to close.
func wantsClose(req *request.Request) bool {
	if req.IsHTTP10() {
		return !req.WantsKeepAlive()
	}
	return req.WantsClose()
}

package handler

import (
	"time"

	"github.com/yndnr/apnsconn/internal/core/service"
	"github.com/yndnr/apnsconn/internal/infra/buildinfo"
	"github.com/yndnr/apnsconn/internal/infra/credstore"
)

// Response codes that are not DomainError codes.
const (
	CodeOK       = "OK"
	CodeInternal = "APNS-SYS-5000"
)

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      CodeOK,
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// HealthResponse is the body of GET /health and GET /ready.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Connection service.ConnectionStatus `json:"connection"`
	Credential *credstore.BundleInfo    `json:"credential,omitempty"`
	Build      buildinfo.Info           `json:"build"`
}

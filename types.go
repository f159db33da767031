// File: types.go
package main

// VerifyRequest is the JSON body for /api/captcha/verify
type VerifyRequest struct {
	Scene string `json:"scene"`
	Code  int    `json:"code"`
}

// VerifyResponse is returned by /api/captcha/verify
type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is returned on 4xx/5xx
type ErrorResponse struct {
	Error string `json:"error"`
}

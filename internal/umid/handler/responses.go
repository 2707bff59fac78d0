package handler

import (
	"umid/internal/umid/models"
	"umid/internal/umid/service"
)

// IssueResponse is the HTTP response for POST /umids. The secret and
// provisioning URI are shown once and cannot be fetched again.
type IssueResponse struct {
	UMID            *models.UMID `json:"umid"`
	Secret          string       `json:"secret"`
	ProvisioningURI string       `json:"provisioning_uri"`
}

func toIssueResponse(res *service.IssueResult) *IssueResponse {
	return &IssueResponse{
		UMID:            res.UMID,
		Secret:          res.Secret.Reveal(),
		ProvisioningURI: res.ProvisioningURI,
	}
}

// ListResponse wraps collection responses.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

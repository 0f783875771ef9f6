package client

import (
	"encoding/json"
	"fmt"
	"time"

	"examseat/pkg/model"
)

// ReservationClient is a thin typed wrapper over the reservation API, used by
// the integration tests.
type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseURL string) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// WithToken returns a client authenticated as the token's subject.
func (c *ReservationClient) WithToken(token string) *ReservationClient {
	return &ReservationClient{httpClient: c.httpClient.WithToken(token)}
}

func (c *ReservationClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/reservations", body)
}

func (c *ReservationClient) CreateRaw(rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw("/api/v1/reservations", rawBody)
}

// CreateIdempotent sends a create with an Idempotency-Key header, so a retry
// with the same key replays the first response.
func (c *ReservationClient) CreateIdempotent(body any, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders("/api/v1/reservations", body, map[string]string{
		"Idempotency-Key": key,
	})
}

func (c *ReservationClient) List() (*Response, error) {
	return c.httpClient.GET("/api/v1/reservations")
}

func (c *ReservationClient) Update(groupID int64, body any) (*Response, error) {
	return c.httpClient.PATCH(fmt.Sprintf("/api/v1/reservations/group/%d", groupID), body)
}

func (c *ReservationClient) Delete(groupID int64) (*Response, error) {
	return c.httpClient.DELETE(fmt.Sprintf("/api/v1/reservations/group/%d", groupID))
}

func (c *ReservationClient) AdminList(query string) (*Response, error) {
	path := "/api/v1/admin/reservations"
	if query != "" {
		path += "?" + query
	}
	return c.httpClient.GET(path)
}

func (c *ReservationClient) Confirm(groupID int64) (*Response, error) {
	return c.httpClient.POST(fmt.Sprintf("/api/v1/admin/reservations/confirm/%d", groupID), nil)
}

func (c *ReservationClient) DeleteConfirmed(groupID int64) (*Response, error) {
	return c.httpClient.DELETE(fmt.Sprintf("/api/v1/admin/reservations/group/%d", groupID))
}

func (c *ReservationClient) WaitForHealthy(maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(maxWait)
}

// DecodeGroup unwraps a single reservation group from a data envelope.
func (c *ReservationClient) DecodeGroup(resp *Response) (*model.ReservationGroup, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode group wrapper: %w", err)
	}

	var group model.ReservationGroup
	if err := json.Unmarshal(wrapper.Data, &group); err != nil {
		return nil, fmt.Errorf("could not decode reservation group: %w", err)
	}
	return &group, nil
}

// DecodeGroups unwraps a list of reservation groups from a data envelope.
func (c *ReservationClient) DecodeGroups(resp *Response) ([]*model.ReservationGroup, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode groups wrapper: %w", err)
	}

	var groups []*model.ReservationGroup
	if err := json.Unmarshal(wrapper.Data, &groups); err != nil {
		return nil, fmt.Errorf("could not decode reservation groups: %w", err)
	}
	return groups, nil
}

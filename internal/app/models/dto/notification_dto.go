package dto

import (
	"encoding/base64"
	"strconv"

	"github.com/yigit/classjournal/internal/app/models"
)

// NotificationEdge wraps one notification with its opaque cursor
type NotificationEdge struct {
	Node   models.Notification `json:"node"`
	Cursor string              `json:"cursor"`
}

// PageInfo describes the position of a connection page
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

// NotificationConnection is a page of the requester's notifications
type NotificationConnection struct {
	Edges      []NotificationEdge `json:"edges"`
	PageInfo   PageInfo           `json:"pageInfo"`
	TotalCount int64              `json:"totalCount"`
}

// NotificationCursor encodes a notification id as an opaque cursor
func NotificationCursor(id int64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// NewNotificationConnection builds a connection for the page that starts at offset
func NewNotificationConnection(items []models.Notification, page, offset int, total int64) NotificationConnection {
	edges := make([]NotificationEdge, 0, len(items))
	for _, n := range items {
		edges = append(edges, NotificationEdge{Node: n, Cursor: NotificationCursor(n.ID)})
	}

	info := PageInfo{
		HasNextPage:     int64(offset+len(items)) < total,
		HasPreviousPage: page > 1,
	}
	if len(edges) > 0 {
		start, end := edges[0].Cursor, edges[len(edges)-1].Cursor
		info.StartCursor = &start
		info.EndCursor = &end
	}

	return NotificationConnection{Edges: edges, PageInfo: info, TotalCount: total}
}

// NotificationPreferenceResponse is the requester's channel configuration
type NotificationPreferenceResponse struct {
	EmailEnabled   bool                  `json:"emailEnabled"`
	InAppEnabled   bool                  `json:"inAppEnabled"`
	PushEnabled    bool                  `json:"pushEnabled"`
	EmailFrequency models.EmailFrequency `json:"emailFrequency" example:"IMMEDIATE"`
}

// NewNotificationPreferenceResponse converts a preference model
func NewNotificationPreferenceResponse(p models.NotificationPreference) NotificationPreferenceResponse {
	return NotificationPreferenceResponse{
		EmailEnabled:   p.EmailEnabled,
		InAppEnabled:   p.InAppEnabled,
		PushEnabled:    p.PushEnabled,
		EmailFrequency: p.EmailFrequency,
	}
}

// UpdateNotificationPreferencesRequest changes only the switches that are present
type UpdateNotificationPreferencesRequest struct {
	EmailEnabled   Optional[bool]                  `json:"emailEnabled" swaggertype:"boolean"`
	InAppEnabled   Optional[bool]                  `json:"inAppEnabled" swaggertype:"boolean"`
	PushEnabled    Optional[bool]                  `json:"pushEnabled" swaggertype:"boolean"`
	EmailFrequency Optional[models.EmailFrequency] `json:"emailFrequency" swaggertype:"string"`
}

package client

import (
	"net/url"

	"hallbook/pkg/model"
)

type NotificationClient struct {
	httpClient *HttpClient
}

func NewNotificationClient(httpClient *HttpClient) *NotificationClient {
	return &NotificationClient{httpClient: httpClient}
}

func (c *NotificationClient) List(unreadOnly bool) (*Response, error) {
	if unreadOnly {
		return c.httpClient.GET("/api/v1/notifications?unread_only=true")
	}
	return c.httpClient.GET("/api/v1/notifications")
}

func (c *NotificationClient) UnreadCount() (*Response, error) {
	return c.httpClient.GET("/api/v1/notifications/unread-count")
}

func (c *NotificationClient) MarkAsRead(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/notifications/id/"+url.PathEscape(id)+"/read", struct{}{})
}

func (c *NotificationClient) MarkAllAsRead() (*Response, error) {
	return c.httpClient.POST("/api/v1/notifications/read-all", struct{}{})
}

func (c *NotificationClient) Delete(id string) (*Response, error) {
	return c.httpClient.DELETE("/api/v1/notifications/id/" + url.PathEscape(id))
}

func (c *NotificationClient) ClearAll() (*Response, error) {
	return c.httpClient.DELETE("/api/v1/notifications")
}

func (c *NotificationClient) DecodeNotifications(resp *Response) ([]*model.Notification, error) {
	var items []*model.Notification
	if err := resp.DecodeData(&items); err != nil {
		return nil, err
	}
	return items, nil
}

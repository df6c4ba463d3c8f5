package common

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"hallbook/pkg/client"
	"hallbook/pkg/model"

	"github.com/stretchr/testify/require"
)

var userSeq atomic.Int64

// Actor bundles one logged-in user with typed clients sharing its token.
type Actor struct {
	User          *model.UserProfile
	HTTP          *client.HttpClient
	Auth          *client.AuthClient
	Bookings      *client.BookingClient
	Notifications *client.NotificationClient
}

func newActor(httpClient *client.HttpClient) *Actor {
	return &Actor{
		HTTP:          httpClient,
		Auth:          client.NewAuthClient(httpClient),
		Bookings:      client.NewBookingClient(httpClient),
		Notifications: client.NewNotificationClient(httpClient),
	}
}

// RegisterActor creates a uniquely named account with role and logs it in.
func RegisterActor(t *testing.T, s *IntegrationTestSuite, role model.Role) *Actor {
	t.Helper()
	actor := newActor(s.NewClient())
	n := userSeq.Add(1)
	email := fmt.Sprintf("%s%d@campus.edu", role, n)

	resp, err := actor.Auth.Register(&model.RegisterRequest{
		Name:       fmt.Sprintf("Test %s %d", role, n),
		Email:      email,
		Password:   "secret123",
		Role:       role,
		Department: "Computer Science",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.String())

	result, err := actor.Auth.LoginAs(email, "secret123")
	require.NoError(t, err)
	actor.User = result.User
	return actor
}

func LoginAdmin(t *testing.T, s *IntegrationTestSuite) *Actor {
	t.Helper()
	actor := newActor(s.NewClient())
	result, err := actor.Auth.LoginAs(AdminEmail, AdminPassword)
	require.NoError(t, err)
	actor.User = result.User
	return actor
}

func UnreadCount(t *testing.T, actor *Actor) int {
	t.Helper()
	resp, err := actor.Notifications.UnreadCount()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, resp.DecodeData(&body))
	return body.Count
}

func NotificationTypes(t *testing.T, actor *Actor) []model.NotificationType {
	t.Helper()
	resp, err := actor.Notifications.List(false)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	items, err := actor.Notifications.DecodeNotifications(resp)
	require.NoError(t, err)
	types := make([]model.NotificationType, 0, len(items))
	for _, n := range items {
		types = append(types, n.Type)
	}
	return types
}

package client

import (
	"fmt"
	"net/url"

	"hallbook/pkg/model"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(httpClient *HttpClient) *BookingClient {
	return &BookingClient{httpClient: httpClient}
}

func (c *BookingClient) Create(req *model.BookingRequest) (*Response, error) {
	return c.httpClient.POST("/api/v1/bookings", req)
}

func (c *BookingClient) List(filter model.BookingFilter, limit, offset int) (*Response, error) {
	q := filterQuery(filter)
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GET("/api/v1/bookings?" + q.Encode())
}

func (c *BookingClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/id/" + url.PathEscape(id))
}

func (c *BookingClient) Approve(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/bookings/id/"+url.PathEscape(id)+"/approve", struct{}{})
}

func (c *BookingClient) Reject(id, reason string) (*Response, error) {
	return c.httpClient.POST("/api/v1/bookings/id/"+url.PathEscape(id)+"/reject", map[string]string{"reason": reason})
}

func (c *BookingClient) Cancel(id, reason string) (*Response, error) {
	return c.httpClient.POST("/api/v1/bookings/id/"+url.PathEscape(id)+"/cancel", map[string]string{"reason": reason})
}

func (c *BookingClient) CheckConflict(hall, date, timeFrom, timeTo string) (*Response, error) {
	q := url.Values{}
	q.Set("hall", hall)
	q.Set("date", date)
	q.Set("time_from", timeFrom)
	q.Set("time_to", timeTo)
	return c.httpClient.GET("/api/v1/bookings/conflict?" + q.Encode())
}

func (c *BookingClient) Slots(hall, date string) (*Response, error) {
	q := url.Values{}
	q.Set("hall", hall)
	q.Set("date", date)
	return c.httpClient.GET("/api/v1/bookings/slots?" + q.Encode())
}

func (c *BookingClient) Stats(filter model.BookingFilter) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/stats?" + filterQuery(filter).Encode())
}

func (c *BookingClient) Export(filter model.BookingFilter, format string) (*Response, error) {
	q := filterQuery(filter)
	q.Set("format", format)
	return c.httpClient.GET("/api/v1/bookings/export?" + q.Encode())
}

func (c *BookingClient) WaitingList() (*Response, error) {
	return c.httpClient.GET("/api/v1/waiting-list")
}

func (c *BookingClient) ProcessWaitingList(hall, date string) (*Response, error) {
	return c.httpClient.POST("/api/v1/waiting-list/process", map[string]string{"hall": hall, "date": date})
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := resp.DecodeData(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, error) {
	var bookings []*model.Booking
	if err := resp.DecodeData(&bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func filterQuery(f model.BookingFilter) url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("user_id", f.UserID)
	set("status", string(f.Status))
	set("hall", f.Hall)
	set("date", f.Date)
	set("department", f.Department)
	set("date_from", f.DateFrom)
	set("date_to", f.DateTo)
	return q
}

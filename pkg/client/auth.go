package client

import (
	"hallbook/pkg/model"
)

type AuthClient struct {
	httpClient *HttpClient
}

func NewAuthClient(httpClient *HttpClient) *AuthClient {
	return &AuthClient{httpClient: httpClient}
}

func (c *AuthClient) Register(req *model.RegisterRequest) (*Response, error) {
	return c.httpClient.POST("/api/v1/auth/register", req)
}

func (c *AuthClient) Login(req *model.LoginRequest) (*Response, error) {
	return c.httpClient.POST("/api/v1/auth/login", req)
}

func (c *AuthClient) Logout() (*Response, error) {
	return c.httpClient.POST("/api/v1/auth/logout", struct{}{})
}

func (c *AuthClient) Me() (*Response, error) {
	return c.httpClient.GET("/api/v1/auth/me")
}

// LoginAs logs in and stores the issued token on the underlying client.
func (c *AuthClient) LoginAs(email, password string) (*model.AuthResult, error) {
	resp, err := c.Login(&model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var result model.AuthResult
	if err := resp.DecodeData(&result); err != nil {
		return nil, err
	}
	c.httpClient.SetToken(result.Token)
	return &result, nil
}

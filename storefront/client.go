// Package storefront drives the Sweet Shop API the way the web pages do: a
// session, one guard, and a small state machine per page.
package storefront

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/go-resty/resty/v2"
)

const sessionCookie = "sweetshop_session"

// APIError is a failed API call as reported by the server.
type APIError struct {
	Status  int
	Code    apperror.Code
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type messageBody struct {
	Message string `json:"message"`
}

type Client struct {
	http *resty.Client

	mu    sync.Mutex
	token string
}

// NewClient talks to the API at baseURL. Redirects are not followed so the
// recovery link flow can read them.
func NewClient(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	return &Client{http: httpClient}
}

func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// SetSessionToken replaces the bearer token sent with every request.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if token := c.sessionToken(); token != "" {
		r.SetAuthToken(token)
	}
	return r
}

// call sends the request and converts error statuses into *APIError.
func (c *Client) call(r *resty.Request, method, path string, result any) error {
	var failure errorBody
	r.SetError(&failure)
	if result != nil {
		r.SetResult(result)
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		return apperror.Provider(err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Code: apperror.Code(failure.Code), Message: failure.Error}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		if apiErr.Code == "" {
			apiErr.Code = apperror.CodeInternal
		}
		return apiErr
	}
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*SessionInfo, error) {
	var out struct {
		SessionInfo
		Token string `json:"token"`
	}
	err := c.call(c.request(ctx).SetBody(map[string]string{"email": email, "password": password}), http.MethodPost, "/api/auth/login", &out)
	if err != nil {
		return nil, err
	}
	c.SetSessionToken(out.Token)
	return &out.SessionInfo, nil
}

func (c *Client) Register(ctx context.Context, email, password, fullName string) (string, error) {
	var out messageBody
	err := c.call(c.request(ctx).SetBody(map[string]string{"email": email, "password": password, "fullName": fullName}), http.MethodPost, "/api/auth/register", &out)
	return out.Message, err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageBody
	err := c.call(c.request(ctx).SetBody(map[string]string{"email": email}), http.MethodPost, "/api/auth/forgot-password", &out)
	return out.Message, err
}

func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	err := c.call(c.request(ctx).SetBody(map[string]string{"password": password}), http.MethodPost, "/api/auth/update-password", nil)
	if err == nil {
		c.SetSessionToken("")
	}
	return err
}

func (c *Client) VerifyEmail(ctx context.Context, token, tokenType string) error {
	return c.call(c.request(ctx).SetBody(map[string]string{"token": token, "type": tokenType}), http.MethodPost, "/api/auth/verify-email", nil)
}

// FollowRecoveryLink opens an emailed reset link against this client's API.
// The recovery session it grants is adopted and the frontend location it
// redirects to is returned.
func (c *Client) FollowRecoveryLink(ctx context.Context, link string) (*url.URL, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return nil, apperror.Validation("Invalid reset link")
	}
	resp, err := c.request(ctx).Get(parsed.RequestURI())
	if err != nil {
		return nil, apperror.Provider(err)
	}
	if resp.StatusCode() < 300 || resp.StatusCode() >= 400 {
		return nil, &APIError{Status: resp.StatusCode(), Code: apperror.CodeInternal, Message: "expected a redirect"}
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			c.SetSessionToken(cookie.Value)
		}
	}
	location, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		return nil, apperror.Provider(err)
	}
	return location, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.call(c.request(ctx), http.MethodPost, "/api/auth/logout", nil)
	c.SetSessionToken("")
	return err
}

func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.call(c.request(ctx), http.MethodGet, "/api/auth/session", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Sweets(ctx context.Context) ([]Sweet, error) {
	var out []Sweet
	if err := c.call(c.request(ctx), http.MethodGet, "/api/sweets", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Purchase(ctx context.Context, id string) (*Sweet, error) {
	var out Sweet
	if err := c.call(c.request(ctx), http.MethodPost, "/api/sweets/"+url.PathEscape(id)+"/purchase", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminProducts(ctx context.Context) ([]Sweet, error) {
	var out []Sweet
	if err := c.call(c.request(ctx), http.MethodGet, "/api/admin/products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ImageFile is a picture chosen in the admin product form.
type ImageFile struct {
	Name   string
	Reader io.Reader
}

// ProductInput is the admin form payload.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Category    string
	ImageURL    string
	Stock       int
	Image       *ImageFile
}

func (p ProductInput) request(r *resty.Request) *resty.Request {
	if p.Image == nil {
		return r.SetBody(map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"price":       p.Price,
			"category":    p.Category,
			"image_url":   p.ImageURL,
			"stock":       p.Stock,
		})
	}
	return r.SetFormData(map[string]string{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"category":    p.Category,
		"image_url":   p.ImageURL,
		"stock":       strconv.Itoa(p.Stock),
	}).SetFileReader("image", p.Image.Name, p.Image.Reader)
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Sweet, error) {
	var out Sweet
	if err := c.call(in.request(c.request(ctx)), http.MethodPost, "/api/admin/products", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Sweet, error) {
	var out Sweet
	if err := c.call(in.request(c.request(ctx)), http.MethodPut, "/api/admin/products/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.call(c.request(ctx), http.MethodDelete, "/api/admin/products/"+url.PathEscape(id), nil)
}

func (c *Client) AdminSetup(ctx context.Context, email, password, fullName string) error {
	return c.call(c.request(ctx).SetBody(map[string]string{"email": email, "password": password, "fullName": fullName}), http.MethodPost, "/api/admin/setup", nil)
}

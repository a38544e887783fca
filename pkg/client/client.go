// Package client 公共接口的 Go SDK（resty）
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// HeaderSessionToken 与服务端一致
const HeaderSessionToken = "sessionToken"

// APIError 非 2xx 响应
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// StatusOf 取 APIError 的状态码；其它错误返回 0
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

type Client struct {
	rc    *resty.Client
	token string
}

// New baseURL 可省略 scheme，默认 http
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errors.New("address must include host")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken 之后的请求都带上会话令牌
func (c *Client) SetToken(token string) { c.token = strings.TrimSpace(token) }

func (c *Client) Token() string { return c.token }

type Registration struct {
	Name      string `json:"name"`
	Email     string `json:"mail"`
	Password  string `json:"password"`
	Birthdate string `json:"birthdate"` // YYYY-MM-DD
	Phone     string `json:"phone,omitempty"`
}

type Ad struct {
	ID          uint            `json:"id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        uint            `json:"year"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	UserID      uint            `json:"user_id"`
}

type Seller struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type AdDetail struct {
	Ad
	User Seller `json:"user"`
}

type NewAd struct {
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        uint            `json:"year"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url,omitempty"`
	UserID      uint            `json:"user_id,omitempty"`
}

// AdPatch nil 字段不更新
type AdPatch struct {
	CarID       uint             `json:"car_id"`
	Brand       *string          `json:"brand,omitempty"`
	Model       *string          `json:"model,omitempty"`
	Year        *uint            `json:"year,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Description *string          `json:"description,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
}

type Favourite struct {
	ID          uint            `json:"id"`
	CarID       uint            `json:"car_id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        uint            `json:"year"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	UserID      uint            `json:"user_id"`
	UserName    string          `json:"user_name"`
	UserEmail   string          `json:"user_email"`
}

type User struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

type errorBody struct {
	Error string `json:"error"`
}

type message struct {
	Message string `json:"message"`
}

type toggle struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type carRef struct {
	CarID uint `json:"car_id"`
}

func (c *Client) req(ctx context.Context) *resty.Request {
	r := c.rc.R().SetContext(ctx).SetError(&errorBody{})
	if c.token != "" {
		r.SetHeader(HeaderSessionToken, c.token)
	}
	return r
}

func (c *Client) do(r *resty.Request, method, path string) error {
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	msg := http.StatusText(resp.StatusCode())
	if eb, ok := resp.Error().(*errorBody); ok && eb.Error != "" {
		msg = eb.Error
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

func (c *Client) Register(ctx context.Context, in Registration) error {
	return c.do(c.req(ctx).SetBody(in), http.MethodPost, "/users")
}

// Login 成功后令牌自动保存到客户端
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		SessionToken string `json:"sessionToken"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(c.req(ctx).SetBody(body).SetResult(&out), http.MethodPost, "/sessions"); err != nil {
		return "", err
	}
	c.SetToken(out.SessionToken)
	return out.SessionToken, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(c.req(ctx), http.MethodDelete, "/sessions"); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.do(c.req(ctx).SetBody(body), http.MethodPost, "/password")
}

func (c *Client) AccountEmail(ctx context.Context) (string, error) {
	var out struct {
		Email string `json:"email"`
	}
	if err := c.do(c.req(ctx).SetResult(&out), http.MethodGet, "/account"); err != nil {
		return "", err
	}
	return out.Email, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(c.req(ctx).SetResult(&out), http.MethodGet, "/get_user"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search brand 只匹配品牌；text 匹配品牌或车型
func (c *Client) Search(ctx context.Context, brand, text string) ([]Ad, error) {
	var out struct {
		Cars []Ad `json:"cars"`
	}
	r := c.req(ctx).SetResult(&out)
	if brand != "" {
		r.SetQueryParam("brand_name", brand)
	}
	if text != "" {
		r.SetQueryParam("q", text)
	}
	if err := c.do(r, http.MethodGet, "/search"); err != nil {
		return nil, err
	}
	return out.Cars, nil
}

func (c *Client) Ad(ctx context.Context, id uint) (*AdDetail, error) {
	var out AdDetail
	if err := c.do(c.req(ctx).SetResult(&out), http.MethodGet, "/ad/"+idString(id)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Ads(ctx context.Context) ([]Ad, error) {
	var out []Ad
	if err := c.do(c.req(ctx).SetResult(&out), http.MethodGet, "/get_ads"); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAd 返回新广告 id
func (c *Client) CreateAd(ctx context.Context, in NewAd) (uint, error) {
	var out struct {
		ID uint `json:"id"`
	}
	if err := c.do(c.req(ctx).SetBody(in).SetResult(&out), http.MethodPost, "/ad_management"); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) UpdateAd(ctx context.Context, p AdPatch) (*Ad, error) {
	var out struct {
		Ad *Ad `json:"ad"`
	}
	if err := c.do(c.req(ctx).SetBody(p).SetResult(&out), http.MethodPut, "/ad_management"); err != nil {
		return nil, err
	}
	return out.Ad, nil
}

// DeleteAd car_id 放在 query，DELETE 不带 body
func (c *Client) DeleteAd(ctx context.Context, id uint) error {
	return c.do(c.req(ctx).SetQueryParam("car_id", idString(id)).SetResult(&message{}), http.MethodDelete, "/ad_management")
}

// AddFavourite 已收藏返回 false
func (c *Client) AddFavourite(ctx context.Context, carID uint) (bool, error) {
	var out toggle
	if err := c.do(c.req(ctx).SetBody(carRef{CarID: carID}).SetResult(&out), http.MethodPut, "/favourite_management"); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) RemoveFavourite(ctx context.Context, carID uint) (bool, error) {
	var out toggle
	if err := c.do(c.req(ctx).SetQueryParam("car_id", idString(carID)).SetResult(&out), http.MethodDelete, "/favourite_management"); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) Favourites(ctx context.Context) ([]Favourite, error) {
	var out []Favourite
	if err := c.do(c.req(ctx).SetResult(&out), http.MethodGet, "/get_favourites"); err != nil {
		return nil, err
	}
	return out, nil
}

func idString(id uint) string { return strconv.FormatUint(uint64(id), 10) }

package storefront

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/models"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/Kariqs/sweet-shop/utils"
)

type PageStatus int

const (
	PageLoading PageStatus = iota
	PageReady
	PageRedirect
)

// PageState is where a page ended up after loading or submitting.
type PageState struct {
	Status PageStatus
	Target string
}

func Loading() PageState               { return PageState{Status: PageLoading} }
func Ready() PageState                 { return PageState{Status: PageReady} }
func Redirect(target string) PageState { return PageState{Status: PageRedirect, Target: target} }

const (
	msgPasswordMismatch = "Passwords do not match"
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgResetLinkExpired = "Password reset link has expired or is invalid. Please request a new one."
	msgGenericError     = "An error occurred. Please try again."
	msgMissingToken     = "Invalid or missing verification token"
	msgVerified         = "Email verified successfully!"
	msgPasswordChanged  = "Password updated successfully! Redirecting to login..."
	msgNotAdmin         = "You do not have admin privileges"
	msgConfirmDelete    = "Are you sure you want to delete this product?"
)

type HomePage struct {
	client *Client

	Chocolates []Sweet
	Others     []Sweet
}

func NewHomePage(client *Client) *HomePage {
	return &HomePage{client: client}
}

func (p *HomePage) Load(ctx context.Context) (PageState, error) {
	sweets, err := p.client.Sweets(ctx)
	if err != nil {
		return Ready(), err
	}
	p.Chocolates, p.Others = PartitionByCategory(sweets)
	return Ready(), nil
}

type LoginPage struct {
	client  *Client
	session *Session
	Form    Form
}

func NewLoginPage(client *Client, session *Session) *LoginPage {
	return &LoginPage{client: client, session: session}
}

func (p *LoginPage) Submit(ctx context.Context, email, password string) (PageState, error) {
	err := p.Form.Submit(ctx, func(ctx context.Context) (string, error) {
		if _, err := p.client.Login(ctx, email, password); err != nil {
			return "", err
		}
		return "", p.session.Refresh(ctx)
	})
	if err != nil {
		return Ready(), err
	}
	return Redirect("/dashboard"), nil
}

type RegisterPage struct {
	client *Client
	Form   Form
}

func NewRegisterPage(client *Client) *RegisterPage {
	return &RegisterPage{client: client}
}

// Submit checks the confirmation locally before anything is sent.
func (p *RegisterPage) Submit(ctx context.Context, email, password, confirm, fullName string) error {
	if password != confirm {
		return p.Form.Fail(apperror.Validation(msgPasswordMismatch))
	}
	return p.Form.Submit(ctx, func(ctx context.Context) (string, error) {
		return p.client.Register(ctx, email, password, fullName)
	})
}

type ForgotPasswordPage struct {
	client *Client
	Form   Form
}

func NewForgotPasswordPage(client *Client) *ForgotPasswordPage {
	return &ForgotPasswordPage{client: client}
}

func (p *ForgotPasswordPage) Submit(ctx context.Context, email string) error {
	return p.Form.Submit(ctx, func(ctx context.Context) (string, error) {
		return p.client.ForgotPassword(ctx, email)
	})
}

type ResetPasswordPage struct {
	client *Client
	Form   Form
}

// NewResetPasswordPage reads the error and error_description parameters the
// recovery callback puts on the redirect.
func NewResetPasswordPage(client *Client, query url.Values) *ResetPasswordPage {
	p := &ResetPasswordPage{client: client}
	errParam := query.Get("error")
	description := query.Get("error_description")
	if errParam == "access_denied" || description != "" {
		msg := description
		switch {
		case strings.Contains(description, "expired") || strings.Contains(description, "invalid"):
			msg = msgResetLinkExpired
		case msg == "":
			msg = msgGenericError
		}
		_ = p.Form.Fail(apperror.Auth(msg))
	}
	return p
}

func (p *ResetPasswordPage) Submit(ctx context.Context, password, confirm string) (PageState, error) {
	if password != confirm {
		return Ready(), p.Form.Fail(apperror.Validation(msgPasswordMismatch))
	}
	if len(password) < services.MinPasswordLength {
		return Ready(), p.Form.Fail(apperror.Validation(msgPasswordTooShort))
	}
	err := p.Form.Submit(ctx, func(ctx context.Context) (string, error) {
		return msgPasswordChanged, p.client.UpdatePassword(ctx, password)
	})
	if err != nil {
		return Ready(), err
	}
	return Redirect("/login"), nil
}

type VerifyEmailPage struct {
	client *Client
	Form   Form
}

func NewVerifyEmailPage(client *Client) *VerifyEmailPage {
	return &VerifyEmailPage{client: client}
}

// Load verifies the token carried by the page URL. Only type=email links are
// accepted.
func (p *VerifyEmailPage) Load(ctx context.Context, query url.Values) (PageState, error) {
	token := query.Get("token")
	if token == "" || query.Get("type") != "email" {
		return Ready(), p.Form.Fail(apperror.Validation(msgMissingToken))
	}
	err := p.Form.Submit(ctx, func(ctx context.Context) (string, error) {
		return msgVerified, p.client.VerifyEmail(ctx, token, "email")
	})
	if err != nil {
		return Ready(), err
	}
	return Redirect("/dashboard"), nil
}

type DashboardPage struct {
	client  *Client
	session *Session

	mu     sync.Mutex
	sweets []Sweet
	Form   Form
}

func NewDashboardPage(client *Client, session *Session) *DashboardPage {
	return &DashboardPage{client: client, session: session}
}

// Load sends visitors to /login and admins to /admin; customers get the
// catalog.
func (p *DashboardPage) Load(ctx context.Context) (PageState, error) {
	if err := p.session.Refresh(ctx); err != nil {
		return Ready(), err
	}
	switch RequireRole(p.session, models.RoleAdmin) {
	case Unauthenticated:
		return Redirect("/login"), nil
	case Authorized:
		return Redirect("/admin"), nil
	}
	return Ready(), p.reload(ctx)
}

func (p *DashboardPage) reload(ctx context.Context) error {
	sweets, err := p.client.Sweets(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.sweets = sweets
	p.mu.Unlock()
	return nil
}

func (p *DashboardPage) Sweets() []Sweet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sweet(nil), p.sweets...)
}

// Purchase buys one unit and refetches the catalog.
func (p *DashboardPage) Purchase(ctx context.Context, id string) error {
	return p.Form.Submit(ctx, func(ctx context.Context) (string, error) {
		if _, err := p.client.Purchase(ctx, id); err != nil {
			return "", err
		}
		return "", p.reload(ctx)
	})
}

func (p *DashboardPage) Logout(ctx context.Context) (PageState, error) {
	err := p.client.Logout(ctx)
	p.session.clear()
	return Redirect("/"), err
}

// ProductDraft is the admin product editor. Stock is kept as typed text.
type ProductDraft struct {
	Name        string
	Description string
	Price       string
	Category    string
	ImageURL    string
	Stock       string
	Image       *ImageFile
}

func NewProductDraft() ProductDraft {
	return ProductDraft{Category: models.CategoryCandy, Stock: "0"}
}

func (d ProductDraft) input() ProductInput {
	return ProductInput{
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		Stock:       utils.CoerceInt(d.Stock),
		Image:       d.Image,
	}
}

type AdminPage struct {
	client  *Client
	session *Session

	ShowLogin   bool
	Products    []Sweet
	Editing     *Sweet
	Draft       ProductDraft
	LoginForm   Form
	ProductForm Form
}

func NewAdminPage(client *Client, session *Session) *AdminPage {
	return &AdminPage{client: client, session: session, Draft: NewProductDraft()}
}

// Load shows the product table to admins and the login form to everyone else.
func (p *AdminPage) Load(ctx context.Context) (PageState, error) {
	if err := p.session.Refresh(ctx); err != nil {
		return Ready(), err
	}
	if RequireRole(p.session, models.RoleAdmin) != Authorized {
		p.ShowLogin = true
		return Ready(), nil
	}
	p.ShowLogin = false
	return Ready(), p.reload(ctx)
}

func (p *AdminPage) reload(ctx context.Context) error {
	products, err := p.client.AdminProducts(ctx)
	if err != nil {
		return err
	}
	p.Products = products
	return nil
}

// Login signs in and checks the role. A non-admin is signed straight back
// out.
func (p *AdminPage) Login(ctx context.Context, email, password string) error {
	return p.LoginForm.Submit(ctx, func(ctx context.Context) (string, error) {
		if _, err := p.client.Login(ctx, email, password); err != nil {
			return "", err
		}
		if err := p.session.Refresh(ctx); err != nil {
			return "", err
		}
		if RequireRole(p.session, models.RoleAdmin) != Authorized {
			_ = p.client.Logout(ctx)
			p.session.clear()
			return "", apperror.Forbidden(msgNotAdmin)
		}
		p.ShowLogin = false
		return "", p.reload(ctx)
	})
}

// Edit loads a product into the draft.
func (p *AdminPage) Edit(s Sweet) {
	p.Editing = &s
	p.Draft = ProductDraft{
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		Category:    s.Category,
		ImageURL:    s.ImageURL,
		Stock:       strconv.Itoa(s.Stock),
	}
}

func (p *AdminPage) ResetDraft() {
	p.Editing = nil
	p.Draft = NewProductDraft()
}

// Save creates or updates the draft product, then refetches the table.
func (p *AdminPage) Save(ctx context.Context) error {
	return p.ProductForm.Submit(ctx, func(ctx context.Context) (string, error) {
		var err error
		if p.Editing != nil {
			_, err = p.client.UpdateProduct(ctx, p.Editing.ID, p.Draft.input())
		} else {
			_, err = p.client.CreateProduct(ctx, p.Draft.input())
		}
		if err != nil {
			return "", err
		}
		p.ResetDraft()
		return "", p.reload(ctx)
	})
}

// Delete removes a product once confirm agrees. It reports whether anything
// was deleted.
func (p *AdminPage) Delete(ctx context.Context, id string, confirm func(prompt string) bool) (bool, error) {
	if confirm == nil || !confirm(msgConfirmDelete) {
		return false, nil
	}
	if err := p.client.DeleteProduct(ctx, id); err != nil {
		return false, err
	}
	return true, p.reload(ctx)
}

func (p *AdminPage) Logout(ctx context.Context) error {
	err := p.client.Logout(ctx)
	p.session.clear()
	p.ShowLogin = true
	p.Products = nil
	return err
}

type AdminSetupPage struct {
	client *Client
	Form   Form
}

func NewAdminSetupPage(client *Client) *AdminSetupPage {
	return &AdminSetupPage{client: client}
}

func (p *AdminSetupPage) Submit(ctx context.Context, email, password, fullName string) (PageState, error) {
	err := p.Form.Submit(ctx, func(ctx context.Context) (string, error) {
		return "", p.client.AdminSetup(ctx, email, password, fullName)
	})
	if err != nil {
		return Ready(), err
	}
	return Redirect("/admin"), nil
}

// Package pages serves the server-rendered HTML pages.
package pages

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/domain"
	"github.com/signalist/signalist/internal/modules/auth"
	"github.com/signalist/signalist/internal/modules/market"
	"github.com/signalist/signalist/internal/modules/users"
	"github.com/signalist/signalist/internal/modules/watchlist"
)

// NavItem is a header link
type NavItem struct {
	Href  string
	Label string
}

var navItems = []NavItem{
	{Href: "/", Label: "Dashboard"},
	{Href: "/search", Label: "Search"},
	{Href: "/watchlist", Label: "Watchlist"},
}

// SignUpOptions are the choices offered on the sign-up form
type SignUpOptions struct {
	Goals      []string
	Risk       []string
	Industries []string
}

var signUpOptions = SignUpOptions{
	Goals:      []string{"Growth", "Income", "Balanced", "Conservative"},
	Risk:       []string{"Low", "Medium", "High"},
	Industries: []string{"Technology", "Healthcare", "Finance", "Energy", "Consumer Goods"},
}

// pageNames are the templates under templates/ rendered inside the layout
var pageNames = []string{"dashboard", "stock", "watchlist", "search", "sign-in", "sign-up"}

// Deps groups the page handler's collaborators
type Deps struct {
	Auth      *auth.Service
	Signer    *auth.CookieSigner
	Watchlist *watchlist.Service
	Market    *market.Gateway
}

// Handler renders pages
type Handler struct {
	deps  Deps
	pages map[string]*template.Template
	log   zerolog.Logger
}

// NewHandler parses every page template from files (the embedded assets)
func NewHandler(files fs.FS, deps Deps, log zerolog.Logger) (*Handler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Handler{
		deps:  deps,
		pages: pages,
		log:   log.With().Str("handler", "pages").Logger(),
	}, nil
}

// RegisterRoutes mounts every page route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleDashboard)
	r.Get("/watchlist", h.HandleWatchlist)
	r.Post("/watchlist/toggle", h.HandleToggle)
	r.Get("/stocks/{symbol}", h.HandleStock)
	r.Get("/search", h.HandleSearch)
	r.Get("/sign-in", h.HandleSignInPage)
	r.Post("/sign-in", h.HandleSignIn)
	r.Get("/sign-up", h.HandleSignUpPage)
	r.Post("/sign-up", h.HandleSignUp)
	r.Post("/sign-out", h.HandleSignOut)
}

type pageData struct {
	Title  string
	Active string
	User   *domain.User
	Nav    []NavItem
}

func newPageData(title, active string, user *domain.User) pageData {
	return pageData{Title: title, Active: active, User: user, Nav: navItems}
}

// currentUser returns the signed-in user, or redirects to /sign-in when the session no
// longer resolves
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.deps.Signer.ClearCookie(w)
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
		return nil, false
	}
	return user, true
}

// HandleDashboard handles GET /
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	left, right := DashboardWidgets()
	h.render(w, http.StatusOK, "dashboard", struct {
		pageData
		Left, Right []Widget
	}{newPageData("Dashboard", "/", user), left, right})
}

// HandleStock handles GET /stocks/{symbol}
func (h *Handler) HandleStock(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	symbol := watchlist.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		http.NotFound(w, r)
		return
	}

	inWatchlist := false
	if symbols, err := h.deps.Watchlist.SymbolsByEmail(r.Context(), user.Email); err != nil {
		h.log.Warn().Err(err).Msg("Failed to load watchlist")
	} else {
		for _, s := range symbols {
			if s == symbol {
				inWatchlist = true
				break
			}
		}
	}

	left, right := StockWidgets(symbol)
	h.render(w, http.StatusOK, "stock", struct {
		pageData
		Symbol      string
		InWatchlist bool
		Left, Right []Widget
	}{newPageData(symbol, "", user), symbol, inWatchlist, left, right})
}

// HandleWatchlist handles GET /watchlist
func (h *Handler) HandleWatchlist(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.deps.Watchlist.ListByEmail(r.Context(), user.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load watchlist")
		http.Error(w, "Failed to load watchlist", http.StatusInternalServerError)
		return
	}

	rows := make([]WatchlistRow, 0, len(items))
	symbols := make([]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, NewWatchlistRow(item))
		symbols = append(symbols, item.Symbol)
	}

	news, err := h.deps.Market.GetNews(r.Context(), symbols)
	if err != nil {
		h.log.Warn().Err(err).Msg("News unavailable for watchlist page")
	}

	h.render(w, http.StatusOK, "watchlist", struct {
		pageData
		Rows []WatchlistRow
		News []domain.FormattedNewsArticle
	}{newPageData("Watchlist", "/watchlist", user), rows, news})
}

// HandleToggle handles the watchlist button form, POST /watchlist/toggle
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	symbol := r.PostForm.Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	if _, err := h.deps.Watchlist.ToggleByEmail(r.Context(), user.Email, symbol, r.PostForm.Get("company")); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to toggle watchlist")
		http.Error(w, "Failed to update watchlist", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, backTo(r, "/watchlist"), http.StatusSeeOther)
}

// HandleSearch handles GET /search?q=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	symbols, err := h.deps.Watchlist.SymbolsByEmail(r.Context(), user.Email)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to load watchlist")
	}

	query := r.URL.Query().Get("q")
	results, err := h.deps.Market.SearchStocks(r.Context(), query, symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Search failed")
	}

	h.render(w, http.StatusOK, "search", struct {
		pageData
		Query   string
		Results []domain.StockSearchResult
	}{newPageData("Search", "/search", user), query, results})
}

type signInData struct {
	pageData
	Email string
	Error string
}

// HandleSignInPage handles GET /sign-in
func (h *Handler) HandleSignInPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "sign-in", signInData{pageData: newPageData("Sign In", "", nil)})
}

// HandleSignIn handles POST /sign-in
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")

	session, err := h.deps.Auth.SignIn(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		status, msg := http.StatusInternalServerError, "Sign in failed. Please try again."
		if errors.Is(err, auth.ErrInvalidCredentials) {
			status, msg = http.StatusUnauthorized, "Invalid email or password."
		} else {
			h.log.Error().Err(err).Msg("Sign in failed")
		}
		h.render(w, status, "sign-in", signInData{pageData: newPageData("Sign In", "", nil), Email: email, Error: msg})
		return
	}

	h.deps.Signer.SetCookie(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type signUpData struct {
	pageData
	Form    auth.SignUpForm
	Options SignUpOptions
	Error   string
}

// HandleSignUpPage handles GET /sign-up
func (h *Handler) HandleSignUpPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	form := auth.SignUpForm{Country: "US", InvestmentGoals: "Growth", RiskTolerance: "Medium", PreferredIndustry: "Technology"}
	h.render(w, http.StatusOK, "sign-up", signUpData{pageData: newPageData("Sign Up", "", nil), Form: form, Options: signUpOptions})
}

// HandleSignUp handles POST /sign-up
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := auth.SignUpForm{
		FullName:          r.PostForm.Get("fullName"),
		Email:             r.PostForm.Get("email"),
		Password:          r.PostForm.Get("password"),
		Country:           r.PostForm.Get("country"),
		InvestmentGoals:   r.PostForm.Get("investmentGoals"),
		RiskTolerance:     r.PostForm.Get("riskTolerance"),
		PreferredIndustry: r.PostForm.Get("preferredIndustry"),
	}

	session, err := h.deps.Auth.SignUp(r.Context(), form)
	if err != nil {
		status, msg := http.StatusInternalServerError, "Sign up failed. Please try again."
		switch {
		case errors.Is(err, auth.ErrValidation):
			status, msg = http.StatusBadRequest, err.Error()
		case errors.Is(err, users.ErrEmailTaken):
			status, msg = http.StatusConflict, "An account with this email already exists."
		default:
			h.log.Error().Err(err).Msg("Sign up failed")
		}
		form.Password = ""
		h.render(w, status, "sign-up", signUpData{pageData: newPageData("Sign Up", "", nil), Form: form, Options: signUpOptions, Error: msg})
		return
	}

	h.deps.Signer.SetCookie(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleSignOut handles POST /sign-out
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.deps.Signer.TokenFromRequest(r); ok {
		if err := h.deps.Auth.SignOut(r.Context(), token); err != nil {
			h.log.Warn().Err(err).Msg("Failed to delete session")
		}
	}
	h.deps.Signer.ClearCookie(w)
	http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
}

func (h *Handler) signedIn(r *http.Request) bool {
	_, ok := auth.UserFromContext(r.Context())
	return ok
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data interface{}) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// backTo returns the path of a same-origin Referer, or fallback
func backTo(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}
	return ref.Path
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/barista-pos/internal/domain/auth"
	"github.com/xenking/barista-pos/internal/domain/menu"
	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/domain/sales"
	"github.com/xenking/barista-pos/internal/domain/user"
)

// --- In-memory repositories ---

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*user.User
	calls int
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

// memOrders serves both the order ledger and the sales queries.
type memOrders struct {
	mu        sync.Mutex
	orders    []order.Order
	calls     int
	createErr error
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.createErr != nil {
		return m.createErr
	}
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memOrders) GetForOwner(_ context.Context, ownerID, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, o := range m.orders {
		if o.ID == id && o.Owner.ID == ownerID {
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

// newestFirst returns the orders matching keep, newest first.
func (m *memOrders) newestFirst(keep func(order.Order) bool) []order.Order {
	var out []order.Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b order.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (m *memOrders) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	all := m.newestFirst(func(o order.Order) bool { return o.Owner.ID == ownerID })
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (m *memOrders) CountByOwner(_ context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return len(m.newestFirst(func(o order.Order) bool { return o.Owner.ID == ownerID })), nil
}

func (m *memOrders) ListOrders(_ context.Context, from, to time.Time, ownerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.newestFirst(func(o order.Order) bool {
		return !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) && (ownerID == "" || o.Owner.ID == ownerID)
	}), nil
}

func (m *memOrders) Overview(ctx context.Context, from, to time.Time) (sales.Overview, error) {
	orders, _ := m.ListOrders(ctx, from, to, "")
	var ov sales.Overview
	var revenue int64
	for _, o := range orders {
		ov.TotalOrders++
		ov.TotalItems += int64(o.ItemCount)
		revenue += o.TotalAmount
	}
	ov.TotalRevenue = decimal.NewFromInt(revenue)
	return ov, nil
}

func (m *memOrders) DailyBreakdown(ctx context.Context, from, to time.Time, loc *time.Location) ([]sales.Day, error) {
	orders, _ := m.ListOrders(ctx, from, to, "")
	var days []sales.Day
	for _, o := range orders {
		date := o.CreatedAt.In(loc).Format(sales.DateLayout)
		if len(days) == 0 || days[len(days)-1].Date != date {
			days = append(days, sales.Day{Date: date, Revenue: decimal.Zero})
		}
		d := &days[len(days)-1]
		d.Orders++
		d.Items += int64(o.ItemCount)
		d.Revenue = d.Revenue.Add(decimal.NewFromInt(o.TotalAmount))
	}
	return days, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// --- Test environment ---

var testSecret = []byte("test-secret")

type testEnv struct {
	t      *testing.T
	users  *memUsers
	orders *memOrders
	router http.Handler
	now    time.Time
}

func newEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	env := &testEnv{
		t:      t,
		users:  &memUsers{byID: map[string]*user.User{}},
		orders: &memOrders{},
		now:    time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	tokens, err := auth.NewTokens(testSecret, 7*24*time.Hour)
	require.NoError(t, err)
	authService := auth.NewService(env.users, tokens, bcrypt.MinCost)

	catalog := menu.Default()
	orders, err := order.NewService(catalog, env.orders, order.WithClock(clock))
	require.NoError(t, err)
	salesService := sales.NewService(env.orders, orders, sales.WithClock(clock))

	r := chi.NewRouter()
	New(cfg, authService, catalog, orders, salesService).Register(r)
	env.router = r
	return env
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
	Stack string `json:"stack"`
}

func (env *testEnv) do(method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	env.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp envelope
	require.NoError(env.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

// signup registers a barista and returns its session token.
func (env *testEnv) signup(email, name string) string {
	env.t.Helper()
	w, resp := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"`+email+`","password":"demo123","name":"`+name+`"}`, "")
	require.Equal(env.t, http.StatusCreated, w.Code, resp.Message)
	return sessionCookie(env.t, w).Value
}

func decodeData[T any](t *testing.T, resp envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

type orderJSON struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	TotalAmount int64  `json:"totalAmount"`
	ItemCount   int    `json:"itemCount"`
	CreatedAt   string `json:"createdAt"`
	Items       []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Price    int64  `json:"price"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

const validOrder = `{"items":[` +
	`{"id":1,"name":"Espresso","price":2500,"quantity":2},` +
	`{"id":2,"name":"Latte","price":3500,"quantity":1}` +
	`],"totalAmount":8500,"itemCount":3}`

func (env *testEnv) placeOrder(token string) orderJSON {
	env.t.Helper()
	w, resp := env.do(http.MethodPost, "/api/orders", validOrder, token)
	require.Equal(env.t, http.StatusCreated, w.Code, resp.Message)
	return decodeData[struct {
		Order orderJSON `json:"order"`
	}](env.t, resp).Order
}

// --- Tests ---

func TestAuthFlow(t *testing.T) {
	env := newEnv(t, Config{})

	w, resp := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"  Demo@Enzi.Coffee ","password":"demo123","name":"Demo Barista"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "User registered successfully", resp.Message)

	c := sessionCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)

	session := decodeData[struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
		Token string `json:"token"`
	}](t, resp)
	assert.Equal(t, "demo@enzi.coffee", session.User.Email)
	assert.Equal(t, c.Value, session.Token)

	t.Run("DuplicateEmail", func(t *testing.T) {
		w, resp := env.do(http.MethodPost, "/api/auth/register",
			`{"email":"demo@enzi.coffee","password":"another","name":"Someone"}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, "User with this email already exists", resp.Message)
	})
	t.Run("WrongPassword", func(t *testing.T) {
		w, resp := env.do(http.MethodPost, "/api/auth/login",
			`{"email":"demo@enzi.coffee","password":"nope"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid email or password", resp.Message)
	})
	t.Run("Login", func(t *testing.T) {
		w, resp := env.do(http.MethodPost, "/api/auth/login",
			`{"email":"DEMO@enzi.coffee","password":"demo123"}`, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Login successful", resp.Message)
		assert.NotEmpty(t, sessionCookie(t, w).Value)
	})
	t.Run("Me", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/auth/me", "", c.Value)
		require.Equal(t, http.StatusOK, w.Code)
		me := decodeData[struct {
			User struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"user"`
		}](t, resp)
		assert.Equal(t, session.User.ID, me.User.ID)
		assert.Equal(t, "Demo Barista", me.User.Name)
	})
	t.Run("Check", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/auth/check", "", c.Value)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(resp.Data), `"isAuthenticated":true`)
	})
	t.Run("Logout", func(t *testing.T) {
		w, resp := env.do(http.MethodPost, "/api/auth/logout", "", c.Value)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Logout successful", resp.Message)
		cleared := sessionCookie(t, w)
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)
	})
}

func TestRegisterValidation(t *testing.T) {
	env := newEnv(t, Config{})

	w, resp := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"not-an-email","password":"123","name":"A"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please provide a valid email", resp.Message)
	require.Len(t, resp.Errors, 3)
	assert.Equal(t, "password", resp.Errors[1].Field)
	assert.Equal(t, "Password must be at least 6 characters long", resp.Errors[1].Message)

	w, resp = env.do(http.MethodPost, "/api/auth/register", `{"email":42}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "email", resp.Errors[0].Field)
}

func TestCrossSiteCookie(t *testing.T) {
	env := newEnv(t, Config{CrossSiteCookie: true})
	w, _ := env.do(http.MethodPost, "/api/auth/register",
		`{"email":"demo@enzi.coffee","password":"demo123","name":"Demo Barista"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	c := sessionCookie(t, w)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestRequireAuth(t *testing.T) {
	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/auth/logout", ""},
		{http.MethodGet, "/api/auth/me", ""},
		{http.MethodGet, "/api/auth/check", ""},
		{http.MethodGet, "/api/menu", ""},
		{http.MethodGet, "/api/menu/1", ""},
		{http.MethodPost, "/api/orders", validOrder},
		{http.MethodGet, "/api/orders", ""},
		{http.MethodGet, "/api/orders/0b5c1a9e-3f33-4c51-8a8e-2f1f3f0c3a11", ""},
		{http.MethodGet, "/api/sales/daily", ""},
		{http.MethodGet, "/api/sales/user", ""},
		{http.MethodGet, "/api/sales/analytics", ""},
		{http.MethodGet, "/api/sales/top-items", ""},
		{http.MethodGet, "/api/sales/receipt/0b5c1a9e-3f33-4c51-8a8e-2f1f3f0c3a11", ""},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			env := newEnv(t, Config{})
			w, resp := env.do(rt.method, rt.path, rt.body, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, msgNotLoggedIn, resp.Message)
			assert.Zero(t, env.orders.calls, "persistence touched before auth")
			assert.Zero(t, env.users.calls)
		})
	}
}

func TestRequireAuth_Tokens(t *testing.T) {
	env := newEnv(t, Config{})
	token := env.signup("demo@enzi.coffee", "Demo Barista")

	sign := func(secret []byte, exp time.Time) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			UserID: "some-user",
			Email:  "demo@enzi.coffee",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		}).SignedString(secret)
		require.NoError(t, err)
		return raw
	}

	t.Run("Bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
	t.Run("Garbage", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/menu", "", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, msgInvalidToken, resp.Message)
	})
	t.Run("Forged", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/menu", "", sign([]byte("other"), time.Now().Add(time.Hour)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, msgInvalidToken, resp.Message)
	})
	t.Run("Expired", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/menu", "", sign(testSecret, time.Now().Add(-time.Hour)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, msgExpiredToken, resp.Message)
	})
	t.Run("DeletedUser", func(t *testing.T) {
		other := env.signup("gone@enzi.coffee", "Gone Barista")
		w, _ := env.do(http.MethodGet, "/api/auth/me", "", other)
		require.Equal(t, http.StatusOK, w.Code)

		for id, u := range env.users.byID {
			if u.Email == "gone@enzi.coffee" {
				env.users.delete(id)
			}
		}
		w, resp := env.do(http.MethodGet, "/api/auth/me", "", other)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "The user belonging to this token no longer exists.", resp.Message)
	})
}

func TestMenu(t *testing.T) {
	env := newEnv(t, Config{})
	token := env.signup("demo@enzi.coffee", "Demo Barista")

	w, resp := env.do(http.MethodGet, "/api/menu", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeData[[]menu.Item](t, resp)
	require.Len(t, items, 4)
	assert.Equal(t, menu.Item{ID: 1, Name: "Espresso", Price: 2500}, items[0])

	w, resp = env.do(http.MethodGet, "/api/menu/2", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Latte", decodeData[menu.Item](t, resp).Name)

	w, resp = env.do(http.MethodGet, "/api/menu/latte", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgInvalidMenuID, resp.Message)

	w, resp = env.do(http.MethodGet, "/api/menu/99", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Menu item not found", resp.Message)
}

func TestCreateOrder(t *testing.T) {
	env := newEnv(t, Config{})
	token := env.signup("demo@enzi.coffee", "Demo Barista")

	o := env.placeOrder(token)
	assert.Equal(t, int64(8500), o.TotalAmount)
	assert.Equal(t, 3, o.ItemCount)
	assert.Equal(t, "2025-06-10T09:00:00.000Z", o.CreatedAt)
	assert.Equal(t, "Demo Barista", o.User.Name)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Latte", o.Items[1].Name)
	assert.Equal(t, 1, env.orders.count())
}

func TestCreateOrder_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
		field   string
	}{
		{
			name: "TotalMismatch",
			body: `{"items":[{"id":1,"name":"Espresso","price":2500,"quantity":2},` +
				`{"id":2,"name":"Latte","price":3500,"quantity":1}],"totalAmount":8000,"itemCount":3}`,
			code:    http.StatusBadRequest,
			message: "Total amount does not match calculated total",
		},
		{
			name:    "OffByOne",
			body:    `{"items":[{"id":1,"name":"Espresso","price":2500,"quantity":1}],"totalAmount":2501,"itemCount":1}`,
			code:    http.StatusBadRequest,
			message: "Total amount does not match calculated total",
		},
		{
			name:    "ItemCountMismatch",
			body:    `{"items":[{"id":1,"name":"Espresso","price":2500,"quantity":1}],"totalAmount":2500,"itemCount":2}`,
			code:    http.StatusBadRequest,
			message: "Item count does not match calculated count",
		},
		{
			name:    "TamperedPrice",
			body:    `{"items":[{"id":1,"name":"Espresso","price":1,"quantity":1}],"totalAmount":1,"itemCount":1}`,
			code:    http.StatusBadRequest,
			message: "Item details do not match menu for item: Espresso",
		},
		{
			name:    "UnknownItem",
			body:    `{"items":[{"id":99,"name":"Tea","price":100,"quantity":1}],"totalAmount":100,"itemCount":1}`,
			code:    http.StatusBadRequest,
			message: "Menu item with ID 99 not found",
		},
		{
			name:    "ZeroQuantity",
			body:    `{"items":[{"id":1,"name":"Espresso","price":2500,"quantity":0}],"totalAmount":0,"itemCount":0}`,
			code:    http.StatusBadRequest,
			message: "Quantity must be greater than 0 for item 1",
		},
		{
			name:    "QuantityAboveLimit",
			body:    `{"items":[{"id":1,"name":"Espresso","price":2500,"quantity":1001}],"totalAmount":2502500,"itemCount":1001}`,
			code:    http.StatusBadRequest,
			message: "Quantity must not exceed 1000 for item 1",
		},
		{
			// Sums wrap to 7500 and 3 in 64-bit arithmetic.
			name: "WrappingTotals",
			body: `{"items":[` +
				`{"id":1,"name":"Espresso","price":2500,"quantity":4611686018427387904},` +
				`{"id":1,"name":"Espresso","price":2500,"quantity":4611686018427387904},` +
				`{"id":1,"name":"Espresso","price":2500,"quantity":4611686018427387904},` +
				`{"id":1,"name":"Espresso","price":2500,"quantity":4611686018427387907}` +
				`],"totalAmount":7500,"itemCount":3}`,
			code:    http.StatusBadRequest,
			message: "Quantity must not exceed 1000 for item 1",
		},
		{
			name:    "NoItems",
			body:    `{"items":[],"totalAmount":0,"itemCount":0}`,
			code:    http.StatusBadRequest,
			message: "At least one item is required",
		},
		{
			name:    "MistypedPrice",
			body:    `{"items":[{"id":1,"name":"Espresso","price":"2500","quantity":1}],"totalAmount":2500,"itemCount":1}`,
			code:    http.StatusBadRequest,
			message: msgValidation,
			field:   "items[0].price",
		},
		{
			name:    "MissingItemCount",
			body:    `{"items":[{"id":1,"name":"Espresso","price":2500,"quantity":1}],"totalAmount":2500}`,
			code:    http.StatusBadRequest,
			message: msgValidation,
			field:   "itemCount",
		},
		{
			name:    "MalformedJSON",
			body:    `{"totalAmount" 1}`,
			code:    http.StatusBadRequest,
			message: msgInvalidJSON,
		},
		{
			name:    "NotAnObject",
			body:    `[]`,
			code:    http.StatusBadRequest,
			message: msgInvalidJSON,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, Config{})
			token := env.signup("demo@enzi.coffee", "Demo Barista")

			w, resp := env.do(http.MethodPost, "/api/orders", tt.body, token)
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
			if tt.field != "" {
				require.Len(t, resp.Errors, 1)
				assert.Equal(t, tt.field, resp.Errors[0].Field)
			}
			assert.Zero(t, env.orders.count(), "rejected order was stored")
		})
	}
}

func TestCreateOrder_StoreFailure(t *testing.T) {
	for _, dev := range []bool{false, true} {
		env := newEnv(t, Config{Development: dev})
		token := env.signup("demo@enzi.coffee", "Demo Barista")
		env.orders.createErr = errors.New("connection reset")

		w, resp := env.do(http.MethodPost, "/api/orders", validOrder, token)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, msgInternal, resp.Message)
		if dev {
			assert.Contains(t, resp.Stack, "connection reset")
		} else {
			assert.Empty(t, resp.Stack)
		}
	}
}

func TestGetOrder(t *testing.T) {
	env := newEnv(t, Config{})
	alice := env.signup("alice@enzi.coffee", "Alice")
	bob := env.signup("bob@enzi.coffee", "Bob")

	placed := env.placeOrder(alice)

	w, resp := env.do(http.MethodGet, "/api/orders/"+placed.ID, "", alice)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[struct {
		Order orderJSON `json:"order"`
	}](t, resp).Order
	assert.Equal(t, placed, got)

	w, resp = env.do(http.MethodGet, "/api/orders/"+placed.ID, "", bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", resp.Message)

	w, _ = env.do(http.MethodGet, "/api/orders/not-a-uuid", "", alice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOrders(t *testing.T) {
	env := newEnv(t, Config{})
	token := env.signup("demo@enzi.coffee", "Demo Barista")
	for i := range 3 {
		env.now = time.Date(2025, 6, 10, 9, i, 0, 0, time.UTC)
		env.placeOrder(token)
	}

	w, resp := env.do(http.MethodGet, "/api/orders?page=1&limit=2", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeData[struct {
		Orders     []orderJSON `json:"orders"`
		Pagination struct {
			CurrentPage int  `json:"currentPage"`
			TotalPages  int  `json:"totalPages"`
			TotalOrders int  `json:"totalOrders"`
			HasNextPage bool `json:"hasNextPage"`
			HasPrevPage bool `json:"hasPrevPage"`
		} `json:"pagination"`
	}](t, resp)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "2025-06-10T09:02:00.000Z", page.Orders[0].CreatedAt)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 3, page.Pagination.TotalOrders)
	assert.True(t, page.Pagination.HasNextPage)
	assert.False(t, page.Pagination.HasPrevPage)

	w, resp = env.do(http.MethodGet, "/api/orders?page=abc", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"currentPage":1`)
}

type statsJSON struct {
	TotalOrders   int     `json:"totalOrders"`
	TotalRevenue  int64   `json:"totalRevenue"`
	TotalItems    int     `json:"totalItems"`
	AvgOrderValue float64 `json:"avgOrderValue"`
	TopItems      []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Revenue  int64  `json:"revenue"`
	} `json:"topItems"`
}

type reportJSON struct {
	Stats     statsJSON   `json:"stats"`
	Orders    []orderJSON `json:"orders"`
	DateRange struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"dateRange"`
	Shift string `json:"shift"`
}

func TestSales(t *testing.T) {
	env := newEnv(t, Config{})
	alice := env.signup("alice@enzi.coffee", "Alice")
	bob := env.signup("bob@enzi.coffee", "Bob")

	env.now = time.Date(2025, 6, 10, 11, 59, 59, 0, time.UTC)
	env.placeOrder(alice)
	env.now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	env.placeOrder(bob)
	env.now = time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)

	report := func(path, token string) reportJSON {
		t.Helper()
		w, resp := env.do(http.MethodGet, path, "", token)
		require.Equal(t, http.StatusOK, w.Code, resp.Message)
		return decodeData[reportJSON](t, resp)
	}

	t.Run("Daily", func(t *testing.T) {
		rep := report("/api/sales/daily", alice)
		assert.Equal(t, 2, rep.Stats.TotalOrders)
		assert.Equal(t, int64(17000), rep.Stats.TotalRevenue)
		assert.Equal(t, 6, rep.Stats.TotalItems)
		assert.InDelta(t, 8500, rep.Stats.AvgOrderValue, 0.001)
		require.Len(t, rep.Stats.TopItems, 2)
		assert.Equal(t, "Espresso", rep.Stats.TopItems[0].Name)
		assert.Equal(t, 4, rep.Stats.TopItems[0].Quantity)
		assert.Len(t, rep.Orders, 2)
		assert.Equal(t, "2025-06-10T00:00:00.000Z", rep.DateRange.StartDate)
		assert.Equal(t, "2025-06-11T00:00:00.000Z", rep.DateRange.EndDate)
	})
	t.Run("Shifts", func(t *testing.T) {
		am := report("/api/sales/daily?shift=AM", alice)
		require.Len(t, am.Orders, 1)
		assert.Equal(t, "2025-06-10T11:59:59.000Z", am.Orders[0].CreatedAt)
		assert.Equal(t, "AM", am.Shift)

		pm := report("/api/sales/daily?shift=PM", alice)
		require.Len(t, pm.Orders, 1)
		assert.Equal(t, "2025-06-10T12:00:00.000Z", pm.Orders[0].CreatedAt)
	})
	t.Run("User", func(t *testing.T) {
		rep := report("/api/sales/user", bob)
		require.Len(t, rep.Orders, 1)
		assert.Equal(t, "Bob", rep.Orders[0].User.Name)
	})
	t.Run("EmptyWindow", func(t *testing.T) {
		rep := report("/api/sales/daily?startDate=2025-01-01&endDate=2025-01-02", alice)
		assert.Zero(t, rep.Stats.TotalOrders)
		assert.Zero(t, rep.Stats.AvgOrderValue)
		assert.NotNil(t, rep.Stats.TopItems)
		assert.Empty(t, rep.Stats.TopItems)
		assert.Empty(t, rep.Orders)
	})
	t.Run("BadShift", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/sales/daily?shift=night", "", alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "shift", resp.Errors[0].Field)
	})
	t.Run("BadDate", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/sales/daily?startDate=10/06/2025", "", alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "startDate", resp.Errors[0].Field)
	})
	t.Run("Analytics", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/sales/analytics", "", alice)
		require.Equal(t, http.StatusOK, w.Code)
		a := decodeData[struct {
			Overview struct {
				TotalOrders       int64   `json:"totalOrders"`
				TotalRevenue      float64 `json:"totalRevenue"`
				AverageOrderValue float64 `json:"averageOrderValue"`
			} `json:"overview"`
			DailyBreakdown []struct {
				Date   string `json:"date"`
				Orders int64  `json:"orders"`
			} `json:"dailyBreakdown"`
		}](t, resp)
		assert.Equal(t, int64(2), a.Overview.TotalOrders)
		assert.InDelta(t, 17000, a.Overview.TotalRevenue, 0.001)
		assert.InDelta(t, 8500, a.Overview.AverageOrderValue, 0.001)
		require.Len(t, a.DailyBreakdown, 1)
		assert.Equal(t, "2025-06-10", a.DailyBreakdown[0].Date)
	})
	t.Run("TopItems", func(t *testing.T) {
		w, resp := env.do(http.MethodGet, "/api/sales/top-items?limit=1", "", alice)
		require.Equal(t, http.StatusOK, w.Code)
		top := decodeData[struct {
			Items []struct {
				ID       int `json:"id"`
				Quantity int `json:"quantity"`
			} `json:"items"`
		}](t, resp)
		require.Len(t, top.Items, 1)
		assert.Equal(t, 1, top.Items[0].ID)
		assert.Equal(t, 4, top.Items[0].Quantity)
	})
}

func TestReceipt(t *testing.T) {
	env := newEnv(t, Config{})
	alice := env.signup("alice@enzi.coffee", "Alice")
	bob := env.signup("bob@enzi.coffee", "Bob")
	placed := env.placeOrder(alice)

	w, resp := env.do(http.MethodGet, "/api/sales/receipt/"+placed.ID, "", alice)
	require.Equal(t, http.StatusOK, w.Code)
	rc := decodeData[struct {
		Receipt struct {
			OrderID        string `json:"orderId"`
			ReceiptNumber  string `json:"receiptNumber"`
			TotalAmount    int64  `json:"totalAmount"`
			FormattedTotal string `json:"formattedTotal"`
			Currency       string `json:"currency"`
			Barista        struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"barista"`
		} `json:"receipt"`
	}](t, resp).Receipt
	assert.Equal(t, placed.ID, rc.OrderID)
	assert.Equal(t, sales.ReceiptNumber(env.now), rc.ReceiptNumber)
	assert.Equal(t, int64(8500), rc.TotalAmount)
	assert.Equal(t, "85.00", rc.FormattedTotal)
	assert.Equal(t, "TZS", rc.Currency)
	assert.Equal(t, "Alice", rc.Barista.Name)

	w, _ = env.do(http.MethodGet, "/api/sales/receipt/"+placed.ID, "", bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotFound(t *testing.T) {
	env := newEnv(t, Config{})
	w, resp := env.do(http.MethodGet, "/nope?x=1", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Can't find /nope?x=1 on this server!", resp.Message)
}

func TestFailure(t *testing.T) {
	w := httptest.NewRecorder()
	Failure(http.StatusTooManyRequests, "Too many requests")(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"message":"Too many requests"}`, w.Body.String())
}

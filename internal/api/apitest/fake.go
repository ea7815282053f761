// Package apitest runs an in-memory store API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
)

const signingKey = "apitest-secret"

type user struct {
	id       int64
	password string
	tenant   int64
}

type failure struct {
	status int
	detail string
}

// Fake is a store API backed by maps. All exported methods are safe for concurrent use.
type Fake struct {
	Server *httptest.Server

	mu          sync.Mutex
	products    map[int64]*catalog.Product
	global      []catalog.GlobalProduct
	orders      map[int64]*orders.Order
	users       map[string]user
	nextProduct int64
	nextOrder   int64
	nextUser    int64
	calls       int
	requestIDs  []string
	fail        []failure
	legacy      bool
	shortAck    bool
	delay       map[string]time.Duration
}

func NewFake(t testing.TB) *Fake {
	t.Helper()
	f := &Fake{
		products:    map[int64]*catalog.Product{},
		orders:      map[int64]*orders.Order{},
		users:       map[string]user{},
		nextProduct: 100,
		nextOrder:   500,
		nextUser:    1,
		delay:       map[string]time.Duration{},
	}
	f.Server = httptest.NewServer(f.router())
	t.Cleanup(f.Server.Close)
	return f
}

func (f *Fake) URL() string { return f.Server.URL }

// Calls counts every request received.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) RequestIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestIDs...)
}

// Fail makes the next request answer status with {"detail": detail}. Calls queue up.
func (f *Fake) Fail(status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = append(f.fail, failure{status: status, detail: detail})
}

// Legacy switches listings to bare arrays.
func (f *Fake) Legacy(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.legacy = on
}

// ShortAck makes order creation answer {msg, order_id, total} only.
func (f *Fake) ShortAck(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortAck = on
}

// Delay holds requests whose search parameter equals search.
func (f *Fake) Delay(search string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[search] = d
}

func (f *Fake) AddProduct(p catalog.Product) catalog.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ProductID == 0 {
		f.nextProduct++
		p.ProductID = f.nextProduct
	}
	cp := p
	f.products[p.ProductID] = &cp
	return cp
}

func (f *Fake) Product(id int64) (catalog.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, false
	}
	return *p, true
}

func (f *Fake) AddGlobal(g catalog.GlobalProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global = append(f.global, g)
}

func (f *Fake) AddOrder(o orders.Order) orders.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.OrderID == 0 {
		f.nextOrder++
		o.OrderID = f.nextOrder
	}
	if o.Status == "" {
		o.Status = orders.StatusNew
	}
	cp := o
	f.orders[o.OrderID] = &cp
	return cp
}

func (f *Fake) Order(id int64) (orders.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, false
	}
	return *o, true
}

func (f *Fake) Orders() []orders.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]orders.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

func (f *Fake) AddUser(email, password string, tenant int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUser++
	f.users[email] = user{id: f.nextUser, password: password, tenant: tenant}
}

// Token signs an owner token for tenant valid for an hour.
func Token(tenant int64, subject string) string {
	claims := session.Claims{
		TenantID: tenant,
		Role:     "OWNER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return tok
}

func (f *Fake) router() http.Handler {
	r := chi.NewRouter()
	r.Use(f.count)
	r.Get("/catalog/local/{tenantID}", f.listLocal)
	r.Patch("/catalog/local/{productID}", f.patchProduct)
	r.Post("/catalog/local/", f.createProduct)
	r.Get("/catalog/global/", f.listGlobal)
	r.Post("/orders/", f.createOwnerOrder)
	r.Post("/orders/guest", f.createGuestOrder)
	r.Get("/orders/manage", f.manageOrders)
	r.Patch("/orders/{orderID}/status", f.setStatus)
	r.Delete("/orders/{orderID}", f.deleteOrder)
	r.Post("/auth/login", f.login)
	r.Post("/auth/register", f.register)
	return r
}

func (f *Fake) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls++
		f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-Id"))
		var fl *failure
		if len(f.fail) > 0 {
			fl = &f.fail[0]
			f.fail = f.fail[1:]
		}
		d := f.delay[r.URL.Query().Get("search")]
		f.mu.Unlock()

		if d > 0 {
			time.Sleep(d)
		}
		if fl != nil {
			writeJSON(w, fl.status, map[string]string{"detail": fl.detail})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}

func ownerTenant(r *http.Request) (int64, bool) {
	h := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return 0, false
	}
	claims, err := session.DecodeClaims(tok)
	if err != nil || claims.Check(time.Now()) != nil {
		return 0, false
	}
	return claims.TenantID, true
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func paginate[T any](items []T, r *http.Request) []T {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return items
	}
	from := (page - 1) * limit
	if from >= len(items) {
		return []T{}
	}
	to := min(from+limit, len(items))
	return items[from:to]
}

func (f *Fake) listLocal(w http.ResponseWriter, r *http.Request) {
	tenant := pathID(r, "tenantID")
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))

	f.mu.Lock()
	var items []catalog.Product
	for _, p := range f.products {
		if p.TenantID != tenant {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		items = append(items, *p)
	}
	legacy := f.legacy
	f.mu.Unlock()

	desc := q.Get("sort_order") != "asc"
	less := func(i, j int) bool { return items[i].ProductID < items[j].ProductID }
	switch q.Get("sort_by") {
	case "price":
		less = func(i, j int) bool { return items[i].Price.LessThan(items[j].Price) }
	case "name":
		less = func(i, j int) bool { return items[i].Name < items[j].Name }
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
	if items == nil {
		items = []catalog.Product{}
	}

	if legacy {
		writeJSON(w, http.StatusOK, items)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(items), "products": paginate(items, r)})
}

func (f *Fake) patchProduct(w http.ResponseWriter, r *http.Request) {
	tenant, ok := ownerTenant(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var patch catalog.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[pathID(r, "productID")]
	if !ok || p.TenantID != tenant {
		detail(w, http.StatusNotFound, "Product not found")
		return
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *Fake) createProduct(w http.ResponseWriter, r *http.Request) {
	tenant, ok := ownerTenant(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var in catalog.NewProduct
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	if in.TenantID != tenant {
		detail(w, http.StatusForbidden, "Cannot create products for another store")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.GlobalRefID != nil {
		for _, p := range f.products {
			if p.TenantID == tenant && p.GlobalRefID != nil && *p.GlobalRefID == *in.GlobalRefID {
				detail(w, http.StatusConflict, "Product already imported")
				return
			}
		}
	}
	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	f.nextProduct++
	p := &catalog.Product{
		ProductID:   f.nextProduct,
		TenantID:    in.TenantID,
		Name:        in.Name,
		SKU:         in.SKU,
		Description: in.Description,
		Price:       in.Price,
		Stock:       stock,
		GlobalRefID: in.GlobalRefID,
	}
	f.products[p.ProductID] = p
	writeJSON(w, http.StatusOK, p)
}

func (f *Fake) listGlobal(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	f.mu.Lock()
	var items []catalog.GlobalProduct
	for _, g := range f.global {
		if search == "" || strings.Contains(strings.ToLower(g.Name), search) {
			items = append(items, g)
		}
	}
	legacy := f.legacy
	f.mu.Unlock()
	if items == nil {
		items = []catalog.GlobalProduct{}
	}
	if legacy {
		writeJSON(w, http.StatusOK, items)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(items), "products": paginate(items, r)})
}

// placeOrder validates items against tenant and stores a NEW order. Caller holds f.mu.
func (f *Fake) placeOrder(w http.ResponseWriter, tenant int64, userID *int64, sub orders.Submission) {
	if len(sub.Items) == 0 {
		detail(w, http.StatusBadRequest, "Order has no items")
		return
	}
	total := decimal.Zero
	for _, it := range sub.Items {
		p, ok := f.products[it.ProductID]
		if !ok {
			detail(w, http.StatusNotFound, fmt.Sprintf("Product %d does not exist", it.ProductID))
			return
		}
		if p.TenantID != tenant {
			detail(w, http.StatusBadRequest, "Product belongs to another store")
			return
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	f.nextOrder++
	o := &orders.Order{
		OrderID:     f.nextOrder,
		TenantID:    tenant,
		UserID:      userID,
		Email:       sub.Email,
		Items:       sub.Items,
		FirstName:   sub.FirstName,
		LastName:    sub.LastName,
		Address:     sub.Address,
		PhoneNumber: sub.PhoneNumber,
		TotalAmount: total,
		Status:      orders.StatusNew,
		CreatedAt:   orders.Timestamp{Time: time.Now().UTC()},
	}
	f.orders[o.OrderID] = o
	if f.shortAck {
		writeJSON(w, http.StatusCreated, map[string]any{"msg": "Order placed", "order_id": o.OrderID, "total": total})
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (f *Fake) createOwnerOrder(w http.ResponseWriter, r *http.Request) {
	tenant, ok := ownerTenant(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var sub orders.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := int64(1)
	f.placeOrder(w, tenant, &uid, sub)
}

func (f *Fake) createGuestOrder(w http.ResponseWriter, r *http.Request) {
	var sub orders.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	if sub.TenantID <= 0 || !strings.Contains(sub.Email, "@") {
		detail(w, http.StatusUnprocessableEntity, "email and tenant_id are required")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeOrder(w, sub.TenantID, nil, sub)
}

func (f *Fake) manageOrders(w http.ResponseWriter, r *http.Request) {
	tenant, ok := ownerTenant(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	out := []orders.Order{}
	for _, o := range f.Orders() {
		if o.TenantID == tenant {
			out = append(out, o)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *Fake) setStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := ownerTenant(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var body struct {
		Status orders.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[pathID(r, "orderID")]
	if !ok || o.TenantID != tenant {
		detail(w, http.StatusNotFound, "Order not found")
		return
	}
	if !orders.CanTransition(o.Status, body.Status) {
		detail(w, http.StatusBadRequest, fmt.Sprintf("Cannot change status from %s to %s", o.Status, body.Status))
		return
	}
	if body.Status == orders.StatusConfirmed {
		for _, it := range o.Items {
			p := f.products[it.ProductID]
			if p == nil || p.Stock < it.Quantity {
				detail(w, http.StatusBadRequest, fmt.Sprintf("Insufficient stock for product %d", it.ProductID))
				return
			}
		}
		for _, it := range o.Items {
			f.products[it.ProductID].Stock -= it.Quantity
		}
	}
	o.Status = body.Status
	writeJSON(w, http.StatusOK, map[string]any{"order_id": o.OrderID, "status": o.Status})
}

func (f *Fake) deleteOrder(w http.ResponseWriter, r *http.Request) {
	tenant, ok := ownerTenant(r)
	if !ok {
		detail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := pathID(r, "orderID")
	o, ok := f.orders[id]
	if !ok || o.TenantID != tenant {
		detail(w, http.StatusNotFound, "Order not found")
		return
	}
	delete(f.orders, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) login(w http.ResponseWriter, r *http.Request) {
	var cred struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	f.mu.Lock()
	u, ok := f.users[cred.Email]
	f.mu.Unlock()
	if !ok || u.password != cred.Password {
		detail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": Token(u.tenant, strconv.FormatInt(u.id, 10)),
		"token_type":   "bearer",
	})
}

func (f *Fake) register(w http.ResponseWriter, r *http.Request) {
	var reg struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		CompanyName string `json:"company_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[reg.Email]; exists {
		detail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	f.nextUser++
	tenant := f.nextUser * 10
	f.users[reg.Email] = user{id: f.nextUser, password: reg.Password, tenant: tenant}
	writeJSON(w, http.StatusCreated, map[string]any{"user_id": f.nextUser, "email": reg.Email, "tenant_id": tenant, "role": "OWNER"})
}

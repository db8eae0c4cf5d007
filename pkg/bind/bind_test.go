package bind

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graphbind-io/graphbind/pkg/client"
	"github.com/graphbind-io/graphbind/pkg/config"
	"github.com/graphbind-io/graphbind/pkg/errors"
	"github.com/graphbind-io/graphbind/pkg/operation"
)

var getUser = operation.MustParse(`query getUser($id: ID!) { user(id: $id) { name } }`)

// recorder captures every render for later inspection
type recorder struct {
	mu      sync.Mutex
	renders []Props
}

func (r *recorder) Render(p Props) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, p)
}

func (r *recorder) snapshot() []Props {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Props, len(r.renders))
	copy(out, r.renders)
	return out
}

// waitFor polls until pred matches some render or the deadline passes
func (r *recorder) waitFor(t *testing.T, pred func(Props) bool) Props {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, p := range r.snapshot() {
			if pred(p) {
				return p
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no render matched; got %d renders: %+v", len(r.snapshot()), r.snapshot())
	return nil
}

func queryResult(p Props, name string) *QueryResult {
	qr, _ := p[name].(*QueryResult)
	return qr
}

func testScope(t *testing.T, handler http.Handler) (*Scope, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := client.New(&config.Profile{Name: "test", Endpoint: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	return NewScope(c), server
}

func userHandler(requests *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		atomic.AddInt32(requests, 1)
		fmt.Fprintf(w, `{"data":{"user":{"name":"user-%v"}}}`, req.Variables["id"])
	}
}

func TestQueryBindingDefaultInjection(t *testing.T) {
	var requests int32
	scope, _ := testScope(t, userHandler(&requests))

	rec := &recorder{}
	bound := Bind(getUser, Config{})(rec)

	// Variable derived from the identically-named own prop
	if err := bound.Mount(context.Background(), scope, Props{"id": "42"}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	// Initial render: loading, no data, no error
	initial := rec.waitFor(t, func(p Props) bool {
		qr := queryResult(p, "data")
		return qr != nil && qr.Loading
	})
	qr := queryResult(initial, "data")
	if qr.Err != nil || len(qr.Errors) != 0 {
		t.Errorf("expected clean loading state, got %+v", qr)
	}

	// Resolved render carries the fetched data
	resolved := rec.waitFor(t, func(p Props) bool {
		qr := queryResult(p, "data")
		return qr != nil && !qr.Loading && qr.Data != nil
	})
	qr = queryResult(resolved, "data")
	if name, _ := qr.Field("user.name"); name != "user-42" {
		t.Errorf("expected variable-derived fetch, got %v", qr.Data)
	}

	// Own props remain visible alongside the injection
	if resolved["id"] != "42" {
		t.Errorf("expected own props to pass through, got %v", resolved)
	}
}

func TestQueryBindingNameAlias(t *testing.T) {
	scope, _ := testScope(t, userHandler(new(int32)))

	rec := &recorder{}
	bound := Bind(getUser, Config{Name: "account"})(rec)
	if err := bound.Mount(context.Background(), scope, Props{"id": "1"}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	p := rec.waitFor(t, func(p Props) bool { return queryResult(p, "account") != nil })
	if _, hasDefault := p["data"]; hasDefault {
		t.Error("aliased binding must not inject the default prop name")
	}
}

func TestQueryBindingOptionsVariablesWin(t *testing.T) {
	var requests int32
	scope, _ := testScope(t, userHandler(&requests))

	rec := &recorder{}
	bound := Bind(getUser, Config{
		Options: func(own Props) client.Options {
			return client.Options{Variables: map[string]interface{}{"id": "explicit"}}
		},
	})(rec)

	if err := bound.Mount(context.Background(), scope, Props{"id": "from-props"}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	resolved := rec.waitFor(t, func(p Props) bool {
		qr := queryResult(p, "data")
		return qr != nil && qr.Data != nil
	})
	if name, _ := queryResult(resolved, "data").Field("user.name"); name != "user-explicit" {
		t.Errorf("options variables must override props, got %v", name)
	}
}

func TestSkipBindingIssuesNothing(t *testing.T) {
	var requests int32
	scope, _ := testScope(t, userHandler(&requests))

	rec := &recorder{}
	bound := Bind(getUser, Config{
		Skip: func(own Props) bool { return own["id"] == nil },
	})(rec)

	if err := bound.Mount(context.Background(), scope, Props{}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	rec.waitFor(t, func(p Props) bool { return true })

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&requests); got != 0 {
		t.Errorf("skip must suppress the request entirely, got %d requests", got)
	}
	for _, p := range rec.snapshot() {
		if _, present := p["data"]; present {
			t.Errorf("skip must not inject a result prop, got %v", p)
		}
	}
}

func TestSkipFlipTriggersSubscription(t *testing.T) {
	var requests int32
	scope, _ := testScope(t, userHandler(&requests))

	rec := &recorder{}
	bound := Bind(getUser, Config{
		Skip: func(own Props) bool { return own["id"] == nil },
	})(rec)

	if err := bound.Mount(context.Background(), scope, Props{}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	if err := bound.SetProps(context.Background(), Props{"id": "9"}); err != nil {
		t.Fatal(err)
	}

	resolved := rec.waitFor(t, func(p Props) bool {
		qr := queryResult(p, "data")
		return qr != nil && qr.Data != nil
	})
	if name, _ := queryResult(resolved, "data").Field("user.name"); name != "user-9" {
		t.Errorf("expected fetch after skip flip, got %v", name)
	}
}

func TestSetPropsReusesSubscriptionWhenVarsUnchanged(t *testing.T) {
	var requests int32
	scope, _ := testScope(t, userHandler(&requests))

	rec := &recorder{}
	bound := Bind(getUser, Config{})(rec)

	if err := bound.Mount(context.Background(), scope, Props{"id": "1", "theme": "light"}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	rec.waitFor(t, func(p Props) bool {
		qr := queryResult(p, "data")
		return qr != nil && qr.Data != nil
	})
	before := atomic.LoadInt32(&requests)

	// Unrelated prop change: same variables, same subscription
	if err := bound.SetProps(context.Background(), Props{"id": "1", "theme": "dark"}); err != nil {
		t.Fatal(err)
	}

	rec.waitFor(t, func(p Props) bool { return p["theme"] == "dark" })
	if got := atomic.LoadInt32(&requests); got != before {
		t.Errorf("unchanged variables must reuse the subscription, got %d extra requests", got-before)
	}
}

func TestSetPropsVariableChangeResubscribes(t *testing.T) {
	var requests int32
	scope, _ := testScope(t, userHandler(&requests))

	rec := &recorder{}
	bound := Bind(getUser, Config{})(rec)

	if err := bound.Mount(context.Background(), scope, Props{"id": "1"}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	rec.waitFor(t, func(p Props) bool {
		qr := queryResult(p, "data")
		return qr != nil && qr.Data != nil
	})

	if err := bound.SetProps(context.Background(), Props{"id": "2"}); err != nil {
		t.Fatal(err)
	}

	resolved := rec.waitFor(t, func(p Props) bool {
		qr := queryResult(p, "data")
		if qr == nil || qr.Data == nil {
			return false
		}
		name, _ := qr.Field("user.name")
		return name == "user-2"
	})
	if resolved == nil {
		t.Fatal("expected data for the new variables")
	}

	// Exactly one request per subscription identity
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("expected 2 requests across the variable change, got %d", got)
	}

	// No render after the change may carry the superseded payload
	final := rec.snapshot()
	last := final[len(final)-1]
	if qr := queryResult(last, "data"); qr != nil && qr.Data != nil {
		if name, _ := qr.Field("user.name"); name == "user-1" {
			t.Error("stale payload rendered after variable change")
		}
	}
}

func TestCustomPropsSupersedesDefaultInjection(t *testing.T) {
	scope, _ := testScope(t, userHandler(new(int32)))

	rec := &recorder{}
	bound := Bind(getUser, Config{
		Props: func(in Injected) Props {
			return Props{"userLoading": in.Data.Loading}
		},
	})(rec)

	if err := bound.Mount(context.Background(), scope, Props{"id": "1"}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	p := rec.waitFor(t, func(p Props) bool { return p["userLoading"] == false })
	if _, present := p["data"]; present {
		t.Error("custom props mapping must suppress the default injection")
	}
}

func TestMountWithoutClientFails(t *testing.T) {
	rec := &recorder{}
	bound := Bind(getUser, Config{})(rec)

	err := bound.Mount(context.Background(), nil, Props{"id": "1"})
	if err == nil {
		t.Fatal("expected error for missing client")
	}
	if !errors.Is(err, errors.ErrNoClient) {
		t.Errorf("expected ErrNoClient, got %v", err)
	}
	if len(rec.snapshot()) != 0 {
		t.Error("failed mount must not render")
	}
}

func TestDoubleMountFails(t *testing.T) {
	scope, _ := testScope(t, userHandler(new(int32)))

	bound := Bind(getUser, Config{})(&recorder{})
	if err := bound.Mount(context.Background(), scope, Props{"id": "1"}); err != nil {
		t.Fatal(err)
	}
	defer bound.Unmount()

	if err := bound.Mount(context.Background(), scope, Props{"id": "1"}); err == nil {
		t.Fatal("expected error for double mount")
	}
}

func TestScopeInnermostWins(t *testing.T) {
	outer, _ := client.New(&config.Profile{Name: "outer", Endpoint: "http://outer.example.com"})
	inner, _ := client.New(&config.Profile{Name: "inner", Endpoint: "http://inner.example.com"})

	scope := NewScope(outer).Child(inner)
	got, err := ClientFrom(scope)
	if err != nil {
		t.Fatal(err)
	}
	if got.Profile().Name != "inner" {
		t.Errorf("expected innermost client, got %q", got.Profile().Name)
	}

	// nil slot falls through to the parent
	scope = NewScope(outer).Child(nil)
	got, err = ClientFrom(scope)
	if err != nil {
		t.Fatal(err)
	}
	if got.Profile().Name != "outer" {
		t.Errorf("expected fallthrough to outer client, got %q", got.Profile().Name)
	}

	if _, err := ClientFrom(nil); !errors.Is(err, errors.ErrNoClient) {
		t.Errorf("expected ErrNoClient for nil scope, got %v", err)
	}
}

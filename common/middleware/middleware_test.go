package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	hr "github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPanicRecover(t *testing.T) {
	wrec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fake", nil)
	prm := hr.Param{Key: "foo", Value: "bar"}
	cnt := 0
	touch := func() { cnt++ }
	h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		touch()
		// params are passed through as expected
		assert.Equal(t, wrec, w, "unexpected response writer")
		assert.Equal(t, req, r, "unexpected request value")
		assert.Equal(t, hr.Params{prm}, p, "unexpected params value")
		panic("boom!")
	}
	wrapped := Chain(h, PanicRecoverer())

	wrapped(wrec, req, hr.Params{prm})
	assert.Equal(t, 1, cnt, "underlying handler not called by middleware")
	assert.Equal(t, http.StatusInternalServerError, wrec.Code, "panic should surface as 500")
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(h hr.Handle) hr.Handle {
			return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
				order = append(order, name)
				h(w, r, p)
			}
		}
	}
	h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		order = append(order, "handler")
	}
	wrapped := Chain(h, mark("inner"), mark("outer"))
	wrapped(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fake", nil), nil)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order, "unexpected middleware order")
}

func TestInstrumenter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewInstrumenter(reg)
	assert.Nil(t, err, "instrumenter registration should have succeeded")

	h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		w.WriteHeader(http.StatusNotFound)
	}
	wrapped := Chain(h, m.Instrument("/view/:file"))
	wrapped(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/view/abc.html", nil), nil)
	wrapped(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/view/def.html", nil), nil)

	cnt := testutil.ToFloat64(m.requestCount.WithLabelValues(http.MethodGet, "/view/:file", "404"))
	assert.Equal(t, 2.0, cnt, "unexpected request count")
}

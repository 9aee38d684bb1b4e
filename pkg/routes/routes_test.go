package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedHandler(name string) (http.HandlerFunc, *string) {
	var called string
	return func(w http.ResponseWriter, r *http.Request) {
		called = name
		w.WriteHeader(http.StatusOK)
	}, &called
}

func TestRegisterRoutes(t *testing.T) {
	listHandler, listCalled := namedHandler("list")
	getHandler, getCalled := namedHandler("get")

	mux := http.NewServeMux()
	Register(mux, Group{
		Prefix: "/widgets",
		Routes: []Route{
			{Method: http.MethodGet, Pattern: "", Handler: listHandler},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: getHandler},
		},
	})

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/widgets", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "list", *listCalled)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/widgets/42", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "get", *getCalled)
}

func TestRegisterMethodMismatch(t *testing.T) {
	handler, _ := namedHandler("list")

	mux := http.NewServeMux()
	Register(mux, Group{
		Prefix: "/widgets",
		Routes: []Route{
			{Method: http.MethodGet, Pattern: "", Handler: handler},
		},
	})

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/widgets", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

func TestRegisterNestedGroups(t *testing.T) {
	handler, called := namedHandler("child")

	mux := http.NewServeMux()
	Register(mux, Group{
		Prefix: "/parent",
		Children: []Group{
			{
				Prefix: "/child",
				Routes: []Route{
					{Method: http.MethodGet, Pattern: "/{id}", Handler: handler},
				},
			},
		},
	})

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/parent/child/7", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "child", *called)
}

// Package server contains route table and JSON payload helpers shared by
// the HTTP wrappers.
package server

import (
	"encoding/json"
	"go/types"
	"log"
	"net/http"

	"goji.io"
)

// RouteTable maps URL patterns to handlers
type RouteTable map[goji.Pattern]http.HandlerFunc

// Bind attaches every route in the table to the mux
func (rt RouteTable) Bind(m *goji.Mux) {
	for p, h := range rt {
		m.Handle(p, h)
	}
}

// HTTPer is an object which exposes a route table
type HTTPer interface {
	// RT returns the route table to bind
	RT() RouteTable
}

// FloatT is a struct with a single float64 field, used for JSON bodies
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct containing the payload of a get request with a
// type tag selecting which field is live
type HumanPayload struct {
	// T holds the type of the payload
	T types.BasicKind

	// Int holds an integer payload
	Int int

	// Float holds a float64 payload
	Float float64

	// String holds a string payload
	String string

	// Bool holds a bool payload
	Bool bool
}

// EncodeAndRespond writes the payload to w as JSON with the key the typed
// structs above use
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	var err error
	switch hp.T {
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	default:
		http.Error(w, "server: unknown payload type", http.StatusInternalServerError)
		return
	}
	if err != nil {
		log.Printf("error encoding payload to json: %v", err)
	}
}

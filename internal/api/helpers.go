package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

func parseJSON(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/4cecoder/blobarena/models"
)

// TemplatePath is the page served at the root when it exists.
var TemplatePath = "templates/game.html"

func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFiles(TemplatePath)
	if errors.Is(err, fs.ErrNotExist) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "blobarena: %d players, %d connections\n", s.store.Len(), s.ClientCount())
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = tmpl.Execute(w, s.cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// HandleConfig serves the same config snapshot as the getConfig event.
func (s *Server) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg)
}

// HandlePlayers serves the current store snapshot.
func (s *Server) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.GameData{Players: s.store.Snapshot()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("error encoding response:", err)
	}
}

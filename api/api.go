package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// A DB provides a storage layer that persists messages.
type DB interface {
	InsertMessage(ctx context.Context, msg Message) (Message, error)
	ListConversation(ctx context.Context, userA, userB string, excludeMsgIDs ...string) ([]Message, error)
	LastMessage(ctx context.Context, userA, userB string) (Message, bool, error)
	CountUnseen(ctx context.Context, receiver, sender string) (int, error)
	MarkSeen(ctx context.Context, sender, receiver string) error
}

// A Cache provides a storage layer that caches the most recent messages of a
// conversation.
type Cache interface {
	ListConversation(ctx context.Context, userA, userB string) ([]Message, error)
	InsertMessage(ctx context.Context, msg Message) error
	Invalidate(ctx context.Context, userA, userB string) error
}

// API provides the REST endpoints for the chat backend.
type API struct {
	Logger *slog.Logger
	DB     DB
	Cache  Cache
	Val    *Validator

	once sync.Once
	mux  *http.ServeMux
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /send", a.sendMessage)
	mux.HandleFunc("GET /conversation/{userA}/{userB}", a.getConversation)
	mux.HandleFunc("GET /lastMessage/{sender}/{receiver}", a.getLastMessage)
	mux.HandleFunc("GET /unseenCount/{receiver}/{sender}", a.getUnseenCount)
	mux.HandleFunc("PUT /markAsSeen/{sender}/{receiver}", a.markAsSeen)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Sender   string `json:"sender" validate:"required"`
		Receiver string `json:"receiver" validate:"required"`
		Text     string `json:"text" validate:"required"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}

	if valid := a.validateBody(w, &body); !valid {
		return
	}

	if err := r.Body.Close(); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not close request body")
		return
	}

	msg, err := a.DB.InsertMessage(r.Context(), Message{
		Sender:   body.Sender,
		Receiver: body.Receiver,
		Text:     body.Text,
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not send message")
		return
	}

	if err := a.Cache.InsertMessage(r.Context(), msg); err != nil {
		a.Logger.Error("Could not cache message", "error", err.Error())
	}

	a.respond(w, http.StatusOK, msg)
}

func (a *API) getConversation(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Messages []Message `json:"messages"`
	}

	userA := r.PathValue("userA")
	userB := r.PathValue("userB")

	// Recent messages come from the cache, the remainder from the DB.
	cached, err := a.Cache.ListConversation(r.Context(), userA, userB)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not get conversation")
		return
	}
	a.Logger.Info("Got messages from cache", "count", len(cached))

	msgIDs := make([]string, len(cached))
	for i, msg := range cached {
		msgIDs[i] = msg.ID
	}

	dbMsgs, err := a.DB.ListConversation(r.Context(), userA, userB, msgIDs...)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not get conversation")
		return
	}
	a.Logger.Info("Got remaining messages from DB", "count", len(dbMsgs))

	// The cache usually holds the newest slice of the conversation, but a
	// failed cache insert or a send racing the two reads can leave newer
	// messages in the DB part, so the merged result is sorted explicitly.
	msgs := make([]Message, 0, len(dbMsgs)+len(cached))
	msgs = append(msgs, dbMsgs...)
	msgs = append(msgs, cached...)
	slices.SortFunc(msgs, func(a, b Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	a.respond(w, http.StatusOK, response{Messages: msgs})
}

func (a *API) getLastMessage(w http.ResponseWriter, r *http.Request) {
	sender := r.PathValue("sender")
	receiver := r.PathValue("receiver")

	msg, found, err := a.DB.LastMessage(r.Context(), sender, receiver)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not get last message")
		return
	}
	if !found {
		// An empty conversation is a valid outcome, not an error.
		a.respond(w, http.StatusOK, nil)
		return
	}

	a.respond(w, http.StatusOK, msg)
}

func (a *API) getUnseenCount(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Count int `json:"count"`
	}

	receiver := r.PathValue("receiver")
	sender := r.PathValue("sender")

	count, err := a.DB.CountUnseen(r.Context(), receiver, sender)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not get unseen count")
		return
	}

	a.respond(w, http.StatusOK, response{Count: count})
}

func (a *API) markAsSeen(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}

	sender := r.PathValue("sender")
	receiver := r.PathValue("receiver")

	if err := a.DB.MarkSeen(r.Context(), sender, receiver); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not mark messages as seen")
		return
	}

	// Cached copies still carry seen=false, drop them so the next read hits
	// the DB.
	if err := a.Cache.Invalidate(r.Context(), sender, receiver); err != nil {
		a.Logger.Error("Could not invalidate conversation cache", "error", err.Error())
	}

	a.respond(w, http.StatusOK, response{Status: "ok"})
}

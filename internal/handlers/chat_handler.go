package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"selfmanager/internal/media"
	"selfmanager/internal/models"
	"selfmanager/internal/service"
)

// ChatHandler serves the family chat API
type ChatHandler struct {
	chatService *service.ChatService
	media       *media.Store
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, store *media.Store) *ChatHandler {
	return &ChatHandler{chatService: chatService, media: store}
}

// ListMessages returns a page of a family's messages, newest first
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	query := r.URL.Query()
	page := 1
	if raw := query.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusNotFound, ErrInvalidPage, "", nil)
			return
		}
		page = n
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	result, err := h.chatService.ListMessages(user.ID, familyID, page, pageSize)
	if errors.Is(err, service.ErrPageNotFound) {
		respondWithError(w, http.StatusNotFound, ErrInvalidPage, "", nil)
		return
	}
	if err != nil {
		respondWithServiceError(w, "Error listing messages", err)
		return
	}

	view := PageView[MessageView]{
		Count: result.Count,
		Results: lo.Map(result.Messages, func(m models.Message, _ int) MessageView {
			return newMessageView(h.media, &m, user.ID)
		}),
	}
	if result.HasNext() {
		view.Next = pageURL(r, result.Page+1)
	}
	if result.HasPrevious() {
		view.Previous = pageURL(r, result.Page-1)
	}
	respondJSON(w, http.StatusOK, view)
}

// pageURL rebuilds the request URL pointing at another page
func pageURL(r *http.Request, page int) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := r.URL.Query()
	if page == 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: query.Encode()}
	s := u.String()
	return &s
}

// SendMessage posts a message as JSON or as a multipart form carrying an image
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var (
		in  service.NewMessage
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		in, err = h.readMultipartMessage(r)
		if err != nil {
			respondWithServiceError(w, "Error reading message upload", err)
			return
		}
	} else {
		var req struct {
			Content     string             `json:"content"`
			MessageType models.MessageKind `json:"message_type"`
			ReplyTo     *int64             `json:"reply_to"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		in = service.NewMessage{Content: req.Content, Kind: req.MessageType, ReplyToID: req.ReplyTo}
	}

	msg, err := h.chatService.SendMessage(user.ID, familyID, in)
	if err != nil {
		if in.Image != nil {
			if delErr := h.media.Delete(*in.Image); delErr != nil {
				log.Printf("Error removing orphaned upload %s: %v", *in.Image, delErr)
			}
		}
		respondWithServiceError(w, "Error sending message", err)
		return
	}
	respondJSON(w, http.StatusCreated, newMessageView(h.media, msg, user.ID))
}

func (h *ChatHandler) readMultipartMessage(r *http.Request) (service.NewMessage, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return service.NewMessage{}, errBadUpload
	}

	in := service.NewMessage{
		Content: r.FormValue("content"),
		Kind:    models.MessageKind(r.FormValue("message_type")),
	}
	if raw := r.FormValue("reply_to"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return in, errBadUpload
		}
		in.ReplyToID = &id
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, errBadUpload
	}
	defer file.Close()

	rel, err := h.media.SaveImage(chatImageDir, file)
	if err != nil {
		return in, err
	}
	in.Image = &rel
	return in, nil
}

// MarkRead marks every message in the family read for the user
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.chatService.MarkRead(user.ID, familyID)
	if err != nil {
		respondWithServiceError(w, "Error marking messages read", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "marked_read": n})
}

// GetMessage returns one message
func (h *ChatHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	msg, err := h.chatService.GetMessage(user.ID, messageID)
	if err != nil {
		respondWithServiceError(w, "Error getting message", err)
		return
	}
	respondJSON(w, http.StatusOK, newMessageView(h.media, msg, user.ID))
}

// EditMessage replaces the text of the caller's own recent message
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.chatService.EditMessage(user.ID, messageID, req.Content)
	if err != nil {
		respondWithServiceError(w, "Error editing message", err)
		return
	}
	respondJSON(w, http.StatusOK, newMessageView(h.media, msg, user.ID))
}

// DeleteMessage removes the caller's own message
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.chatService.DeleteMessage(user.ID, messageID); err != nil {
		respondWithServiceError(w, "Error deleting message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

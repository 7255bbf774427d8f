package handlers

import (
	"errors"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var apiJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Максимальный размер тела запроса: предложения сделок и ценовые
// тики - маленькие объекты, всё крупнее - мусор или атака.
const maxBodySize = 1 << 20 // 1MB

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondJSON сериализует payload и отправляет его с указанным статусом
func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = apiJSON.NewEncoder(w).Encode(payload)
	}
}

// respondError отправляет JSON ошибку в стандартном формате
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, ErrorResponse{Error: message})
}

// decodeBody разбирает JSON тело запроса в dst
//
// Ошибка означает некорректный запрос (HTTP 400 на стороне вызывающего).
func decodeBody(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	defer r.Body.Close()

	if err := apiJSON.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

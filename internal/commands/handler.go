package commands

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"moviedb/internal/auth"
	"moviedb/pkg/apperr"
)

// ErrorBody is the wire form of a failed command.
type ErrorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Response is the envelope every transport returns: exactly one of Result
// or Error is present.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// Encode renders the outcome of Dispatch as a Response.
func Encode(result any, err error) ([]byte, error) {
	if err != nil {
		return json.Marshal(Response{Error: &ErrorBody{Kind: apperr.KindOf(err), Message: apperr.Message(err)}})
	}
	raw, merr := json.Marshal(result)
	if merr != nil {
		return nil, merr
	}
	return json.Marshal(Response{Result: raw})
}

// HTTPStatus maps an error kind onto a status code.
func HTTPStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication, apperr.KindNoSession:
		return http.StatusUnauthorized
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateUsername:
		return http.StatusConflict
	case apperr.KindResourceBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type Handler struct {
	Dispatcher *Dispatcher
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{Dispatcher: d}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(auth.TokenMiddleware())
	rg.POST("/invoke/:command", h.invoke)
	rg.GET("/commands", h.list)
}

func (h *Handler) invoke(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.write(c, nil, apperr.Validation("invoke", "unreadable body"))
		return
	}
	res, err := h.Dispatcher.Dispatch(c.Request.Context(), c.Param("command"), body)
	h.write(c, res, err)
}

func (h *Handler) write(c *gin.Context, res any, err error) {
	status := http.StatusOK
	if err != nil {
		status = HTTPStatus(apperr.KindOf(err))
		if IsUnknownCommand(err) {
			status = http.StatusNotFound
		}
	}
	b, encErr := Encode(res, err)
	if encErr != nil {
		status = http.StatusInternalServerError
		b, _ = Encode(nil, encErr)
	}
	c.Data(status, "application/json; charset=utf-8", b)
}

func (h *Handler) list(c *gin.Context) {
	out := make([]gin.H, 0)
	access := h.Dispatcher.Commands()
	for _, name := range h.Dispatcher.Names() {
		out = append(out, gin.H{"command": name, "access": access[name].String()})
	}
	c.JSON(http.StatusOK, gin.H{"commands": out})
}
